package app

import (
	"context"
	"encoding/base64"
	"fmt"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	cryptoRepository "github.com/allisson/credvault/internal/crypto/repository"
	cryptoService "github.com/allisson/credvault/internal/crypto/service"
	cryptoUseCase "github.com/allisson/credvault/internal/crypto/usecase"
)

// MasterKey returns the root key of the key hierarchy.
// Loaded from MASTER_KEY, or unwrapped through the configured KMS keeper.
func (c *Container) MasterKey() (*cryptoDomain.MasterKey, error) {
	c.masterKeyInit.Do(func() {
		masterKey, err := c.initMasterKey()
		if err != nil {
			c.initErrors["masterKey"] = err
			return
		}
		c.masterKey = masterKey
	})
	if storedErr, exists := c.initErrors["masterKey"]; exists {
		return nil, storedErr
	}
	return c.masterKey, nil
}

// KMSService returns the KMS service used to unwrap a KMS-wrapped master key.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// AEADManager returns the AEAD cipher factory.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// KeyRing returns the in-memory vault key ring.
func (c *Container) KeyRing() *cryptoDomain.KeyRing {
	c.keyRingInit.Do(func() {
		c.keyRing = cryptoDomain.NewKeyRing(c.config.KeyHistoryLimit)
	})
	return c.keyRing
}

// KeyManager returns the key manager service.
func (c *Container) KeyManager() (cryptoService.KeyManager, error) {
	c.keyManagerInit.Do(func() {
		masterKey, err := c.MasterKey()
		if err != nil {
			c.initErrors["keyManager"] = fmt.Errorf("failed to get master key for key manager: %w", err)
			return
		}
		c.keyManager = cryptoService.NewKeyManager(
			masterKey,
			c.KeyRing(),
			c.AEADManager(),
			c.encryptionAlgorithm(),
		)
	})
	if storedErr, exists := c.initErrors["keyManager"]; exists {
		return nil, storedErr
	}
	return c.keyManager, nil
}

// KeyRepository returns the vault key repository based on the database driver.
func (c *Container) KeyRepository() (cryptoUseCase.KeyRepository, error) {
	c.keyRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["keyRepo"] = fmt.Errorf("failed to get database for key repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.keyRepo = cryptoRepository.NewMySQLKeyRepository(db)
		case "postgres":
			c.keyRepo = cryptoRepository.NewPostgreSQLKeyRepository(db)
		default:
			c.initErrors["keyRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["keyRepo"]; exists {
		return nil, storedErr
	}
	return c.keyRepo, nil
}

// KeyUseCase returns the vault key lifecycle use case.
func (c *Container) KeyUseCase() (cryptoUseCase.KeyUseCase, error) {
	c.keyUseCaseInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["keyUseCase"] = fmt.Errorf("failed to get tx manager for key use case: %w", err)
			return
		}

		keyRepo, err := c.KeyRepository()
		if err != nil {
			c.initErrors["keyUseCase"] = fmt.Errorf("failed to get key repository for key use case: %w", err)
			return
		}

		keyManager, err := c.KeyManager()
		if err != nil {
			c.initErrors["keyUseCase"] = fmt.Errorf("failed to get key manager for key use case: %w", err)
			return
		}

		credentialRepo, err := c.CredentialRepository()
		if err != nil {
			c.initErrors["keyUseCase"] = fmt.Errorf("failed to get credential repository for key use case: %w", err)
			return
		}

		c.keyUseCase = cryptoUseCase.NewKeyUseCase(
			txManager,
			keyRepo,
			keyManager,
			c.KeyRing(),
			credentialRepo,
		)
	})
	if storedErr, exists := c.initErrors["keyUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyUseCase, nil
}

// encryptionAlgorithm maps the configured algorithm name to the AEAD used for
// newly generated vault keys.
func (c *Container) encryptionAlgorithm() cryptoDomain.Algorithm {
	if c.config.EncryptionAlgorithm == string(cryptoDomain.ChaCha20) {
		return cryptoDomain.ChaCha20
	}
	return cryptoDomain.AESGCM
}

// initMasterKey loads the master key. With a KMS provider configured,
// MASTER_KEY holds the base64-encoded wrapped key and is unwrapped through
// the keeper; otherwise it is the hex-encoded key itself.
func (c *Container) initMasterKey() (*cryptoDomain.MasterKey, error) {
	if c.config.KMSProvider == "" || c.config.KMSKeyURI == "" {
		return cryptoDomain.ParseMasterKey(c.config.MasterKey)
	}

	ctx := context.Background()

	keeper, err := c.KMSService().OpenKeeper(ctx, c.config.KMSKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			c.Logger().Warn("failed to close KMS keeper", "error", closeErr)
		}
	}()

	wrapped, err := base64.StdEncoding.DecodeString(c.config.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("%w: MASTER_KEY is not valid base64", cryptoDomain.ErrInvalidMasterKey)
	}

	key, err := keeper.Decrypt(ctx, wrapped)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap master key via KMS: %w", err)
	}
	if len(key) != cryptoDomain.KeySize {
		cryptoDomain.Zero(key)
		return nil, fmt.Errorf("%w: unwrapped key must be %d bytes, got %d",
			cryptoDomain.ErrInvalidMasterKey, cryptoDomain.KeySize, len(key))
	}

	return &cryptoDomain.MasterKey{Key: key}, nil
}
