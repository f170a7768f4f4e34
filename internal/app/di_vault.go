package app

import (
	"fmt"

	vaultHTTP "github.com/allisson/credvault/internal/vault/http"
	vaultRepository "github.com/allisson/credvault/internal/vault/repository"
	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
)

// CredentialRepository returns the credential repository based on the database driver.
func (c *Container) CredentialRepository() (vaultUseCase.CredentialRepository, error) {
	c.credentialRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["credentialRepo"] = fmt.Errorf(
				"failed to get database for credential repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.credentialRepo = vaultRepository.NewMySQLCredentialRepository(db)
		case "postgres":
			c.credentialRepo = vaultRepository.NewPostgreSQLCredentialRepository(db)
		default:
			c.initErrors["credentialRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["credentialRepo"]; exists {
		return nil, storedErr
	}
	return c.credentialRepo, nil
}

// CredentialUseCase returns the credential management use case, wrapped with
// business metrics.
func (c *Container) CredentialUseCase() (vaultUseCase.CredentialUseCase, error) {
	c.credentialUseCaseInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["credentialUseCase"] = fmt.Errorf(
				"failed to get tx manager for credential use case: %w", err)
			return
		}

		credentialRepo, err := c.CredentialRepository()
		if err != nil {
			c.initErrors["credentialUseCase"] = err
			return
		}

		keyManager, err := c.KeyManager()
		if err != nil {
			c.initErrors["credentialUseCase"] = fmt.Errorf(
				"failed to get key manager for credential use case: %w", err)
			return
		}

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["credentialUseCase"] = err
			return
		}

		useCase := vaultUseCase.NewCredentialUseCase(
			txManager,
			credentialRepo,
			keyManager,
			vaultUseCase.NewAccessControl(),
			c.KeyRing(),
			c.Logger(),
		)

		c.credentialUseCase = vaultUseCase.NewCredentialUseCaseWithMetrics(useCase, businessMetrics)
	})
	if storedErr, exists := c.initErrors["credentialUseCase"]; exists {
		return nil, storedErr
	}
	return c.credentialUseCase, nil
}

// CredentialHandler returns the credential HTTP handler.
func (c *Container) CredentialHandler() (*vaultHTTP.CredentialHandler, error) {
	c.credentialHandlerInit.Do(func() {
		credentialUseCase, err := c.CredentialUseCase()
		if err != nil {
			c.initErrors["credentialHandler"] = err
			return
		}

		auditLogUseCase, err := c.AuditLogUseCase()
		if err != nil {
			c.initErrors["credentialHandler"] = err
			return
		}

		c.credentialHandler = vaultHTTP.NewCredentialHandler(credentialUseCase, auditLogUseCase, c.Logger())
	})
	if storedErr, exists := c.initErrors["credentialHandler"]; exists {
		return nil, storedErr
	}
	return c.credentialHandler, nil
}

// StreamHandler returns the SSE status streaming handler.
func (c *Container) StreamHandler() (*vaultHTTP.StreamHandler, error) {
	c.streamHandlerInit.Do(func() {
		credentialUseCase, err := c.CredentialUseCase()
		if err != nil {
			c.initErrors["streamHandler"] = err
			return
		}

		c.streamHandler = vaultHTTP.NewStreamHandler(
			credentialUseCase,
			c.config.StreamPushInterval,
			c.Logger(),
		)
	})
	if storedErr, exists := c.initErrors["streamHandler"]; exists {
		return nil, storedErr
	}
	return c.streamHandler, nil
}
