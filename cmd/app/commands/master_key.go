package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	cryptoService "github.com/allisson/credvault/internal/crypto/service"
)

// RunCreateMasterKey generates a cryptographically secure 32-byte master key.
// Key material is zeroed from memory after encoding.
//
// Without KMS parameters the key is printed hex-encoded for direct use as
// MASTER_KEY. With kmsProvider and kmsKeyURI set, the key is wrapped through
// the KMS keeper first and MASTER_KEY carries the base64 ciphertext; the
// plaintext key never appears in the output.
//
// For local development use kmsProvider="localsecrets" with
// kmsKeyURI="base64key://...". Never use localsecrets in production.
func RunCreateMasterKey(ctx context.Context, writer io.Writer, kmsProvider, kmsKeyURI string) error {
	if (kmsProvider == "") != (kmsKeyURI == "") {
		return fmt.Errorf("--kms-provider and --kms-key-uri must be set together")
	}

	masterKey := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}
	defer cryptoDomain.Zero(masterKey)

	if kmsProvider == "" {
		_, _ = fmt.Fprintln(writer, "# Master Key Configuration")
		_, _ = fmt.Fprintln(writer, "# Copy this environment variable to your .env file or secrets manager")
		_, _ = fmt.Fprintln(writer)
		_, _ = fmt.Fprintf(writer, "MASTER_KEY=\"%s\"\n", hex.EncodeToString(masterKey))
		return nil
	}

	keeper, err := cryptoService.NewKMSService().OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			_, _ = fmt.Fprintf(writer, "# Warning: failed to close KMS keeper: %v\n", closeErr)
		}
	}()

	ciphertext, err := keeper.Encrypt(ctx, masterKey)
	if err != nil {
		return fmt.Errorf("failed to wrap master key with KMS: %w", err)
	}

	_, _ = fmt.Fprintln(writer, "# Master Key Configuration (KMS mode)")
	_, _ = fmt.Fprintln(writer, "# Copy these environment variables to your .env file or secrets manager")
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "KMS_PROVIDER=\"%s\"\n", kmsProvider)
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	_, _ = fmt.Fprintf(writer, "MASTER_KEY=\"%s\"\n", base64.StdEncoding.EncodeToString(ciphertext))

	return nil
}
