package dto

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// CredentialResponse is the metadata representation of a credential. It never
// carries the secret payload, neither plaintext nor ciphertext.
type CredentialResponse struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Type       string    `json:"type"`
	Name       string    `json:"name"`
	Host       string    `json:"host,omitempty"`
	Port       int       `json:"port,omitempty"`
	Username   string    `json:"username,omitempty"`
	KeyVersion uint      `json:"key_version"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CredentialSecretResponse is the read representation: metadata plus the
// decrypted secret, base64 encoded. Returned only by the single read
// endpoint that performs a decrypt.
type CredentialSecretResponse struct {
	CredentialResponse
	Secret string `json:"secret"`
}

// CredentialListResponse wraps a page of credential metadata.
type CredentialListResponse struct {
	Credentials []CredentialResponse `json:"credentials"`
}

// StatusSummaryResponse reports visible credential counts per status.
type StatusSummaryResponse struct {
	Counts map[string]int64 `json:"counts"`
	At     time.Time        `json:"at"`
}

// ToCredentialResponse converts a domain credential to its metadata response.
func ToCredentialResponse(credential *vaultDomain.Credential) CredentialResponse {
	return CredentialResponse{
		ID:         credential.ID,
		OwnerID:    credential.OwnerID,
		Type:       string(credential.Type),
		Name:       credential.Name,
		Host:       credential.Host,
		Port:       credential.Port,
		Username:   credential.Username,
		KeyVersion: credential.KeyVersion,
		Status:     string(credential.Status),
		CreatedAt:  credential.CreatedAt,
		UpdatedAt:  credential.UpdatedAt,
	}
}

// ToCredentialSecretResponse converts a decrypted credential to the read
// response. The caller zeroes the plaintext after the response is written.
func ToCredentialSecretResponse(credential *vaultDomain.Credential) CredentialSecretResponse {
	return CredentialSecretResponse{
		CredentialResponse: ToCredentialResponse(credential),
		Secret:             base64.StdEncoding.EncodeToString(credential.Plaintext),
	}
}

// ToCredentialListResponse converts a page of credentials to the list response.
func ToCredentialListResponse(credentials []*vaultDomain.Credential) CredentialListResponse {
	response := CredentialListResponse{Credentials: make([]CredentialResponse, 0, len(credentials))}
	for _, credential := range credentials {
		response.Credentials = append(response.Credentials, ToCredentialResponse(credential))
	}
	return response
}

// ToStatusSummaryResponse converts per-status counts to the summary pushed on
// the streaming endpoint.
func ToStatusSummaryResponse(counts map[vaultDomain.CredentialStatus]int64, at time.Time) StatusSummaryResponse {
	response := StatusSummaryResponse{Counts: make(map[string]int64, len(counts)), At: at}
	for status, count := range counts {
		response.Counts[string(status)] = count
	}
	return response
}
