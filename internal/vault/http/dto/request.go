// Package dto provides data transfer objects for the credential HTTP layer.
package dto

import (
	validation "github.com/jellydator/validation"

	appValidation "github.com/allisson/credvault/internal/validation"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
)

// CreateCredentialRequest represents the API request for creating a credential.
// The secret is base64 encoded to carry arbitrary binary payloads in JSON.
type CreateCredentialRequest struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

// Validate checks the create credential request.
func (r *CreateCredentialRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Type,
			validation.Required.Error("type is required"),
			validation.In(
				string(vaultDomain.CredentialTypePassword),
				string(vaultDomain.CredentialTypeSSH),
				string(vaultDomain.CredentialTypeAPIToken),
				string(vaultDomain.CredentialTypeCertificate),
				string(vaultDomain.CredentialTypeDatabase),
			).Error("type must be one of: password, ssh, api_token, certificate, database"),
		),
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&r.Host,
			validation.Length(0, 255).Error("host must be at most 255 characters"),
		),
		validation.Field(&r.Port,
			validation.Min(0).Error("port must not be negative"),
			validation.Max(65535).Error("port must be at most 65535"),
		),
		validation.Field(&r.Username,
			validation.Length(0, 255).Error("username must be at most 255 characters"),
		),
		validation.Field(&r.Secret,
			validation.Required.Error("secret is required"),
			appValidation.Base64,
		),
	)
	return appValidation.WrapValidationError(err)
}

// UpdateCredentialRequest represents the API request for updating a
// credential. Absent fields are left unchanged.
type UpdateCredentialRequest struct {
	Name     *string `json:"name"`
	Host     *string `json:"host"`
	Port     *int    `json:"port"`
	Username *string `json:"username"`
	Status   *string `json:"status"`
	Secret   *string `json:"secret"`
}

// Validate checks the update credential request.
func (r *UpdateCredentialRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&r.Status,
			validation.In(
				string(vaultDomain.CredentialStatusActive),
				string(vaultDomain.CredentialStatusDisabled),
				string(vaultDomain.CredentialStatusExpired),
			).Error("status must be one of: active, disabled, expired"),
		),
		validation.Field(&r.Secret,
			appValidation.Base64,
		),
	)
	return appValidation.WrapValidationError(err)
}

// ToCreateCredentialInput converts the request to a use case input with the
// secret already decoded.
func ToCreateCredentialInput(req CreateCredentialRequest, secret []byte) vaultUseCase.CreateCredentialInput {
	return vaultUseCase.CreateCredentialInput{
		Type:     req.Type,
		Name:     req.Name,
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Secret:   secret,
	}
}

// ToUpdateCredentialInput converts the request to a use case input with the
// secret already decoded (nil when absent).
func ToUpdateCredentialInput(req UpdateCredentialRequest, secret []byte) vaultUseCase.UpdateCredentialInput {
	return vaultUseCase.UpdateCredentialInput{
		Name:     req.Name,
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Status:   req.Status,
		Secret:   secret,
	}
}
