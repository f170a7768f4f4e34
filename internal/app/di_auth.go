package app

import (
	"fmt"

	authHTTP "github.com/allisson/credvault/internal/auth/http"
	authRepository "github.com/allisson/credvault/internal/auth/repository"
	authService "github.com/allisson/credvault/internal/auth/service"
	authUseCase "github.com/allisson/credvault/internal/auth/usecase"
)

// VerifierChain returns the ordered token verifier chain. Issuers with an
// empty secret are left out of the chain.
func (c *Container) VerifierChain() (*authService.VerifierChain, error) {
	c.verifierChainInit.Do(func() {
		var verifiers []authService.TokenVerifier
		if c.config.InternalTokenSecret != "" {
			verifiers = append(verifiers,
				authService.NewHMACVerifier("internal", []byte(c.config.InternalTokenSecret)))
		}
		if c.config.ExternalTokenSecret != "" {
			verifiers = append(verifiers,
				authService.NewHMACVerifier("external", []byte(c.config.ExternalTokenSecret)))
		}
		if len(verifiers) == 0 {
			c.initErrors["verifierChain"] = fmt.Errorf(
				"no token issuer configured: set INTERNAL_TOKEN_SECRET or EXTERNAL_TOKEN_SECRET")
			return
		}
		c.verifierChain = authService.NewVerifierChain(verifiers...)
	})
	if storedErr, exists := c.initErrors["verifierChain"]; exists {
		return nil, storedErr
	}
	return c.verifierChain, nil
}

// PrincipalResolver returns the principal resolver used by the
// authentication middleware.
func (c *Container) PrincipalResolver() (authUseCase.PrincipalResolver, error) {
	c.principalResolverInit.Do(func() {
		chain, err := c.VerifierChain()
		if err != nil {
			c.initErrors["principalResolver"] = err
			return
		}

		userRepo, err := c.UserRepository()
		if err != nil {
			c.initErrors["principalResolver"] = fmt.Errorf(
				"failed to get user repository for principal resolver: %w", err)
			return
		}

		resolver := authUseCase.NewPrincipalResolver(
			chain,
			userRepo,
			c.config.ProfileLookupTimeout,
			c.Logger(),
		)

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["principalResolver"] = err
			return
		}

		c.principalResolver = authUseCase.NewPrincipalResolverWithMetrics(resolver, businessMetrics)
	})
	if storedErr, exists := c.initErrors["principalResolver"]; exists {
		return nil, storedErr
	}
	return c.principalResolver, nil
}

// AuditLogRepository returns the audit log repository based on the database driver.
func (c *Container) AuditLogRepository() (authUseCase.AuditLogRepository, error) {
	c.auditLogRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["auditLogRepo"] = fmt.Errorf("failed to get database for audit log repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.auditLogRepo = authRepository.NewMySQLAuditLogRepository(db)
		case "postgres":
			c.auditLogRepo = authRepository.NewPostgreSQLAuditLogRepository(db)
		default:
			c.initErrors["auditLogRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["auditLogRepo"]; exists {
		return nil, storedErr
	}
	return c.auditLogRepo, nil
}

// AuditLogUseCase returns the asynchronous audit trail use case. The caller
// starts the persistence worker via Start.
func (c *Container) AuditLogUseCase() (authUseCase.AuditLogUseCase, error) {
	c.auditLogUseCaseInit.Do(func() {
		auditLogRepo, err := c.AuditLogRepository()
		if err != nil {
			c.initErrors["auditLogUseCase"] = err
			return
		}

		masterKey, err := c.MasterKey()
		if err != nil {
			c.initErrors["auditLogUseCase"] = fmt.Errorf(
				"failed to get master key for audit log use case: %w", err)
			return
		}

		c.auditLogUseCase = authUseCase.NewAuditLogUseCase(
			auditLogRepo,
			authService.NewAuditSigner(),
			masterKey.Key,
			c.config.AuditBufferSize,
			c.Logger(),
		)
	})
	if storedErr, exists := c.initErrors["auditLogUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditLogUseCase, nil
}

// AuditLogHandler returns the audit trail HTTP handler.
func (c *Container) AuditLogHandler() (*authHTTP.AuditLogHandler, error) {
	c.auditLogHandlerInit.Do(func() {
		auditLogUseCase, err := c.AuditLogUseCase()
		if err != nil {
			c.initErrors["auditLogHandler"] = err
			return
		}
		c.auditLogHandler = authHTTP.NewAuditLogHandler(auditLogUseCase, c.Logger())
	})
	if storedErr, exists := c.initErrors["auditLogHandler"]; exists {
		return nil, storedErr
	}
	return c.auditLogHandler, nil
}
