package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/allisson/credvault/internal/app"
	"github.com/allisson/credvault/internal/config"
	userUseCase "github.com/allisson/credvault/internal/user/usecase"
)

// RunCreateUser registers a user directly from the command line, bypassing
// the admin-only HTTP endpoint. Intended for bootstrapping the first admin
// account on a fresh deployment.
//
// Requirements: database migrated.
func RunCreateUser(ctx context.Context, writer io.Writer, name, email, password, role string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	useCase, err := container.UserUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize user use case: %w", err)
	}

	user, err := useCase.RegisterUser(ctx, userUseCase.RegisterUserInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     role,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("user created",
		slog.String("user_id", user.ID.String()),
		slog.String("role", string(user.Role)))

	_, _ = fmt.Fprintf(writer, "User created:\n")
	_, _ = fmt.Fprintf(writer, "  ID:    %s\n", user.ID)
	_, _ = fmt.Fprintf(writer, "  Email: %s\n", user.Email)
	_, _ = fmt.Fprintf(writer, "  Role:  %s\n", user.Role)

	return nil
}
