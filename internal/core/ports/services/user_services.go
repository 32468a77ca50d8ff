package services

import (
	"context"

	"github.com/clearborder/duty_engine/internal/core/domain"
	"github.com/clearborder/duty_engine/internal/dto"
)

// UserSvcFacade defines operations over admin-surface users.
type UserSvcFacade interface {
	// CreateUser persists a new user with a hashed password.
	CreateUser(ctx context.Context, req dto.CreateUserRequest, creatorUserID string) (*domain.User, error)

	// GetUserByID retrieves a user by id.
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
}

// AuthSvcFacade authenticates users and issues tokens.
type AuthSvcFacade interface {
	// Login verifies credentials and returns a signed JWT plus the user.
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
}
