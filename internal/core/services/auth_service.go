package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clearborder/duty_engine/internal/apperrors"
	"github.com/clearborder/duty_engine/internal/core/domain"
	portsrepo "github.com/clearborder/duty_engine/internal/core/ports/repositories"
	"github.com/clearborder/duty_engine/internal/utils"
)

// AuthConfig carries the token-issuance parameters.
type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
	Issuer      string
}

// AuthService verifies credentials and issues JWTs.
type AuthService struct {
	userRepo portsrepo.UserReader
	cfg      AuthConfig
}

func NewAuthService(userRepo portsrepo.UserReader, cfg AuthConfig) *AuthService {
	if cfg.TokenExpiry == 0 {
		cfg.TokenExpiry = 24 * time.Hour
	}
	return &AuthService{userRepo: userRepo, cfg: cfg}
}

// Login verifies the credentials and returns a signed token plus the user.
// Unknown user and bad password collapse into the same validation error.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.userRepo.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil, apperrors.NewValidationError("invalid credentials")
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, apperrors.NewValidationError("invalid credentials")
	}

	token, err := utils.GenerateJWT(user.UserID, s.cfg.JWTSecret, s.cfg.TokenExpiry, s.cfg.Issuer)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, user, nil
}
