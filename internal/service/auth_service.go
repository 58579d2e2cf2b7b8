package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-service/internal/auth"
	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/repository"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

// AuthService resolves technician identity for the HTTP edge.
type AuthService struct {
	technicians repository.TechnicianRepository
	tokens      *auth.TokenManager
}

// NewAuthService constructs the service.
func NewAuthService(technicians repository.TechnicianRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{technicians: technicians, tokens: tokens}
}

// LoginResult carries the issued token.
type LoginResult struct {
	Token      string
	ExpiresAt  time.Time
	Technician *domain.Technician
}

// Login authenticates a technician by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	tech, err := s.technicians.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !tech.Activo {
		return nil, apperrors.NewForbidden("technician deactivated")
	}
	if err := auth.ComparePassword(tech.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(tech.ID, tech.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Technician: tech}, nil
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}
