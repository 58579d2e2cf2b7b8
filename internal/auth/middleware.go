package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/repository"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Technician *domain.Technician
}

// Actor converts the principal into a lifecycle actor.
func (p *Principal) Actor() domain.Actor {
	return domain.Actor{
		ID:     p.Technician.ID,
		Nombre: p.Technician.Nombre,
		Role:   p.Technician.Role,
	}
}

// Middleware validates bearer tokens and loads the acting technician.
type Middleware struct {
	tokens      *TokenManager
	technicians repository.TechnicianRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, technicians repository.TechnicianRepository) *Middleware {
	return &Middleware{tokens: tokens, technicians: technicians}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	tech, err := m.technicians.GetByID(c.Context(), claims.TechnicianID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("technician not found")
		}
		return apperrors.MapError(err)
	}
	if !tech.Activo {
		return apperrors.NewForbidden("technician deactivated")
	}

	c.Locals(principalKey, &Principal{Technician: tech})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// RequireRole ensures the caller holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Technician == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Technician.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
