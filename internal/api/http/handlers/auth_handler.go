package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/workorder-service/internal/api/dto"
	"github.com/fieldops/workorder-service/internal/service"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

// AuthHandler manages technician authentication endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	result, err := h.auth.Login(c.UserContext(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Nombre:    result.Technician.Nombre,
		Role:      string(result.Technician.Role),
	}})
}
