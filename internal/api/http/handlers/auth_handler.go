package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// AuthHandler handles agent login.
type AuthHandler struct {
	auth AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	if err := apperrors.ValidateStruct(req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		return err
	}

	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Agent: *agentResponse(result.Agent),
		Auth: dto.TokenResponse{
			Token:     result.Token,
			ExpiresAt: result.ExpiresAt,
		},
	}})
}
