package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/bosphorus-pay/bosphorus_pay/internal/identity"
)

// Handler exposes login/refresh/me endpoints.
type Handler struct {
	ids *identity.Service
	svc *Service
}

// NewHandler builds the auth HTTP handler.
func NewHandler(ids *identity.Service, svc *Service) *Handler {
	return &Handler{ids: ids, svc: svc}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	CustomerID   string `json:"customer_id,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login validates credentials and returns a token pair.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.ids.Authenticate(c.UserContext(), identity.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	pair, err := h.svc.Login(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(loginResponse{
		UserID:       user.ID,
		Username:     user.Username,
		Role:         string(user.Role),
		CustomerID:   user.CustomerID(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh issues a new access token using a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, exp, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"access_token": token, "expires_in": exp})
}

// Me returns the authenticated caller's identity.
func (h *Handler) Me(c *fiber.Ctx) error {
	ident, ok := IdentityFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}
	user, err := h.ids.Get(c.UserContext(), ident.UserID)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "user not found")
	}
	return c.JSON(fiber.Map{
		"user_id":     user.ID,
		"username":    user.Username,
		"name":        user.Name,
		"surname":     user.Surname,
		"role":        user.Role,
		"customer_id": user.CustomerID(),
		"created_at":  user.CreatedAt,
	})
}
