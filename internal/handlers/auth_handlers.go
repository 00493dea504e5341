package handlers

import (
	"net/http"
	"time"

	"invoiceflow/internal/common"
	"invoiceflow/internal/middleware"
	"invoiceflow/internal/models"
	"invoiceflow/internal/services"

	"github.com/labstack/echo/v4"
)

const tokenCookieName = "token"

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	authService  services.AuthService
	secureCookie bool
}

// NewAuthHandlers creates a new auth handlers instance. secureCookie marks the
// session cookie Secure and should be on whenever TLS terminates in front of us.
func NewAuthHandlers(authService services.AuthService, secureCookie bool) *AuthHandlers {
	return &AuthHandlers{
		authService:  authService,
		secureCookie: secureCookie,
	}
}

// RegisterRequest represents the registration payload
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name"`
	CompanyName string `json:"company_name" validate:"required"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /auth/register
func (h *AuthHandlers) Register(c echo.Context) error {
	var req RegisterRequest
	if proceed, err := bindAndValidate(c, &req); !proceed {
		return err
	}

	resp, err := h.authService.Register(c.Request().Context(), services.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		return respondError(c, err, "user")
	}

	h.setTokenCookie(c, resp.Token)
	return c.JSON(http.StatusCreated, resp)
}

// Login handles POST /auth/login
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if proceed, err := bindAndValidate(c, &req); !proceed {
		return err
	}

	resp, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err, "user")
	}

	h.setTokenCookie(c, resp.Token)
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the current token and clears the cookie
func (h *AuthHandlers) Logout(c echo.Context) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	if err := h.authService.RevokeToken(c.Request().Context(), claims); err != nil {
		return respondError(c, err, "token")
	}

	c.SetCookie(&http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// Me returns the authenticated user
func (h *AuthHandlers) Me(c echo.Context) error {
	tenantID, userID, ok := identityFromContext(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	user, err := h.authService.Me(c.Request().Context(), tenantID, userID)
	if err != nil {
		return respondError(c, err, "user")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"user": user})
}

func (h *AuthHandlers) setTokenCookie(c echo.Context, token *models.TokenResponse) {
	c.SetCookie(&http.Cookie{
		Name:     tokenCookieName,
		Value:    token.AccessToken,
		Path:     "/",
		MaxAge:   token.ExpiresIn,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
