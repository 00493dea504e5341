package middleware

import (
	"context"

	"invoiceflow/internal/common"
	"invoiceflow/internal/services"
	"invoiceflow/pkg/logger"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// ClaimsContextKey is where the validated claims live on the echo context.
const ClaimsContextKey = "claims"

// TokenValidator checks signature, expiry and revocation of an access token.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*services.TokenClaims, error)
}

// JWT authenticates requests by bearer header or the token cookie set at login,
// and stores user, tenant and token ids on the request context.
func JWT(validator TokenValidator) echo.MiddlewareFunc {
	return echojwt.WithConfig(JWTConfig(validator))
}

func JWTConfig(validator TokenValidator) echojwt.Config {
	return echojwt.Config{
		TokenLookup: "header:Authorization:Bearer ,cookie:token",
		ContextKey:  ClaimsContextKey,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			claims, err := validator.ValidateToken(c.Request().Context(), auth)
			if err != nil {
				return nil, err
			}
			if _, err := uuid.Parse(claims.UserID); err != nil {
				return nil, common.ErrUnauthorized
			}
			if _, err := uuid.Parse(claims.TenantID); err != nil {
				return nil, common.ErrUnauthorized
			}
			return claims, nil
		},
		SuccessHandler: func(c echo.Context) {
			claims := c.Get(ClaimsContextKey).(*services.TokenClaims)
			userID := uuid.MustParse(claims.UserID)
			tenantID := uuid.MustParse(claims.TenantID)

			ctx := common.WithIdentity(c.Request().Context(), userID, tenantID, claims.TokenID)
			ctx = logger.WithUser(ctx, userID, tenantID)
			c.SetRequest(c.Request().WithContext(ctx))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return common.SendUnauthorizedError(c)
		},
	}
}

// ClaimsFromContext returns the claims stored by JWT.
func ClaimsFromContext(c echo.Context) (*services.TokenClaims, bool) {
	claims, ok := c.Get(ClaimsContextKey).(*services.TokenClaims)
	return claims, ok
}
