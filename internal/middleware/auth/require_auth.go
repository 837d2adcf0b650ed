package auth

import (
	"net/http"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/logging"
	"github.com/Skotchmaster/videohub/internal/tokens"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"

	claimsKey = "claims"
)

// RequireAuth accepts an access token from the accessToken cookie or an
// Authorization: Bearer header and attaches the caller's id to the context.
func RequireAuth(tk *tokens.Service) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsKey,
		TokenLookup: "cookie:" + AccessCookie + ",header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, raw string) (any, error) {
			return tk.VerifyAccess(raw)
		},
		SuccessHandler: func(c echo.Context) {
			claims := c.Get(claimsKey).(*tokens.Claims)
			id, _ := claims.UserID()
			c.Set(apperr.IdentityKey, id)

			req := c.Request()
			l := logging.FromContext(req.Context()).With("user_id", id.String())
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logging.FromContext(c.Request().Context()).With("handler", "auth.require").
				Warn("auth_rejected", "status", http.StatusUnauthorized, "reason", err.Error())
			return &apperr.Error{Kind: apperr.KindUnauthorized, Message: "unauthorized request", Cause: err}
		},
	})
}

// Identity returns the caller attached by RequireAuth.
func Identity(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(apperr.IdentityKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// Claims returns the verified access-token claims attached by RequireAuth.
func Claims(c echo.Context) (*tokens.Claims, bool) {
	claims, ok := c.Get(claimsKey).(*tokens.Claims)
	return claims, ok
}
