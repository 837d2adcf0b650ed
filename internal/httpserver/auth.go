package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/logging"
	"github.com/Skotchmaster/videohub/internal/middleware/auth"
	"github.com/Skotchmaster/videohub/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

type loginBody struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *AuthHTTP) setSession(c echo.Context, res *service.LoginResult) {
	c.SetCookie(CreateCookie(auth.AccessCookie, res.AccessToken, "/", res.AccessExp))
	c.SetCookie(CreateCookie(auth.RefreshCookie, res.RefreshToken, "/", res.RefreshExp))
}

func clearSession(c echo.Context) {
	c.SetCookie(DeleteCookie(auth.AccessCookie, "/"))
	c.SetCookie(DeleteCookie(auth.RefreshCookie, "/"))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	req, err := newRequest[loginBody](c)
	if err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return err
	}
	identifier := req.Body.Username
	if identifier == "" {
		identifier = req.Body.Email
	}

	res, err := h.Svc.Login(ctx, identifier, req.Body.Password)
	if err != nil {
		return err
	}

	h.setSession(c, res)
	l.Info("login_successful", "user_id", res.User.ID)
	return respond(c, http.StatusOK, echo.Map{
		"user":        res.User,
		"accessToken": res.AccessToken,
	}, "user logged in successfully")
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	cookie, err := c.Cookie(auth.RefreshCookie)
	if err != nil || cookie.Value == "" {
		l.Warn("refresh_error", "status", 401, "reason", "no refresh cookie")
		return apperr.Unauthorized("unauthorized request")
	}

	res, err := h.Svc.Refresh(ctx, cookie.Value)
	if err != nil {
		return err
	}

	h.setSession(c, res)
	return respond(c, http.StatusOK, nil, "access token refreshed")
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	req, err := authedRequest[NoBody](c)
	if err != nil {
		return err
	}
	if err := h.Svc.Logout(ctx, req.Identity); err != nil {
		clearSession(c)
		l.Error("logout_failed", "status", 500, "reason", "cannot revoke refresh token", "error", err)
		return err
	}

	clearSession(c)
	l.Info("successful_logout")
	return respond(c, http.StatusOK, nil, "user logged out")
}

type changePasswordBody struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := authedRequest[changePasswordBody](c)
	if err != nil {
		return err
	}
	b := req.Body
	if err := h.Svc.ChangePassword(ctx, req.Identity, b.OldPassword, b.NewPassword, b.ConfirmPassword); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "password changed successfully")
}
