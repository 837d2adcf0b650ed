package httpserver

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/videohub/internal/logging"
	"github.com/Skotchmaster/videohub/internal/models"
	"github.com/Skotchmaster/videohub/internal/service"
	"github.com/Skotchmaster/videohub/internal/storage"
)

type UserHTTP struct {
	Svc     *service.ProfileService
	Staging storage.Staging
}

type registerBody struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email"    form:"email"`
	FullName string `json:"fullName" form:"fullName"`
	Password string `json:"password" form:"password"`
}

func (h *UserHTTP) cleanup(c echo.Context, staged []string) {
	if err := h.Staging.Remove(staged...); err != nil {
		logging.FromContext(c.Request().Context()).Warn("staging_cleanup_failed", "error", err)
	}
}

func (h *UserHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.register")

	var staged []string
	defer func() { h.cleanup(c, staged) }()

	req, err := newRequest[registerBody](c)
	if err != nil {
		return err
	}
	avatar, err := stage(c, h.Staging, "avatar", &staged)
	if err != nil {
		return err
	}
	cover, err := stage(c, h.Staging, "coverImage", &staged)
	if err != nil {
		return err
	}

	user, err := h.Svc.Register(ctx, service.RegisterInput{
		Username:       req.Body.Username,
		Email:          req.Body.Email,
		FullName:       req.Body.FullName,
		Password:       req.Body.Password,
		AvatarPath:     avatar,
		CoverImagePath: cover,
	})
	if err != nil {
		return err
	}

	l.Info("user_registered", "user_id", user.ID)
	return respond(c, http.StatusCreated, user, "user registered successfully")
}

func (h *UserHTTP) CurrentUser(c echo.Context) error {
	req, err := authedRequest[NoBody](c)
	if err != nil {
		return err
	}
	user, err := h.Svc.CurrentUser(c.Request().Context(), req.Identity)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user, "current user fetched successfully")
}

type accountBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
}

func (h *UserHTTP) UpdateAccount(c echo.Context) error {
	req, err := authedRequest[accountBody](c)
	if err != nil {
		return err
	}
	user, err := h.Svc.UpdateAccount(c.Request().Context(), req.Identity, service.AccountInput{
		Username: req.Body.Username,
		Email:    req.Body.Email,
		Name:     req.Body.Name,
		FullName: req.Body.FullName,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user, "account details updated successfully")
}

func (h *UserHTTP) UpdateAvatar(c echo.Context) error {
	return h.replaceAsset(c, "avatar", h.Svc.UpdateAvatar, "avatar updated successfully")
}

func (h *UserHTTP) UpdateCoverImage(c echo.Context) error {
	return h.replaceAsset(c, "coverImage", h.Svc.UpdateCoverImage, "cover image updated successfully")
}

func (h *UserHTTP) replaceAsset(c echo.Context, field string, update func(context.Context, uuid.UUID, string) (*models.User, error), message string) error {
	var staged []string
	defer func() { h.cleanup(c, staged) }()

	req, err := authedRequest[NoBody](c)
	if err != nil {
		return err
	}
	path, err := stage(c, h.Staging, field, &staged)
	if err != nil {
		return err
	}
	user, err := update(c.Request().Context(), req.Identity, path)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user, message)
}

func (h *UserHTTP) ChannelProfile(c echo.Context) error {
	req, err := authedRequest[NoBody](c)
	if err != nil {
		return err
	}
	profile, err := h.Svc.ChannelProfile(c.Request().Context(), req.Params["username"], req.Identity)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, profile, "user channel fetched successfully")
}

func (h *UserHTTP) WatchHistory(c echo.Context) error {
	req, err := authedRequest[NoBody](c)
	if err != nil {
		return err
	}
	items, err := h.Svc.WatchHistory(c.Request().Context(), req.Identity)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, items, "watch history fetched successfully")
}
