package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/events"
	"github.com/Skotchmaster/videohub/internal/logging"
	"github.com/Skotchmaster/videohub/internal/metrics"
	"github.com/Skotchmaster/videohub/internal/models"
	"github.com/Skotchmaster/videohub/internal/repo"
	"github.com/Skotchmaster/videohub/internal/tokens"
)

type AuthService struct {
	Repo   *repo.GormRepo
	Tokens *tokens.Service
	Events events.Publisher
	// MaskUnknownUser reports an unknown login identity as bad credentials instead of not found.
	MaskUnknownUser bool
}

type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func (s *AuthService) issuePair(user *models.User) (*LoginResult, error) {
	access, accessExp, err := s.Tokens.IssueAccessToken(tokens.Subject{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	})
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.Tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperr.BadRequest("username or email and password are required")
	}

	user, err := s.Repo.FindUserByLogin(ctx, identifier)
	if err != nil {
		if repo.IsNotFound(err) {
			metrics.SessionEventsTotal.WithLabelValues("login_failed").Inc()
			l.Warn("login_failed", "status", 404, "reason", "unknown user")
			if s.MaskUnknownUser {
				return nil, apperr.Unauthorized("invalid user credentials")
			}
			return nil, apperr.NotFound("user does not exist")
		}
		return nil, apperr.Internal("cannot load user", err)
	}

	if !user.CheckPassword(password) {
		metrics.SessionEventsTotal.WithLabelValues("login_failed").Inc()
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "user_id", user.ID)
		return nil, apperr.Unauthorized("invalid user credentials")
	}

	res, err := s.issuePair(user)
	if err != nil {
		return nil, apperr.Internal("cannot issue tokens", err)
	}

	digest := tokens.Digest(res.RefreshToken)
	if err := s.Repo.SetRefreshToken(ctx, user.ID, &digest); err != nil {
		return nil, apperr.Internal("cannot store refresh token", err)
	}
	user.RefreshToken = &digest

	metrics.SessionEventsTotal.WithLabelValues("login").Inc()
	l.Info("login_ok", "user_id", user.ID)
	publish(ctx, s.Events, events.TopicUsers, user.ID.String(), events.UserLoggedIn, map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
	return res, nil
}

// Refresh rotates the refresh token. Only the most recently issued refresh token is accepted,
// and it is accepted once.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if raw == "" {
		return nil, apperr.Unauthorized("unauthorized request")
	}

	reject := func(reason string, cause error) error {
		metrics.SessionEventsTotal.WithLabelValues("refresh_rejected").Inc()
		l.Warn("refresh_rejected", "status", 401, "reason", reason, "error", cause)
		return &apperr.Error{Kind: apperr.KindUnauthorized, Message: "invalid or expired refresh token", Cause: cause}
	}

	claims, err := s.Tokens.VerifyRefresh(raw)
	if err != nil {
		return nil, reject("verify failed", err)
	}
	userID, _ := claims.UserID()

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, reject("unknown user", err)
		}
		return nil, apperr.Internal("cannot load user", err)
	}

	current := tokens.Digest(raw)
	if user.RefreshToken == nil || *user.RefreshToken != current {
		return nil, reject("not the current refresh token", nil)
	}

	res, err := s.issuePair(user)
	if err != nil {
		return nil, apperr.Internal("cannot issue tokens", err)
	}

	next := tokens.Digest(res.RefreshToken)
	swapped, err := s.Repo.SwapRefreshToken(ctx, user.ID, current, next)
	if err != nil {
		return nil, apperr.Internal("cannot rotate refresh token", err)
	}
	if !swapped {
		return nil, reject("rotated concurrently", nil)
	}
	user.RefreshToken = &next

	metrics.SessionEventsTotal.WithLabelValues("refresh").Inc()
	l.Info("refresh_ok", "user_id", user.ID)
	return res, nil
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout", "user_id", userID)

	if err := s.Repo.SetRefreshToken(ctx, userID, nil); err != nil && !repo.IsNotFound(err) {
		return apperr.Internal("cannot clear refresh token", err)
	}
	metrics.SessionEventsTotal.WithLabelValues("logout").Inc()
	l.Info("logout_ok")
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword, confirmPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.change_password", "user_id", userID)

	if errs := missing(
		[2]string{"oldPassword", oldPassword},
		[2]string{"newPassword", newPassword},
		[2]string{"confirmPassword", confirmPassword},
	); len(errs) > 0 {
		return apperr.BadRequest("all password fields are required").WithErrors(errs...)
	}
	if newPassword != confirmPassword {
		return apperr.InvalidArgument("new password and confirm password must match")
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return apperr.Unauthorized("user no longer exists")
		}
		return apperr.Internal("cannot load user", err)
	}
	if !user.CheckPassword(oldPassword) {
		l.Warn("change_password_failed", "status", 400, "reason", "wrong old password")
		return apperr.InvalidArgument("invalid old password")
	}

	if err := user.SetPassword(newPassword); err != nil {
		return apperr.Internal("cannot hash password", err)
	}
	if err := s.Repo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return apperr.Internal(fmt.Sprintf("cannot update password for %s", user.ID), err)
	}
	l.Info("password_changed")
	return nil
}
