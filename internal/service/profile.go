package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/events"
	"github.com/Skotchmaster/videohub/internal/logging"
	"github.com/Skotchmaster/videohub/internal/models"
	"github.com/Skotchmaster/videohub/internal/repo"
	"github.com/Skotchmaster/videohub/internal/storage"
)

type ProfileService struct {
	Repo   *repo.GormRepo
	Media  storage.Uploader
	Events events.Publisher
}

// RegisterInput carries the form fields and the local paths of the staged files.
type RegisterInput struct {
	Username       string
	Email          string
	FullName       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

func (s *ProfileService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "profile.register")

	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.TrimSpace(in.Email)
	fullName := strings.TrimSpace(in.FullName)

	if errs := missing(
		[2]string{"username", username},
		[2]string{"email", email},
		[2]string{"fullName", fullName},
		[2]string{"password", in.Password},
	); len(errs) > 0 {
		return nil, apperr.BadRequest("all fields are required").WithErrors(errs...)
	}
	if in.AvatarPath == "" {
		return nil, apperr.BadRequest("avatar file is required")
	}

	taken, err := s.Repo.IdentityTaken(ctx, username, email, uuid.Nil)
	if err != nil {
		return nil, apperr.Internal("cannot check existing users", err)
	}
	if taken {
		l.Warn("register_failed", "status", 409, "reason", "identity taken", "username", username)
		return nil, apperr.Conflict("user with email or username already exists")
	}

	avatar, err := upload(ctx, s.Media, in.AvatarPath, storage.FolderAvatars)
	if err != nil {
		return nil, apperr.UploadFailed("avatar upload failed", err)
	}
	var cover *storage.UploadResult
	if in.CoverImagePath != "" {
		cover, err = upload(ctx, s.Media, in.CoverImagePath, storage.FolderCovers)
		if err != nil {
			destroy(ctx, s.Media, avatar.PublicID)
			return nil, apperr.UploadFailed("cover image upload failed", err)
		}
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Name:     fullName,
		FullName: fullName,
		Avatar:   models.Asset{URL: avatar.URL, PublicID: avatar.PublicID},
	}
	if cover != nil {
		user.CoverImage = models.Asset{URL: cover.URL, PublicID: cover.PublicID}
	}
	if err := user.SetPassword(in.Password); err != nil {
		destroy(ctx, s.Media, user.Avatar.PublicID, user.CoverImage.PublicID)
		return nil, apperr.Internal("cannot hash password", err)
	}

	if err := s.Repo.CreateUser(ctx, user); err != nil {
		destroy(ctx, s.Media, user.Avatar.PublicID, user.CoverImage.PublicID)
		if repo.IsDuplicate(err) {
			return nil, apperr.Conflict("user with email or username already exists")
		}
		return nil, apperr.Internal("something went wrong while registering the user", err)
	}

	l.Info("register_ok", "user_id", user.ID, "username", user.Username)
	publish(ctx, s.Events, events.TopicUsers, user.ID.String(), events.UserRegistered, map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
	return user, nil
}

func (s *ProfileService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, apperr.Unauthorized("user no longer exists")
		}
		return nil, apperr.Internal("cannot load user", err)
	}
	return user, nil
}

type AccountInput struct {
	Username string
	Email    string
	Name     string
	FullName string
}

func (s *ProfileService) UpdateAccount(ctx context.Context, userID uuid.UUID, in AccountInput) (*models.User, error) {
	f := repo.AccountFields{
		Username: strings.ToLower(strings.TrimSpace(in.Username)),
		Email:    strings.TrimSpace(in.Email),
		Name:     strings.TrimSpace(in.Name),
		FullName: strings.TrimSpace(in.FullName),
	}
	if errs := missing(
		[2]string{"email", f.Email},
		[2]string{"name", f.Name},
		[2]string{"username", f.Username},
		[2]string{"fullName", f.FullName},
	); len(errs) > 0 {
		return nil, apperr.BadRequest("all fields are required").WithErrors(errs...)
	}

	taken, err := s.Repo.IdentityTaken(ctx, f.Username, f.Email, userID)
	if err != nil {
		return nil, apperr.Internal("cannot check existing users", err)
	}
	if taken {
		return nil, apperr.Conflict("username or email is already in use")
	}

	user, err := s.Repo.UpdateAccount(ctx, userID, f)
	if err != nil {
		switch {
		case repo.IsNotFound(err):
			return nil, apperr.Unauthorized("user no longer exists")
		case repo.IsDuplicate(err):
			return nil, apperr.Conflict("username or email is already in use")
		}
		return nil, apperr.Internal("cannot update account", err)
	}
	return user, nil
}

func (s *ProfileService) UpdateAvatar(ctx context.Context, userID uuid.UUID, localPath string) (*models.User, error) {
	return s.replaceAsset(ctx, userID, repo.SlotAvatar, storage.FolderAvatars, "avatar", localPath)
}

func (s *ProfileService) UpdateCoverImage(ctx context.Context, userID uuid.UUID, localPath string) (*models.User, error) {
	return s.replaceAsset(ctx, userID, repo.SlotCoverImage, storage.FolderCovers, "cover image", localPath)
}

// replaceAsset uploads the new file, stores it, and only then drops the previous remote asset.
func (s *ProfileService) replaceAsset(ctx context.Context, userID uuid.UUID, slot repo.AssetSlot, folder, label, localPath string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "profile.update_"+string(slot), "user_id", userID)

	if localPath == "" {
		return nil, apperr.BadRequest(label + " file is required")
	}

	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := user.Avatar
	if slot == repo.SlotCoverImage {
		previous = user.CoverImage
	}

	res, err := upload(ctx, s.Media, localPath, folder)
	if err != nil {
		return nil, apperr.UploadFailed(label+" upload failed", err)
	}

	updated, err := s.Repo.UpdateUserAsset(ctx, userID, slot, models.Asset{URL: res.URL, PublicID: res.PublicID})
	if err != nil {
		destroy(ctx, s.Media, res.PublicID)
		if repo.IsNotFound(err) {
			return nil, apperr.Unauthorized("user no longer exists")
		}
		return nil, apperr.Internal("cannot update "+label, err)
	}

	destroy(ctx, s.Media, previous.PublicID)
	l.Info("asset_replaced", "public_id", res.PublicID)
	return updated, nil
}

func (s *ProfileService) ChannelProfile(ctx context.Context, username string, viewer uuid.UUID) (*models.ChannelProfile, error) {
	if strings.TrimSpace(username) == "" {
		return nil, apperr.BadRequest("username is missing")
	}
	p, err := s.Repo.ChannelProfile(ctx, username, viewer)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, apperr.NotFound("channel does not exist")
		}
		return nil, apperr.Internal("cannot load channel", err)
	}
	return p, nil
}

func (s *ProfileService) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.HistoryEntry, error) {
	items, err := s.Repo.WatchHistory(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("cannot load watch history", err)
	}
	return items, nil
}
