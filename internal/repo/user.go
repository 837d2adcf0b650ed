package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/videohub/internal/models"
)

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Create(u).Error
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByLogin matches the identifier against the lowercased username or the email.
func (r *GormRepo) FindUserByLogin(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	var user models.User
	err := r.DB.WithContext(ctx).
		Where("username = ? OR email = ?", strings.ToLower(identifier), identifier).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// IdentityTaken reports whether another user already holds the username or email.
// except may be uuid.Nil to check against every user.
func (r *GormRepo) IdentityTaken(ctx context.Context, username, email string, except uuid.UUID) (bool, error) {
	q := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("(username = ? OR email = ?)", username, email)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetRefreshToken overwrites the refresh slot unconditionally; nil clears it.
func (r *GormRepo) SetRefreshToken(ctx context.Context, id uuid.UUID, digest *string) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("refresh_token", digest)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SwapRefreshToken replaces the refresh slot only if it still holds expected.
// It reports false when another rotation, a login or a logout got there first.
func (r *GormRepo) SwapRefreshToken(ctx context.Context, id uuid.UUID, expected, next string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND refresh_token = ?", id, expected).
		Update("refresh_token", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", passwordHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type AccountFields struct {
	Username string
	Email    string
	Name     string
	FullName string
}

func (r *GormRepo) UpdateAccount(ctx context.Context, id uuid.UUID, f AccountFields) (*models.User, error) {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"username":  f.Username,
		"email":     f.Email,
		"name":      f.Name,
		"full_name": f.FullName,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetUserByID(ctx, id)
}

type AssetSlot string

const (
	SlotAvatar     AssetSlot = "avatar"
	SlotCoverImage AssetSlot = "cover_image"
)

func (r *GormRepo) UpdateUserAsset(ctx context.Context, id uuid.UUID, slot AssetSlot, a models.Asset) (*models.User, error) {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		string(slot) + "_url":       a.URL,
		string(slot) + "_public_id": a.PublicID,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetUserByID(ctx, id)
}
