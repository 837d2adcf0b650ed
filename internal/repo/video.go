package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/videohub/internal/models"
)

func (r *GormRepo) CreateVideo(ctx context.Context, v *models.Video) error {
	return r.DB.WithContext(ctx).Create(v).Error
}

func (r *GormRepo) GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	var v models.Video
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

type VideoPatch struct {
	Title       *string
	Description *string
	Thumbnail   *models.Asset
	IsPublished *bool
}

func (r *GormRepo) PatchVideo(ctx context.Context, id uuid.UUID, p VideoPatch) (*models.Video, error) {
	fields := map[string]any{}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Thumbnail != nil {
		fields["thumbnail_url"] = p.Thumbnail.URL
		fields["thumbnail_public_id"] = p.Thumbnail.PublicID
	}
	if p.IsPublished != nil {
		fields["is_published"] = *p.IsPublished
	}
	if len(fields) > 0 {
		res := r.DB.WithContext(ctx).Model(&models.Video{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetVideo(ctx, id)
}

// DeleteVideo removes the video and every watch-history entry pointing at it.
func (r *GormRepo) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_id = ?", id).Delete(&models.WatchHistoryEntry{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Video{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *GormRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.Video{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

// RecordWatch puts the video at the front of the user's history.
func (r *GormRepo) RecordWatch(ctx context.Context, userID, videoID uuid.UUID, at time.Time) error {
	entry := models.WatchHistoryEntry{UserID: userID, VideoID: videoID, WatchedAt: at}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "video_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"watched_at"}),
	}).Create(&entry).Error
}
