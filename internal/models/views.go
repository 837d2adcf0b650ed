package models

import (
	"time"

	"github.com/google/uuid"
)

// PublicUser is the subset of a user that other users may see.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	AvatarURL string    `json:"avatar"`
}

var PublicUserColumns = []string{"id", "username", "full_name", "avatar_url"}

type VideoView struct {
	ID          uuid.UUID  `json:"id"`
	VideoFile   Asset      `gorm:"embedded;embeddedPrefix:video_file_" json:"videoFile"`
	Thumbnail   Asset      `gorm:"embedded;embeddedPrefix:thumbnail_"  json:"thumbnail"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Duration    int64      `json:"duration"`
	Views       int64      `json:"views"`
	IsPublished bool       `json:"isPublished"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Owner       PublicUser `gorm:"embedded;embeddedPrefix:owner_" json:"owner"`
}

var VideoColumns = []string{
	"id",
	"video_file_url", "video_file_public_id",
	"thumbnail_url", "thumbnail_public_id",
	"title", "description", "duration", "views", "is_published",
	"created_at", "updated_at",
}

type ChannelProfile struct {
	ID                        uuid.UUID `json:"id"`
	Username                  string    `json:"username"`
	FullName                  string    `json:"fullName"`
	AvatarURL                 string    `json:"avatar"`
	CoverImageURL             string    `json:"coverImage"`
	SubscribersCount          int64     `json:"subscribersCount"`
	ChannelsSubscribedToCount int64     `json:"channelsSubscribedToCount"`
	IsSubscribed              bool      `json:"isSubscribed"`
}

type SubscriberEntry struct {
	Subscriber   PublicUser `gorm:"embedded;embeddedPrefix:user_" json:"subscriber"`
	SubscribedAt time.Time  `json:"subscribedAt"`
}

type ChannelEntry struct {
	Channel      PublicUser `gorm:"embedded;embeddedPrefix:user_" json:"channel"`
	SubscribedAt time.Time  `json:"subscribedAt"`
}

type HistoryEntry struct {
	VideoView `gorm:"embedded"`
	WatchedAt time.Time `json:"watchedAt"`
}
