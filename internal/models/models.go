package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/videohub/internal/hash"
)

// Asset is a file held by the media store: its public URL and the identifier used to delete it.
type Asset struct {
	URL      string `gorm:"column:url"       json:"url"`
	PublicID string `gorm:"column:public_id" json:"public_id"`
}

func (a Asset) Empty() bool { return a.URL == "" && a.PublicID == "" }

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"                            json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"                            json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"                            json:"email"`
	Name         string    `gorm:"not null;default:''"                             json:"name"`
	FullName     string    `gorm:"not null"                                        json:"fullName"`
	Password     string    `gorm:"not null"                                        json:"-"`
	Avatar       Asset     `gorm:"embedded;embeddedPrefix:avatar_"                 json:"avatar"`
	CoverImage   Asset     `gorm:"embedded;embeddedPrefix:cover_image_"            json:"coverImage"`
	RefreshToken *string   `gorm:"column:refresh_token"                            json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// SetPassword is the only place a plaintext password becomes a stored hash.
func (u *User) SetPassword(plain string) error {
	h, err := hash.HashPassword(plain)
	if err != nil {
		return err
	}
	u.Password = h
	return nil
}

func (u *User) CheckPassword(plain string) bool {
	return hash.CheckPassword(u.Password, plain)
}

type Video struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"                  json:"id"`
	VideoFile   Asset     `gorm:"embedded;embeddedPrefix:video_file_"   json:"videoFile"`
	Thumbnail   Asset     `gorm:"embedded;embeddedPrefix:thumbnail_"    json:"thumbnail"`
	Title       string    `gorm:"not null"                              json:"title"`
	Description string    `gorm:"not null"                              json:"description"`
	Duration    int64     `gorm:"not null;default:0"                    json:"duration"`
	Views       int64     `gorm:"not null;default:0"                    json:"views"`
	IsPublished bool      `gorm:"not null;default:true"                 json:"isPublished"`
	OwnerID     uuid.UUID `gorm:"type:uuid;index;not null;<-:create"    json:"owner"`
	CreatedAt   time.Time `gorm:"index"                                 json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

type Subscription struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"                                            json:"id"`
	SubscriberID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subscription_pair,priority:1" json:"subscriber"`
	ChannelID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subscription_pair,priority:2;index" json:"channel"`
	CreatedAt    time.Time `gorm:"index"                                                           json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type WatchHistoryEntry struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	VideoID   uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	WatchedAt time.Time `gorm:"not null;index"`
}

func (WatchHistoryEntry) TableName() string { return "watch_history" }

func All() []any {
	return []any{&User{}, &Video{}, &Subscription{}, &WatchHistoryEntry{}}
}
