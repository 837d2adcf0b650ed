// Package events publishes domain events as JSON messages keyed by entity id.
package events

import (
	"context"
	"time"
)

const (
	TopicUsers         = "user_events"
	TopicVideos        = "video_events"
	TopicSubscriptions = "subscription_events"
)

// Topics lists every topic the service writes to.
var Topics = []string{TopicUsers, TopicVideos, TopicSubscriptions}

const (
	UserRegistered      = "user_registered"
	UserLoggedIn        = "user_logged_in"
	VideoPublished      = "video_published"
	VideoUpdated        = "video_updated"
	VideoDeleted        = "video_deleted"
	SubscriptionToggled = "subscription_toggled"
)

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
	Close() error
}

// Event is the envelope every message value carries.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

func New(eventType string, data any) Event {
	return Event{Type: eventType, OccurredAt: time.Now().UTC(), Data: data}
}

// Nop drops every event. It is used when no brokers are configured.
type Nop struct{}

func (Nop) PublishEvent(context.Context, string, string, any) error { return nil }
func (Nop) Close() error                                          { return nil }
