package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/events"
	"github.com/Skotchmaster/videohub/internal/logging"
	"github.com/Skotchmaster/videohub/internal/metrics"
	"github.com/Skotchmaster/videohub/internal/models"
	"github.com/Skotchmaster/videohub/internal/repo"
	"github.com/Skotchmaster/videohub/internal/transport"
	"github.com/Skotchmaster/videohub/internal/util"
)

type SubscriptionService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

type ToggleResult struct {
	Action     string `json:"action"`
	Subscribed bool   `json:"subscribed"`
}

type CountResult struct {
	SubscriberCount int64 `json:"subscriberCount"`
	IsSubscribed    bool  `json:"isSubscribed"`
}

func (s *SubscriptionService) requireChannel(ctx context.Context, channelID uuid.UUID) error {
	ok, err := s.Repo.UserExists(ctx, channelID)
	if err != nil {
		return apperr.Internal("cannot load channel", err)
	}
	if !ok {
		return apperr.NotFound("channel not found")
	}
	return nil
}

func (s *SubscriptionService) Toggle(ctx context.Context, subscriberID, channelID uuid.UUID) (*ToggleResult, error) {
	l := logging.FromContext(ctx).With("svc", "subscription.toggle", "subscriber_id", subscriberID, "channel_id", channelID)

	if subscriberID == channelID {
		return nil, apperr.InvalidArgument("cannot subscribe to your own channel")
	}
	if err := s.requireChannel(ctx, channelID); err != nil {
		return nil, err
	}

	subscribed, err := s.Repo.ToggleSubscription(ctx, subscriberID, channelID)
	if err != nil {
		return nil, apperr.Internal("cannot toggle subscription", err)
	}

	res := &ToggleResult{Action: "unsubscribed", Subscribed: subscribed}
	if subscribed {
		res.Action = "subscribed"
	}
	metrics.SubscriptionTogglesTotal.WithLabelValues(res.Action).Inc()
	l.Info("subscription_toggled", "action", res.Action)
	publish(ctx, s.Events, events.TopicSubscriptions, channelID.String(), events.SubscriptionToggled, map[string]any{
		"subscriber_id": subscriberID,
		"channel_id":    channelID,
		"action":        res.Action,
	})
	return res, nil
}

func (s *SubscriptionService) ListSubscribers(ctx context.Context, channelID uuid.UUID, page, limit int) (transport.Page[models.SubscriberEntry], error) {
	if err := s.requireChannel(ctx, channelID); err != nil {
		return transport.Page[models.SubscriberEntry]{}, err
	}
	page, limit = util.Normalize(page, limit)
	total, items, err := s.Repo.ListSubscribers(ctx, channelID, page, limit)
	if err != nil {
		return transport.Page[models.SubscriberEntry]{}, apperr.Internal("cannot list subscribers", err)
	}
	return transport.NewPage(items, page, limit, total), nil
}

func (s *SubscriptionService) ListSubscriptions(ctx context.Context, subscriberID uuid.UUID, page, limit int) (transport.Page[models.ChannelEntry], error) {
	ok, err := s.Repo.UserExists(ctx, subscriberID)
	if err != nil {
		return transport.Page[models.ChannelEntry]{}, apperr.Internal("cannot load subscriber", err)
	}
	if !ok {
		return transport.Page[models.ChannelEntry]{}, apperr.NotFound("subscriber not found")
	}
	page, limit = util.Normalize(page, limit)
	total, items, err := s.Repo.ListSubscriptions(ctx, subscriberID, page, limit)
	if err != nil {
		return transport.Page[models.ChannelEntry]{}, apperr.Internal("cannot list subscriptions", err)
	}
	return transport.NewPage(items, page, limit, total), nil
}

func (s *SubscriptionService) Count(ctx context.Context, viewerID, channelID uuid.UUID) (*CountResult, error) {
	if err := s.requireChannel(ctx, channelID); err != nil {
		return nil, err
	}
	n, err := s.Repo.CountSubscribers(ctx, channelID)
	if err != nil {
		return nil, apperr.Internal("cannot count subscribers", err)
	}
	sub, err := s.Repo.IsSubscribed(ctx, viewerID, channelID)
	if err != nil {
		return nil, apperr.Internal("cannot check subscription", err)
	}
	return &CountResult{SubscriberCount: n, IsSubscribed: sub}, nil
}

func (s *SubscriptionService) IsSubscribed(ctx context.Context, viewerID, channelID uuid.UUID) (bool, error) {
	if err := s.requireChannel(ctx, channelID); err != nil {
		return false, err
	}
	sub, err := s.Repo.IsSubscribed(ctx, viewerID, channelID)
	if err != nil {
		return false, apperr.Internal("cannot check subscription", err)
	}
	return sub, nil
}
