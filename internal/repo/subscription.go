package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/videohub/internal/models"
	"github.com/Skotchmaster/videohub/internal/query"
)

// ToggleSubscription deletes the edge if present, otherwise creates it, and reports the resulting state.
func (r *GormRepo) ToggleSubscription(ctx context.Context, subscriberID, channelID uuid.UUID) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	edge := models.Subscription{SubscriberID: subscriberID, ChannelID: channelID}
	if err := r.DB.WithContext(ctx).Create(&edge).Error; err != nil {
		if IsDuplicate(err) {
			// a concurrent toggle created it between our delete and insert
			return true, nil
		}
		return false, err
	}
	return true, nil
}

func (r *GormRepo) IsSubscribed(ctx context.Context, subscriberID, channelID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Subscription{}).
		Where("subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) CountSubscribers(ctx context.Context, channelID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Subscription{}).
		Where("channel_id = ?", channelID).
		Count(&count).Error
	return count, err
}

func subscriptionListPipeline(matchCol, counterpartCol string, id uuid.UUID, page, limit int) *query.Pipeline {
	return query.From("subscriptions").
		Match("subscriptions."+matchCol+" = ?", id).
		JoinRef(query.Ref{
			Table:      "users",
			As:         "counterpart",
			LocalKey:   "subscriptions." + counterpartCol,
			ForeignKey: "id",
			Fields:     models.PublicUserColumns,
			Prefix:     "user_",
			Inner:      true,
		}).
		ProjectAs("created_at", "subscribed_at").
		Sort("subscriptions.created_at", true).
		Sort("subscriptions.id", false).
		Paginate(page, limit)
}

func SubscribersPipeline(channelID uuid.UUID, page, limit int) *query.Pipeline {
	return subscriptionListPipeline("channel_id", "subscriber_id", channelID, page, limit)
}

func SubscriptionsPipeline(subscriberID uuid.UUID, page, limit int) *query.Pipeline {
	return subscriptionListPipeline("subscriber_id", "channel_id", subscriberID, page, limit)
}

func (r *GormRepo) ListSubscribers(ctx context.Context, channelID uuid.UUID, page, limit int) (int64, []models.SubscriberEntry, error) {
	p := SubscribersPipeline(channelID, page, limit)
	total, err := p.Count(r.DB.WithContext(ctx))
	if err != nil {
		return 0, nil, err
	}
	items := make([]models.SubscriberEntry, 0)
	if err := p.Apply(r.DB.WithContext(ctx)).Scan(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) ListSubscriptions(ctx context.Context, subscriberID uuid.UUID, page, limit int) (int64, []models.ChannelEntry, error) {
	p := SubscriptionsPipeline(subscriberID, page, limit)
	total, err := p.Count(r.DB.WithContext(ctx))
	if err != nil {
		return 0, nil, err
	}
	items := make([]models.ChannelEntry, 0)
	if err := p.Apply(r.DB.WithContext(ctx)).Scan(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}
