// Package service holds the use cases behind the HTTP handlers. Services return *apperr.Error
// values for every failure a client can cause; anything else surfaces as an internal error.
package service

import (
	"context"
	"strings"

	"github.com/Skotchmaster/videohub/internal/events"
	"github.com/Skotchmaster/videohub/internal/logging"
	"github.com/Skotchmaster/videohub/internal/metrics"
	"github.com/Skotchmaster/videohub/internal/storage"
)

// publish sends a domain event; a broker failure never fails the request.
func publish(ctx context.Context, p events.Publisher, topic, key, eventType string, data any) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, topic, key, events.New(eventType, data)); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", topic, "type", eventType, "error", err)
	}
}

func upload(ctx context.Context, up storage.Uploader, localPath, folder string) (*storage.UploadResult, error) {
	res, err := up.Upload(ctx, localPath, folder)
	if err != nil {
		metrics.MediaUploadsTotal.WithLabelValues(folder, "error").Inc()
		return nil, err
	}
	metrics.MediaUploadsTotal.WithLabelValues(folder, "ok").Inc()
	return res, nil
}

// destroy removes remote assets and only logs failures.
func destroy(ctx context.Context, up storage.Uploader, publicIDs ...string) {
	for _, id := range publicIDs {
		if id == "" {
			continue
		}
		if err := up.Destroy(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("asset_destroy_failed", "public_id", id, "error", err)
		}
	}
}

// missing returns the names of the blank fields.
func missing(fields ...[2]string) []string {
	var out []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			out = append(out, f[0]+" is required")
		}
	}
	return out
}
