package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total HTTP errors by error kind",
		},
		[]string{"kind"},
	)

	// SessionEventsTotal counts login, login_failed, refresh, refresh_rejected and logout.
	SessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_events_total",
			Help: "Session lifecycle transitions",
		},
		[]string{"event"},
	)

	MediaUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_uploads_total",
			Help: "Uploads to the media store by folder and outcome",
		},
		[]string{"folder", "status"},
	)

	SubscriptionTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_toggles_total",
			Help: "Subscription toggles by resulting action",
		},
		[]string{"action"},
	)
)
