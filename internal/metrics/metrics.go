package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ringalerts_feed_ticks_total",
		Help: "Price ticks fanned out to listeners, by pair.",
	}, []string{"pair"})

	FeedReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ringalerts_feed_reconnects_total",
		Help: "Reconnect attempts scheduled after feed disconnects.",
	})

	AlertsTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ringalerts_alerts_triggered_total",
		Help: "Alerts that won the conditional deactivation.",
	})

	NotificationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ringalerts_notification_attempts_total",
		Help: "Notification delivery attempts, by channel and result.",
	}, []string{"channel", "result"})
)
