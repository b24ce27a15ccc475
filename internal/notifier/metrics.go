package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duely_notifications_created_total",
		Help: "Notifications created by the batch engine, per class.",
	}, []string{"class"})

	notificationsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duely_notifications_skipped_total",
		Help: "Candidates skipped because a notification already existed, per class.",
	}, []string{"class"})

	notificationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duely_notifications_failed_total",
		Help: "Per-item failures during notification generation, per class.",
	}, []string{"class"})

	engineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duely_notifier_runs_total",
		Help: "Engine runs, by outcome.",
	}, []string{"status"})

	lastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "duely_notifier_last_run_timestamp_seconds",
		Help: "Unix time of the last completed engine run.",
	})
)
