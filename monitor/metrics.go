package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LatestHeadBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "monitor",
		Subsystem: "deposits",
		Name:      "head_block_number",
	})
	LatestProcessedBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "monitor",
		Subsystem: "deposits",
		Name:      "processed_block_number",
	})
	DepositEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "monitor",
		Subsystem: "deposits",
		Name:      "events_total",
	})
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "monitor",
		Subsystem: "deposits",
		Name:      "notifications_total",
	}, []string{"status"})
	PollCycleErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "monitor",
		Subsystem: "deposits",
		Name:      "poll_cycle_errors_total",
	})
	SkippedTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "monitor",
		Subsystem: "deposits",
		Name:      "skipped_ticks_total",
	})
)
