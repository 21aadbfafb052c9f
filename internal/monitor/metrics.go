package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "swarm_monitor_events_processed_total",
		Help: "Container events processed, by pipeline outcome.",
	},
	[]string{"outcome"},
)
