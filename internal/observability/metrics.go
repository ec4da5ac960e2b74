package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "freight", Name: "matches_created_total",
		Help: "Matches created by the matching procedure",
	})
	MatchPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "freight", Name: "match_pass_duration_seconds",
		Help: "Duration of a full matching pass",
	})
	LocationSamples = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "freight", Name: "location_samples_total",
		Help: "Location samples accepted by the relay",
	})
	TrackingSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "freight", Name: "tracking_sessions",
		Help: "Open WebSocket tracking sessions",
	})
	LifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freight", Name: "match_transitions_total",
		Help: "Match lifecycle transitions by target state",
	}, []string{"to"})
)
