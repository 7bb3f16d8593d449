// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics provides Prometheus metrics for handoff attempts and remote pages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/ManuGH/astrorhythm/internal/handoff"
)

// Label values are bounded enums; attempt and page IDs never become labels.
var (
	// AttemptsStartedTotal counts attempts by classified platform.
	AttemptsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astrorhythm_handoff_attempts_started_total",
		Help: "Total number of return-to-app attempts started, by platform.",
	}, []string{"platform"})

	// AttemptOutcomesTotal counts terminal transitions.
	AttemptOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astrorhythm_handoff_outcomes_total",
		Help: "Total number of finished attempts, by platform, terminal state and reason.",
	}, []string{"platform", "state", "reason"})

	// AttemptDuration observes the time from start to terminal transition.
	AttemptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astrorhythm_handoff_attempt_duration_seconds",
		Help:    "Time from attempt start to terminal transition in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 0.75, 1, 1.25, 1.5, 2, 5},
	}, []string{"platform", "state"})

	// AttemptsInFlight tracks attempts that have not reached a terminal state.
	AttemptsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "astrorhythm_handoff_attempts_in_flight",
		Help: "Current number of attempts awaiting confirmation or timeout.",
	})

	// RelayPagesOpen tracks open remote pages.
	RelayPagesOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "astrorhythm_relay_pages_open",
		Help: "Current number of open remote pages.",
	})

	// ConfigReloadsTotal counts configuration reloads by result.
	ConfigReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astrorhythm_config_reloads_total",
		Help: "Total number of configuration reloads, by result (success/failure).",
	}, []string{"result"})
)

// Observer records attempt lifecycle metrics.
type Observer struct{}

var _ handoff.Observer = Observer{}

// AttemptStarted implements handoff.Observer.
func (Observer) AttemptStarted(res handoff.Result) {
	AttemptsStartedTotal.WithLabelValues(string(res.Platform)).Inc()
	AttemptsInFlight.Inc()
}

// AttemptFinished implements handoff.Observer.
func (Observer) AttemptFinished(res handoff.Result) {
	AttemptsInFlight.Dec()
	AttemptOutcomesTotal.WithLabelValues(string(res.Platform), string(res.State), string(res.Reason)).Inc()
	AttemptDuration.WithLabelValues(string(res.Platform), string(res.State)).Observe(res.Duration().Seconds())
}

// SetRelayPagesOpen sets the open page gauge.
func SetRelayPagesOpen(n int) {
	RelayPagesOpen.Set(float64(n))
}

// RecordConfigReload increments the reload counter.
func RecordConfigReload(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	ConfigReloadsTotal.WithLabelValues(result).Inc()
}

// GetAttemptsInFlight returns the current value of the in-flight gauge (for testing).
func GetAttemptsInFlight() float64 {
	var m dto.Metric
	if err := AttemptsInFlight.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}
