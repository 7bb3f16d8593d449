// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meter scope and instrument names for handoff outcomes.
const (
	MeterName           = "astrorhythm/handoff"
	OutcomeCounterName  = "astrorhythm_handoff_outcomes_total"
	OutcomeDurationName = "astrorhythm_handoff_duration_seconds"
)

// RecordAttemptOutcome counts one finished attempt and records how long it ran.
// The meter is looked up on every call so a provider installed later is honored.
func RecordAttemptOutcome(ctx context.Context, platform, state, reason string, d time.Duration) {
	meter := otel.GetMeterProvider().Meter(MeterName)

	attrs := metric.WithAttributes(
		attribute.String(PlatformKey, platform),
		attribute.String("handoff.state", state),
		attribute.String("handoff.reason", reason),
	)

	outcomes, _ := meter.Int64Counter(OutcomeCounterName,
		metric.WithDescription("Finished handoff attempts by terminal state"))
	outcomes.Add(ctx, 1, attrs)

	duration, _ := meter.Float64Histogram(OutcomeDurationName,
		metric.WithDescription("Time from attempt start to its terminal state"),
		metric.WithUnit("s"))
	duration.Record(ctx, d.Seconds(), attrs)
}
