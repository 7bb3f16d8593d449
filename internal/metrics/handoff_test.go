// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/astrorhythm/internal/handoff"
	"github.com/ManuGH/astrorhythm/internal/handoff/handofftest"
)

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	m, ok := o.(prometheus.Metric)
	require.True(t, ok)
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	return out.GetHistogram().GetSampleCount()
}

func TestObserver_RecordsLifecycle(t *testing.T) {
	sched := handofftest.NewScheduler(time.Unix(0, 0))
	page := handofftest.NewPage()
	nop := zerolog.Nop()
	r := handoff.NewResolver(page, handoff.ResolverOptions{
		Scheduler: sched,
		Observer:  Observer{},
		Logger:    &nop,
		Now:       sched.Now,
	})

	started := testutil.ToFloat64(AttemptsStartedTotal.WithLabelValues("ios"))
	fallbacks := testutil.ToFloat64(AttemptOutcomesTotal.WithLabelValues("ios", "fallback_dispatched", "timeout"))
	observed := histogramCount(t, AttemptDuration.WithLabelValues("ios", "fallback_dispatched"))
	inflight := GetAttemptsInFlight()

	r.Resolve("Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X)")
	assert.Equal(t, started+1, testutil.ToFloat64(AttemptsStartedTotal.WithLabelValues("ios")))
	assert.Equal(t, inflight+1, GetAttemptsInFlight())

	sched.Advance(handoff.DefaultIOSTimeout)

	assert.Equal(t, fallbacks+1, testutil.ToFloat64(AttemptOutcomesTotal.WithLabelValues("ios", "fallback_dispatched", "timeout")))
	assert.Equal(t, observed+1, histogramCount(t, AttemptDuration.WithLabelValues("ios", "fallback_dispatched")))
	assert.Equal(t, inflight, GetAttemptsInFlight())
}

func TestSetRelayPagesOpen(t *testing.T) {
	SetRelayPagesOpen(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(RelayPagesOpen))
	SetRelayPagesOpen(0)
	assert.Zero(t, testutil.ToFloat64(RelayPagesOpen))
}

func TestRecordConfigReload(t *testing.T) {
	ok := testutil.ToFloat64(ConfigReloadsTotal.WithLabelValues("success"))
	failed := testutil.ToFloat64(ConfigReloadsTotal.WithLabelValues("failure"))

	RecordConfigReload(true)
	RecordConfigReload(false)
	RecordConfigReload(false)

	assert.Equal(t, ok+1, testutil.ToFloat64(ConfigReloadsTotal.WithLabelValues("success")))
	assert.Equal(t, failed+2, testutil.ToFloat64(ConfigReloadsTotal.WithLabelValues("failure")))
}
