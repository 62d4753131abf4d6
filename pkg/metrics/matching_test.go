package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestMatchingMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMatchingMetrics(reg)

	m.IncRun(false)
	m.IncRun(true)
	m.AddMatches(2)
	m.IncSkip("no_eligible_candidates")
	m.IncSkip("no_eligible_candidates")
	m.IncSkip("")
	m.IncApplyFailure()
	m.IncRental("created")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "pixiedvc_matching_matches_created_total", "", "")
	require.NoError(t, err)
	require.Equal(t, float64(2), got)

	got, err = fetchCounterValue(mfs, "pixiedvc_matching_bookings_skipped_total", "reason", "no_eligible_candidates")
	require.NoError(t, err)
	require.Equal(t, float64(2), got)

	got, err = fetchCounterValue(mfs, "pixiedvc_matching_bookings_skipped_total", "reason", "unknown")
	require.NoError(t, err)
	require.Equal(t, float64(1), got)

	got, err = fetchCounterValue(mfs, "pixiedvc_matching_runs_total", "mode", "dry_run")
	require.NoError(t, err)
	require.Equal(t, float64(1), got)
}
