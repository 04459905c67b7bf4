package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitializeMetrics(t *testing.T) {
	// Must not panic and must leave pre-populated series at zero.
	InitializeMetrics()

	if got := testutil.ToFloat64(RefreshDecisionsTotal.WithLabelValues("insert")); got != 0 {
		t.Errorf("expected zero-valued pre-populated counter, got %v", got)
	}
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(RefreshRunsTotal)
	RefreshRunsTotal.Inc()
	after := testutil.ToFloat64(RefreshRunsTotal)

	if after != before+1 {
		t.Errorf("RefreshRunsTotal = %v, want %v", after, before+1)
	}
}
