package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CandidatesEvaluated.Inc()
	m.CandidatesEvaluated.Inc()
	m.CandidatesRejected.WithLabelValues("duplicate_hash").Inc()
	m.PostsPublished.Inc()
	m.SchedulingAnomalies.Inc()

	if got := testutil.ToFloat64(m.CandidatesEvaluated); got != 2 {
		t.Errorf("candidates evaluated = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CandidatesRejected.WithLabelValues("duplicate_hash")); got != 1 {
		t.Errorf("candidates rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PostsPublished); got != 1 {
		t.Errorf("posts published = %v, want 1", got)
	}
}

func TestSetQueueOccupied(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetQueueOccupied(true)
	if got := testutil.ToFloat64(m.QueueOccupied); got != 1 {
		t.Errorf("queue occupied gauge = %v, want 1", got)
	}

	m.SetQueueOccupied(false)
	if got := testutil.ToFloat64(m.QueueOccupied); got != 0 {
		t.Errorf("queue occupied gauge = %v, want 0", got)
	}
}
