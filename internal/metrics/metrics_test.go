package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMergeRowsCounter(t *testing.T) {
	before := testutil.ToFloat64(MergeRows.WithLabelValues("zepto", "forked"))
	MergeRows.WithLabelValues("zepto", "forked").Add(2)
	if got := testutil.ToFloat64(MergeRows.WithLabelValues("zepto", "forked")); got != before+2 {
		t.Fatalf("want=%v got=%v", before+2, got)
	}
}

func TestObserveRun(t *testing.T) {
	ObserveRun("snapshot", "succeeded", time.Now().Add(-time.Second))
	if n := testutil.CollectAndCount(RunDuration); n == 0 {
		t.Fatalf("expected at least one histogram series")
	}
}
