package metrics

import (
	"strings"
	"testing"
)

func TestRenderIncludesOutcomeLabels(t *testing.T) {
	IncOutcome("completed")
	IncOutcome("completed")
	IncOutcome("duplicate")

	out := Render()
	if !strings.Contains(out, `relay_outcomes_total{outcome="completed"}`) {
		t.Fatalf("expected completed outcome in output:\n%s", out)
	}
	if !strings.Contains(out, `relay_outcomes_total{outcome="duplicate"}`) {
		t.Fatalf("expected duplicate outcome in output:\n%s", out)
	}
}

func TestHistogramCumulativeBuckets(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 1 {
		t.Fatalf("unexpected bucket counts %v", snap.counts)
	}
	if snap.sum != 555 {
		t.Fatalf("expected sum 555, got %v", snap.sum)
	}
}
