package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAnalysis(t *testing.T) {
	m := New()
	m.ObserveAnalysis("small_jewelry", 88, 30*time.Millisecond, nil)
	m.ObserveAnalysis("small_jewelry", 0, 0, errors.New("decode"))

	if got := testutil.ToFloat64(m.ImagesAnalyzed.WithLabelValues("ok")); got != 1 {
		t.Errorf("Expected 1 ok, got %v", got)
	}
	if got := testutil.ToFloat64(m.ImagesAnalyzed.WithLabelValues("error")); got != 1 {
		t.Errorf("Expected 1 error, got %v", got)
	}
	if got := testutil.CollectAndCount(m.PhotoScore); got != 1 {
		t.Errorf("Expected one score series, got %d", got)
	}
}

func TestObserveOptimizationAndClassifier(t *testing.T) {
	m := New()
	m.ObserveOptimization(OutcomeImproved, 12)
	m.ObserveOptimization(OutcomeAlreadyOptimal, 0)
	m.ObserveClassifier("unavailable")
	m.ObserveCache("hit")
	m.ObserveRejectedBatch()

	if got := testutil.ToFloat64(m.Optimizations.WithLabelValues(OutcomeImproved)); got != 1 {
		t.Errorf("Expected 1 improved, got %v", got)
	}
	if got := testutil.ToFloat64(m.ClassifierRequests.WithLabelValues("unavailable")); got != 1 {
		t.Errorf("Expected 1 unavailable, got %v", got)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")); got != 1 {
		t.Errorf("Expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(m.BatchItemsRejected); got != 1 {
		t.Errorf("Expected 1 rejected batch, got %v", got)
	}

	expected := `
# HELP photo_grader_optimizations_total Optimization runs, by outcome.
# TYPE photo_grader_optimizations_total counter
photo_grader_optimizations_total{outcome="already_optimal"} 1
photo_grader_optimizations_total{outcome="improved"} 1
`
	if err := testutil.CollectAndCompare(m.Optimizations, strings.NewReader(expected)); err != nil {
		t.Error(err)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAnalysis("x", 1, 0, nil)
	m.ObserveOptimization(OutcomeFailed, 0)
	m.ObserveClassifier("ok")
	m.ObserveCache("miss")
	m.ObserveRejectedBatch()
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveOptimization(OutcomeFailed, 0)
	path := filepath.Join(t.TempDir(), "grader.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `photo_grader_optimizations_total{outcome="failed"} 1`) {
		t.Errorf("Expected counter in textfile, got:\n%s", data)
	}
}
