// Package metrics holds the Prometheus instruments for grading runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "photo_grader"

// Optimization outcomes
const (
	OutcomeImproved       = "improved"
	OutcomeNotImproved    = "not_improved"
	OutcomeAlreadyOptimal = "already_optimal"
	OutcomeFailed         = "failed"
)

// Metrics groups the instruments. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ImagesAnalyzed     *prometheus.CounterVec
	AnalysisDuration   prometheus.Histogram
	PhotoScore         *prometheus.HistogramVec
	Optimizations      *prometheus.CounterVec
	ScoreImprovement   prometheus.Histogram
	ClassifierRequests *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
	BatchItemsRejected prometheus.Counter
}

// New registers every instrument on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ImagesAnalyzed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_analyzed_total",
			Help:      "Images analyzed, by result.",
		}, []string{"status"}),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time to decode, measure and score one image.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		PhotoScore: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "photo_score",
			Help:      "Overall photo scores, by category.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}, []string{"category"}),
		Optimizations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizations_total",
			Help:      "Optimization runs, by outcome.",
		}, []string{"outcome"}),
		ScoreImprovement: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score_improvement",
			Help:      "Score delta produced by the optimization pipeline.",
			Buckets:   []float64{-10, -5, 0, 5, 10, 20, 40},
		}),
		ClassifierRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_requests_total",
			Help:      "Vision classifier calls, by result.",
		}, []string{"result"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups, by result.",
		}, []string{"result"}),
		BatchItemsRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_rejected_total",
			Help:      "Batches rejected for exceeding the platform image limit.",
		}),
	}
}

// Registry returns the registry the instruments live on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAnalysis records one analyzed image
func (m *Metrics) ObserveAnalysis(category string, score float64, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ImagesAnalyzed.WithLabelValues("error").Inc()
		return
	}
	m.ImagesAnalyzed.WithLabelValues("ok").Inc()
	m.AnalysisDuration.Observe(elapsed.Seconds())
	m.PhotoScore.WithLabelValues(category).Observe(score)
}

// ObserveOptimization records one pipeline run
func (m *Metrics) ObserveOptimization(outcome string, improvement float64) {
	if m == nil {
		return
	}
	m.Optimizations.WithLabelValues(outcome).Inc()
	if outcome != OutcomeFailed && outcome != OutcomeAlreadyOptimal {
		m.ScoreImprovement.Observe(improvement)
	}
}

// ObserveClassifier records a classifier call result: ok, error or unavailable
func (m *Metrics) ObserveClassifier(result string) {
	if m == nil {
		return
	}
	m.ClassifierRequests.WithLabelValues(result).Inc()
}

// ObserveCache records a cache lookup: hit, miss or error
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveRejectedBatch records a batch refused before processing
func (m *Metrics) ObserveRejectedBatch() {
	if m == nil {
		return
	}
	m.BatchItemsRejected.Inc()
}

// WriteTextfile writes the current values in the node_exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
