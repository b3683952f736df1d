package metrics

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bryanwahyu/aidentify/internal/domain/ai"
	"github.com/bryanwahyu/aidentify/internal/domain/analysis"
	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aidentify_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aidentify_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aidentify_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"method", "route"},
	)

	PipelineOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aidentify_pipeline_outcomes_total",
			Help: "Finished analysis pipelines by media kind, outcome and failed stage",
		},
		[]string{"kind", "outcome", "stage"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aidentify_pipeline_stage_duration_seconds",
			Help:    "Duration of each analysis stage in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
		},
		[]string{"kind", "stage", "status"},
	)

	VerdictLabels = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aidentify_verdicts_total",
			Help: "Classifier verdicts by media kind and label",
		},
		[]string{"kind", "label"},
	)

	VerdictConfidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aidentify_verdict_confidence",
			Help:    "Confidence of authoritative verdicts",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"kind"},
	)
)

var once sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequests,
			HTTPInFlight,
			HTTPDuration,
			PipelineOutcomes,
			StageDuration,
			VerdictLabels,
			VerdictConfidence,
		)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome label of a finished pipeline.
const (
	OutcomeSuccess  = "success"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Pipeline records analysis pipeline metrics.
type Pipeline struct{}

func (Pipeline) ObserveStage(kind media.Kind, stage analysis.Stage, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StageDuration.WithLabelValues(kind.String(), string(stage), status).Observe(d.Seconds())
}

func (Pipeline) ObserveVerdict(kind media.Kind, v ai.Verdict) {
	VerdictLabels.WithLabelValues(kind.String(), string(v.Label)).Inc()
	if v.Authoritative() {
		VerdictConfidence.WithLabelValues(kind.String()).Observe(v.Confidence)
	}
}

func (Pipeline) ObserveOutcome(kind media.Kind, v *ai.Verdict, err error) {
	outcome, stage := OutcomeSuccess, ""
	var se *analysis.StageError
	switch {
	case errors.As(err, &se):
		outcome, stage = OutcomeFailed, string(se.Stage)
	case err != nil:
		outcome = OutcomeFailed
	case v != nil && !v.Authoritative():
		outcome = OutcomeDegraded
	}
	PipelineOutcomes.WithLabelValues(kind.String(), outcome, stage).Inc()
}
