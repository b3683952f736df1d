package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bryanwahyu/aidentify/internal/domain/ai"
	"github.com/bryanwahyu/aidentify/internal/domain/analysis"
	"github.com/bryanwahyu/aidentify/internal/domain/media"
	"github.com/bryanwahyu/aidentify/internal/infra/metrics"
)

func TestOutcomeLabels(t *testing.T) {
	var p metrics.Pipeline

	before := testutil.ToFloat64(metrics.PipelineOutcomes.WithLabelValues("audio", metrics.OutcomeFailed, "uploaded"))
	p.ObserveOutcome(media.KindAudio, nil, &analysis.StageError{Stage: analysis.StageUploaded, Kind: media.KindAudio, Err: errors.New("boom")})
	after := testutil.ToFloat64(metrics.PipelineOutcomes.WithLabelValues("audio", metrics.OutcomeFailed, "uploaded"))
	if after-before != 1 {
		t.Fatalf("failed outcome: want=1 got=%v", after-before)
	}

	degraded := ai.Degraded("bad json")
	before = testutil.ToFloat64(metrics.PipelineOutcomes.WithLabelValues("image", metrics.OutcomeDegraded, ""))
	p.ObserveOutcome(media.KindImage, &degraded, nil)
	after = testutil.ToFloat64(metrics.PipelineOutcomes.WithLabelValues("image", metrics.OutcomeDegraded, ""))
	if after-before != 1 {
		t.Fatalf("degraded outcome: want=1 got=%v", after-before)
	}
}

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	metrics.Init()
	metrics.Init()

	var p metrics.Pipeline
	p.ObserveStage(media.KindVideo, analysis.StageClassified, 150*time.Millisecond, nil)
	p.ObserveVerdict(media.KindVideo, ai.Verdict{Label: ai.LabelAI, Confidence: 0.9, Reason: "r"})

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{"aidentify_pipeline_stage_duration_seconds", "aidentify_verdicts_total"} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("metrics output missing %s", name)
		}
	}
}
