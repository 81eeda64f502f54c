package scoring

import (
	"context"

	"voxharness/internal/env"
	"voxharness/internal/metrics"
	"voxharness/internal/results"
)

// EvaluationReport aggregates scores from every evaluation dimension.
type EvaluationReport struct {
	Latency      LatencyScore     `json:"latency"`
	Accuracy     AccuracyScore    `json:"accuracy"`
	Naturalness  NaturalnessScore `json:"naturalness"`
	ToolUse      ToolUseScore     `json:"tool_use"`
	Robustness   *RobustnessScore `json:"robustness,omitempty"`
	OverallScore float64          `json:"overall_score"`
}

// Framework orchestrates the individual scorers and produces an aggregated
// report.
type Framework struct {
	latency     *LatencyScorer
	accuracy    *AccuracyScorer
	naturalness *NaturalnessScorer
	toolUse     *ToolUseScorer
	robustness  *RobustnessScorer
}

// New creates a Framework. The naturalness scorer reads ANTHROPIC_API_KEY
// from the environment; pass an explicit naturalness scorer via
// NewWithNaturalness to override it (e.g. in tests).
func New() *Framework {
	apiKey := env.Str("ANTHROPIC_API_KEY", "")
	baseURL := env.Str("ANTHROPIC_BASE_URL", "")
	model := env.Str("ANTHROPIC_NATURALNESS_MODEL", "")
	return NewWithNaturalness(NewNaturalnessScorer(model, apiKey, baseURL))
}

// NewWithNaturalness creates a Framework using an explicit naturalness
// scorer.
func NewWithNaturalness(naturalness *NaturalnessScorer) *Framework {
	return &Framework{
		latency:     NewLatencyScorer(),
		accuracy:    NewAccuracyScorer(),
		naturalness: naturalness,
		toolUse:     NewToolUseScorer(),
		robustness:  NewRobustnessScorer(),
	}
}

// Evaluate runs every per-run scorer against res and returns the aggregated
// report. Robustness is left nil here since it requires a paired clean/noisy
// comparison — use EvaluateRobustness for that.
func (f *Framework) Evaluate(ctx context.Context, res *results.TestResults) EvaluationReport {
	report := EvaluationReport{
		Latency:     f.latency.Score(res),
		Accuracy:    f.accuracy.Score(res),
		ToolUse:     f.toolUse.Score(res),
		Naturalness: f.naturalness.Score(ctx, res),
	}

	scores := []float64{report.Latency.Score, report.Accuracy.Score, report.Naturalness.Score, report.ToolUse.Score}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	report.OverallScore = sum / float64(len(scores))

	metrics.ScorerScore.WithLabelValues("latency").Set(report.Latency.Score)
	metrics.ScorerScore.WithLabelValues("accuracy").Set(report.Accuracy.Score)
	metrics.ScorerScore.WithLabelValues("naturalness").Set(report.Naturalness.Score)
	metrics.ScorerScore.WithLabelValues("tool_use").Set(report.ToolUse.Score)
	metrics.ScorerScore.WithLabelValues("overall").Set(report.OverallScore)

	return report
}

// EvaluateRobustness compares a clean run's results against a noisy/degraded
// run's and returns the robustness score, also recording it on the metric
// registry.
func (f *Framework) EvaluateRobustness(clean, noisy *results.TestResults) RobustnessScore {
	score := f.robustness.Score(clean, noisy)
	metrics.ScorerScore.WithLabelValues("robustness").Set(score.Score)
	return score
}
