package scoring

import "voxharness/internal/results"

// ToolUseScore is the result of scoring a run's tool-call correctness.
type ToolUseScore struct {
	Score        float64 `json:"score"`
	TotalCalls   int     `json:"total_calls"`
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

// ToolUseScorer evaluates tool-call correctness from recorded ToolCallRecords.
type ToolUseScorer struct{}

// NewToolUseScorer creates a tool-use scorer.
func NewToolUseScorer() *ToolUseScorer { return &ToolUseScorer{} }

// Score evaluates res's tool calls. A run with no tool calls scores 1.0 —
// absence of tool use is not itself a failure.
func (s *ToolUseScorer) Score(res *results.TestResults) ToolUseScore {
	calls := res.ToolCalls.Snapshot()
	if len(calls) == 0 {
		return ToolUseScore{Score: 1.0, SuccessRate: 1.0}
	}

	successCount := 0
	var latencySum float64
	for _, c := range calls {
		if c.Success {
			successCount++
		}
		latencySum += c.LatencyMS
	}

	successRate := float64(successCount) / float64(len(calls))
	return ToolUseScore{
		Score:        successRate,
		TotalCalls:   len(calls),
		SuccessRate:  successRate,
		AvgLatencyMS: latencySum / float64(len(calls)),
	}
}
