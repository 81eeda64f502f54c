package scoring

import "voxharness/internal/results"

// AccuracyScore is the result of scoring a run's accuracy dimension.
type AccuracyScore struct {
	Score             float64 `json:"score"`
	IntentRecognition float64 `json:"intent_recognition"`
	EntityExtraction  float64 `json:"entity_extraction"`
	VisualGrounding   float64 `json:"visual_grounding"`
	OverallAccuracy   float64 `json:"overall_accuracy"`
}

// AccuracyScorer evaluates intent recognition, entity extraction, and
// (optionally) visual grounding accuracy.
type AccuracyScorer struct{}

// NewAccuracyScorer creates an accuracy scorer.
func NewAccuracyScorer() *AccuracyScorer { return &AccuracyScorer{} }

// Score evaluates res's accuracy metrics. When no explicit accuracy metrics
// were populated during the run, it falls back to the assertion pass rate —
// a scenario with no scorer-specific instrumentation still produces a
// meaningful accuracy figure from its assert_system/expect_tool_call
// outcomes.
func (s *AccuracyScorer) Score(res *results.TestResults) AccuracyScore {
	acc := res.Accuracy

	if acc.Overall == 0 && len(res.Assertions) > 0 {
		passed := 0
		for _, a := range res.Assertions {
			if a.Passed {
				passed++
			}
		}
		rate := float64(passed) / float64(len(res.Assertions))
		acc.Overall = rate
		acc.IntentRecognition = rate
		acc.EntityExtraction = rate
	}

	overall := acc.IntentRecognition*0.4 + acc.EntityExtraction*0.3 + acc.VisualGrounding*0.1 + acc.Overall*0.2

	return AccuracyScore{
		Score:             overall,
		IntentRecognition: acc.IntentRecognition,
		EntityExtraction:  acc.EntityExtraction,
		VisualGrounding:   acc.VisualGrounding,
		OverallAccuracy:   acc.Overall,
	}
}
