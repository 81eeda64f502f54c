package scoring

import "voxharness/internal/results"

// RobustnessScore compares a clean run against a degraded one.
type RobustnessScore struct {
	Score             float64 `json:"score"`
	NoiseDegradation  float64 `json:"noise_degradation"`
	LatencyRatio      float64 `json:"latency_ratio"`
	BargeInHandling   float64 `json:"barge_in_handling"`
	CleanAccuracy     float64 `json:"clean_accuracy"`
	NoisyAccuracy     float64 `json:"noisy_accuracy"`
	Note              string  `json:"note,omitempty"`
}

// RobustnessScorer evaluates how well a system degrades under adverse
// conditions by comparing a clean run's results to a noisy/degraded one.
type RobustnessScorer struct{}

// NewRobustnessScorer creates a robustness scorer.
func NewRobustnessScorer() *RobustnessScorer { return &RobustnessScorer{} }

// Score compares clean against noisy. If noisy is nil there is nothing to
// compare against, so the run vacuously scores 1.0.
func (s *RobustnessScorer) Score(clean, noisy *results.TestResults) RobustnessScore {
	if noisy == nil {
		return RobustnessScore{Score: 1.0, Note: "no noisy results provided for comparison"}
	}

	cleanAccuracy := computeAccuracy(clean)
	noisyAccuracy := computeAccuracy(noisy)

	noiseDegradation := 0.0
	if cleanAccuracy > 0 {
		noiseDegradation = noisyAccuracy / cleanAccuracy
	}

	cleanLatency := clean.Latency.P50FirstByte()
	if cleanLatency == 0 {
		cleanLatency = 1
	}
	noisyLatency := noisy.Latency.P50FirstByte()
	if noisyLatency == 0 {
		noisyLatency = 1
	}
	latencyRatio := cleanLatency / noisyLatency

	bargeInScore := 0.0
	if noisy.BargeIn.WasHandled {
		bargeInScore = 1.0
	}

	latencyRatioClamped := latencyRatio
	if latencyRatioClamped > 1.0 {
		latencyRatioClamped = 1.0
	}

	overall := noiseDegradation*0.4 + latencyRatioClamped*0.3 + bargeInScore*0.3

	return RobustnessScore{
		Score:            overall,
		NoiseDegradation: noiseDegradation,
		LatencyRatio:     latencyRatio,
		BargeInHandling:  bargeInScore,
		CleanAccuracy:    cleanAccuracy,
		NoisyAccuracy:    noisyAccuracy,
	}
}

func computeAccuracy(res *results.TestResults) float64 {
	if res.Accuracy.Overall > 0 {
		return res.Accuracy.Overall
	}
	if len(res.Assertions) > 0 {
		passed := 0
		for _, a := range res.Assertions {
			if a.Passed {
				passed++
			}
		}
		return float64(passed) / float64(len(res.Assertions))
	}
	return 1.0
}
