package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voxharness/internal/results"
)

func TestLatencyScorerPerfectRunScoresOne(t *testing.T) {
	res := results.New()
	scorer := NewLatencyScorer()

	score := scorer.Score(res)
	if score.Score != 1.0 {
		t.Fatalf("expected a vacuous perfect score with no samples, got %v", score.Score)
	}
	if !score.P50Pass || !score.P99Pass || !score.TurnGapPass {
		t.Fatalf("expected all thresholds to pass with no samples, got %+v", score)
	}
}

func TestLatencyScorerPenalizesSlowFirstByte(t *testing.T) {
	res := results.New()
	res.Latency.RecordFirstByte(2000)
	scorer := NewLatencyScorer()

	score := scorer.Score(res)
	if score.P50Pass {
		t.Fatalf("expected p50 threshold to fail at 2000ms")
	}
	if score.Score >= 1.0 {
		t.Fatalf("expected a degraded score, got %v", score.Score)
	}
}

func TestAccuracyScorerFallsBackToAssertionPassRate(t *testing.T) {
	res := results.New()
	res.Add(results.AssertionResult{Passed: true})
	res.Add(results.AssertionResult{Passed: false})

	score := NewAccuracyScorer().Score(res)
	if score.OverallAccuracy != 0.5 {
		t.Fatalf("expected overall accuracy 0.5, got %v", score.OverallAccuracy)
	}
}

func TestAccuracyScorerUsesExplicitMetricsWhenPopulated(t *testing.T) {
	res := results.New()
	res.Accuracy.Overall = 0.9
	res.Accuracy.IntentRecognition = 1.0
	res.Accuracy.EntityExtraction = 0.8
	res.Add(results.AssertionResult{Passed: false})

	score := NewAccuracyScorer().Score(res)
	if score.OverallAccuracy != 0.9 {
		t.Fatalf("expected explicit accuracy.overall to win over assertion fallback, got %v", score.OverallAccuracy)
	}
}

func TestToolUseScorerNoCallsScoresOne(t *testing.T) {
	res := results.New()
	score := NewToolUseScorer().Score(res)
	if score.Score != 1.0 || score.TotalCalls != 0 {
		t.Fatalf("expected vacuous score 1.0 with zero calls, got %+v", score)
	}
}

func TestToolUseScorerComputesSuccessRate(t *testing.T) {
	res := results.New()
	res.RecordToolCall("create_booking", nil, 0, true, 50)
	res.RecordToolCall("create_booking", nil, 0, false, 30)

	score := NewToolUseScorer().Score(res)
	if score.SuccessRate != 0.5 {
		t.Fatalf("expected success rate 0.5, got %v", score.SuccessRate)
	}
	if score.AvgLatencyMS != 40 {
		t.Fatalf("expected avg latency 40ms, got %v", score.AvgLatencyMS)
	}
}

func TestRobustnessScorerWithoutNoisyResultsIsVacuous(t *testing.T) {
	clean := results.New()
	score := NewRobustnessScorer().Score(clean, nil)
	if score.Score != 1.0 {
		t.Fatalf("expected vacuous score 1.0, got %v", score.Score)
	}
}

func TestRobustnessScorerPenalizesDegradation(t *testing.T) {
	clean := results.New()
	clean.Accuracy.Overall = 1.0
	clean.Latency.RecordFirstByte(100)

	noisy := results.New()
	noisy.Accuracy.Overall = 0.5
	noisy.Latency.RecordFirstByte(800)

	score := NewRobustnessScorer().Score(clean, noisy)
	if score.NoiseDegradation != 0.5 {
		t.Fatalf("expected noise degradation 0.5, got %v", score.NoiseDegradation)
	}
	if !noisy.BargeIn.WasHandled && score.BargeInHandling != 0 {
		t.Fatalf("expected barge-in handling 0 when unhandled, got %v", score.BargeInHandling)
	}
}

func TestNaturalnessScorerHeuristicNoResponses(t *testing.T) {
	res := results.New()
	scorer := NewNaturalnessScorer("", "", "")
	score := scorer.Score(context.Background(), res)
	if score.Method != "heuristic" {
		t.Fatalf("expected heuristic method without an API key, got %v", score.Method)
	}
}

func TestNaturalnessScorerHeuristicRewardsDiversity(t *testing.T) {
	res := results.New()
	res.RecordResponse("Sure, I can help with that.", nil, 0)
	res.RecordResponse("Sure, I can help with that.", nil, time.Second)
	res.RecordResponse("Let me check availability for you.", nil, 2*time.Second)

	scorer := NewNaturalnessScorer("", "", "")
	score := scorer.Score(context.Background(), res)
	if score.Diversity <= 0 || score.Diversity >= 1 {
		t.Fatalf("expected partial diversity with a repeated response, got %v", score.Diversity)
	}
}

func TestNaturalnessScorerLLMJudgePath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("expected x-api-key header to be set")
		}
		resp := anthropicJudgeResponse{Content: []struct {
			Text string `json:"text"`
		}{{Text: `{"score": 4, "reasoning": "natural recovery after barge-in"}`}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	res := results.New()
	res.RecordResponse("Sorry about that, let's continue.", nil, 0)

	scorer := NewNaturalnessScorer("test-model", "test-key", server.URL)
	score := scorer.Score(context.Background(), res)
	if score.Method != "llm_judge" {
		t.Fatalf("expected llm_judge method, got %v", score.Method)
	}
	if score.Score != 0.8 {
		t.Fatalf("expected normalized score 4/5 == 0.8, got %v", score.Score)
	}
}

func TestNaturalnessScorerFallsBackOnLLMError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	res := results.New()
	res.RecordResponse("Let me check that for you.", nil, 0)

	scorer := NewNaturalnessScorer("test-model", "test-key", server.URL)
	score := scorer.Score(context.Background(), res)
	if score.Method != "heuristic" {
		t.Fatalf("expected fallback to heuristic on LLM error, got %v", score.Method)
	}
}

func TestFrameworkEvaluateAggregatesScores(t *testing.T) {
	res := results.New()
	res.Add(results.AssertionResult{Passed: true})
	res.RecordResponse("All set, your room is booked.", nil, 100*time.Millisecond)
	res.RecordToolCall("create_booking", nil, 100*time.Millisecond, true, 20)

	fw := NewWithNaturalness(NewNaturalnessScorer("", "", ""))
	report := fw.Evaluate(context.Background(), res)

	if report.OverallScore <= 0 {
		t.Fatalf("expected a positive overall score, got %v", report.OverallScore)
	}
	if report.ToolUse.TotalCalls != 1 {
		t.Fatalf("expected 1 tool call recorded, got %v", report.ToolUse.TotalCalls)
	}
}

func TestFrameworkEvaluateRobustness(t *testing.T) {
	clean := results.New()
	clean.Accuracy.Overall = 1.0
	noisy := results.New()
	noisy.Accuracy.Overall = 0.7

	fw := NewWithNaturalness(NewNaturalnessScorer("", "", ""))
	score := fw.EvaluateRobustness(clean, noisy)
	if score.NoiseDegradation != 0.7 {
		t.Fatalf("expected noise degradation 0.7, got %v", score.NoiseDegradation)
	}
}
