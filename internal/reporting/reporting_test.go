package reporting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voxharness/internal/results"
	"voxharness/internal/scoring"
)

func TestJUnitWriterRecordsFailures(t *testing.T) {
	res := results.New()
	res.Metadata["scenario_name"] = "hotel_booking"
	res.Add(results.AssertionResult{Passed: true, Description: "tool call made", Timestamp: 100 * time.Millisecond})
	res.Add(results.AssertionResult{Passed: false, Description: "intent matched", Expected: "book_room", Actual: "cancel_room"})

	dir := t.TempDir()
	path := filepath.Join(dir, "results.xml")

	w := NewJUnitWriter("")
	if err := w.Write([]*results.TestResults{res}, path); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `tests="2"`) {
		t.Fatalf("expected 2 tests recorded, got: %s", content)
	}
	if !strings.Contains(content, `failures="1"`) {
		t.Fatalf("expected 1 failure recorded, got: %s", content)
	}
	if !strings.Contains(content, "hotel_booking") {
		t.Fatalf("expected scenario name in classname, got: %s", content)
	}
}

func TestJUnitWriterSyntheticTestCaseWhenNoAssertions(t *testing.T) {
	res := results.New()
	res.Metadata["scenario_name"] = "empty_scenario"

	dir := t.TempDir()
	path := filepath.Join(dir, "results.xml")

	w := NewJUnitWriter("voxharness")
	if err := w.Write([]*results.TestResults{res}, path); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `tests="1"`) {
		t.Fatalf("expected a synthetic testcase for the assertion-less scenario, got: %s", data)
	}
}

func TestHTMLReporterGeneratesFile(t *testing.T) {
	res := results.New()
	res.Metadata["scenario_name"] = "hotel_booking"
	res.Add(results.AssertionResult{Passed: true})
	res.Tag("s1")

	dir := t.TempDir()
	path := filepath.Join(dir, "report.html")

	reporter := NewHTMLReporter("")
	report := scoring.EvaluationReport{
		Latency:     scoring.LatencyScore{Score: 0.9},
		Accuracy:    scoring.AccuracyScore{Score: 0.8},
		Naturalness: scoring.NaturalnessScore{Score: 0.7},
		ToolUse:     scoring.ToolUseScore{Score: 1.0},
	}

	if err := reporter.Generate([]*results.TestResults{res}, path, []scoring.EvaluationReport{report}, nil); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "hotel_booking") {
		t.Fatalf("expected scenario name in report, got missing")
	}
	if !strings.Contains(content, "PASS") {
		t.Fatalf("expected a PASS badge, got: %s", content)
	}
	if !strings.Contains(content, "latency") {
		t.Fatalf("expected dimension scores rendered, got: %s", content)
	}
}

func TestHTMLReporterWithNoiseMatrix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.html")
	reporter := NewHTMLReporter("Noise Sweep")

	matrix := []NoiseMatrixRow{{SNRdB: 10, Intent: 0.9, Entity: 0.8, Tool: 0.95}}
	if err := reporter.Generate(nil, path, nil, matrix); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "Noise Robustness Matrix") {
		t.Fatalf("expected noise matrix section, got: %s", data)
	}
}

func TestRegressionDetectorCreatesBaselineOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	detector := NewRegressionDetector(dir, 0)

	res := results.New()
	res.Add(results.AssertionResult{Passed: true})

	result, err := detector.Check([]*results.TestResults{res}, "latest")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if result.HasRegression {
		t.Fatalf("expected no regression on first run")
	}
	if _, err := os.Stat(filepath.Join(dir, "latest.json")); err != nil {
		t.Fatalf("expected baseline file to be created: %v", err)
	}
}

func TestRegressionDetectorFlagsDegradedPassRate(t *testing.T) {
	dir := t.TempDir()
	detector := NewRegressionDetector(dir, 0.05)

	clean := results.New()
	clean.Add(results.AssertionResult{Passed: true})
	clean.Add(results.AssertionResult{Passed: true})
	if _, err := detector.Check([]*results.TestResults{clean}, "latest"); err != nil {
		t.Fatalf("initial Check returned error: %v", err)
	}

	degraded := results.New()
	degraded.Add(results.AssertionResult{Passed: true})
	degraded.Add(results.AssertionResult{Passed: false})

	result, err := detector.Check([]*results.TestResults{degraded}, "latest")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !result.HasRegression {
		t.Fatalf("expected a regression when pass_rate drops from 1.0 to 0.0, got %+v", result)
	}
}

func TestRegressionDetectorUpdateBaseline(t *testing.T) {
	dir := t.TempDir()
	detector := NewRegressionDetector(dir, 0.05)

	res := results.New()
	res.Add(results.AssertionResult{Passed: true})

	if err := detector.UpdateBaseline([]*results.TestResults{res}, "v1"); err != nil {
		t.Fatalf("UpdateBaseline returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "v1.json")); err != nil {
		t.Fatalf("expected baseline file v1.json: %v", err)
	}
}
