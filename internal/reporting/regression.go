package reporting

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"voxharness/internal/metrics"
	"voxharness/internal/results"
)

// RegressionEntry is a single metric's delta against the baseline.
type RegressionEntry struct {
	Metric    string  `json:"metric"`
	Baseline  float64 `json:"baseline"`
	Current   float64 `json:"current"`
	DeltaPct  float64 `json:"delta_pct"`
}

// RegressionResult is the outcome of comparing a run against a baseline.
type RegressionResult struct {
	HasRegression bool
	Regressions   []RegressionEntry
	Improvements  []RegressionEntry
	Unchanged     []string
}

// RegressionDetector compares current test results against a stored JSON
// baseline to detect regressions and improvements, mirroring the original
// file-per-baseline-name layout so baselines can be committed to version
// control.
type RegressionDetector struct {
	BaselineDir string
	Threshold   float64
}

// NewRegressionDetector creates a detector writing baselines under dir, with
// threshold fraction triggering a regression (default 0.05, i.e. 5%).
func NewRegressionDetector(dir string, threshold float64) *RegressionDetector {
	if dir == "" {
		dir = ".baselines"
	}
	if threshold <= 0 {
		threshold = 0.05
	}
	return &RegressionDetector{BaselineDir: dir, Threshold: threshold}
}

// Check compares allResults against the named baseline. If no baseline
// exists yet, it is created from allResults and the check vacuously passes.
func (d *RegressionDetector) Check(allResults []*results.TestResults, baselineName string) (RegressionResult, error) {
	if baselineName == "" {
		baselineName = "latest"
	}

	baseline, err := d.loadBaseline(baselineName)
	if err != nil {
		return RegressionResult{}, fmt.Errorf("load baseline %q: %w", baselineName, err)
	}
	if baseline == nil {
		slog.Info("no baseline found, saving current results as baseline", "name", baselineName)
		if err := d.saveBaseline(allResults, baselineName); err != nil {
			return RegressionResult{}, err
		}
		return RegressionResult{}, nil
	}

	current := extractMetrics(allResults)

	var regressions, improvements []RegressionEntry
	var unchanged []string

	keys := make([]string, 0, len(current))
	for k := range current {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		currentValue := current[key]
		baselineValue, ok := baseline[key]
		if !ok {
			continue
		}
		if baselineValue == 0 {
			unchanged = append(unchanged, key)
			continue
		}

		delta := (currentValue - baselineValue) / absFloat(baselineValue)
		entry := RegressionEntry{Metric: key, Baseline: baselineValue, Current: currentValue, DeltaPct: round2(delta * 100)}

		switch {
		case delta < -d.Threshold:
			regressions = append(regressions, entry)
			metrics.RegressionsTotal.WithLabelValues(key, "regression").Inc()
		case delta > d.Threshold:
			improvements = append(improvements, entry)
			metrics.RegressionsTotal.WithLabelValues(key, "improvement").Inc()
		default:
			unchanged = append(unchanged, key)
		}
	}

	return RegressionResult{
		HasRegression: len(regressions) > 0,
		Regressions:   regressions,
		Improvements:  improvements,
		Unchanged:     unchanged,
	}, nil
}

// UpdateBaseline overwrites the named baseline with allResults' metrics.
func (d *RegressionDetector) UpdateBaseline(allResults []*results.TestResults, baselineName string) error {
	if baselineName == "" {
		baselineName = "latest"
	}
	return d.saveBaseline(allResults, baselineName)
}

func extractMetrics(allResults []*results.TestResults) map[string]float64 {
	m := map[string]float64{}

	total := len(allResults)
	passed := 0
	for _, r := range allResults {
		if r.AllPassed() {
			passed++
		}
	}
	if total > 0 {
		m["pass_rate"] = float64(passed) / float64(total)
	}

	var latencies []float64
	var accuracies []float64
	for _, r := range allResults {
		latencies = append(latencies, r.Latency.FirstByteLatencies...)
		if r.Accuracy.Overall > 0 {
			accuracies = append(accuracies, r.Accuracy.Overall)
		}
	}
	if len(latencies) > 0 {
		sort.Float64s(latencies)
		m["latency_p50"] = latencies[len(latencies)/2]
	}
	if len(accuracies) > 0 {
		var sum float64
		for _, a := range accuracies {
			sum += a
		}
		m["accuracy_avg"] = sum / float64(len(accuracies))
	}

	return m
}

func (d *RegressionDetector) loadBaseline(name string) (map[string]float64, error) {
	path := filepath.Join(d.BaselineDir, name+".json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read baseline file: %w", err)
	}
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode baseline file: %w", err)
	}
	return m, nil
}

func (d *RegressionDetector) saveBaseline(allResults []*results.TestResults, name string) error {
	if err := os.MkdirAll(d.BaselineDir, 0o755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}
	data, err := json.MarshalIndent(extractMetrics(allResults), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	path := filepath.Join(d.BaselineDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write baseline file: %w", err)
	}
	return nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func round2(v float64) float64 {
	const scale = 100
	if v < 0 {
		return float64(int(v*scale-0.5)) / scale
	}
	return float64(int(v*scale+0.5)) / scale
}
