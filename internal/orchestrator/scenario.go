package orchestrator

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadScenarioFile reads a YAML scenario document from path. Documents may
// wrap the scenario body under a top-level "scenario" key, or be the
// scenario body directly.
func LoadScenarioFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if inner, ok := doc["scenario"].(map[string]any); ok {
		return inner, nil
	}
	return doc, nil
}

// parseTime converts a time value from scenario YAML — a bare number of
// seconds, or a string like "2.5s" / "250ms" — into a time.Duration.
func parseTime(value any) time.Duration {
	switch v := value.(type) {
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case string:
		s := strings.TrimSpace(v)
		switch {
		case strings.HasSuffix(s, "ms"):
			n, _ := strconv.ParseFloat(strings.TrimSuffix(s, "ms"), 64)
			return time.Duration(n * float64(time.Millisecond))
		case strings.HasSuffix(s, "s"):
			n, _ := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
			return time.Duration(n * float64(time.Second))
		default:
			n, _ := strconv.ParseFloat(s, 64)
			return time.Duration(n * float64(time.Second))
		}
	default:
		return 0
	}
}

// asMapSlice normalizes a YAML-decoded list of timeline/branch entries
// (each itself a map) regardless of whether the underlying value is
// []any or []map[string]any.
func asMapSlice(value any) []map[string]any {
	switch v := value.(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

func asMap(value any) map[string]any {
	if m, ok := value.(map[string]any); ok {
		return m
	}
	return nil
}
