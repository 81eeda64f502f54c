// Package reporting renders completed scenario runs into the formats CI
// systems and humans consume: JUnit XML, a self-contained HTML summary, and
// a JSON regression baseline.
package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"voxharness/internal/results"
)

// JUnitWriter generates JUnit XML reports compatible with CI systems
// (Jenkins, GitHub Actions, GitLab CI).
type JUnitWriter struct {
	SuiteName string
}

// NewJUnitWriter creates a writer for the given suite name.
func NewJUnitWriter(suiteName string) *JUnitWriter {
	if suiteName == "" {
		suiteName = "voxharness"
	}
	return &JUnitWriter{SuiteName: suiteName}
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Text    string `xml:",chardata"`
}

type junitTestCase struct {
	ClassName string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Time      string        `xml:"time,attr,omitempty"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Timestamp string          `xml:"timestamp,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	TestCases []junitTestCase `xml:"testcase"`
}

// Write renders allResults as a JUnit XML document at outputPath.
func (w *JUnitWriter) Write(allResults []*results.TestResults, outputPath string) error {
	suite := junitTestSuite{
		Name:      w.SuiteName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	for i, res := range allResults {
		scenarioName := scenarioLabel(res, i)

		if len(res.Assertions) == 0 {
			suite.Tests++
			tc := junitTestCase{ClassName: w.SuiteName, Name: scenarioName}
			if !res.AllPassed() {
				suite.Failures++
				tc.Failure = &junitFailure{Message: "Scenario did not pass"}
			}
			suite.TestCases = append(suite.TestCases, tc)
			continue
		}

		for j, assertion := range res.Assertions {
			suite.Tests++
			name := assertion.Description
			if name == "" {
				name = fmt.Sprintf("assertion_%d", j)
			}
			tc := junitTestCase{
				ClassName: fmt.Sprintf("%s.%s", w.SuiteName, scenarioName),
				Name:      name,
				Time:      fmt.Sprintf("%.3f", assertion.Timestamp.Seconds()),
			}
			if !assertion.Passed {
				suite.Failures++
				tc.Failure = &junitFailure{
					Message: assertion.Description,
					Text:    fmt.Sprintf("Expected: %v\nActual: %v", assertion.Expected, assertion.Actual),
				}
			}
			suite.TestCases = append(suite.TestCases, tc)
		}
	}

	out, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal junit xml: %w", err)
	}
	doc := append([]byte(xml.Header), out...)
	doc = append(doc, '\n')

	if err := os.WriteFile(outputPath, doc, 0o644); err != nil {
		return fmt.Errorf("write junit xml: %w", err)
	}
	return nil
}

func scenarioLabel(res *results.TestResults, index int) string {
	if name, ok := res.Metadata["scenario_name"].(string); ok && name != "" {
		return name
	}
	return fmt.Sprintf("scenario_%d", index)
}
