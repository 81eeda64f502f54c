package reporting

import (
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	"voxharness/internal/results"
	"voxharness/internal/scoring"
)

// NoiseMatrixRow is one row of the optional noise-robustness breakdown
// (S3: the same scenario run across a sweep of SNR values).
type NoiseMatrixRow struct {
	SNRdB  float64
	Intent float64
	Entity float64
	Tool   float64
}

// htmlTemplate is the built-in report template; no templating library
// appears anywhere in the retrieval pack, so html/template (stdlib) is used
// directly rather than rendering a string by hand.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{ .Title }}</title>
<style>
  :root { --bg: #F5F3EE; --card: #fff; --accent: #e94560; --text: #1a1a2e; }
  * { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: system-ui, sans-serif; background: var(--bg);
         color: var(--text); line-height: 1.6; }
  .container { max-width: 960px; margin: 0 auto; padding: 24px; }
  header { background: var(--text); color: #fff; padding: 32px 0;
           border-bottom: 4px solid var(--accent); margin-bottom: 24px; }
  header h1 { font-size: 24px; font-weight: 700; }
  header .meta { font-size: 13px; color: #aaa; margin-top: 6px; }
  .card { background: var(--card); border-radius: 12px; padding: 20px;
          border: 1px solid #e0ddd5; margin-bottom: 20px; }
  .card h2 { font-size: 16px; margin-bottom: 12px; }
  .badge { display: inline-block; padding: 3px 10px; border-radius: 20px;
           font-size: 12px; font-weight: 600; }
  .badge.pass { background: #d4edda; color: #155724; }
  .badge.fail { background: #f8d7da; color: #721c24; }
  table { width: 100%; border-collapse: collapse; font-size: 13px; }
  th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid #eee; }
  th { font-weight: 600; color: #666; }
  .dimension { display: grid; grid-template-columns: repeat(auto-fill, minmax(200px, 1fr));
               gap: 14px; }
  .dim-card { padding: 16px; border-radius: 10px; background: #f9f7f2;
              border: 1px solid #e8e4db; }
  .dim-card .label { font-size: 12px; color: #888; }
  .dim-card .value { font-size: 22px; font-weight: 700; margin-top: 4px; }
</style>
</head>
<body>
<header>
  <div class="container">
    <h1>{{ .Title }}</h1>
    <div class="meta">Generated {{ .Timestamp }} &middot; {{ .TotalScenarios }} scenario(s)</div>
  </div>
</header>
<div class="container">
  <div class="card">
    <h2>Summary</h2>
    <div class="dimension">
      <div class="dim-card"><div class="label">Total</div><div class="value">{{ .TotalScenarios }}</div></div>
      <div class="dim-card"><div class="label">Passed</div><div class="value" style="color: #155724;">{{ .Passed }}</div></div>
      <div class="dim-card"><div class="label">Failed</div><div class="value" style="color: #721c24;">{{ .Failed }}</div></div>
      <div class="dim-card"><div class="label">Pass Rate</div><div class="value">{{ .PassRate }}%</div></div>
    </div>
  </div>

  {{ if .Dimensions }}
  <div class="card">
    <h2>Evaluation Dimensions</h2>
    <div class="dimension">
      {{ range .Dimensions }}
      <div class="dim-card"><div class="label">{{ .Name }}</div><div class="value">{{ .Percent }}%</div></div>
      {{ end }}
    </div>
  </div>
  {{ end }}

  <div class="card">
    <h2>Scenario Results</h2>
    <table>
      <thead><tr><th>Scenario</th><th>Status</th><th>Assertions</th><th>Tags</th></tr></thead>
      <tbody>
      {{ range .Scenarios }}
      <tr>
        <td>{{ .Name }}</td>
        <td><span class="badge {{ if .Passed }}pass{{ else }}fail{{ end }}">{{ if .Passed }}PASS{{ else }}FAIL{{ end }}</span></td>
        <td>{{ .AssertionsPassed }}/{{ .AssertionsTotal }}</td>
        <td>{{ .Tags }}</td>
      </tr>
      {{ end }}
      </tbody>
    </table>
  </div>

  {{ if .NoiseMatrix }}
  <div class="card">
    <h2>Noise Robustness Matrix</h2>
    <table>
      <thead><tr><th>SNR (dB)</th><th>Intent</th><th>Entity</th><th>Tool Call</th></tr></thead>
      <tbody>
      {{ range .NoiseMatrix }}
      <tr><td>{{ .SNRdB }}</td><td>{{ .Intent }}%</td><td>{{ .Entity }}%</td><td>{{ .Tool }}%</td></tr>
      {{ end }}
      </tbody>
    </table>
  </div>
  {{ end }}
</div>
</body>
</html>
`

type htmlDimension struct {
	Name    string
	Percent string
}

type htmlScenario struct {
	Name             string
	Passed           bool
	AssertionsPassed int
	AssertionsTotal  int
	Tags             string
}

type htmlNoiseRow struct {
	SNRdB  float64
	Intent string
	Entity string
	Tool   string
}

type htmlData struct {
	Title          string
	Timestamp      string
	TotalScenarios int
	Passed         int
	Failed         int
	PassRate       string
	Dimensions     []htmlDimension
	Scenarios      []htmlScenario
	NoiseMatrix    []htmlNoiseRow
}

// HTMLReporter generates a self-contained HTML report from test results.
type HTMLReporter struct {
	Title string
	tmpl  *template.Template
}

// NewHTMLReporter creates a reporter titled title.
func NewHTMLReporter(title string) *HTMLReporter {
	if title == "" {
		title = "Voice Test Harness Report"
	}
	return &HTMLReporter{
		Title: title,
		tmpl:  template.Must(template.New("report").Parse(htmlTemplate)),
	}
}

// Generate renders allResults (plus optional evaluationReports and an
// optional noise-robustness matrix) to outputPath as HTML.
func (g *HTMLReporter) Generate(allResults []*results.TestResults, outputPath string, evaluationReports []scoring.EvaluationReport, noiseMatrix []NoiseMatrixRow) error {
	passed := 0
	for _, r := range allResults {
		if r.AllPassed() {
			passed++
		}
	}
	total := len(allResults)
	failed := total - passed

	passRate := 0.0
	if total > 0 {
		passRate = float64(passed) / float64(total) * 100
	}

	data := htmlData{
		Title:          g.Title,
		Timestamp:      time.Now().UTC().Format("2006-01-02 15:04 UTC"),
		TotalScenarios: total,
		Passed:         passed,
		Failed:         failed,
		PassRate:       fmt.Sprintf("%.1f", passRate),
		Dimensions:     aggregateDimensions(evaluationReports),
	}

	for i, r := range allResults {
		aTotal := len(r.Assertions)
		aPassed := 0
		for _, a := range r.Assertions {
			if a.Passed {
				aPassed++
			}
		}
		tags := "-"
		if len(r.Tags) > 0 {
			tags = strings.Join(r.Tags, ", ")
		}
		data.Scenarios = append(data.Scenarios, htmlScenario{
			Name:             scenarioLabel(r, i),
			Passed:           r.AllPassed(),
			AssertionsPassed: aPassed,
			AssertionsTotal:  aTotal,
			Tags:             tags,
		})
	}

	for _, row := range noiseMatrix {
		data.NoiseMatrix = append(data.NoiseMatrix, htmlNoiseRow{
			SNRdB:  row.SNRdB,
			Intent: fmt.Sprintf("%.0f", row.Intent*100),
			Entity: fmt.Sprintf("%.0f", row.Entity*100),
			Tool:   fmt.Sprintf("%.0f", row.Tool*100),
		})
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	defer f.Close()

	if err := g.tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

func aggregateDimensions(reports []scoring.EvaluationReport) []htmlDimension {
	if len(reports) == 0 {
		return nil
	}

	var latencySum, accuracySum, naturalnessSum, toolUseSum float64
	for _, r := range reports {
		latencySum += r.Latency.Score
		accuracySum += r.Accuracy.Score
		naturalnessSum += r.Naturalness.Score
		toolUseSum += r.ToolUse.Score
	}
	n := float64(len(reports))

	return []htmlDimension{
		{Name: "latency", Percent: fmt.Sprintf("%.1f", latencySum/n*100)},
		{Name: "accuracy", Percent: fmt.Sprintf("%.1f", accuracySum/n*100)},
		{Name: "naturalness", Percent: fmt.Sprintf("%.1f", naturalnessSum/n*100)},
		{Name: "tool_use", Percent: fmt.Sprintf("%.1f", toolUseSum/n*100)},
	}
}
