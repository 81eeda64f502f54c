package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"golang.org/x/text/cases"

	"voxharness/internal/results"
)

const naturalnessRubric = `Evaluate the naturalness of this voice conversation system's responses (1-5):

5: Completely human-like conversation, natural intonation and rhythm
4: Mostly natural, occasional slight mechanical feel
3: Understandable but clearly AI, awkward transitions
2: Frequent unnatural pauses or repetitions
1: Severely mechanical, conversation hard to sustain

Pay special attention to:
- Recovery after interruptions / barge-in
- Use of appropriate filler phrases (vs awkward silence)
- Handling of colloquial / incomplete sentences
`

// NaturalnessScore is the result of scoring a run's conversational
// naturalness.
type NaturalnessScore struct {
	Score      float64  `json:"score"`
	RawScore   float64  `json:"raw_score,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Strengths  []string `json:"strengths,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`
	Method     string   `json:"method"`
	Diversity  float64  `json:"diversity,omitempty"`
	AvgLength  float64  `json:"avg_response_length,omitempty"`
}

// NaturalnessScorer scores conversational naturalness using Claude as an
// LLM judge when ANTHROPIC_API_KEY is configured, falling back to a lexical
// diversity / response-length heuristic otherwise.
type NaturalnessScorer struct {
	Model  string
	APIKey string
	URL    string
	client *http.Client
}

// NewNaturalnessScorer creates a scorer targeting model with apiKey as
// given; it does not read the environment (the constructor in framework.go
// reads ANTHROPIC_API_KEY). Pass an empty apiKey to force the heuristic
// fallback (e.g. in tests).
func NewNaturalnessScorer(model, apiKey, url string) *NaturalnessScorer {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	if url == "" {
		url = "https://api.anthropic.com"
	}
	return &NaturalnessScorer{
		Model:  model,
		APIKey: apiKey,
		URL:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Score evaluates res's naturalness, preferring the LLM-judge path when an
// API key is configured.
func (s *NaturalnessScorer) Score(ctx context.Context, res *results.TestResults) NaturalnessScore {
	log := s.buildConversationLog(res)

	if s.APIKey != "" && log != "" {
		score, err := s.llmJudge(ctx, log)
		if err != nil {
			slog.Default().Debug("naturalness: LLM judge unavailable, falling back to heuristic", "error", err)
		} else {
			return score
		}
	}

	return s.heuristicScore(res)
}

func (s *NaturalnessScorer) llmJudge(ctx context.Context, conversationLog string) (NaturalnessScore, error) {
	prompt := fmt.Sprintf("%s\n\nConversation:\n%s\n\nRespond with JSON: "+
		`{"score": <1-5>, "reasoning": "...", "strengths": [...], "weaknesses": [...]}`,
		naturalnessRubric, conversationLog)

	body, err := json.Marshal(anthropicJudgeRequest{
		Model:     s.Model,
		MaxTokens: 1024,
		Messages:  []anthropicJudgeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return NaturalnessScore{}, fmt.Errorf("marshal naturalness judge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return NaturalnessScore{}, fmt.Errorf("create naturalness judge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := s.client.Do(req)
	if err != nil {
		return NaturalnessScore{}, fmt.Errorf("naturalness judge request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NaturalnessScore{}, fmt.Errorf("naturalness judge status %d: %s", resp.StatusCode, errBody)
	}

	var out anthropicJudgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return NaturalnessScore{}, fmt.Errorf("decode naturalness judge response: %w", err)
	}
	if len(out.Content) == 0 {
		return NaturalnessScore{}, fmt.Errorf("naturalness judge returned no content")
	}

	var judged judgeVerdict
	if err := json.Unmarshal([]byte(out.Content[0].Text), &judged); err != nil {
		judged = judgeVerdict{Score: 3, Reasoning: out.Content[0].Text}
	}
	if judged.Score == 0 {
		judged.Score = 3
	}

	return NaturalnessScore{
		Score:      judged.Score / 5.0,
		RawScore:   judged.Score,
		Reasoning:  judged.Reasoning,
		Strengths:  judged.Strengths,
		Weaknesses: judged.Weaknesses,
		Method:     "llm_judge",
	}, nil
}

func (s *NaturalnessScorer) heuristicScore(res *results.TestResults) NaturalnessScore {
	var texts []string
	for _, r := range res.Responses {
		if r.Text != "" {
			texts = append(texts, r.Text)
		}
	}
	if len(texts) == 0 {
		return NaturalnessScore{Score: 0.5, Method: "heuristic", Reasoning: "No text responses"}
	}

	caser := cases.Fold()
	seen := map[string]struct{}{}
	var totalLen int
	for _, t := range texts {
		seen[caser.String(t)] = struct{}{}
		totalLen += len(t)
	}
	diversity := float64(len(seen)) / float64(len(texts))
	avgLen := float64(totalLen) / float64(len(texts))

	lengthScore := 1.0
	if avgLen < 500 {
		lengthScore = avgLen / 100
		if lengthScore > 1.0 {
			lengthScore = 1.0
		}
	} else {
		lengthScore = 1.0 - (avgLen-500)/1000
		if lengthScore < 0.5 {
			lengthScore = 0.5
		}
	}

	return NaturalnessScore{
		Score:     diversity*0.5 + lengthScore*0.5,
		Diversity: diversity,
		AvgLength: avgLen,
		Method:    "heuristic",
	}
}

// buildConversationLog formats res's responses and tool calls into a
// timestamped transcript, matching the reference judge's line format.
// Lines are sorted lexically (not chronologically) as a side effect of the
// reference implementation's own "sorted(lines)" call, which this preserves
// so prompt text stays byte-for-byte comparable across runs.
func (s *NaturalnessScorer) buildConversationLog(res *results.TestResults) string {
	var lines []string
	for _, r := range res.Responses {
		if r.Text != "" {
			lines = append(lines, fmt.Sprintf("[%.2fs] System: %s", r.Timestamp.Seconds(), r.Text))
		}
	}
	for _, tc := range res.ToolCalls.Snapshot() {
		lines = append(lines, fmt.Sprintf("[%.2fs] Tool call: %s(%v)", tc.Timestamp.Seconds(), tc.Tool, tc.Args))
	}
	sort.Strings(lines)

	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

type anthropicJudgeRequest struct {
	Model     string                  `json:"model"`
	MaxTokens int                     `json:"max_tokens"`
	Messages  []anthropicJudgeMessage `json:"messages"`
}

type anthropicJudgeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicJudgeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

type judgeVerdict struct {
	Score      float64  `json:"score"`
	Reasoning  string   `json:"reasoning"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}
