package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bluelotus98/blue-lotus-backend/platform/config"
)

// KimiAnalyzer implements Analyzer against Moonshot's OpenAI-compatible
// chat completions API.
type KimiAnalyzer struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewKimiAnalyzer creates an analyzer from config.
func NewKimiAnalyzer(cfg config.AnalysisConfig) *KimiAnalyzer {
	baseURL := cfg.GetAnalysisBaseURL()
	if baseURL == "" {
		baseURL = "https://api.moonshot.ai/v1"
	}
	model := cfg.GetAnalysisModel()
	if model == "" {
		model = "kimi-k2-turbo-preview"
	}
	return &KimiAnalyzer{
		apiKey:  cfg.GetAnalysisAPIKey(),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error interface{} `json:"error"`
}

// insightPayload is the JSON shape the prompt instructs the model to emit.
type insightPayload struct {
	Sentiment   string   `json:"sentiment"`
	Outcome     string   `json:"outcome"`
	LeadScore   int      `json:"lead_score"`
	Topics      []string `json:"topics"`
	ActionItems []string `json:"action_items"`
	Summary     string   `json:"summary"`
}

// AnalyzeTranscript sends one call transcript through the model and decodes
// the structured insight block.
func (a *KimiAnalyzer) AnalyzeTranscript(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return Result{}, ErrEmptyTranscript
	}

	body := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt(req.BusinessType)},
			{Role: "user", Content: UserPrompt(req)},
		},
		Temperature: 0.3,
	}
	body.ResponseFormat.Type = "json_object"

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("failed to decode analysis response: %v", err)
	}
	if result.Error != nil {
		return Result{}, fmt.Errorf("analysis api error: %v", result.Error)
	}
	if len(result.Choices) == 0 {
		return Result{}, fmt.Errorf("analysis api error: empty choices")
	}

	var payload insightPayload
	if err := json.Unmarshal([]byte(result.Choices[0].Message.Content), &payload); err != nil {
		return Result{}, fmt.Errorf("malformed insight payload: %v", err)
	}

	return normalize(payload), nil
}

var validSentiments = map[string]bool{
	"positive": true,
	"neutral":  true,
	"negative": true,
}

// normalize clamps model output into the column constraints. The model mostly
// follows the schema, but a stray value must never poison the row.
func normalize(p insightPayload) Result {
	sentiment := strings.ToLower(strings.TrimSpace(p.Sentiment))
	if !validSentiments[sentiment] {
		sentiment = "neutral"
	}

	outcome := strings.ToLower(strings.TrimSpace(p.Outcome))
	if outcome == "" {
		outcome = "other"
	}

	score := p.LeadScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Result{
		Sentiment:   sentiment,
		Outcome:     outcome,
		LeadScore:   score,
		Topics:      p.Topics,
		ActionItems: p.ActionItems,
		Summary:     strings.TrimSpace(p.Summary),
	}
}
