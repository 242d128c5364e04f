package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubAnalysisConfig struct {
	apiKey  string
	baseURL string
	model   string
}

func (c stubAnalysisConfig) GetAnalysisAPIKey() string  { return c.apiKey }
func (c stubAnalysisConfig) GetAnalysisBaseURL() string { return c.baseURL }
func (c stubAnalysisConfig) GetAnalysisModel() string   { return c.model }
func (c stubAnalysisConfig) IsAnalysisEnabled() bool    { return c.apiKey != "" }

func chatCompletionJSON(content string) string {
	body := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func TestAnalyzeTranscript(t *testing.T) {
	insight := `{"sentiment":"positive","outcome":"appointment_booked","lead_score":85,"topics":["cleaning","insurance"],"action_items":["confirm appointment"],"summary":"Caller booked a cleaning."}`

	var gotAuth string
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletionJSON(insight)))
	}))
	defer server.Close()

	analyzer := NewKimiAnalyzer(stubAnalysisConfig{apiKey: "test-key", baseURL: server.URL, model: "kimi-k2-turbo-preview"})
	result, err := analyzer.AnalyzeTranscript(context.Background(), Request{
		Transcript:   "Hi, I'd like to book a cleaning.",
		BusinessType: "dental",
		CallerName:   "Pat",
		Duration:     95,
	})
	if err != nil {
		t.Fatalf("AnalyzeTranscript: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotReq.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %q, want json_object", gotReq.ResponseFormat.Type)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages: %+v", gotReq.Messages)
	}

	if result.Sentiment != "positive" {
		t.Errorf("sentiment = %q", result.Sentiment)
	}
	if result.Outcome != "appointment_booked" {
		t.Errorf("outcome = %q", result.Outcome)
	}
	if result.LeadScore != 85 {
		t.Errorf("lead score = %d", result.LeadScore)
	}
	if len(result.Topics) != 2 || len(result.ActionItems) != 1 {
		t.Errorf("topics/action items = %v / %v", result.Topics, result.ActionItems)
	}
}

func TestAnalyzeTranscriptEmptyTranscript(t *testing.T) {
	analyzer := NewKimiAnalyzer(stubAnalysisConfig{apiKey: "k"})
	_, err := analyzer.AnalyzeTranscript(context.Background(), Request{Transcript: "   "})
	if err != ErrEmptyTranscript {
		t.Fatalf("err = %v, want ErrEmptyTranscript", err)
	}
}

func TestAnalyzeTranscriptAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	analyzer := NewKimiAnalyzer(stubAnalysisConfig{apiKey: "k", baseURL: server.URL})
	_, err := analyzer.AnalyzeTranscript(context.Background(), Request{Transcript: "hello"})
	if err == nil {
		t.Fatal("expected error for api error response")
	}
}

func TestNormalizeClampsValues(t *testing.T) {
	result := normalize(insightPayload{Sentiment: "Ecstatic", Outcome: "", LeadScore: 150, Summary: " done "})
	if result.Sentiment != "neutral" {
		t.Errorf("sentiment = %q, want neutral fallback", result.Sentiment)
	}
	if result.Outcome != "other" {
		t.Errorf("outcome = %q, want other", result.Outcome)
	}
	if result.LeadScore != 100 {
		t.Errorf("lead score = %d, want clamped 100", result.LeadScore)
	}
	if result.Summary != "done" {
		t.Errorf("summary = %q", result.Summary)
	}
}

func TestSystemPromptVariants(t *testing.T) {
	generic := SystemPrompt("")
	dental := SystemPrompt("dental")
	if generic == dental {
		t.Error("dental prompt should extend the generic prompt")
	}
	if SystemPrompt("unknown-vertical") != generic {
		t.Error("unknown vertical should fall back to generic prompt")
	}
}
