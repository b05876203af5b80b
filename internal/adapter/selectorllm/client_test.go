package selectorllm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/roundtable-dev/roundtable/internal/domain/conductor"
	"github.com/roundtable-dev/roundtable/internal/domain/session"
	"github.com/roundtable-dev/roundtable/internal/port/selector"
	"github.com/roundtable-dev/roundtable/internal/port/settings"
	"github.com/roundtable-dev/roundtable/internal/resilience"
)

type fakeSettings struct {
	sel settings.Selector
	err error
}

func (f *fakeSettings) Selector(context.Context) (settings.Selector, error) {
	return f.sel, f.err
}

func testRequest() conductor.Request {
	return conductor.Request{
		ModelID: "gpt-test",
		Problem: "Design a rate limiter",
		Eligible: []conductor.EligibleSpeaker{
			{ID: "p1", Name: "Architect", Role: "architecture"},
		},
		Conversation: []conductor.ConversationEntry{
			{Role: "user", DisplayName: "User", Content: "Where do we start?"},
			{Role: "model", DisplayName: "Architect", Content: "Token bucket."},
		},
		LastSpeakerID: "p1",
	}
}

func completionBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
		"usage": map[string]any{"total_tokens": 42},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	provider := &fakeSettings{sel: settings.Selector{
		ModelID:         "gpt-test",
		APIKey:          "sk-test",
		Temperature:     0.2,
		MaxOutputTokens: 500,
	}}
	return NewClient(srv.URL, provider, 5*time.Second)
}

func TestSelectNextSpeakerSuccess(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(completionBody(`{"selected_persona_id": "p1", "reasoning": "their turn", "blackboard_patch": {"consensus": "token bucket"}}`)))
	})

	decision, err := client.SelectNextSpeaker(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.SelectedPersonaID != "p1" || decision.Reasoning != "their turn" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
	if want := (session.Blackboard{Consensus: "token bucket"}); decision.BlackboardPatch != want {
		t.Fatalf("unexpected blackboard patch: %+v", decision.BlackboardPatch)
	}

	if gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotReq.Model != "gpt-test" || gotReq.MaxTokens != 500 {
		t.Fatalf("unexpected chat request: %+v", gotReq)
	}
	// System prompt plus both conversation entries, persona turns as assistant.
	if len(gotReq.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" {
		t.Fatalf("expected system prompt first, got role %q", gotReq.Messages[0].Role)
	}
	if gotReq.Messages[2].Role != "assistant" || gotReq.Messages[2].Content != "Architect: Token bucket." {
		t.Fatalf("unexpected persona message: %+v", gotReq.Messages[2])
	}
}

func TestSelectNextSpeakerStripsCodeFence(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(completionBody("```json\n{\"selected_persona_id\": \"p1\", \"reasoning\": \"go\"}\n```")))
	})

	decision, err := client.SelectNextSpeaker(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.SelectedPersonaID != "p1" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestSelectNextSpeakerHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.SelectNextSpeaker(context.Background(), testRequest())
	if !errors.Is(err, selector.ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed, got %v", err)
	}
}

func TestSelectNextSpeakerInvalidDecision(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "I pick the architect."},
		{"missing persona id", `{"reasoning": "hmm"}`},
		{"empty persona id", `{"selected_persona_id": "", "reasoning": "hmm"}`},
		{"unknown field", `{"selected_persona_id": "p1", "reasoning": "x", "mood": "great"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(completionBody(tt.content)))
			})

			_, err := client.SelectNextSpeaker(context.Background(), testRequest())
			if !errors.Is(err, selector.ErrInvalidResponse) {
				t.Fatalf("expected ErrInvalidResponse, got %v", err)
			}
		})
	}
}

func TestSelectNextSpeakerNoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	_, err := client.SelectNextSpeaker(context.Background(), testRequest())
	if !errors.Is(err, selector.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestSelectNextSpeakerSettingsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("server should not be called when settings fail")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &fakeSettings{err: settings.ErrAPIKeyMissing}, time.Second)

	_, err := client.SelectNextSpeaker(context.Background(), testRequest())
	if !errors.Is(err, settings.ErrAPIKeyMissing) {
		t.Fatalf("expected ErrAPIKeyMissing, got %v", err)
	}
}

func TestSelectNextSpeakerBreakerOpen(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	client.SetBreaker(resilience.New(1, time.Hour))

	if _, err := client.SelectNextSpeaker(context.Background(), testRequest()); !errors.Is(err, selector.ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed, got %v", err)
	}

	// The breaker is now open; the second call must not reach the server.
	if _, err := client.SelectNextSpeaker(context.Background(), testRequest()); !errors.Is(err, selector.ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls)
	}
}
