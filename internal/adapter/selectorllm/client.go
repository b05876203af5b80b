// Package selectorllm implements the selector gateway against an
// OpenAI-compatible chat completions endpoint.
package selectorllm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/roundtable-dev/roundtable/internal/domain/conductor"
	"github.com/roundtable-dev/roundtable/internal/domain/session"
	"github.com/roundtable-dev/roundtable/internal/port/selector"
	"github.com/roundtable-dev/roundtable/internal/port/settings"
	"github.com/roundtable-dev/roundtable/internal/resilience"
)

// Client talks to an OpenAI-compatible chat completions API and maps its
// answer onto a conductor decision.
type Client struct {
	baseURL    string
	settings   settings.Provider
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a selector client. Credentials and generation policy are
// resolved through the settings provider on every call.
func NewClient(baseURL string, provider settings.Provider, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		settings: provider,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// chat completions wire types.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// wireDecision is the selector's JSON payload as emitted by the model.
type wireDecision struct {
	SelectedPersonaID   string `json:"selected_persona_id"`
	Reasoning           string `json:"reasoning"`
	IsIntervention      bool   `json:"is_intervention"`
	InterventionMessage string `json:"intervention_message"`
	BlackboardPatch     struct {
		Consensus string `json:"consensus"`
		Conflicts string `json:"conflicts"`
		NextStep  string `json:"next_step"`
		Facts     string `json:"facts"`
	} `json:"blackboard_patch"`
}

// SelectNextSpeaker implements selector.Gateway. Execution failures wrap
// selector.ErrExecutionFailed; structurally invalid model output wraps
// selector.ErrInvalidResponse.
func (c *Client) SelectNextSpeaker(ctx context.Context, req conductor.Request) (conductor.Decision, error) {
	sel, err := c.settings.Selector(ctx)
	if err != nil {
		return conductor.Decision{}, err
	}

	prompt, err := renderPrompt(req)
	if err != nil {
		return conductor.Decision{}, fmt.Errorf("%w: render prompt: %v", selector.ErrExecutionFailed, err)
	}

	messages := make([]chatMessage, 0, len(req.Conversation)+1)
	messages = append(messages, chatMessage{Role: "system", Content: prompt})
	for _, entry := range req.Conversation {
		role := "user"
		if entry.Role == "model" {
			role = "assistant"
		}
		messages = append(messages, chatMessage{
			Role:    role,
			Content: entry.DisplayName + ": " + entry.Content,
		})
	}

	body, err := json.Marshal(chatRequest{
		Model:       sel.ModelID,
		Messages:    messages,
		Temperature: sel.Temperature,
		MaxTokens:   sel.MaxOutputTokens,
	})
	if err != nil {
		return conductor.Decision{}, fmt.Errorf("%w: marshal request: %v", selector.ErrExecutionFailed, err)
	}

	raw, err := c.doRequest(ctx, sel.APIKey, body)
	if err != nil {
		return conductor.Decision{}, fmt.Errorf("%w: %v", selector.ErrExecutionFailed, err)
	}

	return parseDecision(raw)
}

func (c *Client) doRequest(ctx context.Context, apiKey string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("selector API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Do(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}

// parseDecision extracts and validates the decision JSON from a chat
// completions response.
func parseDecision(raw []byte) (conductor.Decision, error) {
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return conductor.Decision{}, fmt.Errorf("%w: unmarshal response: %v", selector.ErrInvalidResponse, err)
	}
	if len(resp.Choices) == 0 {
		return conductor.Decision{}, fmt.Errorf("%w: response has no choices", selector.ErrInvalidResponse)
	}

	content := extractJSON(resp.Choices[0].Message.Content)

	var payload any
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return conductor.Decision{}, fmt.Errorf("%w: decision is not valid JSON: %v", selector.ErrInvalidResponse, err)
	}
	if err := decisionSchema.Validate(payload); err != nil {
		return conductor.Decision{}, fmt.Errorf("%w: %v", selector.ErrInvalidResponse, err)
	}

	var wire wireDecision
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return conductor.Decision{}, fmt.Errorf("%w: %v", selector.ErrInvalidResponse, err)
	}

	return conductor.Decision{
		SelectedPersonaID:   wire.SelectedPersonaID,
		Reasoning:           wire.Reasoning,
		IsIntervention:      wire.IsIntervention,
		InterventionMessage: wire.InterventionMessage,
		BlackboardPatch: session.Blackboard{
			Consensus: wire.BlackboardPatch.Consensus,
			Conflicts: wire.BlackboardPatch.Conflicts,
			NextStep:  wire.BlackboardPatch.NextStep,
			Facts:     wire.BlackboardPatch.Facts,
		},
	}, nil
}

// extractJSON strips a markdown code fence when the model wraps its answer
// in one.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if after, ok := strings.CutPrefix(content, "```json"); ok {
		content = after
	} else if after, ok := strings.CutPrefix(content, "```"); ok {
		content = after
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
