package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/roundtable-dev/roundtable/internal/domain"
	"github.com/roundtable-dev/roundtable/internal/domain/conductor"
	"github.com/roundtable-dev/roundtable/internal/domain/message"
	"github.com/roundtable-dev/roundtable/internal/domain/persona"
	"github.com/roundtable-dev/roundtable/internal/domain/session"
	"github.com/roundtable-dev/roundtable/internal/port/selector"
	"github.com/roundtable-dev/roundtable/internal/port/settings"
)

type fakeSessionAPI struct {
	sess  *session.Session
	err   error
	calls []string
}

func (f *fakeSessionAPI) Create(_ context.Context, req session.CreateRequest) (*session.Session, error) {
	f.calls = append(f.calls, "Create")
	if f.err != nil {
		return nil, f.err
	}
	return &session.Session{ID: "s1", Title: req.Title, ControlMode: session.ControlManual}, nil
}

func (f *fakeSessionAPI) Get(_ context.Context, id string) (*session.Session, error) {
	f.calls = append(f.calls, "Get "+id)
	if f.err != nil {
		return nil, f.err
	}
	return f.sess, nil
}

func (f *fakeSessionAPI) List(context.Context) ([]session.Session, error) {
	f.calls = append(f.calls, "List")
	if f.err != nil {
		return nil, f.err
	}
	if f.sess == nil {
		return nil, nil
	}
	return []session.Session{*f.sess}, nil
}

func (f *fakeSessionAPI) AddPersona(_ context.Context, sessionID string, req persona.CreateRequest) (*persona.Persona, error) {
	f.calls = append(f.calls, "AddPersona "+sessionID)
	if f.err != nil {
		return nil, f.err
	}
	return &persona.Persona{ID: "p1", SessionID: sessionID, Name: req.Name, Role: req.Role}, nil
}

func (f *fakeSessionAPI) Personas(_ context.Context, sessionID string) ([]persona.Persona, error) {
	f.calls = append(f.calls, "Personas "+sessionID)
	return nil, f.err
}

func (f *fakeSessionAPI) Hush(_ context.Context, personaID string, turns uint) error {
	f.calls = append(f.calls, fmt.Sprintf("Hush %s %d", personaID, turns))
	return f.err
}

func (f *fakeSessionAPI) PostUserMessage(_ context.Context, sessionID string, req message.SendRequest) (*message.Message, error) {
	f.calls = append(f.calls, "PostUserMessage "+sessionID)
	if f.err != nil {
		return nil, f.err
	}
	return &message.Message{ID: "m1", SessionID: sessionID, Source: message.SourceUser, Content: req.Content}, nil
}

func (f *fakeSessionAPI) Messages(_ context.Context, sessionID string, limit int) ([]message.Message, error) {
	f.calls = append(f.calls, fmt.Sprintf("Messages %s %d", sessionID, limit))
	return nil, f.err
}

func (f *fakeSessionAPI) Resume(_ context.Context, sessionID string) error {
	f.calls = append(f.calls, "Resume "+sessionID)
	return f.err
}

type fakeTurnAPI struct {
	result conductor.TurnResult
	err    error
	calls  int
}

func (f *fakeTurnAPI) RunTurn(context.Context, string) (conductor.TurnResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeSettingsAPI struct {
	sel      settings.Selector
	getErr   error
	storeErr error
	stored   *settings.Selector
}

func (f *fakeSettingsAPI) Selector(context.Context) (settings.Selector, error) {
	return f.sel, f.getErr
}

func (f *fakeSettingsAPI) StoreSelector(_ context.Context, sel settings.Selector) error {
	f.stored = &sel
	return f.storeErr
}

func newTestRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	MountRoutes(r, h, nil)
	return r
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestCreateSession(t *testing.T) {
	sessions := &fakeSessionAPI{}
	router := newTestRouter(&Handlers{Sessions: sessions})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/sessions",
		`{"title": "Rate limiter design", "problem_description": "p"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["title"] != "Rate limiter design" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestCreateSessionValidationError(t *testing.T) {
	sessions := &fakeSessionAPI{err: fmt.Errorf("%w: title is required", domain.ErrValidation)}
	router := newTestRouter(&Handlers{Sessions: sessions})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/sessions", `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "title is required" {
		t.Fatalf("expected trimmed validation message, got %v", body)
	}
}

func TestCreateSessionMalformedBody(t *testing.T) {
	router := newTestRouter(&Handlers{Sessions: &fakeSessionAPI{}})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/sessions", `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	sessions := &fakeSessionAPI{err: domain.ErrNotFound}
	router := newTestRouter(&Handlers{Sessions: sessions})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/sessions/missing", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "session not found" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestListSessionsEmptyIsArray(t *testing.T) {
	router := newTestRouter(&Handlers{Sessions: &fakeSessionAPI{}})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/sessions", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("expected empty array, got %q", got)
	}
}

func TestHushPersona(t *testing.T) {
	sessions := &fakeSessionAPI{}
	router := newTestRouter(&Handlers{Sessions: sessions})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/personas/p1/hush", `{"turns": 3}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if want := "Hush p1 3"; len(sessions.calls) != 1 || sessions.calls[0] != want {
		t.Fatalf("expected call %q, got %v", want, sessions.calls)
	}
}

func TestListMessagesRejectsInvalidLimit(t *testing.T) {
	router := newTestRouter(&Handlers{Sessions: &fakeSessionAPI{}})

	for _, limit := range []string{"-1", "abc"} {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/sessions/s1/messages?limit="+limit, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("limit %q: expected 400, got %d", limit, rec.Code)
		}
	}
}

func TestRunTurnCircuitBreaker(t *testing.T) {
	turns := &fakeTurnAPI{result: conductor.CircuitBreakerStopped{
		Message: "Circuit breaker: Maximum 8 auto-replies reached. Click continue to proceed.",
	}}
	router := newTestRouter(&Handlers{Sessions: &fakeSessionAPI{}, Turns: turns})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/sessions/s1/turn", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["type"] != "circuit_breaker" || body["code"] != CodeCircuitBreaker {
		t.Fatalf("unexpected payload: %v", body)
	}
	if body["message"] != "Circuit breaker: Maximum 8 auto-replies reached. Click continue to proceed." {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestRunTurnWaitForUser(t *testing.T) {
	turns := &fakeTurnAPI{result: conductor.TurnWaitForUser{Reasoning: "needs human input"}}
	router := newTestRouter(&Handlers{Sessions: &fakeSessionAPI{}, Turns: turns})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/sessions/s1/turn", "")

	body := decodeBody(t, rec)
	if body["type"] != "wait_for_user" || body["reasoning"] != "needs human input" {
		t.Fatalf("unexpected payload: %v", body)
	}
}

func TestRunTurnTriggerPersona(t *testing.T) {
	turns := &fakeTurnAPI{result: conductor.TurnTriggerPersona{
		PersonaID:      "p1",
		Reasoning:      "architect's turn",
		AutoReplyCount: 2,
	}}
	router := newTestRouter(&Handlers{Sessions: &fakeSessionAPI{}, Turns: turns})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/sessions/s1/turn", "")

	body := decodeBody(t, rec)
	if body["type"] != "trigger_persona" || body["persona_id"] != "p1" {
		t.Fatalf("unexpected payload: %v", body)
	}
	if body["auto_reply_count"] != float64(2) {
		t.Fatalf("unexpected auto_reply_count: %v", body["auto_reply_count"])
	}
}

func TestRunTurnErrorCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"selector execution", fmt.Errorf("%w: boom", selector.ErrExecutionFailed), http.StatusBadGateway, CodeSelectorAgentError},
		{"selector response", fmt.Errorf("%w: garbage", selector.ErrInvalidResponse), http.StatusBadGateway, CodeSelectorAgentError},
		{"api key missing", settings.ErrAPIKeyMissing, http.StatusBadRequest, CodeAPIKeyNotConfigured},
		{"api key decrypt", settings.ErrAPIKeyDecrypt, http.StatusInternalServerError, CodeAPIKeyDecryptFailed},
		{"settings read", settings.ErrRead, http.StatusInternalServerError, CodeSettingsReadError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turns := &fakeTurnAPI{err: tt.err}
			router := newTestRouter(&Handlers{Sessions: &fakeSessionAPI{}, Turns: turns})

			rec := doRequest(t, router, http.MethodPost, "/api/v1/sessions/s1/turn", "")

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if body := decodeBody(t, rec); body["code"] != tt.wantCode {
				t.Fatalf("expected code %q, got %v", tt.wantCode, body)
			}
		})
	}
}

func TestRunTurnConflictErrors(t *testing.T) {
	for _, err := range []error{
		conductor.ErrNotEnabled,
		conductor.ErrNoPersonas,
		conductor.ErrConductorPersonaMissing,
	} {
		turns := &fakeTurnAPI{err: err}
		router := newTestRouter(&Handlers{Sessions: &fakeSessionAPI{}, Turns: turns})

		rec := doRequest(t, router, http.MethodPost, "/api/v1/sessions/s1/turn", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("%v: expected 409, got %d", err, rec.Code)
		}
	}
}

func TestRunTurnSelectedPersonaMissing(t *testing.T) {
	turns := &fakeTurnAPI{err: &conductor.SelectedPersonaNotFoundError{ID: "ghost"}}
	router := newTestRouter(&Handlers{Sessions: &fakeSessionAPI{}, Turns: turns})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/sessions/s1/turn", "")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestContinueSessionResumesThenRuns(t *testing.T) {
	sessions := &fakeSessionAPI{}
	turns := &fakeTurnAPI{result: conductor.TurnWaitForUser{Reasoning: "resumed"}}
	router := newTestRouter(&Handlers{Sessions: sessions, Turns: turns})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/sessions/s1/continue", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(sessions.calls) != 1 || sessions.calls[0] != "Resume s1" {
		t.Fatalf("expected resume call, got %v", sessions.calls)
	}
	if turns.calls != 1 {
		t.Fatalf("expected 1 turn call, got %d", turns.calls)
	}
}

func TestContinueSessionResumeFails(t *testing.T) {
	sessions := &fakeSessionAPI{err: domain.ErrNotFound}
	turns := &fakeTurnAPI{}
	router := newTestRouter(&Handlers{Sessions: sessions, Turns: turns})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/sessions/s1/continue", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if turns.calls != 0 {
		t.Fatalf("turn must not run when resume fails, got %d calls", turns.calls)
	}
}

func TestGetSelectorSettingsMasksAPIKey(t *testing.T) {
	api := &fakeSettingsAPI{sel: settings.Selector{
		ModelID:         "gpt-test",
		APIKey:          "sk-secret",
		Temperature:     0.2,
		MaxOutputTokens: 800,
	}}
	router := newTestRouter(&Handlers{Sessions: &fakeSessionAPI{}, Settings: api})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/settings/selector", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "sk-secret") {
		t.Fatal("response leaks the API key")
	}
	body := decodeBody(t, rec)
	if body["api_key_configured"] != true || body["model_id"] != "gpt-test" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestGetSelectorSettingsNotConfigured(t *testing.T) {
	api := &fakeSettingsAPI{getErr: settings.ErrAPIKeyMissing}
	router := newTestRouter(&Handlers{Sessions: &fakeSessionAPI{}, Settings: api})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/settings/selector", "")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["code"] != CodeAPIKeyNotConfigured {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestUpdateSelectorSettings(t *testing.T) {
	api := &fakeSettingsAPI{}
	router := newTestRouter(&Handlers{Sessions: &fakeSessionAPI{}, Settings: api})

	rec := doRequest(t, router, http.MethodPut, "/api/v1/settings/selector",
		`{"model_id": "gpt-test", "api_key": "sk-new", "temperature": 0.5, "max_output_tokens": 400}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if api.stored == nil || api.stored.APIKey != "sk-new" || api.stored.ModelID != "gpt-test" {
		t.Fatalf("unexpected stored settings: %+v", api.stored)
	}
	if strings.Contains(rec.Body.String(), "sk-new") {
		t.Fatal("response echoes the API key")
	}
}

func TestUpdateSelectorSettingsValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing model id", `{"api_key": "sk-new"}`},
		{"missing api key", `{"model_id": "gpt-test"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeSettingsAPI{}
			router := newTestRouter(&Handlers{Sessions: &fakeSessionAPI{}, Settings: api})

			rec := doRequest(t, router, http.MethodPut, "/api/v1/settings/selector", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if api.stored != nil {
				t.Fatal("settings must not be stored on validation failure")
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&Handlers{Sessions: &fakeSessionAPI{}})

	rec := doRequest(t, router, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
