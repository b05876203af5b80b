package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/roundtable-dev/roundtable/internal/domain/conductor"
	"github.com/roundtable-dev/roundtable/internal/domain/message"
	"github.com/roundtable-dev/roundtable/internal/domain/persona"
	"github.com/roundtable-dev/roundtable/internal/domain/session"
	"github.com/roundtable-dev/roundtable/internal/port/settings"
)

// SessionAPI is the slice of the session service the handlers use.
type SessionAPI interface {
	Create(ctx context.Context, req session.CreateRequest) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	List(ctx context.Context) ([]session.Session, error)
	AddPersona(ctx context.Context, sessionID string, req persona.CreateRequest) (*persona.Persona, error)
	Personas(ctx context.Context, sessionID string) ([]persona.Persona, error)
	Hush(ctx context.Context, personaID string, turns uint) error
	PostUserMessage(ctx context.Context, sessionID string, req message.SendRequest) (*message.Message, error)
	Messages(ctx context.Context, sessionID string, limit int) ([]message.Message, error)
	Resume(ctx context.Context, sessionID string) error
}

// TurnAPI runs conductor turns.
type TurnAPI interface {
	RunTurn(ctx context.Context, sessionID string) (conductor.TurnResult, error)
}

// SettingsAPI reads and stores selector settings.
type SettingsAPI interface {
	Selector(ctx context.Context) (settings.Selector, error)
	StoreSelector(ctx context.Context, sel settings.Selector) error
}

// Handlers bundles the HTTP handlers and their dependencies.
type Handlers struct {
	Sessions SessionAPI
	Turns    TurnAPI
	Settings SettingsAPI
}

// --- Sessions ---

// CreateSession handles POST /api/v1/sessions
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[session.CreateRequest](w, r)
	if !ok {
		return
	}
	sess, err := h.Sessions.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// ListSessions handles GET /api/v1/sessions
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Sessions.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "sessions not found")
		return
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// GetSession handles GET /api/v1/sessions/{id}
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// --- Personas ---

// AddPersona handles POST /api/v1/sessions/{id}/personas
func (h *Handlers) AddPersona(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[persona.CreateRequest](w, r)
	if !ok {
		return
	}
	p, err := h.Sessions.AddPersona(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListPersonas handles GET /api/v1/sessions/{id}/personas
func (h *Handlers) ListPersonas(w http.ResponseWriter, r *http.Request) {
	personas, err := h.Sessions.Personas(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	if personas == nil {
		personas = []persona.Persona{}
	}
	writeJSON(w, http.StatusOK, personas)
}

type hushRequest struct {
	Turns uint `json:"turns"`
}

// HushPersona handles POST /api/v1/personas/{id}/hush. Zero turns unmutes.
func (h *Handlers) HushPersona(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[hushRequest](w, r)
	if !ok {
		return
	}
	if err := h.Sessions.Hush(r.Context(), urlParam(r, "id"), req.Turns); err != nil {
		writeDomainError(w, err, "persona not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint{"turns": req.Turns})
}

// --- Messages ---

// PostMessage handles POST /api/v1/sessions/{id}/messages
func (h *Handlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[message.SendRequest](w, r)
	if !ok {
		return
	}
	msg, err := h.Sessions.PostUserMessage(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// ListMessages handles GET /api/v1/sessions/{id}/messages
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	msgs, err := h.Sessions.Messages(r.Context(), urlParam(r, "id"), limit)
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// --- Turns ---

// RunTurn handles POST /api/v1/sessions/{id}/turn
func (h *Handlers) RunTurn(w http.ResponseWriter, r *http.Request) {
	result, err := h.Turns.RunTurn(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, turnPayload(result))
}

// turnPayload maps a turn result onto its wire shape. The mapping is total:
// every result variant has exactly one type tag.
func turnPayload(result conductor.TurnResult) any {
	switch res := result.(type) {
	case conductor.CircuitBreakerStopped:
		return struct {
			Type string `json:"type"`
			Code string `json:"code"`
			conductor.CircuitBreakerStopped
		}{Type: "circuit_breaker", Code: CodeCircuitBreaker, CircuitBreakerStopped: res}
	case conductor.TurnWaitForUser:
		return struct {
			Type string `json:"type"`
			conductor.TurnWaitForUser
		}{Type: "wait_for_user", TurnWaitForUser: res}
	case conductor.TurnTriggerPersona:
		return struct {
			Type string `json:"type"`
			conductor.TurnTriggerPersona
		}{Type: "trigger_persona", TurnTriggerPersona: res}
	default:
		return struct {
			Type string `json:"type"`
		}{Type: "unknown"}
	}
}

// ContinueSession handles POST /api/v1/sessions/{id}/continue. It clears
// the auto-reply counter after a circuit breaker pause and runs the next turn.
func (h *Handlers) ContinueSession(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := h.Sessions.Resume(r.Context(), id); err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	result, err := h.Turns.RunTurn(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, turnPayload(result))
}

// --- Settings ---

type selectorSettingsResponse struct {
	ModelID          string  `json:"model_id"`
	APIKeyConfigured bool    `json:"api_key_configured"`
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"max_output_tokens"`
}

type selectorSettingsRequest struct {
	ModelID         string  `json:"model_id"`
	APIKey          string  `json:"api_key"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`
}

// GetSelectorSettings handles GET /api/v1/settings/selector. The API key is
// never echoed back.
func (h *Handlers) GetSelectorSettings(w http.ResponseWriter, r *http.Request) {
	sel, err := h.Settings.Selector(r.Context())
	if err != nil {
		writeDomainError(w, err, "selector settings not found")
		return
	}
	writeJSON(w, http.StatusOK, selectorSettingsResponse{
		ModelID:          sel.ModelID,
		APIKeyConfigured: sel.APIKey != "",
		Temperature:      sel.Temperature,
		MaxOutputTokens:  sel.MaxOutputTokens,
	})
}

// UpdateSelectorSettings handles PUT /api/v1/settings/selector
func (h *Handlers) UpdateSelectorSettings(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[selectorSettingsRequest](w, r)
	if !ok {
		return
	}
	if req.ModelID == "" {
		writeError(w, http.StatusBadRequest, "model_id is required")
		return
	}
	if req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "api_key is required")
		return
	}
	err := h.Settings.StoreSelector(r.Context(), settings.Selector{
		ModelID:         req.ModelID,
		APIKey:          req.APIKey,
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxOutputTokens,
	})
	if err != nil {
		writeDomainError(w, err, "selector settings not found")
		return
	}
	writeJSON(w, http.StatusOK, selectorSettingsResponse{
		ModelID:          req.ModelID,
		APIKeyConfigured: true,
		Temperature:      req.Temperature,
		MaxOutputTokens:  req.MaxOutputTokens,
	})
}
