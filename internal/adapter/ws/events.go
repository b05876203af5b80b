package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/roundtable-dev/roundtable/internal/domain/session"
)

// Event type constants for WebSocket messages.
const (
	EventTurnPaused        = "turn.paused"
	EventTurnWaiting       = "turn.waiting"
	EventPersonaTriggered  = "persona.triggered"
	EventPersonaMessage    = "persona.message"
	EventConductorMessage  = "conductor.message"
	EventBlackboardUpdated = "blackboard.updated"
)

// TurnPausedEvent is broadcast when the circuit breaker pauses a session.
type TurnPausedEvent struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// TurnWaitingEvent is broadcast when a turn resolves to waiting for user input.
type TurnWaitingEvent struct {
	SessionID string `json:"session_id"`
	Reasoning string `json:"reasoning"`
}

// PersonaTriggeredEvent is broadcast when a persona is given the speaking turn.
type PersonaTriggeredEvent struct {
	SessionID      string `json:"session_id"`
	PersonaID      string `json:"persona_id"`
	Reasoning      string `json:"reasoning"`
	IsIntervention bool   `json:"is_intervention"`
}

// PersonaMessageEvent is broadcast when a persona's contribution is stored.
type PersonaMessageEvent struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	PersonaID string `json:"persona_id"`
	Content   string `json:"content"`
}

// ConductorMessageEvent is broadcast when the conductor posts an
// intervention message into the discussion.
type ConductorMessageEvent struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning"`
}

// BlackboardUpdatedEvent is broadcast when a blackboard patch is merged.
type BlackboardUpdatedEvent struct {
	SessionID  string             `json:"session_id"`
	Blackboard session.Blackboard `json:"blackboard"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
