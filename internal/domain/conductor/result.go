package conductor

import "github.com/roundtable-dev/roundtable/internal/domain/session"

// TurnResult is the terminal outcome of one orchestrated turn: exactly one
// of pause, wait, or trigger.
type TurnResult interface {
	turnResult()
}

// CircuitBreakerStopped reports that admission control paused the session.
type CircuitBreakerStopped struct {
	Message string `json:"message"`
}

// TurnWaitForUser reports that control returned to the human.
// BlackboardUpdate carries the selector's patch when one was applied; it is
// the zero value when the turn ended before the selector ran.
type TurnWaitForUser struct {
	Reasoning        string             `json:"reasoning"`
	BlackboardUpdate session.Blackboard `json:"blackboard_update"`
}

// TurnTriggerPersona reports that the turn was handed to a persona.
type TurnTriggerPersona struct {
	PersonaID        string             `json:"persona_id"`
	Reasoning        string             `json:"reasoning"`
	BlackboardUpdate session.Blackboard `json:"blackboard_update"`
	IsIntervention   bool               `json:"is_intervention"`
	AutoReplyCount   uint               `json:"auto_reply_count"`
	Warning          string             `json:"warning,omitempty"`
}

func (CircuitBreakerStopped) turnResult() {}
func (TurnWaitForUser) turnResult() {}
func (TurnTriggerPersona) turnResult() {}

