package conductor

import (
	"github.com/roundtable-dev/roundtable/internal/domain/message"
	"github.com/roundtable-dev/roundtable/internal/domain/persona"
	"github.com/roundtable-dev/roundtable/internal/domain/session"
)

// ConversationEntry is one transcript message as presented to the selector.
type ConversationEntry struct {
	Role        string `json:"role"` // "model" for persona messages, "user" otherwise
	Content     string `json:"content"`
	DisplayName string `json:"display_name"`
}

// Request describes one external selector call.
type Request struct {
	ModelID       string              `json:"model_id"`
	Problem       string              `json:"problem"`
	OutputGoal    string              `json:"output_goal"`
	Blackboard    session.Blackboard  `json:"blackboard"`
	Conversation  []ConversationEntry `json:"conversation"`
	Eligible      []EligibleSpeaker   `json:"eligible"`
	Muted         []MutedSpeaker      `json:"muted"`
	LastSpeakerID string              `json:"last_speaker_id,omitempty"`
}

// Decision is the selector's answer, validated by DecideNextAction before
// any downstream effect is planned.
type Decision struct {
	SelectedPersonaID   string             `json:"selected_persona_id"`
	Reasoning           string             `json:"reasoning"`
	IsIntervention      bool               `json:"is_intervention"`
	InterventionMessage string             `json:"intervention_message,omitempty"`
	BlackboardPatch     session.Blackboard `json:"blackboard_patch"`
}

// SelectorPlan is either a request for the external selector or a
// short-circuit wait decision.
type SelectorPlan interface {
	selectorPlan()
}

// WaitBeforeSelection ends the turn without calling the selector.
type WaitBeforeSelection struct {
	Reasoning string
}

// RequestDecision hands the composed request to the selector gateway.
type RequestDecision struct {
	Request Request
}

func (WaitBeforeSelection) selectorPlan() {}
func (RequestDecision) selectorPlan() {}

// BuildSelectorPlan composes the precondition-checked session state into a
// selector call description, or short-circuits to a wait decision when no
// persona is eligible. The request's ModelID is left empty; the caller fills
// it in from settings only when a selector call will actually happen.
func BuildSelectorPlan(
	sess *session.Session,
	personas []persona.Persona,
	msgs []message.Message,
	conductorID string,
) (SelectorPlan, error) {
	if len(personas) == 0 {
		return nil, ErrNoPersonas
	}

	lastSpeakerID, _ := message.LastPersonaSpeaker(msgs)
	el := ResolveEligibility(personas, conductorID, lastSpeakerID)
	if wait, ok := WaitDecision(el); ok {
		return WaitBeforeSelection{Reasoning: wait.Reasoning}, nil
	}

	return RequestDecision{Request: Request{
		Problem:       sess.ProblemDescription,
		OutputGoal:    sess.OutputGoal,
		Blackboard:    sess.Blackboard,
		Conversation:  conversationView(msgs, personas),
		Eligible:      el.Eligible,
		Muted:         el.Muted,
		LastSpeakerID: lastSpeakerID,
	}}, nil
}

// conversationView maps transcript messages onto the selector's view:
// persona messages get role "model", everything else "user"; display names
// resolve through the persona list with fixed names for conductor and user.
func conversationView(msgs []message.Message, personas []persona.Persona) []ConversationEntry {
	names := make(map[string]string, len(personas))
	for i := range personas {
		names[personas[i].ID] = personas[i].Name
	}

	view := make([]ConversationEntry, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		entry := ConversationEntry{Role: "user", Content: m.Content}
		switch m.Source {
		case message.SourcePersona:
			entry.Role = "model"
			if name, ok := names[m.PersonaID]; ok {
				entry.DisplayName = name
			} else {
				entry.DisplayName = "Unknown"
			}
		case message.SourceConductor:
			entry.DisplayName = "Conductor"
		case message.SourceUser:
			entry.DisplayName = "User"
		default:
			entry.DisplayName = "Unknown"
		}
		view = append(view, entry)
	}
	return view
}
