package conductor

import "slices"

// WaitSentinel is the selector's reserved "persona id" meaning no persona
// should speak; control returns to the user.
const WaitSentinel = "WAIT_FOR_USER"

// NextAction is the final decision for one turn: wait for the user or hand
// the turn to a persona.
type NextAction interface {
	nextAction()
}

// WaitForUser ends the turn and returns control to the human.
type WaitForUser struct {
	Reasoning string
}

// TriggerPersona hands the turn to the named persona.
type TriggerPersona struct {
	PersonaID      string
	Reasoning      string
	IsIntervention bool
}

func (WaitForUser) nextAction() {}
func (TriggerPersona) nextAction() {}

// WaitAllSpokenReasoning is the canned reasoning used when no persona is
// eligible and the turn short-circuits to waiting for the user.
const WaitAllSpokenReasoning = "All personas have spoken. Waiting for user input before next cycle."

// WaitDecision returns the terminal wait action when no speaker is eligible.
// This is the early exit that prevents a selector call which could not
// produce a meaningful choice.
func WaitDecision(el Eligibility) (WaitForUser, bool) {
	if len(el.Eligible) == 0 {
		return WaitForUser{Reasoning: WaitAllSpokenReasoning}, true
	}
	return WaitForUser{}, false
}

// DecideNextAction validates the selector's decision against the session's
// known persona ids and produces the final action. Selector output is
// untrusted input: any id outside knownIDs fails here, before anything
// downstream acts on it.
func DecideNextAction(d Decision, knownIDs []string) (NextAction, error) {
	if d.SelectedPersonaID == WaitSentinel {
		return WaitForUser{Reasoning: d.Reasoning}, nil
	}
	if !slices.Contains(knownIDs, d.SelectedPersonaID) {
		return nil, &SelectedPersonaNotFoundError{ID: d.SelectedPersonaID}
	}
	return TriggerPersona{
		PersonaID:      d.SelectedPersonaID,
		Reasoning:      d.Reasoning,
		IsIntervention: d.IsIntervention,
	}, nil
}
