package conductor

import (
	"errors"
	"testing"
)

func TestWaitDecisionNoEligible(t *testing.T) {
	wait, ok := WaitDecision(Eligibility{})
	if !ok {
		t.Fatal("expected wait decision with no eligible speakers")
	}
	if wait.Reasoning != WaitAllSpokenReasoning {
		t.Fatalf("unexpected reasoning: %q", wait.Reasoning)
	}
}

func TestWaitDecisionEligibleRemain(t *testing.T) {
	el := Eligibility{Eligible: []EligibleSpeaker{{ID: "p1"}}}
	if _, ok := WaitDecision(el); ok {
		t.Fatal("expected no wait decision while speakers are eligible")
	}
}

// Muted personas alone do not keep the turn alive.
func TestWaitDecisionOnlyMuted(t *testing.T) {
	el := Eligibility{Muted: []MutedSpeaker{{ID: "p1", RemainingTurns: 2}}}
	if _, ok := WaitDecision(el); !ok {
		t.Fatal("expected wait decision when every persona is muted")
	}
}

func TestDecideNextActionWaitSentinel(t *testing.T) {
	d := Decision{SelectedPersonaID: WaitSentinel, Reasoning: "group needs input"}
	action, err := DecideNextAction(d, []string{"p1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wait, ok := action.(WaitForUser)
	if !ok {
		t.Fatalf("expected WaitForUser, got %T", action)
	}
	if wait.Reasoning != "group needs input" {
		t.Fatalf("unexpected reasoning: %q", wait.Reasoning)
	}
}

func TestDecideNextActionUnknownPersona(t *testing.T) {
	d := Decision{SelectedPersonaID: "ghost"}
	_, err := DecideNextAction(d, []string{"p1", "p2"})
	var notFound *SelectedPersonaNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected SelectedPersonaNotFoundError, got %v", err)
	}
	if notFound.ID != "ghost" {
		t.Fatalf("expected id %q in error, got %q", "ghost", notFound.ID)
	}
}

func TestDecideNextActionTrigger(t *testing.T) {
	d := Decision{
		SelectedPersonaID: "p2",
		Reasoning:         "critic should respond",
		IsIntervention:    true,
	}
	action, err := DecideNextAction(d, []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	trigger, ok := action.(TriggerPersona)
	if !ok {
		t.Fatalf("expected TriggerPersona, got %T", action)
	}
	if trigger.PersonaID != "p2" || trigger.Reasoning != "critic should respond" || !trigger.IsIntervention {
		t.Fatalf("unexpected trigger: %+v", trigger)
	}
}

// The sentinel is not searched among persona ids; it always means wait even
// if no persona list is supplied.
func TestDecideNextActionSentinelWithEmptyKnownIDs(t *testing.T) {
	action, err := DecideNextAction(Decision{SelectedPersonaID: WaitSentinel}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := action.(WaitForUser); !ok {
		t.Fatalf("expected WaitForUser, got %T", action)
	}
}
