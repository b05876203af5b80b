package message

import "testing"

func TestLastPersonaSpeaker(t *testing.T) {
	msgs := []Message{
		{Source: SourceUser, Content: "start"},
		{Source: SourcePersona, PersonaID: "p1", Content: "first"},
		{Source: SourcePersona, PersonaID: "p2", Content: "second"},
		{Source: SourceConductor, Content: "steer"},
		{Source: SourceUser, Content: "continue"},
	}

	id, ok := LastPersonaSpeaker(msgs)
	if !ok {
		t.Fatal("expected a last persona speaker")
	}
	if id != "p2" {
		t.Fatalf("expected p2, got %q", id)
	}
}

func TestLastPersonaSpeakerNone(t *testing.T) {
	msgs := []Message{
		{Source: SourceUser, Content: "hello"},
		{Source: SourceConductor, Content: "welcome"},
	}
	if _, ok := LastPersonaSpeaker(msgs); ok {
		t.Fatal("expected no persona speaker")
	}
}

// A persona message with no persona id cannot be the last speaker.
func TestLastPersonaSpeakerSkipsEmptyID(t *testing.T) {
	msgs := []Message{
		{Source: SourcePersona, PersonaID: "p1", Content: "spoke"},
		{Source: SourcePersona, Content: "anonymous"},
	}
	id, ok := LastPersonaSpeaker(msgs)
	if !ok || id != "p1" {
		t.Fatalf("expected p1, got %q (ok=%v)", id, ok)
	}
}

func TestLastPersonaSpeakerEmpty(t *testing.T) {
	if _, ok := LastPersonaSpeaker(nil); ok {
		t.Fatal("expected no speaker for empty transcript")
	}
}
