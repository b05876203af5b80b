// Package message defines the session transcript domain entity.
package message

import "time"

// Source identifies who produced a message.
type Source string

const (
	SourceUser      Source = "user"
	SourcePersona   Source = "persona"
	SourceConductor Source = "conductor"
)

// Message is one entry in a session transcript.
type Message struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Source     Source    `json:"source"`
	PersonaID  string    `json:"persona_id,omitempty"`
	Content    string    `json:"content"`
	Reasoning  string    `json:"reasoning,omitempty"`
	TurnNumber uint      `json:"turn_number"`
	TokensIn   int       `json:"tokens_in,omitempty"`
	TokensOut  int       `json:"tokens_out,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// LastPersonaSpeaker scans messages newest-first and returns the persona id
// of the most recent persona-sourced message. Messages are expected
// oldest-first, matching the repository read order.
func LastPersonaSpeaker(msgs []Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Source == SourcePersona && msgs[i].PersonaID != "" {
			return msgs[i].PersonaID, true
		}
	}
	return "", false
}

// SendRequest is the request body for posting a user message.
type SendRequest struct {
	Content string `json:"content"`
}
