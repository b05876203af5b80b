// Package persona defines the discussion participant domain entity.
package persona

import "time"

// ConductorRole marks the persona that selects speakers instead of speaking
// as a regular participant.
const ConductorRole = "conductor"

// Persona is one participant in a discussion session.
type Persona struct {
	ID                 string    `json:"id"`
	SessionID          string    `json:"session_id"`
	Name               string    `json:"name"`
	Role               string    `json:"role"`
	ModelID            string    `json:"model_id"`
	SystemPrompt       string    `json:"system_prompt,omitempty"`
	HushTurnsRemaining uint      `json:"hush_turns_remaining"`
	CreatedAt          time.Time `json:"created_at"`
}

// IsConductor reports whether this persona holds the conductor role.
func (p *Persona) IsConductor() bool {
	return p.Role == ConductorRole
}

// IsHushed reports whether the persona is temporarily excluded from speaking.
func (p *Persona) IsHushed() bool {
	return p.HushTurnsRemaining > 0
}

// CreateRequest is the request body for adding a persona to a session.
type CreateRequest struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	ModelID      string `json:"model_id"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}
