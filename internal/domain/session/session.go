// Package session defines the discussion session domain entity.
package session

import "time"

// ControlMode governs how turns advance after a persona speaks.
type ControlMode string

const (
	// ControlAutomatic chains conductor turns without waiting for the user.
	ControlAutomatic ControlMode = "automatic"
	// ControlManual requires an explicit user action between turns.
	ControlManual ControlMode = "manual"
)

// IsValid reports whether the control mode is a known value.
func (m ControlMode) IsValid() bool {
	return m == ControlAutomatic || m == ControlManual
}

// Session is one multi-persona discussion about a problem.
type Session struct {
	ID                 string      `json:"id"`
	Title              string      `json:"title"`
	ProblemDescription string      `json:"problem_description"`
	OutputGoal         string      `json:"output_goal"`
	ConductorEnabled   bool        `json:"conductor_enabled"`
	ControlMode        ControlMode `json:"control_mode"`
	AutoReplyCount     uint        `json:"auto_reply_count"`
	TokenCount         uint        `json:"token_count"`
	Blackboard         Blackboard  `json:"blackboard"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// Blackboard is the shared free-text working memory of a session.
// The zero value is an empty blackboard.
type Blackboard struct {
	Consensus string `json:"consensus"`
	Conflicts string `json:"conflicts"`
	NextStep  string `json:"next_step"`
	Facts     string `json:"facts"`
}

// IsZero reports whether no field of the blackboard is set.
func (b Blackboard) IsZero() bool {
	return b == Blackboard{}
}

// Merge returns a new blackboard with non-empty patch fields overwriting
// the current value. Empty patch fields retain the prior value.
func (b Blackboard) Merge(patch Blackboard) Blackboard {
	next := b
	if patch.Consensus != "" {
		next.Consensus = patch.Consensus
	}
	if patch.Conflicts != "" {
		next.Conflicts = patch.Conflicts
	}
	if patch.NextStep != "" {
		next.NextStep = patch.NextStep
	}
	if patch.Facts != "" {
		next.Facts = patch.Facts
	}
	return next
}

// CreateRequest is the request body for creating a new session.
type CreateRequest struct {
	Title              string      `json:"title"`
	ProblemDescription string      `json:"problem_description"`
	OutputGoal         string      `json:"output_goal"`
	ControlMode        ControlMode `json:"control_mode"`
}
