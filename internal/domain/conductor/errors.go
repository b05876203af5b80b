package conductor

import (
	"errors"
	"fmt"
)

// ErrNotEnabled indicates the session has the conductor switched off.
var ErrNotEnabled = errors.New("conductor is not enabled for this session")

// ErrNoPersonas indicates the session has no personas loaded.
var ErrNoPersonas = errors.New("session has no personas")

// ErrConductorPersonaMissing indicates no persona with the conductor role
// exists among the session's personas.
var ErrConductorPersonaMissing = errors.New("conductor persona missing")

// InvalidControlModeError indicates the session carries an unknown control mode.
type InvalidControlModeError struct {
	Mode string
}

func (e *InvalidControlModeError) Error() string {
	return fmt.Sprintf("invalid control mode %q", e.Mode)
}

// SelectedPersonaNotFoundError indicates the selector chose a persona id
// that does not exist in the session.
type SelectedPersonaNotFoundError struct {
	ID string
}

func (e *SelectedPersonaNotFoundError) Error() string {
	return fmt.Sprintf("selected persona %q not found in session", e.ID)
}
