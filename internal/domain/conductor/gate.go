// Package conductor implements the turn decision engine: the pure pipeline
// that turns a session/persona snapshot plus a selector decision into one
// deterministic next action. Nothing in this package performs I/O.
package conductor

import (
	"fmt"

	"github.com/roundtable-dev/roundtable/internal/domain"
	"github.com/roundtable-dev/roundtable/internal/domain/session"
)

// ValidateSession checks that a session snapshot is usable for a conductor
// turn. Checks run in order: presence, conductor enabled, control mode.
func ValidateSession(sess *session.Session) error {
	if sess == nil {
		return fmt.Errorf("session: %w", domain.ErrNotFound)
	}
	if !sess.ConductorEnabled {
		return ErrNotEnabled
	}
	if !sess.ControlMode.IsValid() {
		return &InvalidControlModeError{Mode: string(sess.ControlMode)}
	}
	return nil
}
