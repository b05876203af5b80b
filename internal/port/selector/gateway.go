// Package selector defines the external speaker-selection port.
package selector

import (
	"context"
	"errors"

	"github.com/roundtable-dev/roundtable/internal/domain/conductor"
)

// ErrExecutionFailed indicates the selector call itself failed (network,
// upstream error, breaker open).
var ErrExecutionFailed = errors.New("selector execution failed")

// ErrInvalidResponse indicates the selector replied with a payload that is
// not a structurally valid decision.
var ErrInvalidResponse = errors.New("invalid selector response")

// Gateway is the port interface for the external selection call. The engine
// treats any failure as opaque and performs no retries; retries, if desired,
// belong to the adapter.
type Gateway interface {
	SelectNextSpeaker(ctx context.Context, req conductor.Request) (conductor.Decision, error)
}
