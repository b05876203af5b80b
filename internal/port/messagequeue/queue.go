// Package messagequeue defines the message queue port and the persona-turn
// wire protocol between the core and persona workers.
package messagequeue

import "context"

// Subjects for the persona turn protocol.
const (
	// SubjectPersonaTurnTrigger dispatches a speaking turn to a persona worker.
	SubjectPersonaTurnTrigger = "turns.persona.trigger"
	// SubjectPersonaTurnComplete reports a finished persona contribution.
	SubjectPersonaTurnComplete = "turns.persona.complete"
)

// Handler processes a message received on a subject.
type Handler func(subject string, data []byte) error

// Queue is the port interface for the message queue.
type Queue interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(ctx context.Context, subject string, handler Handler) (func(), error)
	Close() error
}
