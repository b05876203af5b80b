// Package repository defines the session store port (interface).
package repository

import (
	"context"

	"github.com/roundtable-dev/roundtable/internal/domain/message"
	"github.com/roundtable-dev/roundtable/internal/domain/persona"
	"github.com/roundtable-dev/roundtable/internal/domain/session"
)

// InterventionMessage is the write payload for recording a conductor
// steering message.
type InterventionMessage struct {
	SessionID  string
	Content    string
	Reasoning  string
	TurnNumber uint
}

// Store is the port interface for session persistence. Implementations must
// serialize writes per session: the engine reads a snapshot at the start of
// a turn and assumes no concurrent mutation of hush counters, blackboard,
// or the auto-reply count within that turn.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, req session.CreateRequest) (*session.Session, error)
	GetSession(ctx context.Context, id string) (*session.Session, error)
	ListSessions(ctx context.Context) ([]session.Session, error)
	UpdateBlackboard(ctx context.Context, sessionID string, bb session.Blackboard) error
	IncrementAutoReplyCount(ctx context.Context, sessionID string) (uint, error)
	ResetAutoReplyCount(ctx context.Context, sessionID string) error
	AddTokenUsage(ctx context.Context, sessionID string, tokens uint) error

	// Personas
	CreatePersona(ctx context.Context, sessionID string, req persona.CreateRequest) (*persona.Persona, error)
	GetSessionPersonas(ctx context.Context, sessionID string) ([]persona.Persona, error)
	DecrementAllHushTurns(ctx context.Context, sessionID string) error
	SetHushTurns(ctx context.Context, personaID string, turns uint) error

	// Messages
	CreateMessage(ctx context.Context, m *message.Message) (*message.Message, error)
	GetLastMessages(ctx context.Context, sessionID string, limit int) ([]message.Message, error)
	NextTurnNumber(ctx context.Context, sessionID string) (uint, error)
	CreateInterventionMessage(ctx context.Context, im InterventionMessage) (*message.Message, error)
}
