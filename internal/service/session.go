// Package service implements the use-case layer on top of the domain and ports.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roundtable-dev/roundtable/internal/domain"
	"github.com/roundtable-dev/roundtable/internal/domain/message"
	"github.com/roundtable-dev/roundtable/internal/domain/persona"
	"github.com/roundtable-dev/roundtable/internal/domain/session"
	"github.com/roundtable-dev/roundtable/internal/port/repository"
)

// SessionService manages session lifecycle: creation, personas, and the
// user-facing side of the transcript.
type SessionService struct {
	store repository.Store
}

// NewSessionService creates a SessionService.
func NewSessionService(store repository.Store) *SessionService {
	return &SessionService{store: store}
}

// Create validates and persists a new discussion session.
func (s *SessionService) Create(ctx context.Context, req session.CreateRequest) (*session.Session, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if req.ProblemDescription == "" {
		return nil, fmt.Errorf("%w: problem_description is required", domain.ErrValidation)
	}
	if req.ControlMode == "" {
		req.ControlMode = session.ControlManual
	}
	if !req.ControlMode.IsValid() {
		return nil, fmt.Errorf("%w: control_mode must be automatic or manual", domain.ErrValidation)
	}

	sess, err := s.store.CreateSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	slog.Info("session created", "session_id", sess.ID, "control_mode", sess.ControlMode)
	return sess, nil
}

// Get retrieves a session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*session.Session, error) {
	return s.store.GetSession(ctx, id)
}

// List returns all sessions.
func (s *SessionService) List(ctx context.Context) ([]session.Session, error) {
	return s.store.ListSessions(ctx)
}

// AddPersona validates and persists a new participant. At most one persona
// per session may hold the conductor role.
func (s *SessionService) AddPersona(ctx context.Context, sessionID string, req persona.CreateRequest) (*persona.Persona, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if req.Role == "" {
		return nil, fmt.Errorf("%w: role is required", domain.ErrValidation)
	}
	if req.Role == persona.ConductorRole {
		existing, err := s.store.GetSessionPersonas(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("get personas: %w", err)
		}
		for i := range existing {
			if existing[i].IsConductor() {
				return nil, fmt.Errorf("%w: session already has a conductor persona", domain.ErrValidation)
			}
		}
	}

	p, err := s.store.CreatePersona(ctx, sessionID, req)
	if err != nil {
		return nil, fmt.Errorf("create persona: %w", err)
	}
	slog.Info("persona added", "session_id", sessionID, "persona_id", p.ID, "role", p.Role)
	return p, nil
}

// Personas returns the session's participants.
func (s *SessionService) Personas(ctx context.Context, sessionID string) ([]persona.Persona, error) {
	return s.store.GetSessionPersonas(ctx, sessionID)
}

// Hush mutes a persona for the given number of turns. Zero unmutes.
func (s *SessionService) Hush(ctx context.Context, personaID string, turns uint) error {
	return s.store.SetHushTurns(ctx, personaID, turns)
}

// PostUserMessage stores a user message and resets the auto-reply counter:
// human input restarts the automatic reply budget.
func (s *SessionService) PostUserMessage(ctx context.Context, sessionID string, req message.SendRequest) (*message.Message, error) {
	if req.Content == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrValidation)
	}

	turn, err := s.store.NextTurnNumber(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("next turn number: %w", err)
	}
	msg, err := s.store.CreateMessage(ctx, &message.Message{
		SessionID:  sessionID,
		Source:     message.SourceUser,
		Content:    req.Content,
		TurnNumber: turn,
	})
	if err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	if err := s.store.ResetAutoReplyCount(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("reset auto-reply count: %w", err)
	}
	return msg, nil
}

// Messages returns the most recent messages for the session, oldest-first.
func (s *SessionService) Messages(ctx context.Context, sessionID string, limit int) ([]message.Message, error) {
	if limit <= 0 {
		limit = DefaultMessageWindow
	}
	return s.store.GetLastMessages(ctx, sessionID, limit)
}

// Resume clears the auto-reply counter after a circuit breaker pause so the
// next turn passes admission control.
func (s *SessionService) Resume(ctx context.Context, sessionID string) error {
	if err := s.store.ResetAutoReplyCount(ctx, sessionID); err != nil {
		return fmt.Errorf("reset auto-reply count: %w", err)
	}
	slog.Info("session resumed", "session_id", sessionID)
	return nil
}
