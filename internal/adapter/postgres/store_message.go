package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/roundtable-dev/roundtable/internal/domain/message"
	"github.com/roundtable-dev/roundtable/internal/port/repository"
)

const messageColumns = `id, session_id, source, COALESCE(persona_id::text, ''), content, reasoning,
	 turn_number, tokens_in, tokens_out, created_at`

func scanMessage(row pgx.Row) (*message.Message, error) {
	var m message.Message
	err := row.Scan(&m.ID, &m.SessionID, &m.Source, &m.PersonaID, &m.Content, &m.Reasoning,
		&m.TurnNumber, &m.TokensIn, &m.TokensOut, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) CreateMessage(ctx context.Context, m *message.Message) (*message.Message, error) {
	var personaID any
	if m.PersonaID != "" {
		personaID = m.PersonaID
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO messages (session_id, source, persona_id, content, reasoning, turn_number, tokens_in, tokens_out)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+messageColumns,
		m.SessionID, m.Source, personaID, m.Content, m.Reasoning, m.TurnNumber, m.TokensIn, m.TokensOut,
	)
	created, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	// Best-effort session touch; the message itself is already committed.
	_, _ = s.pool.Exec(ctx, `UPDATE sessions SET updated_at = NOW() WHERE id = $1`, m.SessionID)
	return created, nil
}

// GetLastMessages returns the most recent `limit` messages, oldest-first.
func (s *Store) GetLastMessages(ctx context.Context, sessionID string, limit int) ([]message.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT * FROM (
		    SELECT `+messageColumns+` FROM messages
		    WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2
		 ) recent ORDER BY created_at ASC`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("get last messages: %w", err)
	}
	defer rows.Close()

	var result []message.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		result = append(result, *m)
	}
	return result, rows.Err()
}

func (s *Store) NextTurnNumber(ctx context.Context, sessionID string) (uint, error) {
	var next uint
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(turn_number), 0) + 1 FROM messages WHERE session_id = $1`,
		sessionID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next turn number %s: %w", sessionID, err)
	}
	return next, nil
}

func (s *Store) CreateInterventionMessage(ctx context.Context, im repository.InterventionMessage) (*message.Message, error) {
	msg, err := s.CreateMessage(ctx, &message.Message{
		SessionID:  im.SessionID,
		Source:     message.SourceConductor,
		Content:    im.Content,
		Reasoning:  im.Reasoning,
		TurnNumber: im.TurnNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("create intervention message: %w", err)
	}
	return msg, nil
}
