package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/roundtable-dev/roundtable/internal/domain"
	"github.com/roundtable-dev/roundtable/internal/domain/persona"
)

const personaColumns = `id, session_id, name, role, model_id, system_prompt, hush_turns_remaining, created_at`

func scanPersona(row pgx.Row) (*persona.Persona, error) {
	var p persona.Persona
	err := row.Scan(&p.ID, &p.SessionID, &p.Name, &p.Role, &p.ModelID,
		&p.SystemPrompt, &p.HushTurnsRemaining, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreatePersona(ctx context.Context, sessionID string, req persona.CreateRequest) (*persona.Persona, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO personas (session_id, name, role, model_id, system_prompt)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+personaColumns,
		sessionID, req.Name, req.Role, req.ModelID, req.SystemPrompt,
	)
	created, err := scanPersona(row)
	if err != nil {
		return nil, fmt.Errorf("create persona: %w", err)
	}
	return created, nil
}

func (s *Store) GetSessionPersonas(ctx context.Context, sessionID string) ([]persona.Persona, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+personaColumns+` FROM personas WHERE session_id = $1 ORDER BY created_at ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session personas: %w", err)
	}
	defer rows.Close()

	var result []persona.Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, fmt.Errorf("scan persona: %w", err)
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (s *Store) DecrementAllHushTurns(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE personas SET hush_turns_remaining = GREATEST(hush_turns_remaining - 1, 0)
		 WHERE session_id = $1 AND hush_turns_remaining > 0`,
		sessionID)
	if err != nil {
		return fmt.Errorf("decrement hush turns %s: %w", sessionID, err)
	}
	return nil
}

func (s *Store) SetHushTurns(ctx context.Context, personaID string, turns uint) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE personas SET hush_turns_remaining = $2 WHERE id = $1`, personaID, turns)
	if err != nil {
		return fmt.Errorf("set hush turns %s: %w", personaID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set hush turns %s: %w", personaID, domain.ErrNotFound)
	}
	return nil
}
