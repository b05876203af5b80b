package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/roundtable-dev/roundtable/internal/domain"
	"github.com/roundtable-dev/roundtable/internal/domain/session"
)

const sessionColumns = `id, title, problem_description, output_goal, conductor_enabled, control_mode,
	 auto_reply_count, token_count, bb_consensus, bb_conflicts, bb_next_step, bb_facts, created_at, updated_at`

func scanSession(row pgx.Row) (*session.Session, error) {
	var s session.Session
	err := row.Scan(
		&s.ID, &s.Title, &s.ProblemDescription, &s.OutputGoal, &s.ConductorEnabled, &s.ControlMode,
		&s.AutoReplyCount, &s.TokenCount,
		&s.Blackboard.Consensus, &s.Blackboard.Conflicts, &s.Blackboard.NextStep, &s.Blackboard.Facts,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Store) CreateSession(ctx context.Context, req session.CreateRequest) (*session.Session, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO sessions (title, problem_description, output_goal, control_mode)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+sessionColumns,
		req.Title, req.ProblemDescription, req.OutputGoal, req.ControlMode,
	)
	created, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return created, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*session.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get session %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return sess, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]session.Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var result []session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		result = append(result, *sess)
	}
	return result, rows.Err()
}

func (s *Store) UpdateBlackboard(ctx context.Context, sessionID string, bb session.Blackboard) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions
		 SET bb_consensus = $2, bb_conflicts = $3, bb_next_step = $4, bb_facts = $5, updated_at = NOW()
		 WHERE id = $1`,
		sessionID, bb.Consensus, bb.Conflicts, bb.NextStep, bb.Facts,
	)
	if err != nil {
		return fmt.Errorf("update blackboard %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update blackboard %s: %w", sessionID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) IncrementAutoReplyCount(ctx context.Context, sessionID string) (uint, error) {
	var count uint
	err := s.pool.QueryRow(ctx,
		`UPDATE sessions SET auto_reply_count = auto_reply_count + 1, updated_at = NOW()
		 WHERE id = $1
		 RETURNING auto_reply_count`,
		sessionID,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("increment auto-reply count %s: %w", sessionID, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("increment auto-reply count %s: %w", sessionID, err)
	}
	return count, nil
}

func (s *Store) ResetAutoReplyCount(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET auto_reply_count = 0, updated_at = NOW() WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("reset auto-reply count %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reset auto-reply count %s: %w", sessionID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) AddTokenUsage(ctx context.Context, sessionID string, tokens uint) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET token_count = token_count + $2, updated_at = NOW() WHERE id = $1`,
		sessionID, tokens)
	if err != nil {
		return fmt.Errorf("add token usage %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("add token usage %s: %w", sessionID, domain.ErrNotFound)
	}
	return nil
}
