package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/roundtable-dev/roundtable/internal/domain"
)

// GetSettingValue returns the raw JSON value stored under key.
func (s *Store) GetSettingValue(ctx context.Context, key string) (json.RawMessage, error) {
	var value json.RawMessage
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get setting %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// UpsertSettingValue stores the raw JSON value under key.
func (s *Store) UpsertSettingValue(ctx context.Context, key string, value json.RawMessage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}
