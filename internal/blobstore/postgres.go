package blobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"daymark/api/internal/habits"
)

// PostgresStore keeps each user's blob as a jsonb row in user_data.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Read(ctx context.Context, userID string) (*habits.Data, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM user_data WHERE user_id = $1`, userID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user data: %w", err)
	}

	var data habits.Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("unmarshal user data: %w", err)
	}
	return &data, nil
}

func (s *PostgresStore) Write(ctx context.Context, userID string, data habits.Data) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal user data: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_data (user_id, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`, userID, payload)
	if err != nil {
		return fmt.Errorf("write user data: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
