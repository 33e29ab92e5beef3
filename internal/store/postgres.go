package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// PostgresStore persists user accounts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, timezone)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Email, user.PasswordHash, user.DisplayName, user.Timezone)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, `
		SELECT id, email, password_hash, display_name, timezone, created_at
		FROM users WHERE email = $1
	`, email)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.getUser(ctx, `
		SELECT id, email, password_hash, display_name, timezone, created_at
		FROM users WHERE id = $1
	`, id)
}

func (s *PostgresStore) UpdateUserTimezone(ctx context.Context, id, timezone string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET timezone = $2 WHERE id = $1`, id, timezone)
	if err != nil {
		return fmt.Errorf("update timezone: %w", err)
	}
	return nil
}

func (s *PostgresStore) getUser(ctx context.Context, query string, arg any) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Timezone,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}
