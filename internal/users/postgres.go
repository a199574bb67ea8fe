package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"profile-api/internal/auth"
)

// Schema creates the users table when it does not exist yet.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id                       BIGSERIAL PRIMARY KEY,
	name                     TEXT NOT NULL UNIQUE,
	password                 TEXT NOT NULL,
	last_password_changed_at TIMESTAMPTZ
)`

// PostgresStore reads login identities from the users table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema applies Schema.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("users: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (auth.StoredIdentity, error) {
	const q = `
SELECT id, name, password, last_password_changed_at
FROM users
WHERE name = $1
LIMIT 1
`
	var (
		u       auth.StoredIdentity
		changed sql.NullTime
	)
	if err := s.db.QueryRowContext(ctx, q, username).Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&changed,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.StoredIdentity{}, auth.ErrUserNotFound
		}
		return auth.StoredIdentity{}, fmt.Errorf("users: get by username: %w", err)
	}
	if changed.Valid {
		u.PasswordChangedAt = changed.Time.UTC()
	}
	return u, nil
}

// Create inserts a user and returns its id. passwordHash must already be
// produced by auth.PasswordHasher.
func (s *PostgresStore) Create(ctx context.Context, u auth.StoredIdentity) (int64, error) {
	const q = `
INSERT INTO users (name, password, last_password_changed_at)
VALUES ($1, $2, $3)
RETURNING id
`
	if u.Username == "" || u.PasswordHash == "" {
		return 0, errors.New("users: username and password hash are required")
	}
	var changed sql.NullTime
	if !u.PasswordChangedAt.IsZero() {
		changed = sql.NullTime{Time: u.PasswordChangedAt.UTC(), Valid: true}
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, q, u.Username, u.PasswordHash, changed).Scan(&id); err != nil {
		return 0, fmt.Errorf("users: create: %w", err)
	}
	return id, nil
}
