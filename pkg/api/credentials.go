package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PostgresVerifier checks credentials against a local users table. It is
// the built-in CredentialVerifier; deployments with an external identity
// provider swap in their own implementation.
type PostgresVerifier struct {
	db *sql.DB
}

// NewPostgresVerifier creates a verifier and ensures the users table exists
func NewPostgresVerifier(db *sql.DB) (*PostgresVerifier, error) {
	v := &PostgresVerifier{db: db}
	if err := v.ensureTable(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *PostgresVerifier) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);
	`
	if _, err := v.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

// Verify looks up the user by email and compares the bcrypt hash.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (v *PostgresVerifier) Verify(ctx context.Context, email, password string) (int64, error) {
	var (
		id   int64
		hash string
	)
	err := v.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE LOWER(email) = $1 AND is_active = TRUE`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrBadCredentials
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return 0, ErrBadCredentials
	}
	return id, nil
}

// CreateUser registers a user with a bcrypt-hashed password and returns
// the new ID. Used by provisioning tooling and tests.
func (v *PostgresVerifier) CreateUser(ctx context.Context, email, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	var id int64
	err = v.db.QueryRowContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id`,
		strings.ToLower(strings.TrimSpace(email)), string(hash),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return id, nil
}
