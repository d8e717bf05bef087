package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SetCredential stores or replaces the API key for a provider.
func (s *Store) SetCredential(ctx context.Context, provider, secret string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (provider, secret, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET secret = excluded.secret, updated_at = excluded.updated_at`,
		provider, secret, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}
	return nil
}

// GetCredential returns the stored API key for a provider, or ErrNotFound.
func (s *Store) GetCredential(ctx context.Context, provider string) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT secret FROM credentials WHERE provider = ?`, provider)

	var secret string
	err := row.Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading credential: %w", err)
	}
	return secret, nil
}

// DeleteCredential removes a provider's stored key. Removing a key that was
// never stored is not an error.
func (s *Store) DeleteCredential(ctx context.Context, provider string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE provider = ?`, provider)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// CredentialProviders lists providers with a stored key, sorted by name.
func (s *Store) CredentialProviders(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider FROM credentials ORDER BY provider ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}
	defer rows.Close()

	var providers []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}
