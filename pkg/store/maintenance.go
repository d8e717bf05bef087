package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/glancelabs/glance/pkg/assistant"
)

// Stats summarizes what the database holds.
type Stats struct {
	TotalSessions  int64
	ActiveSessions int64
	TotalTurns     int64
	TotalTokens    int64
	Providers      []string
	DBSizeBytes    int64
}

// Stats gathers database counts and the on-disk size.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE ended_at IS NULL),
		       COALESCE(SUM(total_tokens), 0)
		FROM sessions`)
	if err := row.Scan(&stats.TotalSessions, &stats.ActiveSessions, &stats.TotalTokens); err != nil {
		return Stats{}, fmt.Errorf("counting sessions: %w", err)
	}

	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns`)
	if err := row.Scan(&stats.TotalTurns); err != nil {
		return Stats{}, fmt.Errorf("counting turns: %w", err)
	}

	providers, err := s.CredentialProviders(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.Providers = providers

	if s.path != ":memory:" {
		if fi, err := os.Stat(s.path); err == nil {
			stats.DBSizeBytes = fi.Size()
		}
	}

	return stats, nil
}

// CleanupResult reports what a destructive operation removed.
type CleanupResult struct {
	Sessions int64
	Turns    int64
}

// CleanupBefore deletes sessions started before the cutoff, along with
// their turns. Credentials are untouched.
func (s *Store) CleanupBefore(ctx context.Context, cutoff time.Time) (CleanupResult, error) {
	return s.deleteSessions(ctx, `started_at < ?`, formatTime(cutoff))
}

// Reset deletes every session and turn but keeps stored credentials, so a
// fresh start does not force re-authentication.
func (s *Store) Reset(ctx context.Context) (CleanupResult, error) {
	return s.deleteSessions(ctx, `1 = 1`)
}

// ClearAll deletes every session, turn, and stored credential.
func (s *Store) ClearAll(ctx context.Context) (CleanupResult, error) {
	res, err := s.deleteSessions(ctx, `1 = 1`)
	if err != nil {
		return res, err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return res, fmt.Errorf("deleting credentials: %w", err)
	}
	return res, nil
}

func (s *Store) deleteSessions(ctx context.Context, where string, args ...any) (CleanupResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("starting cleanup: %w", err)
	}
	defer tx.Rollback()

	turnsRes, err := tx.ExecContext(ctx,
		`DELETE FROM turns WHERE session_id IN (SELECT id FROM sessions WHERE `+where+`)`, args...)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("deleting turns: %w", err)
	}

	sessionsRes, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE `+where, args...)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("deleting sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return CleanupResult{}, fmt.Errorf("committing cleanup: %w", err)
	}

	var result CleanupResult
	result.Turns, _ = turnsRes.RowsAffected()
	result.Sessions, _ = sessionsRes.RowsAffected()
	return result, nil
}

type exportSession struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	StartedAt   time.Time        `json:"started_at"`
	EndedAt     *time.Time       `json:"ended_at,omitempty"`
	TotalTokens int64            `json:"total_tokens"`
	Turns       []assistant.Turn `json:"turns"`
}

type exportDoc struct {
	ExportedAt    time.Time       `json:"exported_at"`
	TotalSessions int             `json:"total_sessions"`
	Sessions      []exportSession `json:"sessions"`
}

// Export writes every session with its turns as indented JSON.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	sessions, err := s.Sessions(ctx, 0)
	if err != nil {
		return err
	}

	doc := exportDoc{
		ExportedAt:    time.Now(),
		TotalSessions: len(sessions),
		Sessions:      make([]exportSession, 0, len(sessions)),
	}

	for _, sess := range sessions {
		turns, err := s.TurnsForSession(ctx, sess.ID)
		if err != nil {
			return err
		}
		if turns == nil {
			turns = []assistant.Turn{}
		}

		doc.Sessions = append(doc.Sessions, exportSession{
			ID:          sess.ID,
			Name:        sess.Name,
			StartedAt:   sess.StartedAt,
			EndedAt:     sess.EndedAt,
			TotalTokens: sess.TotalTokens,
			Turns:       turns,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
