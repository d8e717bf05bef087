package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glancelabs/glance/pkg/assistant"
)

// Session is one recorded conversation.
type Session struct {
	ID          string
	Name        string
	StartedAt   time.Time
	EndedAt     *time.Time
	TotalTokens int64
	TurnCount   int64
}

// Active reports whether the session has not ended yet.
func (s Session) Active() bool {
	return s.EndedAt == nil
}

// StartSession creates a new session row and returns it.
func (s *Store) StartSession(ctx context.Context, name string) (Session, error) {
	sess := Session{
		ID:        uuid.NewString(),
		Name:      name,
		StartedAt: time.Now(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, name, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Name, formatTime(sess.StartedAt))
	if err != nil {
		return Session{}, fmt.Errorf("inserting session: %w", err)
	}

	return sess, nil
}

// EndSession stamps the session's end time. It is idempotent: the first call
// wins and repeats are no-ops.
func (s *Store) EndSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	return nil
}

// Session fetches a single session by ID.
func (s *Store) Session(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.name, s.started_at, s.ended_at, s.total_tokens,
		       (SELECT COUNT(*) FROM turns t WHERE t.session_id = s.id)
		FROM sessions s WHERE s.id = ?`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("scanning session: %w", err)
	}
	return sess, nil
}

// Sessions lists sessions newest first. A non-positive limit returns all.
func (s *Store) Sessions(ctx context.Context, limit int) ([]Session, error) {
	query := `
		SELECT s.id, s.name, s.started_at, s.ended_at, s.total_tokens,
		       (SELECT COUNT(*) FROM turns t WHERE t.session_id = s.id)
		FROM sessions s ORDER BY s.started_at DESC`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var sess Session
	var startedAt string
	var endedAt sql.NullString

	if err := row.Scan(&sess.ID, &sess.Name, &startedAt, &endedAt, &sess.TotalTokens, &sess.TurnCount); err != nil {
		return Session{}, err
	}

	t, err := parseTime(startedAt)
	if err != nil {
		return Session{}, fmt.Errorf("parsing started_at: %w", err)
	}
	sess.StartedAt = t

	if endedAt.Valid {
		t, err := parseTime(endedAt.String)
		if err != nil {
			return Session{}, fmt.Errorf("parsing ended_at: %w", err)
		}
		sess.EndedAt = &t
	}

	return sess, nil
}

// RecordTurn appends a completed turn to a session. The reply is stored as
// JSON so the structured shape survives round-trips.
func (s *Store) RecordTurn(ctx context.Context, sessionID string, turn assistant.Turn) error {
	replyJSON, err := json.Marshal(turn.Answer)
	if err != nil {
		return fmt.Errorf("marshaling reply: %w", err)
	}

	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, question, reply_json, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, turn.Question, string(replyJSON), formatTime(ts))
	if err != nil {
		return fmt.Errorf("inserting turn: %w", err)
	}
	return nil
}

// TurnsForSession returns a session's turns in the order they happened.
func (s *Store) TurnsForSession(ctx context.Context, sessionID string) ([]assistant.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question, reply_json, created_at FROM turns WHERE session_id = ? ORDER BY id ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []assistant.Turn
	for rows.Next() {
		var turn assistant.Turn
		var replyJSON, createdAt string

		if err := rows.Scan(&turn.Question, &replyJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}

		if err := json.Unmarshal([]byte(replyJSON), &turn.Answer); err != nil {
			return nil, fmt.Errorf("unmarshaling reply: %w", err)
		}

		t, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		turn.Timestamp = t

		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// AddUsage adds token spend to a session's running total.
func (s *Store) AddUsage(ctx context.Context, sessionID string, tokens int64) error {
	if tokens <= 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET total_tokens = total_tokens + ? WHERE id = ?`,
		tokens, sessionID)
	if err != nil {
		return fmt.Errorf("adding usage: %w", err)
	}
	return nil
}
