// Package audit persists the trail of confirmed dashboard actions.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultLimit = 20
	maxLimit     = 50
)

// ErrIncomplete indicates an entry missing required fields.
var ErrIncomplete = errors.New("audit: entry requires actor, action and session")

// Entry is one confirmed action.
type Entry struct {
	ID        int64             `json:"id,omitempty"`
	ActorID   string            `json:"actorId"`
	Role      string            `json:"role"`
	SessionID string            `json:"sessionId"`
	Action    string            `json:"action"`
	Payload   map[string]string `json:"payload,omitempty"`
	At        time.Time         `json:"at"`
}

// Validate checks required fields.
func (e Entry) Validate() error {
	if e.ActorID == "" || e.Action == "" || e.SessionID == "" {
		return ErrIncomplete
	}
	return nil
}

// Store is the persistence contract behind Logger.
type Store interface {
	Insert(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Logger records and lists audit entries.
type Logger struct {
	store Store
	now   func() time.Time
}

// NewLogger returns a new Logger.
func NewLogger(store Store) *Logger {
	return &Logger{store: store, now: time.Now}
}

// Record persists entry, stamping it when At is zero.
func (l *Logger) Record(ctx context.Context, entry Entry) error {
	if l == nil || l.store == nil {
		return errors.New("audit logger not initialised")
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.At.IsZero() {
		entry.At = l.now().UTC()
	}
	if err := l.store.Insert(ctx, entry); err != nil {
		return fmt.Errorf("audit: record %s: %w", entry.Action, err)
	}
	return nil
}

// Recent lists the newest entries. The limit is clamped to 1..50 with 20 as
// the default.
func (l *Logger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if l == nil || l.store == nil {
		return nil, errors.New("audit logger not initialised")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return l.store.Recent(ctx, limit)
}

// PGStore writes entries into audit_logs.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a PostgreSQL store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Insert stores one entry.
func (s *PGStore) Insert(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, role, session_id, action, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`, entry.ActorID, entry.Role, entry.SessionID, entry.Action, payload, entry.At)
	return err
}

// Recent returns the newest entries first.
func (s *PGStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, actor_id, role, session_id, action, payload, occurred_at
FROM audit_logs ORDER BY occurred_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			entry   Entry
			payload []byte
		)
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Role, &entry.SessionID, &entry.Action, &payload, &entry.At); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &entry.Payload); err != nil {
				return nil, err
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
