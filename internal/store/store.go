// Package store persists local call history: one row per session attempt
// plus the tool-activity entries observed during it. The server-side store
// behind the agent is a different system entirely; this is the client's own
// record of its calls.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/iamvaar-dev/instant-appointment-voice-ai/internal/activity"
)

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	room TEXT NOT NULL,
	identity TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT,
	final_phase TEXT,
	went_live INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS call_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	call_id INTEGER NOT NULL REFERENCES calls(id),
	label TEXT NOT NULL,
	kind TEXT NOT NULL,
	at TEXT NOT NULL
);
`

// CallRecord is one session attempt as recorded locally.
type CallRecord struct {
	ID         int64
	Room       string
	Identity   string
	StartedAt  time.Time
	EndedAt    time.Time // zero if the call never ended cleanly
	FinalPhase string
	WentLive   bool
}

// Store wraps the local sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the call-history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginCall records the start of a session attempt and returns its id.
func (s *Store) BeginCall(room, identity string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO calls (room, identity, started_at) VALUES (?, ?, ?)`,
		room, identity, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("record call start: %w", err)
	}
	return res.LastInsertId()
}

// EndCall records how a session attempt finished.
func (s *Store) EndCall(callID int64, finalPhase string, wentLive bool) error {
	_, err := s.db.Exec(
		`UPDATE calls SET ended_at = ?, final_phase = ?, went_live = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), finalPhase, boolToInt(wentLive), callID,
	)
	if err != nil {
		return fmt.Errorf("record call end: %w", err)
	}
	return nil
}

// AppendEvent persists one tool-activity entry for a call.
func (s *Store) AppendEvent(callID int64, e activity.Entry) error {
	_, err := s.db.Exec(
		`INSERT INTO call_events (call_id, label, kind, at) VALUES (?, ?, ?, ?)`,
		callID, e.Label, string(e.Kind), e.At.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record call event: %w", err)
	}
	return nil
}

// RecentCalls returns up to limit calls, newest first.
func (s *Store) RecentCalls(limit int) ([]CallRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, room, identity, started_at, ended_at, final_phase, went_live
		 FROM calls ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []CallRecord
	for rows.Next() {
		var c CallRecord
		var started string
		var ended, phase sql.NullString
		var wentLive int
		if err := rows.Scan(&c.ID, &c.Room, &c.Identity, &started, &ended, &phase, &wentLive); err != nil {
			return nil, err
		}
		c.StartedAt, _ = time.Parse(time.RFC3339, started)
		if ended.Valid {
			c.EndedAt, _ = time.Parse(time.RFC3339, ended.String)
		}
		c.FinalPhase = phase.String
		c.WentLive = wentLive != 0
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// EventsForCall returns a call's tool-activity entries in arrival order.
func (s *Store) EventsForCall(callID int64) ([]activity.Entry, error) {
	rows, err := s.db.Query(
		`SELECT label, kind, at FROM call_events WHERE call_id = ? ORDER BY id`, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []activity.Entry
	for rows.Next() {
		var e activity.Entry
		var kind, at string
		if err := rows.Scan(&e.Label, &kind, &at); err != nil {
			return nil, err
		}
		e.Kind = activity.Kind(kind)
		e.At, _ = time.Parse(time.RFC3339, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
