package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	// WAL for better concurrent reads from the status server
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id            TEXT PRIMARY KEY,
			kind          TEXT NOT NULL,
			state         TEXT NOT NULL,
			query         TEXT NOT NULL DEFAULT '',
			ticket_count  INTEGER NOT NULL DEFAULT 0,
			group_count   INTEGER NOT NULL DEFAULT 0,
			alerted_count INTEGER NOT NULL DEFAULT 0,
			note          TEXT NOT NULL DEFAULT '',
			started_at    TEXT NOT NULL,
			finished_at   TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS snapshot (
			id       INTEGER PRIMARY KEY CHECK (id = 1),
			tickets  TEXT NOT NULL,
			saved_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveRun(rec protocol.RunRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, kind, state, query, ticket_count, group_count, alerted_count, note, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state=excluded.state, ticket_count=excluded.ticket_count, group_count=excluded.group_count,
			alerted_count=excluded.alerted_count, note=excluded.note, finished_at=excluded.finished_at
	`, rec.ID, string(rec.Kind), string(rec.State), rec.Query,
		rec.TicketCount, rec.GroupCount, rec.AlertedCount, rec.Note,
		rec.StartedAt.UTC().Format(time.RFC3339Nano), rec.FinishedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: save run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(limit int) ([]protocol.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, kind, state, query, ticket_count, group_count, alerted_count, note, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var out []protocol.RunRecord
	for rows.Next() {
		var rec protocol.RunRecord
		var kind, state, started, finished string
		if err := rows.Scan(&rec.ID, &kind, &state, &rec.Query,
			&rec.TicketCount, &rec.GroupCount, &rec.AlertedCount, &rec.Note,
			&started, &finished); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		rec.Kind = protocol.RunKind(kind)
		rec.State = protocol.RunState(state)
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveSnapshot(tickets []protocol.Ticket) error {
	data, err := json.Marshal(tickets)
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO snapshot (id, tickets, saved_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET tickets=excluded.tickets, saved_at=excluded.saved_at
	`, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: save snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadSnapshot() ([]protocol.Ticket, time.Time, error) {
	row := s.db.QueryRow(`SELECT tickets, saved_at FROM snapshot WHERE id = 1`)

	var data, savedAt string
	if err := row.Scan(&data, &savedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, fmt.Errorf("store: load snapshot: %w", err)
	}

	var tickets []protocol.Ticket
	if err := json.Unmarshal([]byte(data), &tickets); err != nil {
		return nil, time.Time{}, fmt.Errorf("store: unmarshal snapshot: %w", err)
	}
	ts, _ := time.Parse(time.RFC3339Nano, savedAt)
	return tickets, ts, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
