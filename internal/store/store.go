package store

import (
	"time"

	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

// Store persists run outcomes and the most recent ticket snapshot.
// The snapshot is a fallback for runs where the source fetch comes back
// empty. It is not a cache: tickets are fetched fresh each run.
type Store interface {
	// SaveRun records a completed run's outcome.
	SaveRun(rec protocol.RunRecord) error
	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]protocol.RunRecord, error)
	// SaveSnapshot replaces the stored ticket snapshot.
	SaveSnapshot(tickets []protocol.Ticket) error
	// LoadSnapshot returns the stored snapshot and when it was taken.
	LoadSnapshot() ([]protocol.Ticket, time.Time, error)
	// Close releases the underlying database.
	Close() error
}
