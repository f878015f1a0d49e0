package logbuf

import (
	"log/slog"
	"sync"
	"time"
)

// Entry is a single log record captured from slog.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Buffer is a fixed-size ring of log entries. It backs the daemon's
// /api/logs endpoint so recent activity is inspectable without tailing
// stdout.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	next    int
	count   int
}

// New creates a ring buffer that holds up to size entries.
func New(size int) *Buffer {
	return &Buffer{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Write appends an entry, overwriting the oldest when full.
func (b *Buffer) Write(e Entry) {
	b.mu.Lock()
	b.entries[b.next] = e
	b.next = (b.next + 1) % b.size
	if b.count < b.size {
		b.count++
	}
	b.mu.Unlock()
}

// Len returns the number of entries currently held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Query returns entries matching the filters, oldest first. A zero since
// matches everything; limit <= 0 means no limit. When limit applies, the
// newest matching entries are kept.
func (b *Buffer) Query(since time.Time, minLevel slog.Level, limit int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	oldest := 0
	if b.count == b.size {
		oldest = b.next
	}

	var result []Entry
	for i := 0; i < b.count; i++ {
		e := b.entries[(oldest+i)%b.size]
		if !since.IsZero() && e.Time.Before(since) {
			continue
		}
		if levelFromString(e.Level) < minLevel {
			continue
		}
		result = append(result, e)
	}

	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result
}

func levelFromString(s string) slog.Level {
	switch s {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
