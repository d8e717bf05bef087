// Package session holds the in-memory conversation log for one overlay run.
// The log is the working context for follow-up questions; durable history
// lives in the store.
package session

import (
	"sync"

	"github.com/glancelabs/glance/pkg/assistant"
)

// Log is an append-only record of completed turns. It is safe for concurrent
// use: the overlay appends while the runner snapshots.
type Log struct {
	mu    sync.RWMutex
	turns []assistant.Turn
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append records a completed turn.
func (l *Log) Append(turn assistant.Turn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, turn)
}

// Turns returns a snapshot copy in insertion order. Mutating the returned
// slice does not affect the log.
func (l *Log) Turns() []assistant.Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]assistant.Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len reports how many turns have been recorded.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Clear drops every turn, starting the conversation over.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
}
