// Package chat implements the chat stream client: an ordered, deduplicated
// message log for one session kept alive over a snapshot+incremental
// websocket protocol.
package chat

import (
	"sort"
	"sync"

	"github.com/crewdeck/crewdeck/internal/domain"
)

// Log is the in-memory message log for one session. It is a set keyed by
// message id; the logical order is (seq ascending, createdAt ascending) and
// is independent of arrival order. Upsert never duplicate-appends.
type Log struct {
	mu   sync.RWMutex
	byID map[string]domain.ChatMessage
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{byID: make(map[string]domain.ChatMessage)}
}

// Replace swaps the whole log for a snapshot.
func (l *Log) Replace(messages []domain.ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byID = make(map[string]domain.ChatMessage, len(messages))
	for _, m := range messages {
		if m.ID == "" {
			continue
		}
		l.byID[m.ID] = m
	}
}

// Upsert inserts or replaces one message by id. Messages without an id are
// dropped; they cannot participate in deduplication.
func (l *Log) Upsert(m domain.ChatMessage) {
	if m.ID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byID[m.ID] = m
}

// Messages returns the log sorted by (seq, createdAt).
func (l *Log) Messages() []domain.ChatMessage {
	l.mu.RLock()
	out := make([]domain.ChatMessage, 0, len(l.byID))
	for _, m := range l.byID {
		out = append(out, m)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byID)
}
