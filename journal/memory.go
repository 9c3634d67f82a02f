package journal

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bganilkumar/ConnectionManager/fault"
	"github.com/bganilkumar/ConnectionManager/types"
)

// Memory implements [fault.Journal] in process memory.
//
// # Durability Warning
//
// Journaled statements are LOST on process restart, which defeats the point
// of journaling in production. Use Memory for:
//   - Unit tests and development
//   - Deployments that accept losing pending replays
//
// For real durability use [NATS] or [SQL].
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]types.Statement
	closed  atomic.Bool
}

// Compile-time assertion that Memory implements fault.Journal.
var _ fault.Journal = (*Memory)(nil)

// NewMemory creates an empty in-memory journal.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]types.Statement)}
}

// Append records stmts as pending replay for key.
func (m *Memory) Append(ctx context.Context, key string, stmts []types.Statement) error {
	if m.closed.Load() {
		return types.ErrJournalClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(stmts) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = append(m.entries[key], stmts...)

	return nil
}

// Discard removes every journaled statement for key.
func (m *Memory) Discard(_ context.Context, key string) error {
	if m.closed.Load() {
		return types.ErrJournalClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)

	return nil
}

// Recover returns a copy of all journaled statements grouped by key.
func (m *Memory) Recover(_ context.Context) (map[string][]types.Statement, error) {
	if m.closed.Load() {
		return nil, types.ErrJournalClosed
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]types.Statement, len(m.entries))
	for key, stmts := range m.entries {
		cp := make([]types.Statement, len(stmts))
		copy(cp, stmts)
		out[key] = cp
	}

	return out, nil
}

// Close marks the journal closed. Safe to call multiple times.
func (m *Memory) Close() error {
	m.closed.Store(true)

	return nil
}

// Len returns the total number of journaled statements across all keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, stmts := range m.entries {
		n += len(stmts)
	}

	return n
}
