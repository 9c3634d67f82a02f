package fault

import (
	"context"

	"github.com/bganilkumar/ConnectionManager/types"
)

// Journal mirrors buffered statements to durable storage so they survive a
// process restart. The in-memory [Buffer] stays authoritative: journal
// writes are best-effort, and callers log and count journal errors instead
// of failing the write path on them.
//
// Implementations live in the journal package: an in-memory double, a NATS
// JetStream backend, and a database/sql backend.
type Journal interface {
	// Append records stmts as pending replay for key, after any statements
	// already journaled for that key.
	Append(ctx context.Context, key string, stmts []types.Statement) error

	// Discard removes every journaled statement for key.
	Discard(ctx context.Context, key string) error

	// Recover returns all journaled statements grouped by key, each list in
	// append order. Used once at startup to seed the fault buffer.
	Recover(ctx context.Context) (map[string][]types.Statement, error)

	// Close releases the journal's resources. The journal must not be used
	// afterwards.
	Close() error
}
