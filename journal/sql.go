package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bganilkumar/ConnectionManager/fault"
	"github.com/bganilkumar/ConnectionManager/types"
)

// SQLConfig configures the database/sql journal.
type SQLConfig struct {
	// Table is the journal table name.
	// Default: "connmgr_journal"
	Table string
}

// DefaultSQLConfig returns the default configuration.
func DefaultSQLConfig() SQLConfig {
	return SQLConfig{Table: "connmgr_journal"}
}

// SQLOption configures the SQL journal.
type SQLOption func(*SQLConfig)

// WithTable sets the journal table name.
//
// Parameters:
//   - name: Table name
//
// Returns:
//   - SQLOption: Configuration option
func WithTable(name string) SQLOption {
	return func(c *SQLConfig) {
		c.Table = name
	}
}

// SQL implements [fault.Journal] on a database/sql handle, one row per
// journaled statement:
//
//	CREATE TABLE IF NOT EXISTS connmgr_journal (
//	    id         TEXT PRIMARY KEY,
//	    seq        BIGINT NOT NULL,
//	    entity_key TEXT NOT NULL,
//	    kind       INTEGER NOT NULL,
//	    query      TEXT NOT NULL,
//	    args       BLOB
//	)
//
// seq comes from a process counter seeded with MAX(seq) at startup, so
// replay order survives restarts without dialect-specific autoincrement
// columns. Statement arguments are stored as a MessagePack blob.
//
// The bundled DDL and `?` placeholders target SQLite and MySQL. PostgreSQL
// deployments create a compatible table themselves and connect through a
// placeholder-translating driver.
//
// The journal does not own the handle: Close marks the journal closed but
// leaves db open for the caller.
type SQL struct {
	db     *sql.DB
	table  string
	seq    atomic.Int64
	closed atomic.Bool
}

// Compile-time assertion that SQL implements fault.Journal.
var _ fault.Journal = (*SQL)(nil)

// NewSQL creates a database/sql journal on db, creating the journal table
// when it does not exist.
//
// Parameters:
//   - ctx: Context for the table setup statements
//   - db: Open database handle; the caller keeps ownership
//   - opts: Optional configuration options
//
// Returns:
//   - *SQL: A new SQL journal
//   - error: Error if table creation or sequence recovery fails
func NewSQL(ctx context.Context, db *sql.DB, opts ...SQLOption) (*SQL, error) {
	if db == nil {
		return nil, errors.New("connmgr: database handle is nil")
	}

	config := DefaultSQLConfig()
	for _, opt := range opts {
		opt(&config)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id         TEXT PRIMARY KEY,
	seq        BIGINT NOT NULL,
	entity_key TEXT NOT NULL,
	kind       INTEGER NOT NULL,
	query      TEXT NOT NULL,
	args       BLOB
)`, config.Table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("connmgr: failed to create journal table: %w", err)
	}

	j := &SQL{db: db, table: config.Table}

	var seq sql.NullInt64
	row := db.QueryRowContext(ctx, fmt.Sprintf("SELECT MAX(seq) FROM %s", config.Table))
	if err := row.Scan(&seq); err != nil {
		return nil, fmt.Errorf("connmgr: failed to read journal sequence: %w", err)
	}
	j.seq.Store(seq.Int64)

	return j, nil
}

// Append inserts one row per statement inside a single transaction, so a
// multi-statement append is all-or-nothing.
func (j *SQL) Append(ctx context.Context, key string, stmts []types.Statement) error {
	if j.closed.Load() {
		return types.ErrJournalClosed
	}
	if len(stmts) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("connmgr: failed to begin journal transaction: %w", err)
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (id, seq, entity_key, kind, query, args) VALUES (?, ?, ?, ?, ?, ?)",
		j.table,
	)
	for _, stmt := range stmts {
		blob, err := appendArgs(nil, stmt.Args)
		if err != nil {
			_ = tx.Rollback()

			return err
		}

		_, err = tx.ExecContext(ctx, insert,
			uuid.NewString(), j.seq.Add(1), key, int(stmt.Kind), stmt.Query, blob)
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("connmgr: failed to insert journal record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("connmgr: failed to commit journal records: %w", err)
	}

	return nil
}

// Discard deletes every journaled statement for key.
func (j *SQL) Discard(ctx context.Context, key string) error {
	if j.closed.Load() {
		return types.ErrJournalClosed
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE entity_key = ?", j.table)
	if _, err := j.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("connmgr: failed to delete journal records: %w", err)
	}

	return nil
}

// Recover returns all journaled statements grouped by key, each list in
// append order. Rows whose argument blob fails to decode are skipped; they
// cannot be replayed.
func (j *SQL) Recover(ctx context.Context) (map[string][]types.Statement, error) {
	if j.closed.Load() {
		return nil, types.ErrJournalClosed
	}

	query := fmt.Sprintf("SELECT entity_key, kind, query, args FROM %s ORDER BY seq", j.table)
	rows, err := j.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("connmgr: failed to query journal records: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]types.Statement)
	for rows.Next() {
		var (
			key  string
			kind int
			stmt string
			blob []byte
		)
		if err := rows.Scan(&key, &kind, &stmt, &blob); err != nil {
			return nil, fmt.Errorf("connmgr: failed to scan journal record: %w", err)
		}

		args, _, err := readArgs(blob)
		if err != nil {
			continue
		}

		out[key] = append(out[key], types.Statement{
			Kind:  types.StatementKind(kind),
			Query: stmt,
			Args:  args,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("connmgr: failed to iterate journal records: %w", err)
	}

	return out, nil
}

// Close marks the journal closed.
//
// Note: This does NOT close the database handle - that is the caller's
// responsibility.
func (j *SQL) Close() error {
	j.closed.Store(true)

	return nil
}

// Table returns the journal table name.
func (j *SQL) Table() string {
	return j.table
}
