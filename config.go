package connmgr

import (
	"time"

	"github.com/bganilkumar/ConnectionManager/fault"
	"github.com/bganilkumar/ConnectionManager/internal/logging"
	"github.com/bganilkumar/ConnectionManager/internal/metrics"
	"github.com/bganilkumar/ConnectionManager/pool"
	"github.com/bganilkumar/ConnectionManager/types"
)

// Config holds configuration for a Manager.
type Config struct {
	// Capacity is the maximum number of concurrently checked-out sessions.
	// Must be at least 1.
	Capacity int

	// AsyncWaitTimeout bounds Wait on the futures returned by the
	// asynchronous operations. The in-flight operation is never cancelled
	// by an expired wait.
	AsyncWaitTimeout time.Duration

	// Table is the device-model table name.
	Table string

	// BatchType is the driver batch type used when buffered statements are
	// replayed in front of a new write.
	BatchType types.BatchType

	// Journal durably mirrors the fault buffer. Nil disables mirroring;
	// buffered statements are then lost on process exit.
	Journal fault.Journal

	// Logger receives manager lifecycle and fault-buffer events. Defaults
	// to a no-op logger.
	Logger types.Logger

	// Metrics receives operation counters and gauges. Defaults to a no-op
	// collector.
	Metrics types.MetricsCollector
}

// DefaultConfig returns a Config with default values: a pool of
// pool.DefaultCapacity sessions, a one second asynchronous wait bound, the
// "model" table, logged batches, and no journal.
//
// Returns:
//   - *Config: Configuration with default settings
func DefaultConfig() *Config {
	return &Config{
		Capacity:         pool.DefaultCapacity,
		AsyncWaitTimeout: pool.DefaultAsyncWaitTimeout,
		Table:            DefaultTable,
		BatchType:        types.LoggedBatch,
		Logger:           logging.NewNopLogger(),
		Metrics:          metrics.NewNopMetrics(),
	}
}

// Option configures a Manager.
type Option func(*Config)

// WithCapacity sets the maximum number of concurrently checked-out
// sessions. The (n+1)-th concurrent operation blocks until a session is
// released.
//
// Parameters:
//   - n: Pool capacity; must be at least 1
//
// Returns:
//   - Option: Configuration option
func WithCapacity(n int) Option {
	return func(c *Config) {
		c.Capacity = n
	}
}

// WithAsyncWaitTimeout sets the bound applied by Wait on the futures
// returned by the asynchronous operations.
//
// Parameters:
//   - d: Wait bound; non-positive falls back to the default
//
// Returns:
//   - Option: Configuration option
func WithAsyncWaitTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.AsyncWaitTimeout = d
	}
}

// WithTable sets the device-model table name.
//
// Parameters:
//   - table: Table name within the factory's keyspace
//
// Returns:
//   - Option: Configuration option
func WithTable(table string) Option {
	return func(c *Config) {
		if table != "" {
			c.Table = table
		}
	}
}

// WithBatchType sets the driver batch type used for replay batches.
//
// Counter batches are not idempotent; see the warning on
// types.CounterBatch before routing counter mutations through the fault
// buffer.
//
// Parameters:
//   - t: Batch type for replay batches
//
// Returns:
//   - Option: Configuration option
func WithBatchType(t types.BatchType) Option {
	return func(c *Config) {
		c.BatchType = t
	}
}

// WithJournal sets the durable journal mirroring the fault buffer.
//
// Buffered statements are appended to the journal as they are recorded and
// discarded when their key replays. At construction the manager recovers
// the journal's contents into the fault buffer, so statements buffered by
// a previous process survive a restart.
//
// Parameters:
//   - j: Journal implementation; nil disables mirroring
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	db, _ := sql.Open("sqlite3", "faults.db")
//	j, _ := journal.NewSQL(ctx, db)
//	mgr, _ := connmgr.NewManager(factory,
//	    connmgr.WithJournal(j),
//	)
func WithJournal(j fault.Journal) Option {
	return func(c *Config) {
		c.Journal = j
	}
}

// WithMetrics sets the metrics collector.
//
// If not set, a no-op collector is used that discards all metrics.
// Use contrib/metrics/vm.New() for VictoriaMetrics integration.
//
// Parameters:
//   - collector: The metrics collector implementation
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	import vmmetrics "github.com/bganilkumar/ConnectionManager/contrib/metrics/vm"
//
//	collector := vmmetrics.New(vmmetrics.WithPrefix("myapp"))
//	mgr, _ := connmgr.NewManager(factory,
//	    connmgr.WithMetrics(collector),
//	)
func WithMetrics(collector types.MetricsCollector) Option {
	return func(c *Config) {
		if collector != nil {
			c.Metrics = collector
		}
	}
}

// WithLogger sets the structured logger.
//
// If not set, a no-op logger is used that discards all messages.
// The logger interface is compatible with zap.SugaredLogger.
//
// Parameters:
//   - logger: The logger implementation
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	logger, _ := zap.NewProduction()
//	mgr, _ := connmgr.NewManager(factory,
//	    connmgr.WithLogger(logger.Sugar()),
//	)
func WithLogger(logger types.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
