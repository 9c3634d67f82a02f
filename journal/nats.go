package journal

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/bganilkumar/ConnectionManager/fault"
	"github.com/bganilkumar/ConnectionManager/types"
)

// recoverBatchSize bounds one consumer fetch during Recover.
const recoverBatchSize = 256

// NATSConfig configures the NATS JetStream journal.
type NATSConfig struct {
	// StreamName is the JetStream stream holding journal records.
	// Default: "connmgr-journal"
	StreamName string

	// SubjectPrefix prefixes the per-key subjects. Records for an entity
	// key are published to "{SubjectPrefix}.{hex(key)}"; hex encoding keeps
	// arbitrary keys inside the NATS subject grammar.
	// Default: "connmgr.journal"
	SubjectPrefix string

	// MaxAge is the maximum age of journal records.
	// Default: 24 hours
	MaxAge time.Duration

	// MaxMsgs is the maximum number of records in the stream.
	// Default: 1,000,000
	MaxMsgs int64

	// MaxBytes is the maximum total size of the stream in bytes.
	// Default: 1GB
	MaxBytes int64

	// Replicas is the number of stream replicas (for fault tolerance).
	// Default: 1 (use 3 for production clusters)
	Replicas int

	// PublishTimeout bounds each record publish.
	// Default: 5 seconds
	PublishTimeout time.Duration
}

// DefaultNATSConfig returns the default configuration.
//
// Returns:
//   - NATSConfig: Default configuration with reasonable defaults
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		StreamName:     "connmgr-journal",
		SubjectPrefix:  "connmgr.journal",
		MaxAge:         24 * time.Hour,
		MaxMsgs:        1_000_000,
		MaxBytes:       1 << 30, // 1GB
		Replicas:       1,
		PublishTimeout: 5 * time.Second,
	}
}

// NATS implements [fault.Journal] on a NATS JetStream stream.
//
// Each statement is one message on a file-backed stream, published to a
// subject derived from its entity key. Discard purges the key's subject;
// Recover reads the whole stream through an ordered consumer. Records
// survive process restarts and, with replicas, single-node failures.
type NATS struct {
	js     jetstream.JetStream
	stream jetstream.Stream
	config NATSConfig
	closed bool
	mu     sync.RWMutex
}

// Compile-time assertion that NATS implements fault.Journal.
var _ fault.Journal = (*NATS)(nil)

// NATSOption configures the NATS journal.
type NATSOption func(*NATSConfig)

// WithStreamName sets the JetStream stream name.
//
// Parameters:
//   - name: Stream name
//
// Returns:
//   - NATSOption: Configuration option
func WithStreamName(name string) NATSOption {
	return func(c *NATSConfig) {
		c.StreamName = name
	}
}

// WithSubjectPrefix sets the subject prefix for journal records.
//
// Parameters:
//   - prefix: Subject prefix
//
// Returns:
//   - NATSOption: Configuration option
func WithSubjectPrefix(prefix string) NATSOption {
	return func(c *NATSConfig) {
		c.SubjectPrefix = prefix
	}
}

// WithMaxAge sets the maximum age of records in the stream.
//
// Parameters:
//   - d: Maximum age duration
//
// Returns:
//   - NATSOption: Configuration option
func WithMaxAge(d time.Duration) NATSOption {
	return func(c *NATSConfig) {
		c.MaxAge = d
	}
}

// WithMaxMsgs sets the maximum number of records in the stream.
//
// Parameters:
//   - n: Maximum number of records
//
// Returns:
//   - NATSOption: Configuration option
func WithMaxMsgs(n int64) NATSOption {
	return func(c *NATSConfig) {
		c.MaxMsgs = n
	}
}

// WithMaxBytes sets the maximum total size of the stream.
//
// Parameters:
//   - n: Maximum bytes
//
// Returns:
//   - NATSOption: Configuration option
func WithMaxBytes(n int64) NATSOption {
	return func(c *NATSConfig) {
		c.MaxBytes = n
	}
}

// WithReplicas sets the number of stream replicas.
//
// Parameters:
//   - n: Number of replicas (1 for dev, 3 for production)
//
// Returns:
//   - NATSOption: Configuration option
func WithReplicas(n int) NATSOption {
	return func(c *NATSConfig) {
		c.Replicas = n
	}
}

// WithPublishTimeout sets the timeout for publishing records.
//
// Parameters:
//   - d: Publish timeout duration
//
// Returns:
//   - NATSOption: Configuration option
func WithPublishTimeout(d time.Duration) NATSOption {
	return func(c *NATSConfig) {
		c.PublishTimeout = d
	}
}

// NewNATS creates a NATS JetStream journal.
//
// This creates or updates the JetStream stream holding journal records. The
// caller is responsible for creating the JetStream context from their NATS
// connection.
//
// Parameters:
//   - js: A JetStream context (created via jetstream.New(conn))
//   - opts: Optional configuration options
//
// Returns:
//   - *NATS: A new NATS journal
//   - error: Error if stream creation fails
//
// Example:
//
//	nc, _ := nats.Connect("nats://localhost:4222")
//	js, _ := jetstream.New(nc)
//	j, _ := journal.NewNATS(js)
func NewNATS(js jetstream.JetStream, opts ...NATSOption) (*NATS, error) {
	if js == nil {
		return nil, errors.New("connmgr: JetStream context is nil")
	}

	config := DefaultNATSConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Create or update the stream
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	streamConfig := jetstream.StreamConfig{
		Name:        config.StreamName,
		Description: "Pending write replay journal",
		Subjects:    []string{config.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      config.MaxAge,
		MaxMsgs:     config.MaxMsgs,
		MaxBytes:    config.MaxBytes,
		Replicas:    config.Replicas,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
	}

	stream, err := js.CreateOrUpdateStream(ctx, streamConfig)
	if err != nil {
		return nil, fmt.Errorf("connmgr: failed to create journal stream: %w", err)
	}

	return &NATS{
		js:     js,
		stream: stream,
		config: config,
	}, nil
}

// subject returns the per-key subject. Keys are hex encoded so arbitrary
// serial numbers stay token-safe.
func (j *NATS) subject(key string) string {
	return j.config.SubjectPrefix + "." + hex.EncodeToString([]byte(key))
}

// Append publishes one message per statement to the key's subject.
// JetStream assigns sequence numbers, so replay order is the publish order.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - key: Entity key the statements belong to
//   - stmts: Statements to journal
//
// Returns:
//   - error: nil on success, error on encoding or publish failure
func (j *NATS) Append(ctx context.Context, key string, stmts []types.Statement) error {
	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()

		return types.ErrJournalClosed
	}
	j.mu.RUnlock()

	subject := j.subject(key)
	for _, stmt := range stmts {
		data, err := encodeRecord(uuid.NewString(), key, stmt)
		if err != nil {
			return err
		}

		pubCtx, cancel := context.WithTimeout(ctx, j.config.PublishTimeout)
		_, err = j.js.Publish(pubCtx, subject, data)
		cancel()
		if err != nil {
			return fmt.Errorf("connmgr: failed to publish journal record: %w", err)
		}
	}

	return nil
}

// Discard purges every record published for key.
func (j *NATS) Discard(ctx context.Context, key string) error {
	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()

		return types.ErrJournalClosed
	}
	j.mu.RUnlock()

	if err := j.stream.Purge(ctx, jetstream.WithPurgeSubject(j.subject(key))); err != nil {
		return fmt.Errorf("connmgr: failed to purge journal records: %w", err)
	}

	return nil
}

// Recover reads the whole stream and returns the journaled statements
// grouped by key, each list in publish order. Malformed records are
// skipped; they cannot be replayed.
func (j *NATS) Recover(ctx context.Context) (map[string][]types.Statement, error) {
	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()

		return nil, types.ErrJournalClosed
	}
	j.mu.RUnlock()

	info, err := j.stream.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("connmgr: failed to get journal stream info: %w", err)
	}

	out := make(map[string][]types.Statement)
	total := info.State.Msgs
	if total == 0 {
		return out, nil
	}

	consumer, err := j.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("connmgr: failed to create recovery consumer: %w", err)
	}

	var seen uint64
	for seen < total {
		batch := min(total-seen, uint64(recoverBatchSize))

		msgs, err := consumer.Fetch(int(batch), jetstream.FetchMaxWait(time.Second))
		if err != nil {
			if errors.Is(err, jetstream.ErrNoMessages) || errors.Is(err, context.DeadlineExceeded) {
				break
			}

			return nil, fmt.Errorf("connmgr: failed to fetch journal records: %w", err)
		}

		fetched := false
		for msg := range msgs.Messages() {
			fetched = true
			seen++

			key, stmt, err := decodeRecord(msg.Data())
			if err != nil {
				continue
			}
			out[key] = append(out[key], stmt)
		}

		if err := msgs.Error(); err != nil && !errors.Is(err, jetstream.ErrNoMessages) {
			return out, fmt.Errorf("connmgr: error while fetching journal records: %w", err)
		}
		if !fetched {
			break
		}
	}

	return out, nil
}

// Pending returns the number of journaled records in the stream.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - int: Number of pending records
//   - error: Error if unable to get stream info
func (j *NATS) Pending(ctx context.Context) (int, error) {
	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()

		return 0, types.ErrJournalClosed
	}
	j.mu.RUnlock()

	info, err := j.stream.Info(ctx)
	if err != nil {
		return 0, fmt.Errorf("connmgr: failed to get journal stream info: %w", err)
	}

	msgs := info.State.Msgs
	if msgs > uint64(math.MaxInt) {
		msgs = uint64(math.MaxInt)
	}

	//nolint:gosec // overflow is handled by the cap above
	return int(msgs), nil
}

// Close marks the journal closed.
//
// Note: This does NOT close the NATS connection - that is the caller's
// responsibility.
func (j *NATS) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.closed = true

	return nil
}

// StreamName returns the JetStream stream name.
//
// Returns:
//   - string: The stream name
func (j *NATS) StreamName() string {
	return j.config.StreamName
}
