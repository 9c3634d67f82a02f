// Package config loads connection manager settings from YAML files and
// builds the session factory and journal they describe.
//
// A config file carries the cluster contact points, keyspace, and SSL
// settings alongside the pool and journal tuning:
//
//	cassandra:
//	  hosts:
//	    - 10.193.104.24
//	  keyspace: devices
//	  consistency: quorum
//	  ssl:
//	    enabled: true
//	    ca_path: /etc/certs/ca.pem
//	pool:
//	  capacity: 16
//	  async_wait_timeout: 1s
//	journal:
//	  type: nats
//	  nats_url: nats://127.0.0.1:4222
//
// Load the file, then assemble a manager:
//
//	cfg, err := config.Load("connmgr.yaml")
//	factory, err := config.NewFactory(cfg.Cassandra)
//	jnl, err := config.NewJournal(ctx, cfg.Journal)
//	mgr, err := connmgr.NewManager(factory, cfg.ManagerOptions(jnl)...)
package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	gocqlv2 "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/gocql/gocql"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"gopkg.in/yaml.v3"

	connmgr "github.com/bganilkumar/ConnectionManager"
	"github.com/bganilkumar/ConnectionManager/adapter/cql"
	v1 "github.com/bganilkumar/ConnectionManager/adapter/cql/v1"
	v2 "github.com/bganilkumar/ConnectionManager/adapter/cql/v2"
	"github.com/bganilkumar/ConnectionManager/fault"
	"github.com/bganilkumar/ConnectionManager/journal"
)

// Driver names accepted by CassandraConfig.Driver.
const (
	// DriverGocql selects the gocql v1 adapter. This is the default.
	DriverGocql = "gocql"
	// DriverGocqlV2 selects the Apache cassandra-gocql-driver v2 adapter.
	DriverGocqlV2 = "gocql/v2"
)

// Journal types accepted by JournalConfig.Type.
const (
	JournalNone   = "none"
	JournalMemory = "memory"
	JournalNATS   = "nats"
	JournalSQL    = "sql"
)

// Config is the root of a connection manager YAML configuration.
type Config struct {
	Cassandra CassandraConfig `yaml:"cassandra"`
	Pool      PoolConfig      `yaml:"pool"`
	Journal   JournalConfig   `yaml:"journal"`
}

// CassandraConfig describes the cluster sessions connect to.
type CassandraConfig struct {
	// Hosts lists the contact points. Required.
	Hosts []string `yaml:"hosts"`
	// Port is the CQL native transport port. Default: 9042.
	Port int `yaml:"port"`
	// Keyspace is the keyspace sessions bind to. Required.
	Keyspace string `yaml:"keyspace"`
	// Table is the device-model table name. Default: "model".
	Table string `yaml:"table"`
	// Driver selects the driver adapter: "gocql" or "gocql/v2".
	Driver string `yaml:"driver"`
	// Consistency names the consistency level, e.g. "quorum" or "one".
	// Default: "quorum".
	Consistency string `yaml:"consistency"`
	// Timeout bounds individual queries.
	Timeout time.Duration `yaml:"timeout"`
	// ConnectTimeout bounds the initial connection handshake.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// Username and Password enable password authentication when set.
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// SSL configures TLS for the native transport.
	SSL SSLConfig `yaml:"ssl"`
}

// SSLConfig configures TLS for cluster connections.
type SSLConfig struct {
	Enabled bool `yaml:"enabled"`
	// CertPath and KeyPath hold the client certificate pair.
	CertPath string `yaml:"cert_path"`
	KeyPath  string `yaml:"key_path"`
	// CAPath holds the CA bundle used to verify the cluster.
	CAPath string `yaml:"ca_path"`
	// SkipHostVerification disables hostname verification.
	SkipHostVerification bool `yaml:"skip_host_verification"`
}

// PoolConfig tunes the session pool.
type PoolConfig struct {
	// Capacity is the maximum number of concurrently checked-out sessions.
	// Zero uses the manager default.
	Capacity int `yaml:"capacity"`
	// AsyncWaitTimeout bounds Wait on asynchronous futures. Zero uses the
	// manager default.
	AsyncWaitTimeout time.Duration `yaml:"async_wait_timeout"`
}

// JournalConfig selects and tunes the fault journal.
type JournalConfig struct {
	// Type is one of "none", "memory", "nats", or "sql". Default: "none".
	Type string `yaml:"type"`
	// NATSURL is the server URL for the NATS journal. Default: the
	// client library default URL.
	NATSURL string `yaml:"nats_url"`
	// Stream overrides the JetStream stream name.
	Stream string `yaml:"stream"`
	// Driver is the database/sql driver name for the SQL journal,
	// e.g. "sqlite3".
	Driver string `yaml:"driver"`
	// DSN is the data source name for the SQL journal.
	DSN string `yaml:"dsn"`
	// Table overrides the SQL journal table name.
	Table string `yaml:"table"`
}

// Load reads a configuration from a YAML file, applies defaults, and
// validates it.
//
// Parameters:
//   - path: Path to the YAML file
//
// Returns:
//   - *Config: The loaded configuration
//   - error: Error if the file cannot be read, parsed, or validated
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses a YAML configuration document, applies defaults, and
// validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cassandra.Port == 0 {
		c.Cassandra.Port = 9042
	}
	if c.Cassandra.Driver == "" {
		c.Cassandra.Driver = DriverGocql
	}
	if c.Cassandra.Consistency == "" {
		c.Cassandra.Consistency = "quorum"
	}
	if c.Journal.Type == "" {
		c.Journal.Type = JournalNone
	}
}

// Validate checks the configuration for missing or contradictory settings.
func (c *Config) Validate() error {
	if len(c.Cassandra.Hosts) == 0 {
		return fmt.Errorf("config: cassandra.hosts is required")
	}
	if c.Cassandra.Keyspace == "" {
		return fmt.Errorf("config: cassandra.keyspace is required")
	}

	switch c.Cassandra.Driver {
	case DriverGocql, DriverGocqlV2:
	default:
		return fmt.Errorf("config: unknown cassandra.driver %q", c.Cassandra.Driver)
	}

	if _, err := gocql.ParseConsistencyWrapper(c.Cassandra.Consistency); err != nil {
		return fmt.Errorf("config: invalid cassandra.consistency %q: %w", c.Cassandra.Consistency, err)
	}

	if c.Pool.Capacity < 0 {
		return fmt.Errorf("config: pool.capacity must not be negative")
	}

	switch c.Journal.Type {
	case JournalNone, JournalMemory:
	case JournalNATS:
	case JournalSQL:
		if c.Journal.Driver == "" || c.Journal.DSN == "" {
			return fmt.Errorf("config: journal.driver and journal.dsn are required for the sql journal")
		}
	default:
		return fmt.Errorf("config: unknown journal.type %q", c.Journal.Type)
	}

	return nil
}

// ManagerOptions converts the pool and table settings into manager options.
// Zero values are omitted so the manager defaults apply.
//
// Parameters:
//   - jnl: The journal built by NewJournal, or nil
//
// Returns:
//   - []connmgr.Option: Options to pass to connmgr.NewManager
func (c *Config) ManagerOptions(jnl fault.Journal) []connmgr.Option {
	var opts []connmgr.Option

	if c.Pool.Capacity > 0 {
		opts = append(opts, connmgr.WithCapacity(c.Pool.Capacity))
	}
	if c.Pool.AsyncWaitTimeout > 0 {
		opts = append(opts, connmgr.WithAsyncWaitTimeout(c.Pool.AsyncWaitTimeout))
	}
	if c.Cassandra.Table != "" {
		opts = append(opts, connmgr.WithTable(c.Cassandra.Table))
	}
	if jnl != nil {
		opts = append(opts, connmgr.WithJournal(jnl))
	}

	return opts
}

// NewFactory builds the session factory the cassandra section describes.
//
// Parameters:
//   - c: The cassandra section of a loaded configuration
//
// Returns:
//   - cql.SessionFactory: Factory for the selected driver adapter
//   - error: Error if the configuration cannot be translated
func NewFactory(c CassandraConfig) (cql.SessionFactory, error) {
	switch c.Driver {
	case "", DriverGocql:
		cluster, err := clusterConfigV1(c)
		if err != nil {
			return nil, err
		}

		return v1.NewFactory(cluster), nil
	case DriverGocqlV2:
		cluster, err := clusterConfigV2(c)
		if err != nil {
			return nil, err
		}

		return v2.NewFactory(cluster), nil
	default:
		return nil, fmt.Errorf("config: unknown cassandra.driver %q", c.Driver)
	}
}

func clusterConfigV1(c CassandraConfig) (*gocql.ClusterConfig, error) {
	consistency, err := gocql.ParseConsistencyWrapper(c.Consistency)
	if err != nil {
		return nil, fmt.Errorf("config: invalid cassandra.consistency %q: %w", c.Consistency, err)
	}

	cluster := gocql.NewCluster(c.Hosts...)
	cluster.Keyspace = c.Keyspace
	cluster.Consistency = consistency

	if c.Port != 0 {
		cluster.Port = c.Port
	}
	if c.Timeout > 0 {
		cluster.Timeout = c.Timeout
	}
	if c.ConnectTimeout > 0 {
		cluster.ConnectTimeout = c.ConnectTimeout
	}
	if c.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: c.Username,
			Password: c.Password,
		}
	}
	if c.SSL.Enabled {
		cluster.SslOpts = &gocql.SslOptions{
			CertPath:               c.SSL.CertPath,
			KeyPath:                c.SSL.KeyPath,
			CaPath:                 c.SSL.CAPath,
			EnableHostVerification: !c.SSL.SkipHostVerification,
		}
	}

	return cluster, nil
}

func clusterConfigV2(c CassandraConfig) (*gocqlv2.ClusterConfig, error) {
	consistency, err := gocqlv2.ParseConsistencyWrapper(c.Consistency)
	if err != nil {
		return nil, fmt.Errorf("config: invalid cassandra.consistency %q: %w", c.Consistency, err)
	}

	cluster := gocqlv2.NewCluster(c.Hosts...)
	cluster.Keyspace = c.Keyspace
	cluster.Consistency = consistency

	if c.Port != 0 {
		cluster.Port = c.Port
	}
	if c.Timeout > 0 {
		cluster.Timeout = c.Timeout
	}
	if c.ConnectTimeout > 0 {
		cluster.ConnectTimeout = c.ConnectTimeout
	}
	if c.Username != "" {
		cluster.Authenticator = gocqlv2.PasswordAuthenticator{
			Username: c.Username,
			Password: c.Password,
		}
	}
	if c.SSL.Enabled {
		cluster.SslOpts = &gocqlv2.SslOptions{
			CertPath:               c.SSL.CertPath,
			KeyPath:                c.SSL.KeyPath,
			CaPath:                 c.SSL.CAPath,
			EnableHostVerification: !c.SSL.SkipHostVerification,
		}
	}

	return cluster, nil
}

// NewJournal builds the journal the journal section describes. It returns
// nil for type "none".
//
// For the NATS journal, the returned journal owns the client connection
// and closes it with Close. For the SQL journal, it owns the *sql.DB.
//
// Parameters:
//   - ctx: Context bounding journal initialization
//   - c: The journal section of a loaded configuration
//
// Returns:
//   - fault.Journal: The constructed journal, nil for "none"
//   - error: Error if the journal cannot be constructed
func NewJournal(ctx context.Context, c JournalConfig) (fault.Journal, error) {
	switch c.Type {
	case "", JournalNone:
		return nil, nil
	case JournalMemory:
		return journal.NewMemory(), nil
	case JournalNATS:
		url := c.NATSURL
		if url == "" {
			url = nats.DefaultURL
		}

		nc, err := nats.Connect(url)
		if err != nil {
			return nil, fmt.Errorf("config: failed to connect to NATS at %s: %w", url, err)
		}

		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("config: failed to create JetStream context: %w", err)
		}

		var opts []journal.NATSOption
		if c.Stream != "" {
			opts = append(opts, journal.WithStreamName(c.Stream))
		}

		jnl, err := journal.NewNATS(js, opts...)
		if err != nil {
			nc.Close()
			return nil, err
		}

		return &ownedConnJournal{Journal: jnl, close: nc.Close}, nil
	case JournalSQL:
		db, err := sql.Open(c.Driver, c.DSN)
		if err != nil {
			return nil, fmt.Errorf("config: failed to open journal database: %w", err)
		}

		var opts []journal.SQLOption
		if c.Table != "" {
			opts = append(opts, journal.WithTable(c.Table))
		}

		jnl, err := journal.NewSQL(ctx, db, opts...)
		if err != nil {
			_ = db.Close()
			return nil, err
		}

		return &ownedConnJournal{Journal: jnl, close: func() { _ = db.Close() }}, nil
	default:
		return nil, fmt.Errorf("config: unknown journal.type %q", c.Type)
	}
}

// ownedConnJournal closes the transport the journal was built on after the
// journal itself closes.
type ownedConnJournal struct {
	fault.Journal
	close func()
}

func (j *ownedConnJournal) Close() error {
	err := j.Journal.Close()
	j.close()

	return err
}
