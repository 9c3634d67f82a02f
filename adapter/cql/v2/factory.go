package v2

import (
	"context"

	gocql "github.com/apache/cassandra-gocql-driver/v2"

	"github.com/bganilkumar/ConnectionManager/adapter/cql"
)

// Factory creates gocql v2 sessions from a cluster configuration.
//
// The factory holds the *gocql.ClusterConfig; sessions own the actual
// connections. Construct one factory per cluster/keyspace pair and hand it
// to the pool.
type Factory struct {
	cluster *gocql.ClusterConfig
}

// Compile-time assertion that Factory implements cql.SessionFactory.
var _ cql.SessionFactory = (*Factory)(nil)

// NewFactory creates a session factory from a gocql v2 cluster
// configuration.
//
// The configuration is used as-is; set contact points, keyspace,
// consistency, and timeouts on it before constructing the factory.
//
// Example:
//
//	cluster := gocql.NewCluster("127.0.0.1")
//	cluster.Keyspace = "devices"
//	cluster.Consistency = gocql.Quorum
//	factory := v2.NewFactory(cluster)
//
// Parameters:
//   - cluster: A configured gocql.ClusterConfig from the Apache driver
//
// Returns:
//   - *Factory: A factory implementing cql.SessionFactory
func NewFactory(cluster *gocql.ClusterConfig) *Factory {
	return &Factory{cluster: cluster}
}

// NewSession establishes a new session bound to the configured keyspace.
//
// The context bounds the wait from the caller's side; if it expires first,
// the eventual session (if creation still succeeds) is closed in the
// background so connections are not leaked.
func (f *Factory) NewSession(ctx context.Context) (cql.Session, error) {
	type result struct {
		session *gocql.Session
		err     error
	}

	ch := make(chan result, 1)
	go func() {
		session, err := f.cluster.CreateSession()
		ch <- result{session: session, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.session != nil {
				r.session.Close()
			}
		}()

		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}

		return NewSession(r.session), nil
	}
}

// Keyspace returns the keyspace sessions are bound to.
func (f *Factory) Keyspace() string {
	return f.cluster.Keyspace
}

// ClassifyError maps a raw driver error into the shared error taxonomy.
// It delegates to the package-level ClassifyError.
func (f *Factory) ClassifyError(op, query string, err error) error {
	return ClassifyError(op, query, err)
}
