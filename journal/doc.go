// Package journal provides durable backends for the fault buffer.
//
// The fault buffer keeps transiently failed write statements in memory until
// a later write for the same entity key replays them. A journal mirrors
// those statements to storage that survives a process restart: on startup
// the manager calls Recover once and seeds the buffer with whatever was
// still pending when the previous process died.
//
// All backends implement the [fault.Journal] interface:
//
//	type Journal interface {
//	    Append(ctx context.Context, key string, stmts []types.Statement) error
//	    Discard(ctx context.Context, key string) error
//	    Recover(ctx context.Context) (map[string][]types.Statement, error)
//	    Close() error
//	}
//
// # Memory
//
// [Memory] keeps journaled statements in process memory. It exists for
// testing and for deployments that accept losing pending replays on
// restart.
//
// # NATS JetStream
//
// [NATS] persists each statement as one message on a file-backed JetStream
// stream, one subject per entity key so a key's messages can be purged when
// its statements have been replayed. Statements are encoded with
// MessagePack; see the package's record codec for the wire layout.
//
//	nc, _ := nats.Connect("nats://localhost:4222")
//	js, _ := jetstream.New(nc)
//	j, _ := journal.NewNATS(js)
//	mgr, _ := connmgr.NewManager(factory, connmgr.WithJournal(j))
//
// # SQL
//
// [SQL] persists statements in a database/sql table, one row per statement.
// The bundled DDL and `?` placeholders target SQLite and MySQL; PostgreSQL
// deployments supply their own table via [WithTable] and a
// placeholder-translating driver.
package journal
