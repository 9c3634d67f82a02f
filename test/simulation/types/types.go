package types

import (
	"log/slog"

	connmgr "github.com/bganilkumar/ConnectionManager"
	"github.com/bganilkumar/ConnectionManager/test/simulation/chaos"
	"github.com/bganilkumar/ConnectionManager/test/simulation/workload"
	"github.com/bganilkumar/ConnectionManager/test/testutil"
)

// Environment holds the shared resources for the simulation.
type Environment struct {
	Manager *connmgr.Manager
	Chaos   *chaos.Factory
	Tracker *workload.WriteTracker
	Metrics *testutil.TestMetricsCollector
	Logger  *slog.Logger
}

// PendingStatements returns the number of statements currently buffered
// for replay. Scenarios poll this to watch a backlog build and drain.
func (e *Environment) PendingStatements() int {
	_, statements := e.Manager.PendingFaults()

	return statements
}
