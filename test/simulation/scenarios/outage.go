package scenarios

import (
	"context"
	"fmt"
	"time"

	"github.com/bganilkumar/ConnectionManager/test/simulation/types"
)

// CompleteOutage simulates a full cluster outage.
//
// Every write during the outage fails at the wire and must be buffered per
// serial; after recovery the workload's next write for each serial drags
// its backlog in, so the buffer drains without any scenario intervention.
type CompleteOutage struct{}

func (s *CompleteOutage) Name() string {
	return "complete-outage"
}

func (s *CompleteOutage) Description() string {
	return "Simulates complete cluster failure to verify fault buffering and replay"
}

func (s *CompleteOutage) Run(ctx context.Context, env *types.Environment) error {
	env.Logger.Info("Starting CompleteOutage scenario")

	// Kill the cluster completely
	env.Logger.Info("Killing cluster")
	env.Chaos.SetErrorRate(1.0)

	// The workload keeps writing; failures must show up as backlog.
	if err := waitUntil(ctx, 20*time.Second, func() bool {
		return env.PendingStatements() > 0
	}); err != nil {
		return fmt.Errorf("no statements buffered during outage: %w", err)
	}

	// Let the backlog build for a while
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Second):
	}
	env.Logger.Info("Backlog built", "pending", env.PendingStatements())

	// Recover
	env.Logger.Info("Recovering cluster")
	env.Chaos.Reset()

	if err := waitUntil(ctx, 60*time.Second, func() bool {
		return env.PendingStatements() == 0
	}); err != nil {
		return fmt.Errorf("backlog did not drain: %d statements pending: %w",
			env.PendingStatements(), err)
	}

	env.Logger.Info("CompleteOutage scenario completed",
		"replayed", env.Metrics.GetFaultReplayed())

	return nil
}
