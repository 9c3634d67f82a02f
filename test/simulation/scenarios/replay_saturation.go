package scenarios

import (
	"context"
	"fmt"
	"time"

	"github.com/bganilkumar/ConnectionManager/test/simulation/types"
)

// ReplaySaturation holds an outage until a large backlog accumulates, then
// verifies a single recovery drains all of it.
type ReplaySaturation struct{}

func (s *ReplaySaturation) Name() string {
	return "replay-saturation"
}

func (s *ReplaySaturation) Description() string {
	return "Builds a large fault backlog and verifies it drains after recovery"
}

func (s *ReplaySaturation) Run(ctx context.Context, env *types.Environment) error {
	env.Logger.Info("Starting ReplaySaturation scenario")
	replayedStart := env.Metrics.GetFaultReplayed()

	// 1. Disconnect the cluster
	env.Logger.Info("Disconnecting cluster")
	env.Chaos.SetErrorRate(1.0)

	// 2. Wait for the buffer to fill
	if err := waitUntil(ctx, 60*time.Second, func() bool {
		return env.PendingStatements() >= 200
	}); err != nil {
		return fmt.Errorf("backlog did not reach 200 statements (got %d): %w",
			env.PendingStatements(), err)
	}
	env.Logger.Info("Backlog saturated", "pending", env.PendingStatements())

	// 3. Recover
	env.Logger.Info("Recovering cluster")
	env.Chaos.Reset()

	// 4. Wait for drain
	if err := waitUntil(ctx, 90*time.Second, func() bool {
		return env.PendingStatements() == 0
	}); err != nil {
		return fmt.Errorf("backlog did not drain: %d statements pending: %w",
			env.PendingStatements(), err)
	}

	replayed := env.Metrics.GetFaultReplayed() - replayedStart
	if replayed < 200 {
		return fmt.Errorf("expected at least 200 replayed statements, got %d", replayed)
	}
	env.Logger.Info("ReplaySaturation scenario completed", "replayed", replayed)

	return nil
}
