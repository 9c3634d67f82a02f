package scenarios

import (
	"context"
	"time"

	"github.com/bganilkumar/ConnectionManager/test/simulation/types"
)

// DegradedCluster simulates a slow but healthy cluster.
//
// Latency throttles throughput through the bounded pool without producing
// failures, so the fault buffer must stay empty the whole time.
type DegradedCluster struct{}

func (s *DegradedCluster) Name() string {
	return "degraded-cluster"
}

func (s *DegradedCluster) Description() string {
	return "Simulates high latency to verify the pool degrades without errors"
}

func (s *DegradedCluster) Run(ctx context.Context, env *types.Environment) error {
	env.Logger.Info("Starting DegradedCluster scenario")
	startCount := env.Tracker.Count()

	// 1. Baseline: Normal operation
	env.Logger.Info("Phase 1: Normal operation")
	_ = waitUntil(ctx, 5*time.Second, func() bool {
		return env.Tracker.Count() > startCount
	})

	// 2. Inject latency
	env.Logger.Info("Phase 2: Injecting latency")
	env.Chaos.SetLatency(100 * time.Millisecond)

	// Writes must keep landing, just slower.
	degradedStart := env.Tracker.Count()
	_ = waitUntil(ctx, 15*time.Second, func() bool {
		return env.Tracker.Count() >= degradedStart+20
	})

	// 3. Latency is not a failure: nothing may be buffered.
	if pending := env.PendingStatements(); pending > 0 {
		env.Logger.Error("Latency produced buffered statements", "pending", pending)
	}

	// 4. Recovery
	env.Logger.Info("Phase 3: Recovering")
	env.Chaos.Reset()
	recoveredStart := env.Tracker.Count()
	_ = waitUntil(ctx, 10*time.Second, func() bool {
		return env.Tracker.Count() >= recoveredStart+50
	})
	env.Logger.Info("DegradedCluster scenario completed")

	return nil
}
