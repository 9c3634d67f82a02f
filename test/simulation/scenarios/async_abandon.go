package scenarios

import (
	"context"
	"fmt"
	"time"

	"github.com/bganilkumar/ConnectionManager/test/simulation/types"
)

// AsyncAbandon drives asynchronous writes past their wait bound.
//
// Expired waits abandon the cycle: the write itself still completes, but
// its outcome must not touch the fault buffer. After recovery the backlog
// has to drain to zero; leftovers would mean an abandoned cycle buffered
// or cleared something behind the waiter's back.
type AsyncAbandon struct {
	// WaitTimeout is the manager's async wait bound; latency is injected
	// above it.
	WaitTimeout time.Duration
}

func (s *AsyncAbandon) Name() string {
	return "async-abandon"
}

func (s *AsyncAbandon) Description() string {
	return "Verifies abandoned async waits leave no trace in the fault buffer"
}

func (s *AsyncAbandon) Run(ctx context.Context, env *types.Environment) error {
	env.Logger.Info("Starting AsyncAbandon scenario")
	timeoutsStart := env.Metrics.GetAsyncTimeouts()

	// 1. Inject latency above the async wait bound so waits expire while
	// the writes are still in flight.
	latency := s.WaitTimeout * 2
	env.Logger.Info("Injecting latency above the async wait bound", "latency", latency)
	env.Chaos.SetLatency(latency)

	// 2. Wait for expired waits to show up
	if err := waitUntil(ctx, 30*time.Second, func() bool {
		return env.Metrics.GetAsyncTimeouts() > timeoutsStart
	}); err != nil {
		return fmt.Errorf("no async waits expired: %w", err)
	}
	env.Logger.Info("Async waits expiring",
		"timeouts", env.Metrics.GetAsyncTimeouts()-timeoutsStart)

	// 3. Keep the pressure on for a while
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Second):
	}

	// 4. Recover
	env.Logger.Info("Recovering cluster")
	env.Chaos.Reset()

	if err := waitUntil(ctx, 30*time.Second, func() bool {
		return env.PendingStatements() == 0
	}); err != nil {
		return fmt.Errorf("backlog did not drain after abandoned cycles: %d pending: %w",
			env.PendingStatements(), err)
	}

	env.Logger.Info("AsyncAbandon scenario completed")

	return nil
}
