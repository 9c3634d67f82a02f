package scenarios

import (
	"context"
	"fmt"
	"time"

	"github.com/bganilkumar/ConnectionManager/test/simulation/types"
)

// FlappingCluster simulates a cluster that goes down and up repeatedly.
//
// Each down phase builds backlog and each up phase must drain it; a drain
// that does not finish before the next flap indicates replay is losing the
// race against new failures.
type FlappingCluster struct{}

func (s *FlappingCluster) Name() string {
	return "flapping-cluster"
}

func (s *FlappingCluster) Description() string {
	return "Simulates a flapping cluster to verify repeated buffer and drain cycles"
}

func (s *FlappingCluster) Run(ctx context.Context, env *types.Environment) error {
	env.Logger.Info("Starting FlappingCluster scenario")

	for i := 0; i < 3; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		env.Logger.Info(fmt.Sprintf("Flapping iteration %d: cluster DOWN", i+1))
		env.Chaos.SetErrorRate(1.0)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}

		env.Logger.Info(fmt.Sprintf("Flapping iteration %d: cluster UP", i+1))
		env.Chaos.Reset()
		if err := waitUntil(ctx, 30*time.Second, func() bool {
			return env.PendingStatements() == 0
		}); err != nil {
			return fmt.Errorf("iteration %d: backlog did not drain: %w", i+1, err)
		}
	}

	env.Logger.Info("FlappingCluster scenario completed")

	return nil
}
