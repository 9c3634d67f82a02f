package scenarios

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bganilkumar/ConnectionManager/test/simulation/types"
)

// PoolSaturation floods the manager with more concurrent writes than the
// pool has permits.
//
// The excess callers must wait for a released session instead of growing
// the pool: every write completes, and the number of sessions ever created
// stays at or below capacity.
type PoolSaturation struct {
	// Capacity is the pool capacity the manager was built with.
	Capacity int
}

func (s *PoolSaturation) Name() string {
	return "pool-saturation"
}

func (s *PoolSaturation) Description() string {
	return "Floods the pool with concurrent writes to verify the capacity bound"
}

func (s *PoolSaturation) Run(ctx context.Context, env *types.Environment) error {
	env.Logger.Info("Starting PoolSaturation scenario", "capacity", s.Capacity)

	// Latency stretches each checkout so the burst actually overlaps.
	env.Chaos.SetLatency(50 * time.Millisecond)
	defer env.Chaos.Reset()

	burst := s.Capacity * 4
	var wg sync.WaitGroup
	var failures atomic.Int64

	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			serial := fmt.Sprintf("SN-SATURATE-%04d", i)
			params := map[string]string{"model": "X9", "origin": "saturation"}
			if err := env.Manager.Save(ctx, serial, params); err != nil {
				failures.Add(1)
				env.Logger.Error("Saturation write failed", "serial", serial, "error", err)

				return
			}
			env.Tracker.TrackWrite(serial, time.Now().UnixNano())
		}(i)
	}
	wg.Wait()

	if n := failures.Load(); n > 0 {
		return fmt.Errorf("%d of %d saturation writes failed", n, burst)
	}

	created := env.Metrics.GetSessionsCreated()
	if created > int64(s.Capacity) {
		return fmt.Errorf("pool created %d sessions, capacity is %d", created, s.Capacity)
	}
	env.Logger.Info("PoolSaturation scenario completed",
		"burst", burst, "sessionsCreated", created)

	return nil
}
