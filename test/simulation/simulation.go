// Package simulation orchestrates chaos runs against a live CQL cluster.
//
// A run wires the manager to a chaos-wrapped driver factory, keeps a
// steady workload writing a fixed fleet of device serials, and lets
// scenarios cut and heal the cluster underneath. Because the workload
// cycles the same serials, every buffered statement eventually meets a
// later write for its serial and replays; the final verification demands
// an empty backlog and a row for every acknowledged write.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"github.com/gocql/gocql"

	connmgr "github.com/bganilkumar/ConnectionManager"
	cqlv1 "github.com/bganilkumar/ConnectionManager/adapter/cql/v1"
	"github.com/bganilkumar/ConnectionManager/journal"
	"github.com/bganilkumar/ConnectionManager/test/simulation/chaos"
	"github.com/bganilkumar/ConnectionManager/test/simulation/config"
	"github.com/bganilkumar/ConnectionManager/test/simulation/scenarios"
	simtypes "github.com/bganilkumar/ConnectionManager/test/simulation/types"
	"github.com/bganilkumar/ConnectionManager/test/simulation/workload"
	"github.com/bganilkumar/ConnectionManager/test/testutil"
	"github.com/bganilkumar/ConnectionManager/types"
)

// Config holds simulation configuration.
type Config struct {
	Duration time.Duration
	Seed     int64
	Profile  string
	Cluster  *testutil.CQLCluster
	Settings *config.Config
}

// Simulation orchestrates the test execution.
type Simulation struct {
	config       Config
	settings     *config.Config
	logger       *slog.Logger
	env          *simtypes.Environment
	scenarios    []scenarios.Scenario
	stopWorkload context.CancelFunc
	rng          *rand.Rand
	fleet        []string
	seq          int
}

// New creates a new simulation instance.
func New(cfg Config, logger *slog.Logger) (*Simulation, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}

	fleet := make([]string, settings.Workload.Devices)
	for i := range fleet {
		fleet[i] = fmt.Sprintf("SN-%05d", i)
	}

	return &Simulation{
		config:    cfg,
		settings:  settings,
		logger:    logger,
		scenarios: make([]scenarios.Scenario, 0),
		//nolint:gosec // Simulation data, not security sensitive
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		fleet: fleet,
	}, nil
}

// RegisterScenario adds a scenario to the simulation.
func (s *Simulation) RegisterScenario(scenario scenarios.Scenario) {
	s.scenarios = append(s.scenarios, scenario)
}

// Run executes the simulation.
func (s *Simulation) Run(ctx context.Context) error {
	s.logger.Info("Initializing simulation environment...")

	if err := s.setupEnvironment(); err != nil {
		return fmt.Errorf("failed to setup environment: %w", err)
	}
	defer s.teardown()

	s.logger.Info("Starting workload generator...")
	workloadCtx, cancel := context.WithCancel(ctx)
	s.stopWorkload = cancel
	go s.generateTraffic(workloadCtx)

	// Start pruner for soak tests
	if s.config.Profile == "soak" {
		go s.runPruner(workloadCtx)
	}

	for _, scenario := range s.scenarios {
		if ctx.Err() != nil {
			break
		}

		s.logger.Info("--------------------------------------------------")
		s.logger.Info("Running Scenario", "name", scenario.Name())
		s.logger.Info("--------------------------------------------------")

		if err := scenario.Run(ctx, s.env); err != nil {
			s.logger.Error("Scenario failed", "error", err)
		} else {
			s.logger.Info("Scenario completed successfully")
		}
		time.Sleep(2 * time.Second)
	}

	return s.verify(ctx)
}

func (s *Simulation) setupEnvironment() error {
	cluster := s.config.Cluster
	table := s.settings.Cluster.Table

	// Initialize schema
	if err := cluster.CreateDeviceTable(table); err != nil {
		return fmt.Errorf("failed to create device table: %w", err)
	}

	// Build the driver factory and wrap it with chaos
	cc := gocql.NewCluster(cluster.Host)
	cc.Keyspace = cluster.Keyspace
	cc.Timeout = 10 * time.Second
	cc.ConnectTimeout = 10 * time.Second

	chaosFactory := chaos.NewFactory(cqlv1.NewFactory(cc))

	metrics := testutil.NewTestMetricsCollector()

	opts := []connmgr.Option{
		connmgr.WithTable(table),
		connmgr.WithCapacity(s.settings.Manager.Capacity),
		connmgr.WithAsyncWaitTimeout(s.settings.Manager.AsyncWaitTimeout),
		connmgr.WithMetrics(metrics),
	}
	if s.settings.Manager.Journal == "memory" {
		opts = append(opts, connmgr.WithJournal(journal.NewMemory()))
	}

	mgr, err := connmgr.NewManager(chaosFactory, opts...)
	if err != nil {
		return err
	}

	s.env = &simtypes.Environment{
		Manager: mgr,
		Chaos:   chaosFactory,
		Tracker: workload.NewWriteTracker(),
		Metrics: metrics,
		Logger:  s.logger,
	}

	return nil
}

func (s *Simulation) teardown() {
	if s.stopWorkload != nil {
		s.stopWorkload()
	}
	if s.env != nil && s.env.Manager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.env.Manager.Close(ctx); err != nil {
			s.logger.Error("Manager close failed", "error", err)
		}
	}
}

// generateTraffic cycles writes over the device fleet. Revisiting the same
// serials is what makes replay happen: a buffered statement only leaves
// the buffer when a later write for its serial succeeds.
func (s *Simulation) generateTraffic(ctx context.Context) {
	ticker := time.NewTicker(s.settings.Workload.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			serial := s.fleet[s.rng.Intn(len(s.fleet))]
			s.seq++
			params := map[string]string{
				"fw":  "2.4.1",
				"seq": strconv.Itoa(s.seq),
			}

			roll := s.rng.Float64()
			switch {
			case roll < s.settings.Workload.ResetRatio:
				if err := s.env.Manager.Reset(ctx, serial); err == nil {
					s.env.Tracker.TrackDelete(serial)
				}
			case roll < s.settings.Workload.ResetRatio+s.settings.Workload.AsyncRatio:
				fut := s.env.Manager.UpdateAsync(ctx, serial, params)
				go func(serial string) {
					if err := fut.Wait(); err == nil {
						s.env.Tracker.TrackWrite(serial, time.Now().UnixNano())
					}
					// Expired waits are abandoned cycles: the write may
					// still land, but nobody observed it, so it is not
					// tracked.
				}(serial)
			default:
				err := s.env.Manager.Update(ctx, serial, params)
				if err == nil {
					s.env.Tracker.TrackWrite(serial, time.Now().UnixNano())
				} else if !errors.Is(err, types.ErrTransient) {
					s.logger.Error("Write failed", "serial", serial, "error", err)
				}
				// Transient failures are expected during outages; the
				// statement is buffered and a later write for the serial
				// replays it.
			}
		}
	}
}

func (s *Simulation) verify(ctx context.Context) error {
	s.logger.Info("Verifying simulation results...")

	// Reset chaos to ensure clean verification
	s.env.Chaos.Reset()

	// Drain before stopping the workload: replay rides on new writes, so
	// the generator has to keep running until the backlog is gone.
	s.logger.Info("Waiting for fault backlog to drain...")
	deadline := time.Now().Add(60 * time.Second)
	for s.env.PendingStatements() > 0 && time.Now().Before(deadline) && ctx.Err() == nil {
		time.Sleep(200 * time.Millisecond)
	}
	if n := s.env.PendingStatements(); n > 0 {
		return fmt.Errorf("fault backlog did not drain: %d statements pending", n)
	}

	s.logger.Info("Stopping workload...")
	s.stopWorkload()
	time.Sleep(1 * time.Second)

	if err := s.env.Tracker.VerifyConsistency(ctx, s.env.Manager); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	s.logger.Info("Verification passed!",
		"serials", s.env.Tracker.Count(),
		"buffered", s.env.Metrics.GetFaultBuffered(),
		"replayed", s.env.Metrics.GetFaultReplayed(),
		"asyncTimeouts", s.env.Metrics.GetAsyncTimeouts(),
		"sessionsCreated", s.env.Metrics.GetSessionsCreated(),
	)

	return nil
}

func (s *Simulation) runPruner(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Prune writes older than 5 minutes
			pruned, err := s.env.Tracker.VerifyAndPrune(ctx, s.env.Manager, 5*time.Minute)
			if err != nil {
				s.logger.Error("Pruning failed", "error", err)
			} else {
				s.logger.Info("Pruned old writes", "count", pruned)
			}
		}
	}
}
