package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // pprof is intentional for simulation
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bganilkumar/ConnectionManager/test/simulation"
	"github.com/bganilkumar/ConnectionManager/test/simulation/config"
	"github.com/bganilkumar/ConnectionManager/test/simulation/scenarios"
	"github.com/bganilkumar/ConnectionManager/test/testutil"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	profile := flag.String("profile", "quick", "Simulation profile (quick, comprehensive, soak)")
	duration := flag.Duration("duration", 5*time.Minute, "Total simulation duration (for soak tests)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Load configuration if provided
	settings := config.Default()
	if *configPath != "" {
		var err error
		settings, err = config.Load(*configPath)
		if err != nil {
			logger.Error("Failed to load configuration", "path", *configPath, "error", err)
			return err
		}
		// Override flags with config values if present
		if settings.Simulation.Duration > 0 {
			*duration = settings.Simulation.Duration
		}
		if settings.Simulation.Seed != 0 {
			*seed = settings.Simulation.Seed
		}
	}

	logger.Info("Starting Simulation",
		"profile", *profile,
		"seed", *seed,
		"duration", *duration,
	)

	// Start pprof server
	go func() {
		logger.Info("Starting pprof server on :6060")
		server := &http.Server{
			Addr:              ":6060",
			ReadHeaderTimeout: 3 * time.Second,
		}
		if err := server.ListenAndServe(); err != nil {
			logger.Error("pprof server failed", "error", err)
		}
	}()

	// Handle signals for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start the cluster
	logger.Info("Starting cluster...")
	opts := testutil.DefaultCQLClusterOptions(settings.Cluster.Keyspace)
	if settings.Cluster.Type == "cassandra" {
		opts.PreferScyllaDB = false
	}
	cluster, err := testutil.StartCQLCluster(ctx, opts)
	if err != nil {
		logger.Error("Failed to start cluster", "error", err)
		return err
	}
	defer func() {
		logger.Info("Terminating cluster...")
		if err := cluster.Terminate(context.Background()); err != nil {
			logger.Error("Failed to terminate cluster", "error", err)
		}
	}()

	// Create simulation config
	simConfig := simulation.Config{
		Seed:     *seed,
		Duration: *duration,
		Profile:  *profile,
		Cluster:  cluster,
		Settings: settings,
	}

	// Initialize simulation orchestrator
	sim, err := simulation.New(simConfig, logger)
	if err != nil {
		logger.Error("Failed to initialize simulation", "error", err)
		return err
	}

	// Register scenarios based on profile
	registerScenarios(sim, *profile, settings)

	// Run simulation
	if err := sim.Run(ctx); err != nil {
		logger.Error("Simulation failed", "error", err)
		return err
	}

	logger.Info("Simulation completed successfully")

	return nil
}

func registerScenarios(sim *simulation.Simulation, profile string, settings *config.Config) {
	// Basic scenarios always included
	sim.RegisterScenario(&scenarios.DegradedCluster{})
	sim.RegisterScenario(&scenarios.CompleteOutage{})
	sim.RegisterScenario(&scenarios.FlappingCluster{})

	// Add more scenarios based on profile
	if profile == "comprehensive" || profile == "soak" {
		sim.RegisterScenario(&scenarios.ReplaySaturation{})
		sim.RegisterScenario(&scenarios.PoolSaturation{Capacity: settings.Manager.Capacity})
		sim.RegisterScenario(&scenarios.AsyncAbandon{WaitTimeout: settings.Manager.AsyncWaitTimeout})
	}
}
