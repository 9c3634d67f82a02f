package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the simulation configuration
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Cluster    ClusterConfig    `yaml:"cluster"`
	Manager    ManagerConfig    `yaml:"manager"`
	Workload   WorkloadConfig   `yaml:"workload"`
}

type SimulationConfig struct {
	Duration        time.Duration `yaml:"duration"`
	Seed            int64         `yaml:"seed"`
	ConsoleInterval time.Duration `yaml:"console_interval"`
}

type ClusterConfig struct {
	Type     string `yaml:"type"` // scylladb | cassandra
	Keyspace string `yaml:"keyspace"`
	Table    string `yaml:"table"`
}

type ManagerConfig struct {
	Capacity         int           `yaml:"capacity"`
	AsyncWaitTimeout time.Duration `yaml:"async_wait_timeout"`
	Journal          string        `yaml:"journal"` // none | memory
}

type WorkloadConfig struct {
	// Devices is the size of the device fleet. The generator cycles the
	// same serials so buffered statements always meet a later write.
	Devices int `yaml:"devices"`
	// Interval is the delay between generated writes.
	Interval time.Duration `yaml:"interval"`
	// AsyncRatio is the fraction of writes issued asynchronously.
	AsyncRatio float64 `yaml:"async_ratio"`
	// ResetRatio is the fraction of operations that delete the row.
	ResetRatio float64 `yaml:"reset_ratio"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()

	return cfg
}

// ApplyDefaults fills unset fields with working defaults.
func (c *Config) ApplyDefaults() {
	if c.Simulation.Duration == 0 {
		c.Simulation.Duration = 5 * time.Minute
	}
	if c.Simulation.ConsoleInterval == 0 {
		c.Simulation.ConsoleInterval = 10 * time.Second
	}
	if c.Cluster.Keyspace == "" {
		c.Cluster.Keyspace = "simulator"
	}
	if c.Cluster.Table == "" {
		c.Cluster.Table = "model"
	}
	if c.Manager.Capacity == 0 {
		c.Manager.Capacity = 10
	}
	if c.Manager.AsyncWaitTimeout == 0 {
		c.Manager.AsyncWaitTimeout = 250 * time.Millisecond
	}
	if c.Manager.Journal == "" {
		c.Manager.Journal = "none"
	}
	if c.Workload.Devices == 0 {
		c.Workload.Devices = 200
	}
	if c.Workload.Interval == 0 {
		c.Workload.Interval = 10 * time.Millisecond
	}
	if c.Workload.AsyncRatio == 0 {
		c.Workload.AsyncRatio = 0.2
	}
	if c.Workload.ResetRatio == 0 {
		c.Workload.ResetRatio = 0.02
	}
}
