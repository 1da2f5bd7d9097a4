package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries the paths and tunables every command shares. Resolution
// order, later wins: built-in defaults, config.yaml in the data dir, JOBQ_*
// environment variables, command-line flags.
type Config struct {
	DataDir      string
	PollInterval time.Duration
	StopGrace    time.Duration
	WebhookURL   string
}

// fileConfig is the yaml shape; durations are strings for ParseDuration.
type fileConfig struct {
	PollInterval string `yaml:"poll_interval"`
	StopGrace    string `yaml:"stop_grace"`
	WebhookURL   string `yaml:"webhook_url"`
}

func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DataDir:      filepath.Join(home, ".jobq"),
		PollInterval: time.Second,
		StopGrace:    5 * time.Second,
	}
}

// Load builds the effective config. dataDirFlag overrides everything when
// non-empty.
func Load(dataDirFlag string) (Config, error) {
	cfg := Default()

	if v := os.Getenv("JOBQ_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}

	path := filepath.Join(cfg.DataDir, "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		if fc.WebhookURL != "" {
			cfg.WebhookURL = fc.WebhookURL
		}
		if fc.PollInterval != "" {
			d, err := time.ParseDuration(fc.PollInterval)
			if err != nil {
				return Config{}, fmt.Errorf("parse poll_interval in %s: %w", path, err)
			}
			cfg.PollInterval = d
		}
		if fc.StopGrace != "" {
			d, err := time.ParseDuration(fc.StopGrace)
			if err != nil {
				return Config{}, fmt.Errorf("parse stop_grace in %s: %w", path, err)
			}
			cfg.StopGrace = d
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	// env overrides the file
	if v := os.Getenv("JOBQ_WEBHOOK_URL"); v != "" {
		cfg.WebhookURL = v
	}
	if v := os.Getenv("JOBQ_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse JOBQ_POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = d
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 5 * time.Second
	}
	return cfg, nil
}

func (c Config) AuditLogPath() string { return filepath.Join(c.DataDir, "audit.log") }
func (c Config) LogsDir() string      { return filepath.Join(c.DataDir, "logs") }
func (c Config) WorkerLockPath() string {
	return filepath.Join(c.DataDir, "worker.lock")
}

// JobLogPath is where a job's combined output lands, named by id so any
// process can find it.
func (c Config) JobLogPath(jobID string) string {
	return filepath.Join(c.LogsDir(), fmt.Sprintf("job_%s.log", jobID))
}
