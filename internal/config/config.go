// Package config loads tgvault configuration from a YAML file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/kimhsiao/tgvault/internal/errors"
)

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LockConfig controls durable-file lock acquisition.
type LockConfig struct {
	// Retries is the number of acquisition retries before giving up.
	Retries int `yaml:"retries"`
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff Duration `yaml:"backoff"`
}

// Config holds all tgvault settings.
type Config struct {
	// DataDir holds the pending queue, the content registry, and the
	// per-chat ledgers.
	DataDir string `yaml:"dataDir"`
	// DownloadDir is the managed storage root for downloaded media.
	DownloadDir string `yaml:"downloadDir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
	// WorkerInterval is how often the scheduler re-triggers the worker.
	WorkerInterval Duration `yaml:"workerInterval"`
	// Lock is the durable-file lock policy.
	Lock LockConfig `yaml:"lock"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		DataDir:        "data",
		DownloadDir:    "downloads",
		LogLevel:       "info",
		WorkerInterval: Duration(time.Minute),
		Lock: LockConfig{
			Retries: 5,
			Backoff: Duration(100 * time.Millisecond),
		},
	}
}

// Load reads the configuration at path. An absent file yields the defaults;
// a present file only overrides the keys it sets.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, apperrors.Wrap(apperrors.ErrInvalid, "failed to read config file", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, apperrors.Wrap(apperrors.ErrInvalid, "failed to parse config file", err)
	}

	if cfg.Lock.Retries < 0 {
		cfg.Lock.Retries = 0
	}
	if cfg.Lock.Backoff <= 0 {
		cfg.Lock.Backoff = Default().Lock.Backoff
	}
	return cfg, nil
}

// QueuePath is the pending queue file.
func (c Config) QueuePath() string {
	return filepath.Join(c.DataDir, "download.json")
}

// RegistryPath is the content registry file.
func (c Config) RegistryPath() string {
	return filepath.Join(c.DataDir, "database.json")
}

// LedgerDir holds the per-chat ledger files.
func (c Config) LedgerDir() string {
	return filepath.Join(c.DataDir, "ID")
}
