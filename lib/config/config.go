// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable Load reads.
const EnvVar = "KHORA_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the master configuration.
type Config struct {
	Environment Environment     `yaml:"environment"`
	Paths       PathsConfig     `yaml:"paths"`
	Challenge   ChallengeConfig `yaml:"challenge"`
	Recovery    RecoveryConfig  `yaml:"recovery"`
	Cohort      CohortConfig    `yaml:"cohort"`
	Log         LogConfig       `yaml:"log"`

	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the fields an environment section may replace. Zero
// values leave the base value in place.
type Overrides struct {
	Paths     *PathsConfig     `yaml:"paths,omitempty"`
	Challenge *ChallengeConfig `yaml:"challenge,omitempty"`
	Recovery  *RecoveryConfig  `yaml:"recovery,omitempty"`
	Cohort    *CohortConfig    `yaml:"cohort,omitempty"`
	Log       *LogConfig       `yaml:"log,omitempty"`
}

// PathsConfig configures file locations.
type PathsConfig struct {
	// Root is the base directory for Khora data.
	Root string `yaml:"root"`

	// Database is the local replica's SQLite file.
	Database string `yaml:"database"`

	// Identity is the member's age identity file.
	Identity string `yaml:"identity"`
}

// ChallengeConfig configures verification challenges.
type ChallengeConfig struct {
	// Validity is how long an issued code is accepted. Default: 10m.
	Validity time.Duration `yaml:"validity"`

	// MaxAttempts is the wrong-code budget. Default: 3.
	MaxAttempts int `yaml:"max_attempts"`

	// AllowedDomains restricts email challenges. Empty allows any.
	AllowedDomains []string `yaml:"allowed_domains"`
}

// RecoveryConfig configures social recovery.
type RecoveryConfig struct {
	// Window is how long a pending recovery accepts a phrase.
	// Default: 5m.
	Window time.Duration `yaml:"window"`

	// MaxPending bounds concurrent pending recoveries. Default: 1024.
	MaxPending int `yaml:"max_pending"`
}

// CohortConfig configures cohort pseudonyms.
type CohortConfig struct {
	// Salt is mixed into every cohort hash. Required in production.
	Salt string `yaml:"salt"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn, or error. Default: info.
	Level string `yaml:"level"`

	// Format is text or json. Default: text.
	Format string `yaml:"format"`
}

// Default returns the base configuration the file is merged into.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	root := filepath.Join(homeDir, ".local", "share", "khora")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:     root,
			Database: filepath.Join(root, "replica.db"),
			Identity: filepath.Join(root, "identity.age"),
		},
		Challenge: ChallengeConfig{
			Validity:    10 * time.Minute,
			MaxAttempts: 3,
		},
		Recovery: RecoveryConfig{
			Window:     5 * time.Minute,
			MaxPending: 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads the file named by KHORA_CONFIG. It fails when the
// variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your khora.yaml config file, or use --config flag", EnvVar)
	}
	return LoadFile(path)
}

// LoadFile loads and validates configuration from path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &Overrides{Log: &LogConfig{Format: "json"}}
		}
	}
	if overrides == nil {
		return
	}

	if paths := overrides.Paths; paths != nil {
		setString(&c.Paths.Root, paths.Root)
		setString(&c.Paths.Database, paths.Database)
		setString(&c.Paths.Identity, paths.Identity)
	}
	if challenge := overrides.Challenge; challenge != nil {
		if challenge.Validity > 0 {
			c.Challenge.Validity = challenge.Validity
		}
		if challenge.MaxAttempts > 0 {
			c.Challenge.MaxAttempts = challenge.MaxAttempts
		}
		if challenge.AllowedDomains != nil {
			c.Challenge.AllowedDomains = challenge.AllowedDomains
		}
	}
	if recovery := overrides.Recovery; recovery != nil {
		if recovery.Window > 0 {
			c.Recovery.Window = recovery.Window
		}
		if recovery.MaxPending > 0 {
			c.Recovery.MaxPending = recovery.MaxPending
		}
	}
	if cohort := overrides.Cohort; cohort != nil {
		setString(&c.Cohort.Salt, cohort.Salt)
	}
	if log := overrides.Log; log != nil {
		setString(&c.Log.Level, log.Level)
		setString(&c.Log.Format, log.Format)
	}
}

func setString(destination *string, value string) {
	if value != "" {
		*destination = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"KHORA_ROOT": c.Paths.Root,
		"HOME":       os.Getenv("HOME"),
	}
	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["KHORA_ROOT"] = c.Paths.Root
	c.Paths.Database = expandVars(c.Paths.Database, vars)
	c.Paths.Identity = expandVars(c.Paths.Identity, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, preferring vars over
// the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}
	if c.Paths.Database == "" {
		errs = append(errs, fmt.Errorf("paths.database is required"))
	}
	if c.Challenge.Validity <= 0 {
		errs = append(errs, fmt.Errorf("challenge.validity must be positive"))
	}
	if c.Challenge.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("challenge.max_attempts must be positive"))
	}
	if c.Recovery.Window <= 0 {
		errs = append(errs, fmt.Errorf("recovery.window must be positive"))
	}
	if c.Recovery.MaxPending <= 0 {
		errs = append(errs, fmt.Errorf("recovery.max_pending must be positive"))
	}
	if c.Environment == Production && c.Cohort.Salt == "" {
		errs = append(errs, fmt.Errorf("cohort.salt is required in production"))
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}

	return errors.Join(errs...)
}

// EnsurePaths creates the root directory and the parents of the
// database and identity files.
func (c *Config) EnsurePaths() error {
	directories := []string{
		c.Paths.Root,
		filepath.Dir(c.Paths.Database),
		filepath.Dir(c.Paths.Identity),
	}
	for _, directory := range directories {
		if directory == "" || directory == "." {
			continue
		}
		if err := os.MkdirAll(directory, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", directory, err)
		}
	}
	return nil
}

// NewLogger builds the process logger described by Log, writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, options))
	}
	return slog.New(slog.NewTextHandler(w, options))
}
