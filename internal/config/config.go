// Package config provides configuration management for anchorwatch.
//
// Config file locations (priority order):
//  1. $ANCHORWATCH_CONFIG
//  2. ./anchorwatch.yaml
//  3. $XDG_CONFIG_HOME/anchorwatch/config.yaml
//  4. ~/.config/anchorwatch/config.yaml
//  5. /etc/anchorwatch/config.yaml
//
// A handful of environment variables override the file so that secrets such
// as the hosted database URL can stay out of it.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"anchorwatch/internal/locate"
)

// Environment overrides
const (
	EnvDatabaseURL = "ANCHORWATCH_DATABASE_URL"
	EnvDBDriver    = "ANCHORWATCH_DB_DRIVER"
	EnvAddr        = "ANCHORWATCH_ADDR"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Path == "" {
		c.Database.Path = "./anchorwatch.db"
	}

	if c.Poll.Interval == 0 {
		c.Poll.Interval = Duration(9 * time.Second)
	}
	if c.Poll.BatchSize == 0 {
		c.Poll.BatchSize = 50
	}
	if c.Poll.NotificationTTL == 0 {
		c.Poll.NotificationTTL = Duration(3 * time.Second)
	}
	if c.Poll.CycleTimeout == 0 {
		c.Poll.CycleTimeout = Duration(30 * time.Second)
	}
	if c.Poll.RefreshRate == 0 {
		c.Poll.RefreshRate = 1
	}
	if c.Poll.RefreshBurst == 0 {
		c.Poll.RefreshBurst = 3
	}

	d := locate.DefaultSettings()
	if c.Ingest.NoiseFloor == 0 {
		c.Ingest.NoiseFloor = d.NoiseFloor
	}
	if c.Ingest.MaxStale == 0 {
		c.Ingest.MaxStale = Duration(d.MaxStale)
	}
	if c.Ingest.WindowSize == 0 {
		c.Ingest.WindowSize = d.WindowSize
	}
	if c.Ingest.StabilizeCount == 0 {
		c.Ingest.StabilizeCount = d.StabilizeCount
	}
	if c.Ingest.ThreshFront == 0 {
		c.Ingest.ThreshFront = d.ThreshFront
	}
	if c.Ingest.ThreshMiddle == 0 {
		c.Ingest.ThreshMiddle = d.ThreshMiddle
	}
	if len(c.Ingest.Anchors) == 0 {
		c.Ingest.Anchors = []IngestAnchor{
			{ID: "Anchor_1", Column: string(locate.ColumnLeft)},
			{ID: "Anchor_2", Column: string(locate.ColumnCenter)},
			{ID: "Anchor_3", Column: string(locate.ColumnRight)},
		}
	}

	if c.Anchors.Interval == 0 {
		c.Anchors.Interval = Duration(time.Minute)
	}
	if c.Anchors.Timeout == 0 {
		c.Anchors.Timeout = Duration(30 * time.Second)
	}

	if c.Archive.Prefix == "" {
		c.Archive.Prefix = "snapshots"
	}
}

// applyEnv lets the environment override the file
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Database.URL = v
		if os.Getenv(EnvDBDriver) == "" {
			c.Database.Driver = DriverPostgres
		}
	}
	if v := os.Getenv(EnvDBDriver); v != "" {
		c.Database.Driver = strings.ToLower(v)
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
}

// Validate reports the first setting that cannot be used
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for postgres (or set %s)", EnvDatabaseURL)
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Poll.Interval.Duration() <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if c.Poll.BatchSize <= 0 {
		return fmt.Errorf("poll.batch_size must be positive")
	}
	if c.Poll.NotificationTTL.Duration() < 0 {
		return fmt.Errorf("poll.notification_ttl must not be negative")
	}
	if c.Poll.RefreshRate < 0 {
		return fmt.Errorf("poll.refresh_rate must not be negative")
	}

	seen := make(map[string]bool, len(c.Ingest.Anchors))
	for _, a := range c.Ingest.Anchors {
		if a.ID == "" {
			return fmt.Errorf("ingest anchor without id")
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate ingest anchor %q", a.ID)
		}
		seen[a.ID] = true
		switch locate.Column(a.Column) {
		case locate.ColumnLeft, locate.ColumnCenter, locate.ColumnRight:
		default:
			return fmt.Errorf("ingest anchor %s: unknown column %q", a.ID, a.Column)
		}
	}

	if c.Anchors.Probe {
		if c.Anchors.Interval.Duration() <= 0 {
			return fmt.Errorf("anchors.interval must be positive")
		}
		for _, h := range c.Anchors.Hosts {
			if h.ID == "" || h.Host == "" {
				return fmt.Errorf("anchor hosts need both id and host")
			}
		}
	}

	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when archiving is enabled")
	}

	return nil
}

// LocateSettings converts the ingest section into zone tuning
func (c *Config) LocateSettings() locate.Settings {
	s := locate.Settings{
		NoiseFloor:     c.Ingest.NoiseFloor,
		MaxStale:       c.Ingest.MaxStale.Duration(),
		WindowSize:     c.Ingest.WindowSize,
		StabilizeCount: c.Ingest.StabilizeCount,
		ThreshFront:    c.Ingest.ThreshFront,
		ThreshMiddle:   c.Ingest.ThreshMiddle,
		Offsets:        make(map[locate.Column]int),
	}
	for _, a := range c.Ingest.Anchors {
		if a.Offset != 0 {
			s.Offsets[locate.Column(a.Column)] += a.Offset
		}
	}
	return s
}

// AnchorColumns maps ingest anchor IDs to their floor column
func (c *Config) AnchorColumns() map[string]locate.Column {
	cols := make(map[string]locate.Column, len(c.Ingest.Anchors))
	for _, a := range c.Ingest.Anchors {
		cols[a.ID] = locate.Column(a.Column)
	}
	return cols
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Store: %s, Poll: %s (batch %d)\n",
		c.Database.Driver, c.Poll.Interval.Duration(), c.Poll.BatchSize)
	summary += fmt.Sprintf("Ingest anchors: %d, Probe: %v, Archive: %v",
		len(c.Ingest.Anchors), c.Anchors.Probe, c.Archive.Enabled)
	return summary
}
