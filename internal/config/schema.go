package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Poll      PollConfig      `yaml:"poll"`
	Whitelist WhitelistConfig `yaml:"whitelist"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Anchors   AnchorsConfig   `yaml:"anchors"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects the row store. Path is used by sqlite, URL by postgres.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	URL    string `yaml:"url,omitempty"`
}

// PollConfig tunes the reconciliation cycle
type PollConfig struct {
	Interval        Duration `yaml:"interval"`
	BatchSize       int      `yaml:"batch_size"`
	NotificationTTL Duration `yaml:"notification_ttl"`
	CycleTimeout    Duration `yaml:"cycle_timeout"`
	// RefreshRate is the sustained rate of manual refreshes per second
	RefreshRate  float64 `yaml:"refresh_rate"`
	RefreshBurst int     `yaml:"refresh_burst"`
}

// WhitelistConfig points at the optional seed file
type WhitelistConfig struct {
	SeedFile string `yaml:"seed_file,omitempty"`
}

// IngestConfig tunes anchor ingest and zone estimation
type IngestConfig struct {
	TargetMACs     []string       `yaml:"target_macs,omitempty"`
	NoiseFloor     int            `yaml:"noise_floor"`
	MaxStale       Duration       `yaml:"max_stale"`
	WindowSize     int            `yaml:"window_size"`
	StabilizeCount int            `yaml:"stabilize_count"`
	ThreshFront    int            `yaml:"thresh_front"`
	ThreshMiddle   int            `yaml:"thresh_middle"`
	Anchors        []IngestAnchor `yaml:"anchors"`
}

// IngestAnchor places an anchor in a floor column
type IngestAnchor struct {
	ID     string `yaml:"id"`
	Column string `yaml:"column"` // left, center, right
	Offset int    `yaml:"offset,omitempty"`
}

// AnchorsConfig drives the nmap liveness probe
type AnchorsConfig struct {
	Probe             bool         `yaml:"probe"`
	Interval          Duration     `yaml:"interval"`
	Timeout           Duration     `yaml:"timeout"`
	SkipHostDiscovery bool         `yaml:"skip_host_discovery,omitempty"`
	Hosts             []AnchorHost `yaml:"hosts,omitempty"`
}

// AnchorHost is the network address of an anchor
type AnchorHost struct {
	ID   string `yaml:"id"`
	Host string `yaml:"host"`
}

// ArchiveConfig configures the S3 snapshot archive
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Bucket    string `yaml:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
