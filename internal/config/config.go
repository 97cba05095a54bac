// internal/config/config.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Version is the config schema version (semver, major 1).
	Version string `yaml:"version" env:"VERSION"`

	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Bus       BusConfig       `yaml:"bus" envPrefix:"BUS_"`
	Scheduler SchedulerConfig `yaml:"scheduler" envPrefix:"SCHEDULER_"`
	HTTP      HTTPConfig      `yaml:"http" envPrefix:"HTTP_"`
	Display   DisplayConfig   `yaml:"display" envPrefix:"DISPLAY_"`
	Export    ExportConfig    `yaml:"export" envPrefix:"EXPORT_"`
	Report    ReportConfig    `yaml:"report" envPrefix:"REPORT_"`
}

// ---- LOG ----

type LogConfig struct {
	Level   string `yaml:"level" env:"LEVEL"`     // debug|info|warn|error
	Backend string `yaml:"backend" env:"BACKEND"` // slog|zap
	Dev     bool   `yaml:"dev" env:"DEV"`         // console output
}

// ---- BUS ----

type BusConfig struct {
	Driver    string `yaml:"driver" env:"DRIVER"` // socketcan|sim
	Interface string `yaml:"interface" env:"INTERFACE"`

	RequestID       uint32 `yaml:"request_id"`
	ResponseIDFirst uint32 `yaml:"response_id_first"`
	ResponseIDLast  uint32 `yaml:"response_id_last"`

	// KernelFilter installs a CAN_RAW filter for the response range.
	KernelFilter bool `yaml:"kernel_filter"`

	// Simulator only
	SimUnsupported []uint8 `yaml:"sim_unsupported"`
	SimChatter     bool    `yaml:"sim_chatter"`
}

// ---- SCHEDULER ----

// SchedulerConfig holds the poller tunables. StaggerMs and BackoffStepMs
// are pointers: nil takes the default, an explicit 0 disables the stagger
// or the backoff growth.
type SchedulerConfig struct {
	SpacingMs         int  `yaml:"spacing_ms" env:"SPACING_MS"`
	IdleMs            int  `yaml:"idle_ms" env:"IDLE_MS"`
	StaggerMs         *int `yaml:"stagger_ms"`
	ExchangeTimeoutMs int  `yaml:"exchange_timeout_ms" env:"EXCHANGE_TIMEOUT_MS"`
	ReceiveSliceMs    int  `yaml:"receive_slice_ms"`

	FailThreshold int  `yaml:"fail_threshold" env:"FAIL_THRESHOLD"`
	BackoffBaseMs int  `yaml:"backoff_base_ms"`
	BackoffStepMs *int `yaml:"backoff_step_ms"`
	BackoffCapMs  int  `yaml:"backoff_cap_ms"`
}

// ---- HTTP ----

type HTTPConfig struct {
	Listen           string `yaml:"listen" env:"LISTEN"` // empty disables the API
	StaticDir        string `yaml:"static_dir" env:"STATIC_DIR"`
	StreamIntervalMs int    `yaml:"stream_interval_ms"`
}

// ---- DISPLAY ----

type DisplayConfig struct {
	Enabled   bool `yaml:"enabled" env:"ENABLED"`
	RefreshMs int  `yaml:"refresh_ms"`
	Width     int  `yaml:"width"`
}

// ---- EXPORT ----

type ExportConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Protocol string `yaml:"protocol" env:"PROTOCOL"` // modbus|ingest
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
	UnitID   uint8  `yaml:"unit_id"`

	DataAddress   uint16 `yaml:"data_address"`
	StatusAddress uint16 `yaml:"status_address"`

	IntervalMs   int    `yaml:"interval_ms"`
	TimeoutMs    int    `yaml:"timeout_ms"`
	StaleAfterMs int    `yaml:"stale_after_ms"`
	DeviceName   string `yaml:"device_name" env:"DEVICE_NAME"`
}

// ---- REPORT ----

type ReportConfig struct {
	Schedule string `yaml:"schedule" env:"SCHEDULE"` // cron spec; "off" disables
}

// Load reads and decodes the YAML file at path.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document. An empty document yields a zero Config.
func Parse(b []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}
