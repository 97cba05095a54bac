package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
version: "1.2.0"
log:
  level: debug
  backend: zap
bus:
  driver: sim
  interface: vcan0
  request_id: 0x7DF
  response_id_first: 0x7E8
  response_id_last: 0x7EF
  sim_unsupported: [0x0A, 0x21]
scheduler:
  spacing_ms: 30
  fail_threshold: 3
http:
  listen: ":8080"
  static_dir: ./web
display:
  enabled: true
export:
  enabled: true
  protocol: ingest
  endpoint: 127.0.0.1:9000
  unit_id: 7
  data_address: 100
  status_address: 200
  device_name: truck-01
report:
  schedule: "@every 30s"
`

func TestParse_Sample(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, "zap", cfg.Log.Backend)
	assert.Equal(t, "sim", cfg.Bus.Driver)
	assert.Equal(t, uint32(0x7DF), cfg.Bus.RequestID)
	assert.Equal(t, []uint8{0x0A, 0x21}, cfg.Bus.SimUnsupported)
	assert.Equal(t, 30, cfg.Scheduler.SpacingMs)
	assert.Equal(t, ":8080", cfg.HTTP.Listen)
	assert.True(t, cfg.Display.Enabled)
	assert.Equal(t, uint8(7), cfg.Export.UnitID)
	assert.Equal(t, uint16(200), cfg.Export.StatusAddress)

	require.NoError(t, Validate(cfg))
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("bus:\n  drvier: sim\n"))
	assert.Error(t, err)
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obdmonitor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "vcan0", cfg.Bus.Interface)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv_OverridesFile(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	t.Setenv("OBD_BUS_DRIVER", "socketcan")
	t.Setenv("OBD_SCHEDULER_SPACING_MS", "40")
	t.Setenv("OBD_HTTP_LISTEN", "127.0.0.1:9999")
	t.Setenv("OBD_EXPORT_ENABLED", "false")

	require.NoError(t, ApplyEnv(cfg))

	assert.Equal(t, "socketcan", cfg.Bus.Driver)
	assert.Equal(t, 40, cfg.Scheduler.SpacingMs)
	assert.Equal(t, "127.0.0.1:9999", cfg.HTTP.Listen)
	assert.False(t, cfg.Export.Enabled)

	// untouched keys keep the file value
	assert.Equal(t, "vcan0", cfg.Bus.Interface)
	assert.Equal(t, 3, cfg.Scheduler.FailThreshold)
}

func TestApplyEnv_BadValue(t *testing.T) {
	t.Setenv("OBD_SCHEDULER_IDLE_MS", "soon")
	assert.Error(t, ApplyEnv(&Config{}))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"zero config", func(c *Config) {}, ""},
		{"version major 1", func(c *Config) { c.Version = "1.9.3" }, ""},
		{"version major 2", func(c *Config) { c.Version = "2.0.0" }, "does not satisfy"},
		{"version garbage", func(c *Config) { c.Version = "one" }, "version"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log backend", func(c *Config) { c.Log.Backend = "logrus" }, "log.backend"},
		{"driver", func(c *Config) { c.Bus.Driver = "serial" }, "bus.driver"},
		{"29-bit request id", func(c *Config) { c.Bus.RequestID = 0x18DB33F1 }, "bus.request_id"},
		{"inverted response range", func(c *Config) {
			c.Bus.ResponseIDFirst, c.Bus.ResponseIDLast = 0x7EF, 0x7E8
		}, "response_id_first"},
		{"negative spacing", func(c *Config) { c.Scheduler.SpacingMs = -1 }, "scheduler.spacing_ms"},
		{"idle too long", func(c *Config) { c.Scheduler.IdleMs = 500 }, "scheduler.idle_ms"},
		{"negative threshold", func(c *Config) { c.Scheduler.FailThreshold = -2 }, "scheduler.fail_threshold"},
		{"slice above window", func(c *Config) {
			c.Scheduler.ExchangeTimeoutMs, c.Scheduler.ReceiveSliceMs = 100, 150
		}, "receive_slice_ms"},
		{"listen", func(c *Config) { c.HTTP.Listen = "8080" }, "http.listen"},
		{"display width", func(c *Config) { c.Display.Width = 8 }, "display.width"},
		{"export needs endpoint", func(c *Config) { c.Export.Enabled = true }, "export.endpoint"},
		{"export protocol", func(c *Config) {
			c.Export = ExportConfig{Enabled: true, Protocol: "mqtt", Endpoint: "h:1"}
		}, "export.protocol"},
		{"export overlap", func(c *Config) {
			c.Export = ExportConfig{Enabled: true, Endpoint: "h:502", DataAddress: 0, StatusAddress: 10}
		}, "overlaps"},
		{"export default addresses", func(c *Config) {
			c.Export = ExportConfig{Enabled: true, Endpoint: "h:502"}
		}, ""},
		{"export address space", func(c *Config) {
			c.Export = ExportConfig{Enabled: true, Endpoint: "h:502", DataAddress: 65530}
		}, "address space"},
		{"device name ascii", func(c *Config) { c.Export.DeviceName = "café" }, "ASCII"},
		{"report schedule", func(c *Config) { c.Report.Schedule = "every minute" }, "report.schedule"},
		{"report off", func(c *Config) { c.Report.Schedule = "off" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}

	assert.Error(t, Validate(nil))
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, Validate(cfg))
	Normalize(cfg)

	assert.Equal(t, DefaultVersion, cfg.Version)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "slog", cfg.Log.Backend)

	assert.Equal(t, "socketcan", cfg.Bus.Driver)
	assert.Equal(t, "can0", cfg.Bus.Interface)
	assert.Equal(t, uint32(0x7DF), cfg.Bus.RequestID)
	assert.Equal(t, uint32(0x7E8), cfg.Bus.ResponseIDFirst)
	assert.Equal(t, uint32(0x7EF), cfg.Bus.ResponseIDLast)

	assert.Equal(t, SchedulerConfig{
		SpacingMs:         25,
		IdleMs:            5,
		StaggerMs:         intPtr(10),
		ExchangeTimeoutMs: 100,
		ReceiveSliceMs:    50,
		FailThreshold:     5,
		BackoffBaseMs:     2000,
		BackoffStepMs:     intPtr(1000),
		BackoffCapMs:      18000,
	}, cfg.Scheduler)

	assert.Equal(t, 200, cfg.HTTP.StreamIntervalMs)
	assert.Equal(t, 400, cfg.Display.RefreshMs)
	assert.Equal(t, 16, cfg.Display.Width)

	assert.Equal(t, "modbus", cfg.Export.Protocol)
	assert.Equal(t, uint16(0), cfg.Export.DataAddress)
	assert.Equal(t, uint16(20), cfg.Export.StatusAddress)
	assert.Equal(t, "obd-monitor", cfg.Export.DeviceName)
	assert.Equal(t, "@every 1m", cfg.Report.Schedule)

	// normalized config stays valid
	assert.NoError(t, Validate(cfg))
}

func TestNormalize_KeepsExplicitValues(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	cfg.Export.DeviceName = "a-very-long-device-name"
	cfg.Scheduler.ExchangeTimeoutMs = 40

	Normalize(cfg)

	assert.Equal(t, 30, cfg.Scheduler.SpacingMs)
	assert.Equal(t, 3, cfg.Scheduler.FailThreshold)
	assert.Equal(t, 40, cfg.Scheduler.ReceiveSliceMs, "slice clamped to the window")
	assert.Equal(t, "a-very-long-devi", cfg.Export.DeviceName)
	assert.Equal(t, uint16(100), cfg.Export.DataAddress)
	assert.NotPanics(t, func() { Normalize(nil) })
}

func TestNormalize_KeepsExplicitZero(t *testing.T) {
	cfg, err := Parse([]byte("scheduler:\n  stagger_ms: 0\n  backoff_step_ms: 0\n"))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	Normalize(cfg)
	require.NotNil(t, cfg.Scheduler.StaggerMs)
	require.NotNil(t, cfg.Scheduler.BackoffStepMs)
	assert.Equal(t, 0, *cfg.Scheduler.StaggerMs)
	assert.Equal(t, 0, *cfg.Scheduler.BackoffStepMs)

	// absent keys still take defaults
	assert.Equal(t, DefaultSpacingMs, cfg.Scheduler.SpacingMs)
}

func TestValidate_NegativeStagger(t *testing.T) {
	cfg := &Config{}
	cfg.Scheduler.StaggerMs = intPtr(-1)
	assert.ErrorContains(t, Validate(cfg), "scheduler.stagger_ms")
}

func intPtr(v int) *int { return &v }

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "obdmonitor.example.yaml"))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	Normalize(cfg)
	assert.Equal(t, "socketcan", cfg.Bus.Driver)
	assert.Equal(t, uint32(0x7DF), cfg.Bus.RequestID)
	assert.Equal(t, []uint8{0x0A}, cfg.Bus.SimUnsupported)
	assert.Equal(t, "@every 1m", cfg.Report.Schedule)
}
