// internal/writer/builder.go
package writer

import (
	"fmt"
	"time"

	cfg "github.com/tamzrod/obd-monitor/internal/config"
	"github.com/tamzrod/obd-monitor/internal/logger"
	"github.com/tamzrod/obd-monitor/internal/status"
	"github.com/tamzrod/obd-monitor/internal/writer/ingest"
	"github.com/tamzrod/obd-monitor/internal/writer/modbus"
)

// BuildPlan converts a normalized export config into a Plan.
func BuildPlan(e cfg.ExportConfig) Plan {
	return Plan{
		Endpoint:      e.Endpoint,
		UnitID:        e.UnitID,
		DataAddress:   e.DataAddress,
		StatusAddress: e.StatusAddress,
		DeviceName:    e.DeviceName,
		Interval:      time.Duration(e.IntervalMs) * time.Millisecond,
		StaleAfter:    time.Duration(e.StaleAfterMs) * time.Millisecond,
	}
}

// Build constructs the exporter and its endpoint client.
// The returned closer releases the client.
func Build(e cfg.ExportConfig, store *status.Store, backoff func() int, log logger.Logger) (*Exporter, func() error, error) {
	if store == nil {
		return nil, nil, fmt.Errorf("writer: nil store")
	}
	if log == nil {
		log = logger.GetLogger()
	}

	plan := BuildPlan(e)
	timeout := time.Duration(e.TimeoutMs) * time.Millisecond

	var (
		cli    endpointClient
		closer func() error
	)

	switch e.Protocol {
	case "modbus":
		c, err := modbus.NewEndpointClient(modbus.Config{
			Endpoint: e.Endpoint,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		cli, closer = c, c.Close

	case "ingest":
		c, err := ingest.NewEndpointClient(ingest.Config{
			Endpoint: e.Endpoint,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		cli, closer = c, c.Close

	default:
		return nil, nil, fmt.Errorf("writer: unsupported protocol %q", e.Protocol)
	}

	log = log.With("component", "exporter", "endpoint", e.Endpoint, "protocol", e.Protocol)
	return NewExporter(plan, cli, store, backoff, log), closer, nil
}
