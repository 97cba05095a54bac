// internal/config/env.go
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override, e.g. OBD_BUS_DRIVER.
const EnvPrefix = "OBD_"

// ApplyEnv overrides file values with OBD_* environment variables.
// Unset variables leave the file value alone.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	return nil
}
