package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays GATEKEEPER_* variables. Unset variables leave the
// current value untouched; malformed values panic.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
