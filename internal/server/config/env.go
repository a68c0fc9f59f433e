package config

import "github.com/kelseyhightower/envconfig"

// envPrefix scopes environment variables, e.g. TEAMFLOW_DATABASE_DSN.
const envPrefix = "teamflow"

// parseEnv overlays TEAMFLOW_* environment variables onto config. Unset
// variables leave the current values untouched. Malformed values panic, the
// same way a broken JSON config does.
func parseEnv(config *Config) {
	if err := envconfig.Process(envPrefix, config); err != nil {
		panic(err)
	}
}
