// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	return ParseEnvWithOptions(target, env.Options{})
}

// ParseEnvWithOptions loads configuration from environment variables using
// explicit parser options, e.g. a variable prefix or an injected environment.
func ParseEnvWithOptions(target any, opts env.Options) error {
	if err := env.ParseWithOptions(target, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
