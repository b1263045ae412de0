// Package appenv tells the service which runtime environment it is in.
package appenv

import (
	"strings"

	"storyfeed-api/pkg/config"
)

// Env is the runtime environment named by APP_ENV.
type Env string

const (
	Production  Env = "production"
	Development Env = "development"
	Test        Env = "test"
)

// Current returns the environment from APP_ENV. Empty or unknown values are
// treated as Production.
func Current() Env {
	switch Env(strings.ToLower(config.GetEnv("APP_ENV", ""))) {
	case Test:
		return Test
	case Development:
		return Development
	default:
		return Production
	}
}

func IsProduction() bool { return Current() == Production }
func IsTest() bool       { return Current() == Test }

// AllowsDevShortcuts reports whether development conveniences such as
// wildcard CORS are enabled.
func AllowsDevShortcuts() bool { return Current() != Production }
