// Package agrireg is the root of the agricultural data registry. It holds the
// globals shared by every component: the logger and the list of Prometheus
// collectors.
package agrireg

import (
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// EnvLogLevel is the name of the environment variable that sets the level of
// the global logger.
const EnvLogLevel = "AGRIREG_LOG_LEVEL"

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance.
var Logger = zerolog.New(logout).
	With().Timestamp().Logger().
	With().Caller().Logger().
	Level(ParseLogLevel(os.Getenv(EnvLogLevel)))

// PromCollectors exposes the Prometheus collectors created by the components.
// They are registered when the metrics endpoint is started.
var PromCollectors []prometheus.Collector

// ParseLogLevel converts a textual level to the zerolog one. It falls back to
// the info level when the input is empty or unknown.
func ParseLogLevel(value string) zerolog.Level {
	value = strings.ToLower(strings.TrimSpace(value))

	lvl, err := zerolog.ParseLevel(value)
	if err != nil || value == "" {
		return zerolog.InfoLevel
	}

	return lvl
}
