package app

import (
	"strings"

	"github.com/charlesng35/barangay/pkg/logger"
)

// ConfigureLogging initialises the global logger with the provided level, defaulting to info.
// Non-production environments use the human-readable console encoder.
func ConfigureLogging(level, environment string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	return logger.Init(level, !strings.EqualFold(strings.TrimSpace(environment), "production"))
}
