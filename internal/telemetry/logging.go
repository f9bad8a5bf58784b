// Package telemetry initializes the ambient logging and tracing
// collaborators used by the rest of the application.
package telemetry

import (
	"os"

	"go.uber.org/zap"
)

// NewLogger returns a production zap logger, or a development logger (with
// colorized, human-readable console output) when BACKUP_SINK_DEV_LOG is set.
func NewLogger() (*zap.Logger, error) {
	if os.Getenv("BACKUP_SINK_DEV_LOG") != "" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
