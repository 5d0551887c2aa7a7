// SPDX-License-Identifier: MIT

package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// AdminHandler serves the command API
	AdminHandler http.Handler
	// AdminAddr is the admin listen address; empty disables the server
	AdminAddr string

	// MetricsHandler is the HTTP handler for Prometheus metrics (if enabled)
	MetricsHandler http.Handler
	// MetricsAddr is the metrics listen address; empty disables the server
	MetricsAddr string

	// ShutdownTimeout bounds server shutdown plus hooks. Zero means 10s.
	ShutdownTimeout time.Duration
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.AdminAddr != "" && d.AdminHandler == nil {
		return ErrMissingAdminHandler
	}
	return nil
}
