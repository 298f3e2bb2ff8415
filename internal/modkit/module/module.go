// Package module defines the minimal contract for a modkit module and the process wide
// registry main uses to cross wire ports
package module

import (
	phttp "umbra/internal/platform/net/http"
)

// Module is what every service module implements. Modules without routes mount nothing.
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}
