package httpkit

import "net/http"

// MountGroup registers routes in an inline group with its own middleware.
// The group shares the parent prefix, so sibling routes keep the parent stack only.
func MountGroup(r Router, mw []func(http.Handler) http.Handler, mount func(Router)) {
	r.Group(func(g Router) {
		if len(mw) > 0 {
			g.Use(mw...)
		}
		mount(g)
	})
}
