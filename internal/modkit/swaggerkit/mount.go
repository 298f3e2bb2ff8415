package swaggerkit

import (
	"net/http"

	phttp "umbra/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

const docsRoot = "/api/docs"

// Mount serves the swagger UI under /api/docs when enabled
func Mount(r phttp.Router, enabled bool) {
	if !enabled {
		return
	}
	r.Handle(docsRoot, http.RedirectHandler(docsRoot+"/", http.StatusPermanentRedirect))
	r.Get(docsRoot+"/doc.json", serveDocJSON())
	r.Handle(docsRoot+"/*", httpSwagger.Handler(
		httpSwagger.InstanceName("status"),
		httpSwagger.URL(docsRoot+"/doc.json"),
		httpSwagger.DocExpansion("list"),
	))
}
