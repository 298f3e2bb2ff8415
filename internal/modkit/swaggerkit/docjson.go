// Package swaggerkit mounts the swagger UI and serves the registered OpenAPI document
package swaggerkit

import (
	"encoding/json"
	"net/http"
	"strings"

	"umbra/internal/platform/config"
	perr "umbra/internal/platform/errors"

	docs "umbra/internal/services/status/docs"
)

// SpecMutator edits the parsed document before it is served
type SpecMutator func(map[string]any)

var mutators []SpecMutator

// seam for tests
var docReader = func() string { return docs.SwaggerInfo.ReadDoc() }

// Register adds a mutator, call it from module setup
func Register(m SpecMutator) {
	if m != nil {
		mutators = append(mutators, m)
	}
}

func serveDocJSON() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var spec map[string]any
		if err := json.Unmarshal([]byte(docReader()), &spec); err != nil {
			http.Error(w, "spec parse error", http.StatusInternalServerError)
			return
		}

		ensureServers(spec, "/")
		if suffix := config.New().Prefix("CORE_STATUS_").MayString("DOCS_TITLE_SUFFIX", ""); suffix != "" {
			if info, ok := spec["info"].(map[string]any); ok {
				if title, ok := info["title"].(string); ok {
					info["title"] = title + " " + suffix
				}
			}
		}

		errorSchema(spec)
		defaultResponse(spec, "400", example(http.StatusBadRequest, perr.ErrorCodeValidation, "mode must be one of [lazy precomputed]"))
		defaultResponse(spec, "500", example(http.StatusInternalServerError, perr.ErrorCodePanic, "internal error"))

		for _, m := range mutators {
			m(spec)
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

// ensureServers pins the document to OAS 3.0.3, the newest the bundled UI renders,
// and adds a servers entry when there is none
func ensureServers(spec map[string]any, url string) {
	delete(spec, "swagger")
	if v, _ := spec["openapi"].(string); !strings.HasPrefix(v, "3.0") {
		spec["openapi"] = "3.0.3"
	}
	if _, ok := spec["servers"]; !ok {
		spec["servers"] = []any{map[string]any{"url": url}}
	}
}

// child returns m[key] as a map, creating it when missing
func child(m map[string]any, key string) map[string]any {
	c, ok := m[key].(map[string]any)
	if !ok {
		c = map[string]any{}
		m[key] = c
	}
	return c
}

// errorSchema describes the envelope phttp writes for failures
func errorSchema(spec map[string]any) {
	schemas := child(child(spec, "components"), "schemas")
	if _, ok := schemas["ErrorResponse"]; ok {
		return
	}
	str := map[string]any{"type": "string"}
	schemas["ErrorResponse"] = map[string]any{
		"type":        "object",
		"description": "Standard error envelope",
		"properties": map[string]any{
			"status_code": map[string]any{"type": "integer", "format": "int32"},
			"status":      str,
			"code":        map[string]any{"type": "integer", "format": "int32"},
			"error":       str,
			"request_id":  str,
		},
		"required": []any{"status_code", "status"},
	}
}

func example(status int, code perr.ErrorCode, msg string) map[string]any {
	return map[string]any{
		"description": http.StatusText(status),
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
				"example": map[string]any{
					"status_code": status,
					"status":      http.StatusText(status),
					"code":        int(code),
					"error":       msg,
					"request_id":  "umbra-host/abc-000001",
				},
			},
		},
	}
}

// defaultResponse adds resp under status to every operation that does not declare it
func defaultResponse(spec map[string]any, status string, resp map[string]any) {
	paths, _ := spec["paths"].(map[string]any)
	for _, p := range paths {
		ops, ok := p.(map[string]any)
		if !ok {
			continue
		}
		for _, o := range ops {
			op, ok := o.(map[string]any)
			if !ok {
				continue
			}
			resps := child(op, "responses")
			if _, ok := resps[status]; !ok {
				resps[status] = resp
			}
		}
	}
}
