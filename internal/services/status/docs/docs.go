// Package docs holds the OpenAPI document of the status API, registered with swag under
// the "status" instance and served by swaggerkit at /api/docs
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "openapi": "3.0.3",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "paths": {
        "/healthz": {
            "get": {
                "tags": ["Status"],
                "summary": "Liveness and build info",
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/v1/run": {
            "get": {
                "tags": ["Status"],
                "summary": "Live run state",
                "responses": {
                    "200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/RunState"}}}},
                    "404": {"description": "no shooter in this process"}
                }
            }
        },
        "/v1/shots": {
            "get": {
                "tags": ["Status"],
                "summary": "Last flushed audit log",
                "responses": {
                    "200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ShotsView"}}}}
                }
            }
        },
        "/v1/plan": {
            "get": {
                "tags": ["Plan"],
                "summary": "Nominal table of the loaded plan",
                "responses": {
                    "200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/PlanView"}}}}
                }
            }
        },
        "/v1/plan/preview": {
            "post": {
                "tags": ["Plan"],
                "summary": "Table for an ad hoc plan file, layered over the loaded plan",
                "requestBody": {
                    "required": true,
                    "content": {"application/json": {"schema": {"$ref": "#/components/schemas/PlanFile"}}}
                },
                "responses": {
                    "200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/PlanView"}}}}
                }
            }
        },
        "/v1/feed": {
            "get": {
                "tags": ["Status"],
                "summary": "Websocket stream of run events",
                "responses": {"101": {"description": "switching protocols"}}
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Status"],
                "summary": "Prometheus metrics",
                "responses": {"200": {"description": "text exposition format"}}
            }
        }
    },
    "components": {
        "schemas": {
            "Shot": {
                "type": "object",
                "properties": {
                    "seq": {"type": "integer"},
                    "phase": {"type": "string", "enum": ["partial1", "beads1", "diamonds1", "totality1", "totality2", "diamonds2", "beads2", "partial2"]},
                    "start": {"type": "string", "format": "date-time"},
                    "stop": {"type": "string", "format": "date-time"},
                    "exposure": {"type": "number"},
                    "iso": {"type": "number"}
                }
            },
            "Record": {
                "allOf": [
                    {"$ref": "#/components/schemas/Shot"},
                    {
                        "type": "object",
                        "properties": {
                            "actual_start": {"type": "string", "format": "date-time"},
                            "actual_stop": {"type": "string", "format": "date-time"},
                            "done": {"type": "boolean"},
                            "status": {"type": "string", "enum": ["done", "skipped", "failed"]},
                            "drift": {"type": "number"},
                            "error": {"type": "string"}
                        }
                    }
                ]
            },
            "RunState": {
                "type": "object",
                "properties": {
                    "run_id": {"type": "string"},
                    "mode": {"type": "string"},
                    "started": {"type": "string", "format": "date-time"},
                    "running": {"type": "boolean"},
                    "phase": {"type": "string"},
                    "next": {"$ref": "#/components/schemas/Shot"},
                    "counts": {"type": "object", "additionalProperties": {"type": "integer"}},
                    "last_drift": {"type": "number"},
                    "flushed": {"type": "string", "format": "date-time"},
                    "error": {"type": "string"}
                }
            },
            "ShotsView": {
                "type": "object",
                "properties": {
                    "run_id": {"type": "string"},
                    "flushed": {"type": "string", "format": "date-time"},
                    "count": {"type": "integer"},
                    "shots": {"type": "array", "items": {"$ref": "#/components/schemas/Record"}}
                }
            },
            "Row": {
                "allOf": [
                    {"$ref": "#/components/schemas/Shot"},
                    {
                        "type": "object",
                        "properties": {
                            "from_c2": {"type": "number"},
                            "from_c3": {"type": "number"},
                            "from_prev": {"type": "number"},
                            "speed": {"type": "number"}
                        }
                    }
                ]
            },
            "PlanView": {
                "type": "object",
                "properties": {
                    "mode": {"type": "string", "enum": ["lazy", "precomputed"]},
                    "contacts": {"$ref": "#/components/schemas/Contacts"},
                    "overhead": {"type": "number"},
                    "summary": {
                        "type": "object",
                        "properties": {
                            "shots": {"type": "integer"},
                            "first": {"type": "string", "format": "date-time"},
                            "last": {"type": "string", "format": "date-time"},
                            "per_phase": {"type": "object", "additionalProperties": {"type": "integer"}}
                        }
                    },
                    "rows": {"type": "array", "items": {"$ref": "#/components/schemas/Row"}}
                }
            },
            "Contacts": {
                "type": "object",
                "required": ["c1", "c2", "max", "c3", "c4"],
                "properties": {
                    "c1": {"type": "string", "format": "date-time"},
                    "c2": {"type": "string", "format": "date-time"},
                    "max": {"type": "string", "format": "date-time"},
                    "c3": {"type": "string", "format": "date-time"},
                    "c4": {"type": "string", "format": "date-time"}
                }
            },
            "CyclicFile": {
                "type": "object",
                "properties": {
                    "iso": {"type": "number"},
                    "exposures": {"type": "array", "items": {"type": "string"}, "example": ["1/1250", "1/3500"]},
                    "delta": {"type": "number"}
                }
            },
            "PlanFile": {
                "type": "object",
                "properties": {
                    "mode": {"type": "string", "enum": ["lazy", "precomputed"]},
                    "tolerance": {"type": "string", "example": "100ms"},
                    "overhead": {"type": "string", "example": "3"},
                    "contacts": {"$ref": "#/components/schemas/Contacts"},
                    "partial": {"$ref": "#/components/schemas/CyclicFile"},
                    "beads": {"$ref": "#/components/schemas/CyclicFile"},
                    "diamonds": {"$ref": "#/components/schemas/CyclicFile"},
                    "totality": {
                        "type": "object",
                        "properties": {
                            "min_iso": {"type": "number"},
                            "max_exposure": {"type": "string", "example": "1"},
                            "start_product": {"type": "number"},
                            "end_product": {"type": "number"}
                        }
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Title:            "umbra status API",
	Description:      "Live state of an eclipse shoot, its plan table and audit log",
	InfoInstanceName: "status",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
