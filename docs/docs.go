// Package docs registers the OpenAPI description of the HTTP API with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "produces": ["application/json"],
                "summary": "Service greeting",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/nearby": {
            "get": {
                "produces": ["application/json"],
                "summary": "Facilities near a point",
                "parameters": [
                    {"type": "number", "name": "latitude", "in": "query", "description": "Latitude (alias lat)"},
                    {"type": "number", "name": "longitude", "in": "query", "description": "Longitude (alias lon)"},
                    {"type": "number", "name": "radius", "in": "query", "required": true, "description": "Search radius in miles"},
                    {"type": "string", "name": "feature", "in": "query", "description": "Category name or all"},
                    {"type": "integer", "name": "limit", "in": "query", "description": "Results per category"},
                    {"type": "string", "name": "q", "in": "query", "description": "Natural language search"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/facilities.Response"}},
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/facilities.Response"}},
                    "502": {"description": "Upstream failure", "schema": {"$ref": "#/definitions/facilities.Response"}}
                }
            }
        },
        "/events": {
            "get": {
                "produces": ["application/json"],
                "summary": "Current aid events",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/events.Snapshot"}}}
            }
        },
        "/events/extract": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Extract an event from page text",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.ExtractRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/events.Extraction"}},
                    "400": {"description": "Bad request"},
                    "502": {"description": "Chat backend failure"}
                }
            }
        },
        "/agent": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Run the scraping agent",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.AgentRequest"}}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad request"},
                    "502": {"description": "Chat backend failure"}
                }
            }
        },
        "/agent/tools": {
            "get": {
                "produces": ["application/json"],
                "summary": "Tool declarations offered to the model",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/agent/ws": {
            "get": {
                "summary": "Websocket agent session",
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        }
    },
    "definitions": {
        "facilities.Facility": {
            "type": "object",
            "properties": {
                "osm_type": {"type": "string"},
                "osm_id": {"type": "integer"},
                "name": {"type": "string"},
                "feature_type": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "distance": {"type": "number"},
                "address": {"type": "string"}
            }
        },
        "facilities.Response": {
            "type": "object",
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "radius": {"type": "number"},
                "radius_miles": {"type": "number"},
                "feature": {"type": "string"},
                "q": {"type": "string"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/facilities.Facility"}},
                "error": {"type": "string"},
                "detail": {"type": "string"}
            }
        },
        "events.Event": {
            "type": "object",
            "properties": {
                "Name": {"type": "string"},
                "Date": {"type": "string"},
                "Summary": {"type": "string"},
                "Address": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "source_url": {"type": "string"}
            }
        },
        "events.Extraction": {
            "type": "object",
            "properties": {
                "event": {"$ref": "#/definitions/events.Event"},
                "reasoning": {"type": "string"}
            }
        },
        "events.Snapshot": {
            "type": "object",
            "properties": {
                "events": {"type": "array", "items": {"$ref": "#/definitions/events.Event"}},
                "updated_at": {"type": "string"},
                "fallback": {"type": "boolean"}
            }
        },
        "api.ExtractRequest": {
            "type": "object",
            "properties": {"text": {"type": "string"}}
        },
        "api.AgentRequest": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "history": {"type": "array", "items": {"type": "object"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Kind-To-Homeless API",
	Description:      "Nearby facilities, aid events and the page-scraping agent.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
