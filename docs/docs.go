// Package docs registers the OpenAPI document served by echo-swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["meta"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.HealthzResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["meta"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ReadyzResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/http.APIError"}}
                }
            }
        },
        "/v1/passes": {
            "post": {
                "security": [{"AdminBearer": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["passes"],
                "summary": "Create or rebuild a pass from a template package",
                "parameters": [
                    {"type": "file", "description": "Template package (zip with pass.json, images, localizations)", "name": "template", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.CreatePassResponse"}},
                    "304": {"description": "Content unchanged"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.APIError"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.APIError"}}
                }
            }
        },
        "/v1/passes/{passTypeId}/{serialNumber}": {
            "get": {
                "produces": ["application/vnd.apple.pkpass"],
                "tags": ["passes"],
                "summary": "Download the latest pass bundle",
                "parameters": [
                    {"type": "string", "description": "Pass type identifier", "name": "passTypeId", "in": "path", "required": true},
                    {"type": "string", "description": "Serial number", "name": "serialNumber", "in": "path", "required": true},
                    {"type": "string", "description": "Token when no Authorization header is sent", "name": "authenticationToken", "in": "query"},
                    {"type": "string", "description": "ApplePass <token>", "name": "Authorization", "in": "header"},
                    {"type": "string", "description": "HTTP date or RFC 3339", "name": "If-Modified-Since", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "304": {"description": "Not modified"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.APIError"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.APIError"}}
                }
            },
            "put": {
                "security": [{"AdminBearer": []}],
                "description": "Every call replaces all three fields; omitted fields are cleared.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["passes"],
                "summary": "Update barcode and expiration date",
                "parameters": [
                    {"type": "string", "description": "Pass type identifier", "name": "passTypeId", "in": "path", "required": true},
                    {"type": "string", "description": "Serial number", "name": "serialNumber", "in": "path", "required": true},
                    {"description": "Mutable fields", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.UpdatePassRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.UpdatePassResponse"}},
                    "304": {"description": "Content unchanged"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.APIError"}}
                }
            }
        },
        "/v1/devices/{deviceLibraryIdentifier}/registrations/{passTypeId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Serial numbers updated since a tag",
                "parameters": [
                    {"type": "string", "description": "Device library identifier", "name": "deviceLibraryIdentifier", "in": "path", "required": true},
                    {"type": "string", "description": "Pass type identifier", "name": "passTypeId", "in": "path", "required": true},
                    {"type": "string", "description": "lastUpdated tag of a previous response", "name": "passesUpdatedSince", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SerialNumbersResponse"}},
                    "204": {"description": "No matching passes"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.APIError"}}
                }
            }
        },
        "/v1/devices/{deviceLibraryIdentifier}/registrations/{passTypeId}/{serialNumber}": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Register a device for pass updates",
                "parameters": [
                    {"type": "string", "description": "Device library identifier", "name": "deviceLibraryIdentifier", "in": "path", "required": true},
                    {"type": "string", "description": "Pass type identifier", "name": "passTypeId", "in": "path", "required": true},
                    {"type": "string", "description": "Serial number", "name": "serialNumber", "in": "path", "required": true},
                    {"type": "string", "description": "ApplePass <token>", "name": "Authorization", "in": "header", "required": true},
                    {"description": "Push token", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.RegisterDeviceRequest"}}
                ],
                "responses": {
                    "200": {"description": "Already registered"},
                    "201": {"description": "Registered"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.APIError"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.APIError"}}
                }
            },
            "delete": {
                "tags": ["devices"],
                "summary": "Unregister a device",
                "parameters": [
                    {"type": "string", "description": "Device library identifier", "name": "deviceLibraryIdentifier", "in": "path", "required": true},
                    {"type": "string", "description": "Pass type identifier", "name": "passTypeId", "in": "path", "required": true},
                    {"type": "string", "description": "Serial number", "name": "serialNumber", "in": "path", "required": true},
                    {"type": "string", "description": "ApplePass <token>", "name": "Authorization", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "Unregistered"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.APIError"}}
                }
            }
        },
        "/v1/log": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["devices"],
                "summary": "Device diagnostics",
                "parameters": [
                    {"description": "Log messages", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.LogRequest"}}
                ],
                "responses": {
                    "200": {"description": "Recorded"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.APIError"}}
                }
            }
        }
    },
    "definitions": {
        "dto.CreatePassResponse": {
            "type": "object",
            "properties": {
                "authenticationToken": {"type": "string"},
                "passTypeIdentifier": {"type": "string"},
                "passURL": {"type": "string"},
                "serialNumber": {"type": "string"}
            }
        },
        "dto.LogRequest": {
            "type": "object",
            "properties": {
                "logs": {"type": "array", "items": {"type": "string"}}
            }
        },
        "dto.RegisterDeviceRequest": {
            "type": "object",
            "properties": {
                "pushToken": {"type": "string"}
            }
        },
        "dto.SerialNumbersResponse": {
            "type": "object",
            "properties": {
                "lastUpdated": {"type": "string"},
                "serialNumbers": {"type": "array", "items": {"type": "string"}}
            }
        },
        "dto.UpdatePassRequest": {
            "type": "object",
            "properties": {
                "barcodeAltText": {"type": "string"},
                "barcodeMessage": {"type": "string"},
                "expirationDate": {"type": "string"}
            }
        },
        "dto.UpdatePassResponse": {
            "type": "object",
            "properties": {
                "passTypeIdentifier": {"type": "string"},
                "serialNumber": {"type": "string"}
            }
        },
        "http.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {},
                "message": {"type": "string"}
            }
        },
        "http.HealthzResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"}
            }
        },
        "http.ReadyzResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "AdminBearer": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "pass-service API",
	Description:      "Issues, updates and serves signed wallet passes and notifies registered devices.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
