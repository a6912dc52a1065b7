// Package docs holds the OpenAPI description served under /swagger.
// Regenerate with `swag init -g cmd/api/main.go`.
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
        "/health": {"get": {"tags": ["health"], "summary": "Service health", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/escrows": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["escrows"], "summary": "List escrows", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["escrows"], "summary": "Open an escrow for a matched bid", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}, "503": {"description": "Service Unavailable"}}}
        },
        "/escrows/deposit-preview": {"get": {"security": [{"BearerAuth": []}], "tags": ["escrows"], "summary": "Preview the deposit for a bid price", "responses": {"200": {"description": "OK"}}}},
        "/escrows/{ref}": {"get": {"security": [{"BearerAuth": []}], "tags": ["escrows"], "summary": "Escrow by id or code", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/escrows/{ref}/events": {"get": {"security": [{"BearerAuth": []}], "tags": ["escrows"], "summary": "Escrow audit trail", "responses": {"200": {"description": "OK"}}}},
        "/escrows/{ref}/confirm": {"post": {"security": [{"BearerAuth": []}], "tags": ["escrows"], "summary": "Confirm receipt of funds", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/escrows/{ref}/release": {"post": {"security": [{"BearerAuth": []}], "tags": ["escrows"], "summary": "Release part or all of the remaining balance", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}, "422": {"description": "Unprocessable Entity"}}}},
        "/escrows/{ref}/refund": {"post": {"security": [{"BearerAuth": []}], "tags": ["escrows"], "summary": "Refund the remaining balance", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/escrows/{ref}/cancel": {"post": {"security": [{"BearerAuth": []}], "tags": ["escrows"], "summary": "Cancel an unconfirmed escrow", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/escrows/{ref}/dispute": {"post": {"security": [{"BearerAuth": []}], "tags": ["escrows"], "summary": "Open a dispute", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/escrows/{ref}/dispute/resolve": {"post": {"security": [{"BearerAuth": []}], "tags": ["escrows"], "summary": "Resolve a dispute", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/escrows/{ref}/dispute/evidence": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["escrows"], "summary": "Files attached to a dispute", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["escrows"], "summary": "Attach a file to a dispute", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/admin/settings/escrow": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Current escrow deposit policy", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Replace the escrow deposit policy", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/notifications": {"get": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "Notifications of the current user", "responses": {"200": {"description": "OK"}}}},
        "/notifications/{id}/read": {"patch": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "Mark a notification as read", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/notifications/read-all": {"post": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "Mark every notification as read", "responses": {"200": {"description": "OK"}}}},
        "/ws/notifications": {"get": {"tags": ["notifications"], "summary": "Notification stream", "responses": {"101": {"description": "Switching Protocols"}}}},
        "/ws/escrows/{ref}/status": {"get": {"tags": ["escrows"], "summary": "Escrow status stream", "responses": {"101": {"description": "Switching Protocols"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Anh Tho Xay Escrow API",
	Description:      "Escrow settlement for the contractor marketplace",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
