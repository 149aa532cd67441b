// Package docs holds the OpenAPI document served at /swagger. Regenerate with
// swag init -g cmd/api/main.go -o internal/api/docs after changing handler annotations.
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
        "/auth/register": {"post": {"tags": ["Auth"], "summary": "User registration", "responses": {"201": {"description": "User successfully registered"}}}},
        "/auth/login": {"post": {"tags": ["Auth"], "summary": "User login", "responses": {"200": {"description": "Successfully authenticated"}}}},
        "/auth/refresh": {"post": {"tags": ["Auth"], "summary": "Refresh access token", "responses": {"200": {"description": "New tokens generated"}}}},
        "/auth/me": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Get current user", "responses": {"200": {"description": "User information"}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Update profile", "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid request"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Delete account", "responses": {"200": {"description": "OK"}, "401": {"description": "Wrong password"}}}
        },
        "/documents": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Documents"], "summary": "List documents", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Documents"], "summary": "Upload a PDF", "consumes": ["multipart/form-data"], "responses": {"201": {"description": "Created"}, "413": {"description": "File too large"}}}
        },
        "/documents/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Documents"], "summary": "Get a document", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Documents"], "summary": "Delete a document", "responses": {"204": {"description": "No Content"}}}
        },
        "/documents/{id}/retry": {"post": {"security": [{"BearerAuth": []}], "tags": ["Documents"], "summary": "Retry a failed document", "responses": {"200": {"description": "OK"}}}},
        "/documents/{id}/summary": {"get": {"security": [{"BearerAuth": []}], "tags": ["Documents"], "summary": "Get a document summary", "responses": {"200": {"description": "OK"}, "403": {"description": "Denied with the gate reason as code"}}}},
        "/documents/{id}/audio": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Documents"], "summary": "Get a document's audio explanation", "produces": ["audio/mpeg"], "responses": {"200": {"description": "OK"}, "403": {"description": "Denied with the gate reason as code"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Documents"], "summary": "Request an audio explanation", "responses": {"202": {"description": "Accepted"}, "403": {"description": "Denied with the gate reason as code"}}}
        },
        "/documents/{id}/entitlements": {"get": {"security": [{"BearerAuth": []}], "tags": ["Documents"], "summary": "Get entitlements for a document", "responses": {"200": {"description": "OK"}}}},
        "/subscription": {"get": {"security": [{"BearerAuth": []}], "tags": ["Subscription"], "summary": "Get subscription", "responses": {"200": {"description": "OK"}}}},
        "/subscription/trial": {"post": {"security": [{"BearerAuth": []}], "tags": ["Subscription"], "summary": "Start free trial", "responses": {"200": {"description": "OK"}, "409": {"description": "Trial already used"}}}},
        "/subscription/cancel": {"post": {"security": [{"BearerAuth": []}], "tags": ["Subscription"], "summary": "Cancel subscription", "responses": {"200": {"description": "OK"}, "409": {"description": "Not active"}}}},
        "/billing/plans": {"get": {"tags": ["Billing"], "summary": "List plans", "responses": {"200": {"description": "OK"}}}},
        "/billing/webhook": {"post": {"tags": ["Billing"], "summary": "Payment webhook", "responses": {"200": {"description": "OK"}, "401": {"description": "Bad signature"}}}},
        "/admin/stats/users": {"get": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "User statistics", "responses": {"200": {"description": "OK"}}}},
        "/admin/stats/revenue": {"get": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "Revenue statistics", "responses": {"200": {"description": "OK"}}}},
        "/admin/stats/revenue/monthly": {"get": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "Monthly revenue", "responses": {"200": {"description": "OK"}, "400": {"description": "Malformed month"}}}},
        "/admin/users": {"get": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "List users", "responses": {"200": {"description": "OK"}, "400": {"description": "Unknown status"}}}},
        "/admin/payments": {"get": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "List payments", "responses": {"200": {"description": "OK"}}}},
        "/admin/stats/growth": {"get": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "Subscription growth", "responses": {"200": {"description": "OK"}}}},
        "/admin/users/{id}": {"delete": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "Delete a user", "responses": {"200": {"description": "OK"}, "400": {"description": "Own account"}, "404": {"description": "User not found"}}}},
        "/admin/users/{id}/payments": {"get": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "List a user's payments", "responses": {"200": {"description": "OK"}, "404": {"description": "User not found"}}}},
        "/admin/users/{id}/subscription/activate": {"post": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "Activate a subscription", "responses": {"200": {"description": "OK"}, "400": {"description": "Unknown plan"}, "404": {"description": "User not found"}}}},
        "/admin/users/{id}/subscription/deactivate": {"post": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "Deactivate a subscription", "responses": {"200": {"description": "OK"}, "409": {"description": "Not active"}}}},
        "/admin/users/{id}/subscription/bonus": {"post": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "Grant bonus days", "responses": {"200": {"description": "OK"}, "422": {"description": "Free or expired subscription"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "MindSpero API",
	Description:      "PDF summaries and audio explanations for students, gated by subscription tier.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
