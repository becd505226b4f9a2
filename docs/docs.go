// Package docs registers the OpenAPI document served at /swagger. It mirrors
// the swag annotations on internal/http/handlers; regenerate with
// `swag init -g cmd/server/main.go` after changing them.
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
        "/auth/signup": {"post": {"tags": ["Auth"], "operationId": "signUp", "summary": "Register and sign in",
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CredentialsRequest"}}],
            "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                "400": {"description": "Invalid e-mail or weak password", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                "409": {"description": "E-mail already registered", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}},
        "/auth/signin": {"post": {"tags": ["Auth"], "operationId": "signIn", "summary": "Sign in",
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CredentialsRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                "401": {"description": "Invalid e-mail or password", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}},
        "/auth/signout": {"post": {"tags": ["Auth"], "operationId": "signOut", "summary": "Sign out", "security": [{"BearerAuth": []}],
            "responses": {"204": {"description": "No Content"}, "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}},
        "/auth/session": {"get": {"tags": ["Auth"], "operationId": "getSession", "summary": "Current session state",
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SessionView"}}}}},
        "/codes": {
            "get": {"tags": ["Codes"], "operationId": "listCodes", "summary": "List active codes",
                "parameters": [{"in": "header", "name": "If-None-Match", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListCodesResponse"}}, "304": {"description": "Not Modified"}}},
            "post": {"tags": ["Codes"], "operationId": "publishCode", "summary": "Publish a code", "security": [{"BearerAuth": []}],
                "parameters": [{"in": "header", "name": "Idempotency-Key", "type": "string"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CodeDraftRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.CodeView"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "insufficient_points", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}},
        "/codes/{id}/claim": {"post": {"tags": ["Codes"], "operationId": "claimCode", "summary": "Claim a code", "security": [{"BearerAuth": []}],
            "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ClaimResponse"}},
                "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                "409": {"description": "fully_claimed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}},
        "/me/points": {"get": {"tags": ["Me"], "operationId": "getPoints", "summary": "Current points balance", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PointsResponse"}}}}},
        "/me/ads/watch": {"post": {"tags": ["Me"], "operationId": "watchAd", "summary": "Watch an ad for points", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PointsResponse"}}}}},
        "/updates": {"get": {"tags": ["Updates"], "operationId": "listUpdates", "summary": "List announcements",
            "parameters": [{"in": "query", "name": "page", "type": "integer"}, {"in": "query", "name": "page_size", "type": "integer"}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListUpdatesResponse"}}}}},
        "/events": {"get": {"tags": ["Events"], "operationId": "eventStream", "summary": "Event stream (WebSocket)",
            "parameters": [{"in": "query", "name": "token", "type": "string"}],
            "responses": {"101": {"description": "Switching Protocols"}}}},
        "/admin/codes": {
            "get": {"tags": ["Admin"], "operationId": "adminListCodes", "summary": "List every code", "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handlers.CodeView"}}}}},
            "post": {"tags": ["Admin"], "operationId": "adminAddCode", "summary": "Add a code without spending points", "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CodeDraftRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.CodeView"}}}}},
        "/admin/codes/{id}": {"delete": {"tags": ["Admin"], "operationId": "adminDeleteCode", "summary": "Delete a code", "security": [{"BearerAuth": []}],
            "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}}}}},
        "/admin/codes/purge": {"post": {"tags": ["Admin"], "operationId": "adminPurge", "summary": "Delete expired codes now", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PurgeResponse"}}}}},
        "/admin/updates": {"post": {"tags": ["Admin"], "operationId": "postUpdate", "summary": "Post an announcement", "security": [{"BearerAuth": []}],
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PostUpdateRequest"}}],
            "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Update"}}}}}
    },
    "definitions": {
        "handlers.ErrorResponse": {"type": "object", "properties": {"request_id": {"type": "string"}, "code": {"type": "string"}, "message": {"type": "string"}}},
        "handlers.MessageResponse": {"type": "object", "properties": {"message": {"type": "string"}}},
        "handlers.CredentialsRequest": {"type": "object", "required": ["email", "password"], "properties": {"email": {"type": "string"}, "password": {"type": "string"}}},
        "handlers.SessionView": {"type": "object", "properties": {"authenticated": {"type": "boolean"}, "user_id": {"type": "string"}, "email": {"type": "string"}, "is_admin": {"type": "boolean"}, "expires_at": {"type": "string"}}},
        "handlers.AuthResponse": {"type": "object", "properties": {"token": {"type": "string"}, "session": {"$ref": "#/definitions/handlers.SessionView"}}},
        "handlers.CodeDraftRequest": {"type": "object", "properties": {"code": {"type": "string"}, "coin": {"type": "string"}, "max_claims": {"type": "integer"}, "expiry_date": {"type": "string"}}},
        "handlers.CodeView": {"type": "object", "properties": {"id": {"type": "string"}, "code": {"type": "string"}, "masked": {"type": "boolean"}, "coin": {"type": "string"},
            "max_claims": {"type": "integer"}, "claimed_count": {"type": "integer"}, "remaining": {"type": "integer"}, "fully_claimed": {"type": "boolean"},
            "expiry_date": {"type": "string"}, "published_by": {"type": "string"}, "published_at": {"type": "string"}}},
        "handlers.CodeStatsView": {"type": "object", "properties": {"available": {"type": "integer"}, "total_claims": {"type": "integer"}, "last_published": {"type": "string"}}},
        "handlers.ListCodesResponse": {"type": "object", "properties": {"codes": {"type": "array", "items": {"$ref": "#/definitions/handlers.CodeView"}}, "stats": {"$ref": "#/definitions/handlers.CodeStatsView"}}},
        "handlers.ClaimResponse": {"type": "object", "properties": {"code": {"$ref": "#/definitions/handlers.CodeView"}, "message": {"type": "string"}}},
        "handlers.PointsResponse": {"type": "object", "properties": {"points": {"type": "integer"}, "message": {"type": "string"}}},
        "handlers.PostUpdateRequest": {"type": "object", "required": ["text"], "properties": {"text": {"type": "string"}}},
        "handlers.Pagination": {"type": "object", "properties": {"page": {"type": "integer"}, "page_size": {"type": "integer"}, "total": {"type": "integer"}, "total_pages": {"type": "integer"}, "has_next": {"type": "boolean"}}},
        "handlers.ListUpdatesResponse": {"type": "object", "properties": {"updates": {"type": "array", "items": {"$ref": "#/definitions/domain.Update"}}, "pagination": {"$ref": "#/definitions/handlers.Pagination"}}},
        "handlers.PurgeResponse": {"type": "object", "properties": {"deleted": {"type": "integer"}}},
        "domain.Update": {"type": "object", "properties": {"id": {"type": "string"}, "text": {"type": "string"}, "posted_by": {"type": "string"}, "posted_at": {"type": "string"}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Codeshare API",
	Description:      "Share crypto red-packet codes, earn points by watching ads and claim codes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
