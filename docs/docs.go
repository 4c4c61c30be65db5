// Package docs registers the OpenAPI document served under /swagger.
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/battles": {
            "get": {"tags": ["Battles"], "summary": "List battles", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Battles"], "summary": "Create battle", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}
        },
        "/battles/{battleId}": {
            "get": {"tags": ["Battles"], "summary": "Get battle", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/battles/{battleId}/accept": {
            "post": {"tags": ["Battles"], "summary": "Accept battle", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "409": {"description": "Conflict"}, "410": {"description": "Gone"}}}
        },
        "/battles/{battleId}/cancel": {
            "post": {"tags": ["Battles"], "summary": "Cancel battle", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "409": {"description": "Conflict"}}}
        },
        "/battles/{battleId}/votes": {
            "post": {"tags": ["Votes"], "summary": "Vote", "responses": {"201": {"description": "Created"}, "402": {"description": "Payment Required"}, "409": {"description": "Conflict"}, "410": {"description": "Gone"}}}
        },
        "/battles/{battleId}/votes/me": {
            "get": {"tags": ["Votes"], "summary": "My vote", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/battles/{battleId}/gifts": {
            "get": {"tags": ["Gifts"], "summary": "Gift total", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Gifts"], "summary": "Gift flames", "responses": {"201": {"description": "Created"}, "402": {"description": "Payment Required"}, "409": {"description": "Conflict"}}}
        },
        "/battles/{battleId}/settle": {
            "post": {"tags": ["Settlement"], "summary": "Settle battle", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/battles/{battleId}/invites": {
            "post": {"tags": ["Invites"], "summary": "Create invite", "responses": {"201": {"description": "Created"}, "403": {"description": "Forbidden"}}}
        },
        "/invites/{code}": {
            "get": {"tags": ["Invites"], "summary": "Resolve invite", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/accounts/me": {
            "post": {"tags": ["Accounts"], "summary": "Open account", "responses": {"200": {"description": "OK"}}}
        },
        "/accounts/me/balance": {
            "get": {"tags": ["Accounts"], "summary": "Balance", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/accounts/me/ledger": {
            "get": {"tags": ["Accounts"], "summary": "Ledger history", "responses": {"200": {"description": "OK"}}}
        },
        "/accounts/me/reconcile": {
            "get": {"tags": ["Accounts"], "summary": "Reconcile", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/sweep": {
            "post": {"tags": ["Admin"], "summary": "Run settlement sweep", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/admin/battles/{battleId}/consistency": {
            "get": {"tags": ["Admin"], "summary": "Check vote tally", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}
        },
        "/admin/accounts/{accountId}/grant": {
            "post": {"tags": ["Admin"], "summary": "Grant flames", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Beat Battle API",
	Description:      "Battle lifecycle and flame economy",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
