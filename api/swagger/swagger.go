package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Task Manager API",
        "description": "Token-based authentication and per-user task management",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Authentication", "description": "Registration, token issuance and revocation"},
        {"name": "Tasks", "description": "Per-user task management"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Token registry unreachable"}
                }
            }
        },
        "/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a new user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "200": {"description": "User created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure or duplicate email"},
                    "429": {"description": "Rate limited"}
                }
            }
        },
        "/token": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Obtain an access token",
                "consumes": ["application/x-www-form-urlencoded"],
                "parameters": [
                    {"name": "username", "in": "formData", "required": true, "type": "string"},
                    {"name": "password", "in": "formData", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Token pair", "schema": {"$ref": "#/definitions/TokenResponse"}},
                    "401": {"description": "Invalid credentials"},
                    "429": {"description": "Rate limited"}
                }
            }
        },
        "/token/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh an access token",
                "parameters": [
                    {"name": "user_id", "in": "query", "required": true, "type": "string"},
                    {"name": "refresh_token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "New access token", "schema": {"$ref": "#/definitions/RefreshResponse"}},
                    "401": {"description": "Invalid credentials"},
                    "429": {"description": "Rate limited"}
                }
            }
        },
        "/token/revoke": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke an access token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Revoked"},
                    "401": {"description": "Invalid token"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Current user"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Logged out"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/tasks/": {
            "get": {
                "tags": ["Tasks"],
                "summary": "List tasks",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "skip", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "is_completed", "in": "query", "type": "boolean"},
                    {"name": "sort_by", "in": "query", "type": "string"},
                    {"name": "sort_order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Task list", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"},
                    "429": {"description": "Rate limited"}
                }
            },
            "post": {
                "tags": ["Tasks"],
                "summary": "Create a task",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTaskRequest"}}
                ],
                "responses": {
                    "200": {"description": "Created task", "schema": {"$ref": "#/definitions/Task"}},
                    "401": {"description": "Invalid credentials"},
                    "429": {"description": "Rate limited"}
                }
            }
        },
        "/tasks/{id}": {
            "put": {
                "tags": ["Tasks"],
                "summary": "Update a task",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateTaskRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated task", "schema": {"$ref": "#/definitions/Task"}},
                    "401": {"description": "Invalid credentials"},
                    "404": {"description": "Task not found"}
                }
            },
            "delete": {
                "tags": ["Tasks"],
                "summary": "Delete a task",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Deleted"},
                    "401": {"description": "Invalid credentials"},
                    "404": {"description": "Task not found"}
                }
            }
        },
        "/tasks/export": {
            "get": {
                "tags": ["Tasks"],
                "summary": "Export tasks",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Exported file"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 6, "maxLength": 64}
            }
        },
        "TokenResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "token_type": {"type": "string"},
                "expires_in": {"type": "integer"}
            }
        },
        "RefreshResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "token_type": {"type": "string"},
                "expires_in": {"type": "integer"}
            }
        },
        "CreateTaskRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "title": {"type": "string", "maxLength": 200},
                "description": {"type": "string", "maxLength": 2000},
                "is_completed": {"type": "boolean"}
            }
        },
        "UpdateTaskRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "is_completed": {"type": "boolean"}
            }
        },
        "Task": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "is_completed": {"type": "boolean"},
                "owner_id": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
