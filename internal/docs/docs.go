// Package docs registers the OpenAPI description of the posts and replies API
// with swag so it can be served by the swagger UI handler.
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
        "/posts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "List post summaries, newest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.PostSummary"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Create a post",
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/server.createPostRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Post"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/full": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "List posts with their replies attached, replies oldest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Post"}}}
                }
            }
        },
        "/posts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Get a post with its replies",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Post"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Update the title or message of a post",
                "parameters": [
                    {"$ref": "#/parameters/id"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/server.updatePostRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Post"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Delete a post and all of its replies",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.deleteResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}/replies": {
            "get": {
                "produces": ["application/json"],
                "tags": ["replies"],
                "summary": "List the replies of a post, oldest first",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Reply"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["replies"],
                "summary": "Create a reply under the post",
                "parameters": [
                    {"$ref": "#/parameters/id"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/server.createReplyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Reply"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/replies": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["replies"],
                "summary": "Create a reply under the post named by post_id",
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/server.createReplyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Reply"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/replies/{id}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["replies"],
                "summary": "Update the message of a reply",
                "parameters": [
                    {"$ref": "#/parameters/id"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/server.updateReplyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Reply"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["replies"],
                "summary": "Delete a reply",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.deleteResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "parameters": {
        "id": {"type": "string", "description": "Resource ID", "name": "id", "in": "path", "required": true}
    },
    "definitions": {
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "models.PostSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "models.Post": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "user": {"type": "string"},
                "role": {"type": "string"},
                "message": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"},
                "replies": {"type": "array", "items": {"$ref": "#/definitions/models.Reply"}}
            }
        },
        "models.Reply": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "post_id": {"type": "string"},
                "user": {"type": "string"},
                "role": {"type": "string"},
                "message": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "server.createPostRequest": {
            "type": "object",
            "required": ["user", "role", "message"],
            "properties": {
                "title": {"type": "string"},
                "user": {"type": "string"},
                "role": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "server.updatePostRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string", "description": "blank clears the title"},
                "message": {"type": "string"}
            }
        },
        "server.createReplyRequest": {
            "type": "object",
            "required": ["user", "role", "message"],
            "properties": {
                "post_id": {"type": "string", "description": "required on /replies"},
                "user": {"type": "string"},
                "role": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "server.updateReplyRequest": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "server.deleteResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Teams Emulator API",
	Description:      "Posts and threaded replies for workflow demos.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
