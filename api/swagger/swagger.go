package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Student Portal Drive API",
        "description": "Hierarchical file/folder drive with trash, restore, and retention sweeping",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Folders", "description": "Folder tree management"},
        {"name": "Files", "description": "File upload, download, and metadata"},
        {"name": "Drive", "description": "Batch moves, usage stats, and change events"},
        {"name": "Trash", "description": "Soft-deleted items, restore, and purge"}
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
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/drive/folders": {
            "get": {
                "tags": ["Folders"],
                "summary": "List live folders under a parent",
                "parameters": [
                    {"name": "parentId", "in": "query", "type": "string"},
                    {"name": "ownerId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Folders"],
                "summary": "Create folder",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateFolderRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Duplicate sibling name or invalid payload"}
                }
            }
        },
        "/drive/folders/{id}": {
            "patch": {
                "tags": ["Folders"],
                "summary": "Rename folder",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RenameRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Folders"],
                "summary": "Move folder and its contents to the trash",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Already in the trash"}
                }
            }
        },
        "/drive/folders/{id}/breadcrumbs": {
            "get": {
                "tags": ["Folders"],
                "summary": "Resolve the ancestor chain, root first",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/drive/files": {
            "get": {
                "tags": ["Files"],
                "summary": "List live files in a folder",
                "parameters": [
                    {"name": "folderId", "in": "query", "type": "string"},
                    {"name": "ownerId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Files"],
                "summary": "Upload a file",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"},
                    {"name": "name", "in": "formData", "type": "string"},
                    {"name": "folderId", "in": "formData", "type": "string"},
                    {"name": "description", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/drive/files/{id}": {
            "patch": {
                "tags": ["Files"],
                "summary": "Rename a file or update its description",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateFileRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Files"],
                "summary": "Move a file to the trash",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Already in the trash"}
                }
            }
        },
        "/drive/files/{id}/download": {
            "get": {
                "tags": ["Files"],
                "summary": "Download file content",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File content"}
                }
            }
        },
        "/drive/move": {
            "post": {
                "tags": ["Drive"],
                "summary": "Move a batch of items to a destination folder",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MoveRequest"}}
                ],
                "responses": {
                    "200": {"description": "Partial-success move result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/drive/stats": {
            "get": {
                "tags": ["Drive"],
                "summary": "Per-owner drive usage counters",
                "parameters": [
                    {"name": "ownerId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/drive/events": {
            "get": {
                "tags": ["Drive"],
                "summary": "Stream drive change events (SSE)",
                "produces": ["text/event-stream"],
                "responses": {
                    "200": {"description": "Event stream"}
                }
            }
        },
        "/drive/trash": {
            "get": {
                "tags": ["Trash"],
                "summary": "List trashed items, most recently deleted first",
                "parameters": [
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "kind", "in": "query", "type": "string", "enum": ["FOLDER", "FILE"]},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"},
                    {"name": "ownerId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Trash"],
                "summary": "Permanently delete everything in the trash",
                "description": "Irreversible. Requires the X-Confirm-Empty-Trash header set to \"permanently delete\".",
                "parameters": [
                    {"name": "X-Confirm-Empty-Trash", "in": "header", "required": true, "type": "string"},
                    {"name": "ownerId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Purge count", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing confirmation header"}
                }
            }
        },
        "/drive/trash/{id}": {
            "delete": {
                "tags": ["Trash"],
                "summary": "Permanently delete one trashed item (staff only)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "kind", "in": "query", "required": true, "type": "string", "enum": ["FOLDER", "FILE"]}
                ],
                "responses": {
                    "200": {"description": "Purge count", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Staff only"}
                }
            }
        },
        "/drive/trash/{id}/restore": {
            "post": {
                "tags": ["Trash"],
                "summary": "Restore one trashed item to its original location",
                "description": "Falls back to the root level when the original parent no longer exists or is itself trashed.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RestoreRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not in the trash"}
                }
            }
        },
        "/drive/trash/folders/{id}/restore": {
            "post": {
                "tags": ["Trash"],
                "summary": "Restore a trashed folder together with its trashed contents",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Restore count", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/drive/trash/export": {
            "get": {
                "tags": ["Trash"],
                "summary": "Export the trash listing as a CSV or PDF report",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "ownerId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Report file"},
                    "403": {"description": "Staff only"}
                }
            }
        }
    },
    "definitions": {
        "Folder": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "parentId": {"type": "string"},
                "ownerId": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"},
                "deletedAt": {"type": "string"},
                "deletedBy": {"type": "string"},
                "originalParentId": {"type": "string"}
            }
        },
        "File": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "contentType": {"type": "string"},
                "folderId": {"type": "string"},
                "ownerId": {"type": "string"},
                "uploaderId": {"type": "string"},
                "description": {"type": "string"},
                "sizeBytes": {"type": "integer"},
                "uploadedAt": {"type": "string"},
                "deletedAt": {"type": "string"}
            }
        },
        "Breadcrumb": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "deleted": {"type": "boolean"}
            }
        },
        "TrashEntry": {
            "type": "object",
            "properties": {
                "kind": {"type": "string"},
                "id": {"type": "string"},
                "name": {"type": "string"},
                "ownerId": {"type": "string"},
                "deletedAt": {"type": "string"},
                "deletedBy": {"type": "string"},
                "originalParentId": {"type": "string"},
                "sizeBytes": {"type": "integer"},
                "originalPath": {"type": "string"},
                "expiresAt": {"type": "string"}
            }
        },
        "CreateFolderRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "parentId": {"type": "string"},
                "ownerId": {"type": "string"}
            },
            "required": ["name"]
        },
        "RenameRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"}
            },
            "required": ["name"]
        },
        "UpdateFileRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "MoveRequest": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ItemRef"}
                },
                "destinationId": {"type": "string"}
            },
            "required": ["items"]
        },
        "ItemRef": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string", "enum": ["FOLDER", "FILE"]}
            }
        },
        "RestoreRequest": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["FOLDER", "FILE"]}
            },
            "required": ["kind"]
        },
        "MoveResult": {
            "type": "object",
            "properties": {
                "moved": {"type": "integer"},
                "failures": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/MoveFailure"}
                }
            }
        },
        "MoveFailure": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "DriveStats": {
            "type": "object",
            "properties": {
                "ownerId": {"type": "string"},
                "liveFolders": {"type": "integer"},
                "liveFiles": {"type": "integer"},
                "trashedItems": {"type": "integer"},
                "totalBytes": {"type": "integer"}
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
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"type": "object"},
                "meta": {"type": "object"}
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
