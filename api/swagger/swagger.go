package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CFMS API",
        "description": "Course folder management: folder lifecycle, review feedback and report generation",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and account maintenance"},
        {"name": "Folders", "description": "Course folder lifecycle"},
        {"name": "Feedback", "description": "Reviewer annotations per folder section"},
        {"name": "Audit", "description": "Audit member assignments and verdicts"},
        {"name": "Deadlines", "description": "Submission deadlines"},
        {"name": "Notifications", "description": "Per-user workflow notifications"},
        {"name": "Reports", "description": "Asynchronous review report generation"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/folders": {
            "get": {
                "tags": ["Folders"],
                "summary": "List folders",
                "parameters": [
                    {"name": "term", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Folders"],
                "summary": "Create course folder",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateFolderRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/folders/{id}": {
            "get": {
                "tags": ["Folders"],
                "summary": "Get folder with editability verdict",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "review", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/folders/{id}/sections/{section}": {
            "put": {
                "tags": ["Folders"],
                "summary": "Buffer a section edit into the autosave session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "section", "in": "path", "required": true, "type": "string"},
                    {"name": "X-Session-Key", "in": "header", "type": "string"}
                ],
                "responses": {
                    "202": {"description": "Buffered"},
                    "403": {"description": "Folder not editable"}
                }
            }
        },
        "/folders/{id}/flush": {
            "post": {
                "tags": ["Folders"],
                "summary": "Force-save buffered edits",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Saved"}
                }
            }
        },
        "/folders/{id}/session": {
            "delete": {
                "tags": ["Folders"],
                "summary": "Close the editing session, flushing buffered edits",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "X-Session-Key", "in": "header", "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Closed"}
                }
            }
        },
        "/folders/{id}/session/hide": {
            "post": {
                "tags": ["Folders"],
                "summary": "Signal that the editing view went hidden",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "X-Session-Key", "in": "header", "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Acknowledged"}
                }
            }
        },
        "/folders/{id}/submit": {
            "post": {
                "tags": ["Folders"],
                "summary": "Submit folder for review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Submitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal transition"}
                }
            }
        },
        "/folders/{id}/decide": {
            "post": {
                "tags": ["Folders"],
                "summary": "Apply a reviewer decision",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecideRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role mismatch"},
                    "409": {"description": "Illegal transition"}
                }
            }
        },
        "/folders/{id}/feedback": {
            "get": {
                "tags": ["Feedback"],
                "summary": "Feedback map for a folder and channel",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "channel", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Feedback"],
                "summary": "Save feedback on a section",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "channel", "in": "query", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveFeedbackRequest"}}
                ],
                "responses": {
                    "200": {"description": "Saved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Channel not writable by role"}
                }
            }
        },
        "/folders/{id}/audit": {
            "post": {
                "tags": ["Audit"],
                "summary": "Assign audit members",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Assigned"}
                }
            }
        },
        "/folders/{id}/audit/decision": {
            "post": {
                "tags": ["Audit"],
                "summary": "Submit an audit verdict",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Recorded"},
                    "409": {"description": "Verdict already submitted"}
                }
            }
        },
        "/deadlines": {
            "get": {
                "tags": ["Deadlines"],
                "summary": "List deadlines of a term",
                "parameters": [
                    {"name": "term", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "put": {
                "tags": ["Deadlines"],
                "summary": "Set a submission deadline",
                "responses": {
                    "200": {"description": "Saved"},
                    "403": {"description": "Privileged roles only"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List my notifications",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/folders/{id}/report": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a review report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "202": {"description": "Queued"}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished report",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateFolderRequest": {
            "type": "object",
            "properties": {
                "course_code": {"type": "string"},
                "course_title": {"type": "string"},
                "section": {"type": "string"},
                "term": {"type": "string"},
                "department": {"type": "string"}
            },
            "required": ["course_code", "course_title", "section", "term", "department"]
        },
        "DecideRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["SUBMIT", "START_REVIEW", "APPROVE", "REJECT", "ASSIGN_AUDIT", "COMPLETE_AUDIT", "COMPLETE"]},
                "notes": {"type": "string"}
            },
            "required": ["action"]
        },
        "SaveFeedbackRequest": {
            "type": "object",
            "properties": {
                "section": {"type": "string"},
                "notes": {"type": "string"}
            },
            "required": ["section"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
