package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tuition Credit API",
        "description": "Enrollment and session-credit ledger for the tuition center",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Orders", "description": "Order completion boundary"},
        {"name": "Enrollments", "description": "Ledger rows"},
        {"name": "Credits", "description": "Student credit summaries and expiry"},
        {"name": "Extensions", "description": "Audited validity extensions"},
        {"name": "Admin", "description": "Operational triggers"}
    ],
    "paths": {
        "/orders/{id}/complete": {
            "post": {
                "tags": ["Orders"],
                "summary": "Convert a confirmed order into ledger rows",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "expired", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/expiring": {
            "get": {
                "tags": ["Credits"],
                "summary": "Enrollments lapsing within the window, soonest first",
                "parameters": [
                    {"name": "days", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Get enrollment detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}/extensions": {
            "get": {
                "tags": ["Extensions"],
                "summary": "Extension audit trail, newest first",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Extensions"],
                "summary": "Extend an enrollment's validity window",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExtendValidityRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/credits": {
            "get": {
                "tags": ["Credits"],
                "summary": "Credit summary grouped by theme, regular and expired",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/credits/valid": {
            "get": {
                "tags": ["Credits"],
                "summary": "Remaining sessions across currently-valid enrollments",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/expiry-sweep": {
            "post": {
                "tags": ["Admin"],
                "summary": "Flag every enrollment whose validity window has closed",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Enrollment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "student_id": {"type": "string"},
                "course_id": {"type": "string"},
                "package_id": {"type": "string"},
                "purchased_sessions": {"type": "integer"},
                "remaining_sessions": {"type": "integer"},
                "bonus_sessions": {"type": "integer"},
                "status": {"type": "string", "enum": ["ACTIVE", "CANCELLED"]},
                "source": {"type": "string", "enum": ["MANUAL", "ONLINE"]},
                "category": {"type": "string", "enum": ["REGULAR", "THEME"]},
                "valid_from": {"type": "string"},
                "valid_until": {"type": "string"},
                "is_expired": {"type": "boolean"},
                "extended_times": {"type": "integer"},
                "last_extended_at": {"type": "string"},
                "last_extended_by": {"type": "string"},
                "notes": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "EnrollmentExtension": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "enrollment_id": {"type": "string"},
                "extended_days": {"type": "integer"},
                "original_expiry": {"type": "string"},
                "new_expiry": {"type": "string"},
                "reason": {"type": "string"},
                "approved_by": {"type": "string"},
                "created_by": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "ExtendValidityRequest": {
            "type": "object",
            "properties": {
                "days": {"type": "integer", "minimum": 1},
                "reason": {"type": "string"},
                "approved_by": {"type": "string"},
                "created_by": {"type": "string"}
            },
            "required": ["days", "reason", "approved_by", "created_by"]
        },
        "ExpiryStatus": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["expired", "expiring", "active"]},
                "remaining_days": {"type": "integer"},
                "label": {"type": "string"}
            }
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
