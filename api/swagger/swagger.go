package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Timetable API",
        "description": "Weekly timetable allocation and conflict-detection engine",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetables", "description": "Schedule generation, projections, conflicts and exports"},
        {"name": "Teachers", "description": "Availability checks and weekly-hours loads"},
        {"name": "Slots", "description": "Administrative time-slot edits"}
    ],
    "paths": {
        "/timetables/generate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate a class's weekly timetable",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Class not found"},
                    "412": {"description": "Class has no subject with an approved teacher"}
                }
            }
        },
        "/timetables/class/{classId}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get one class's weekly timetable",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/class/{classId}/export": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Export a class timetable as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "Document bytes"}
                }
            }
        },
        "/timetables/teacher/{teacherId}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get one teacher's slots across all classes",
                "parameters": [
                    {"name": "teacherId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/conflicts": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Detect teacher and classroom double-bookings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{teacherId}/availability": {
            "get": {
                "tags": ["Teachers"],
                "summary": "Check whether a teacher can take on a class",
                "parameters": [
                    {"name": "teacherId", "in": "path", "required": true, "type": "string"},
                    {"name": "classId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{classId}/available-teachers": {
            "get": {
                "tags": ["Teachers"],
                "summary": "List approved teachers with availability for one class",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teacher-loads/{teacherId}": {
            "get": {
                "tags": ["Teachers"],
                "summary": "Get one teacher's weekly-hours aggregate",
                "parameters": [
                    {"name": "teacherId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teacher-loads/sync": {
            "post": {
                "tags": ["Teachers"],
                "summary": "Recompute every teacher's weekly-hours aggregate",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/slots": {
            "post": {
                "tags": ["Slots"],
                "summary": "Place a single time slot administratively",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SlotUpsertRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/slots/{id}": {
            "put": {
                "tags": ["Slots"],
                "summary": "Edit an existing time slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SlotUpsertRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Slots"],
                "summary": "Delete a time slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "classId": {"type": "string"},
                "forceUpdate": {"type": "boolean"},
                "smartMode": {"type": "boolean"}
            },
            "required": ["classId"]
        },
        "SlotUpsertRequest": {
            "type": "object",
            "properties": {
                "scheduleId": {"type": "string"},
                "templateId": {"type": "string"},
                "subjectId": {"type": "string"},
                "classroom": {"type": "string"}
            },
            "required": ["scheduleId", "templateId", "subjectId", "classroom"]
        },
        "GenerationResult": {
            "type": "object",
            "properties": {
                "schedule_id": {"type": "string"},
                "class_id": {"type": "string"},
                "created_slots": {"type": "integer"},
                "teachers_updated": {"type": "integer"},
                "old_slot_count": {"type": "integer"},
                "errors": {"type": "array", "items": {"type": "string"}},
                "updated": {"type": "boolean"}
            }
        },
        "TeacherLoad": {
            "type": "object",
            "properties": {
                "teacher_id": {"type": "string"},
                "weekly_hours": {"type": "number"},
                "max_weekly_hours": {"type": "number"},
                "updated_at": {"type": "string"}
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
