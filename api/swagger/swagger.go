package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Class timetable service with scheduling-conflict validation",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetables", "description": "Class timetables and schedule periods"}
    ],
    "paths": {
        "/classes/{id}/schedules": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Add a schedule to a class timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid time or date range, break/lesson rule violation"},
                    "404": {"description": "Class, subject or teacher not found"},
                    "409": {"description": "Class/day overlap or teacher double-booking"}
                }
            }
        },
        "/schedules/{id}": {
            "put": {
                "tags": ["Timetables"],
                "summary": "Edit an existing schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EditScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Schedule not found"},
                    "409": {"description": "Class/day overlap or teacher double-booking"}
                }
            }
        },
        "/schedules/{id}/room": {
            "delete": {
                "tags": ["Timetables"],
                "summary": "Clear the room reference of a schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Schedule not found"}
                }
            }
        },
        "/classes/{id}/timetable": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get the timetable of a class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/timetable/export": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Export the timetable of a class as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "required": false, "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Exported file"},
                    "400": {"description": "Unsupported export format"}
                }
            }
        }
    },
    "definitions": {
        "AddScheduleRequest": {
            "type": "object",
            "required": ["day_of_week", "start_time", "end_time", "period_type"],
            "properties": {
                "day_of_week": {"type": "string", "example": "MONDAY"},
                "start_time": {"type": "string", "example": "09:00:00"},
                "end_time": {"type": "string", "example": "10:00:00"},
                "period_type": {"type": "string", "enum": ["ACADEMICS", "BREAK"]},
                "subject_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "room_id": {"type": "string"},
                "effective_date": {"type": "string", "example": "2026-01-05"},
                "end_date": {"type": "string", "example": "2026-06-30"}
            }
        },
        "EditScheduleRequest": {
            "type": "object",
            "properties": {
                "day_of_week": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "period_type": {"type": "string", "enum": ["ACADEMICS", "BREAK"]},
                "subject_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "room_id": {"type": "string"},
                "effective_date": {"type": "string"},
                "end_date": {"type": "string"},
                "clear_end_date": {"type": "boolean"}
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
