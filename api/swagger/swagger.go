package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Daily Scheduler API",
        "description": "Daily class scheduling with teacher substitution",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Daily Schedule", "description": "Generate, store and read day timetables"},
        {"name": "Operations", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/schedules/daily/generate": {
            "post": {
                "tags": ["Daily Schedule"],
                "summary": "Generate and store the schedule of one date",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/GenerateDayRequest"}}
                ],
                "responses": {
                    "200": {"description": "Stored day", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Persistence failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/daily/generate-week": {
            "post": {
                "tags": ["Daily Schedule"],
                "summary": "Generate and store consecutive working days",
                "description": "Weekends are skipped. Without atomic, a date that fails to store is reported and the rest continue.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/GenerateWeekRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-day results and stats", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/daily/runs": {
            "post": {
                "tags": ["Daily Schedule"],
                "summary": "Queue a background multi-day generation",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/StartRunRequest"}}
                ],
                "responses": {
                    "202": {"description": "Run queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Runner unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/daily/runs/{id}": {
            "get": {
                "tags": ["Daily Schedule"],
                "summary": "Get background run status",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Run status", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown or expired run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Daily Schedule"],
                "summary": "Cancel a background run",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Cancellation accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Run already finished", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/daily/stats": {
            "get": {
                "tags": ["Daily Schedule"],
                "summary": "Substitution statistics over stored dates",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "from", "required": true, "type": "string", "format": "date"},
                    {"in": "query", "name": "to", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "Per-day and total substitution counts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/daily/teachers/{teacherId}": {
            "get": {
                "tags": ["Daily Schedule"],
                "summary": "What a teacher teaches over a date range",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "teacherId", "required": true, "type": "string"},
                    {"in": "query", "name": "from", "required": true, "type": "string", "format": "date"},
                    {"in": "query", "name": "to", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "Stored rows", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/daily/{date}": {
            "get": {
                "tags": ["Daily Schedule"],
                "summary": "Stored schedule of a date",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "date", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "Rows in time order", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Nothing stored for the date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/daily/{date}/export": {
            "get": {
                "tags": ["Daily Schedule"],
                "summary": "Download the stored schedule of a date",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "path", "name": "date", "required": true, "type": "string", "format": "date"},
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "Timetable document", "schema": {"type": "file"}},
                    "404": {"description": "Nothing stored for the date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/daily/{date}/status": {
            "patch": {
                "tags": ["Daily Schedule"],
                "summary": "Mark the stored rows of a date as scheduled, completed or cancelled",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "date", "required": true, "type": "string", "format": "date"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/UpdateDayStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "Rows updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Nothing stored for the date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{teacherId}/preferences": {
            "get": {
                "tags": ["Teacher Availability"],
                "summary": "Get teacher scheduling preferences",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "teacherId", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Stored or default preferences", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown teacher", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Teacher Availability"],
                "summary": "Replace teacher scheduling preferences",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "teacherId", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/UpsertPreferenceRequest"}}
                ],
                "responses": {
                    "200": {"description": "Stored preferences", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid window", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{teacherId}/leaves": {
            "get": {
                "tags": ["Teacher Availability"],
                "summary": "Leaves of a teacher overlapping a date range",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "teacherId", "required": true, "type": "string"},
                    {"in": "query", "name": "from", "required": true, "type": "string", "format": "date"},
                    {"in": "query", "name": "to", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "Leaves", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Teacher Availability"],
                "summary": "Record an approved teacher leave",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "teacherId", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateLeaveRequest"}}
                ],
                "responses": {
                    "201": {"description": "Leave recorded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Operations"],
                "summary": "JSON snapshot of scheduler and HTTP metrics",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "GenerateDayRequest": {
            "type": "object",
            "required": ["date"],
            "properties": {
                "date": {"type": "string", "format": "date", "example": "2025-09-29"}
            }
        },
        "GenerateWeekRequest": {
            "type": "object",
            "required": ["startDate"],
            "properties": {
                "startDate": {"type": "string", "format": "date"},
                "days": {"type": "integer", "minimum": 1, "maximum": 31, "default": 7},
                "atomic": {"type": "boolean"}
            }
        },
        "StartRunRequest": {
            "type": "object",
            "required": ["startDate", "days"],
            "properties": {
                "startDate": {"type": "string", "format": "date"},
                "days": {"type": "integer", "minimum": 1, "maximum": 62}
            }
        },
        "UpsertPreferenceRequest": {
            "type": "object",
            "properties": {
                "max_load_per_day": {"type": "integer", "minimum": 0, "maximum": 12},
                "unavailable": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "day_of_week": {"type": "string", "example": "MONDAY"},
                            "time_range": {"type": "string", "example": "1-3"}
                        }
                    }
                }
            }
        },
        "UpdateDayStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["scheduled", "completed", "cancelled"]}
            }
        },
        "CreateLeaveRequest": {
            "type": "object",
            "required": ["start_date", "end_date"],
            "properties": {
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"},
                "reason": {"type": "string"}
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
