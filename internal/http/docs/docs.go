// Package docs holds the OpenAPI description served by the Swagger UI.
//
// Regenerate from the handler annotations with:
//
//	swag init -g internal/http/router.go -o internal/http/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "basePath": "{{.BasePath}}",
    "definitions": {
        "handlers.AcceptRequestBody": {
            "properties": {
                "donor_id": {
                    "example": "donor-9",
                    "type": "string"
                }
            },
            "required": [
                "donor_id"
            ],
            "type": "object"
        },
        "handlers.ErrorResponse": {
            "properties": {
                "code": {
                    "example": "not_found",
                    "type": "string"
                },
                "message": {
                    "example": "search not found",
                    "type": "string"
                },
                "request_id": {
                    "example": "123e4567-e89b-12d3-a456-426614174000",
                    "type": "string"
                }
            },
            "type": "object"
        },
        "handlers.ListSearchesResponse": {
            "properties": {
                "pagination": {
                    "$ref": "#/definitions/handlers.Pagination"
                },
                "searches": {
                    "items": {
                        "$ref": "#/definitions/handlers.SearchView"
                    },
                    "type": "array"
                }
            },
            "type": "object"
        },
        "handlers.Pagination": {
            "properties": {
                "has_next": {
                    "type": "boolean"
                },
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total": {
                    "type": "integer"
                },
                "total_pages": {
                    "type": "integer"
                }
            },
            "type": "object"
        },
        "handlers.PutLocationBody": {
            "properties": {
                "blood_group": {
                    "example": "A+",
                    "type": "string"
                },
                "city": {
                    "example": "dhaka",
                    "type": "string"
                },
                "geohash": {
                    "example": "wh0r35qx",
                    "type": "string"
                }
            },
            "required": [
                "blood_group",
                "city",
                "geohash"
            ],
            "type": "object"
        },
        "handlers.PutRequestBody": {
            "properties": {
                "blood_quantity": {
                    "example": 2,
                    "minimum": 1,
                    "type": "integer"
                },
                "city": {
                    "example": "dhaka",
                    "type": "string"
                },
                "contact_number": {
                    "example": "+8801700000000",
                    "type": "string"
                },
                "donation_date_time": {
                    "example": "2026-05-01T09:00:00Z",
                    "type": "string"
                },
                "geohash": {
                    "example": "wh0r35qr",
                    "type": "string"
                },
                "location": {
                    "example": "Dhaka Medical College",
                    "type": "string"
                },
                "patient_name": {
                    "example": "R. Karim",
                    "type": "string"
                },
                "requested_blood_group": {
                    "example": "O-",
                    "type": "string"
                },
                "short_description": {
                    "example": "Surgery on Friday",
                    "type": "string"
                },
                "status": {
                    "example": "PENDING",
                    "type": "string"
                },
                "urgency_level": {
                    "example": "URGENT",
                    "type": "string"
                }
            },
            "required": [
                "blood_quantity",
                "city",
                "donation_date_time",
                "geohash",
                "requested_blood_group",
                "urgency_level"
            ],
            "type": "object"
        },
        "handlers.PutRequestResponse": {
            "properties": {
                "created": {
                    "type": "boolean"
                }
            },
            "type": "object"
        },
        "handlers.ReadyResponse": {
            "properties": {
                "queue": {
                    "$ref": "#/definitions/repo.QueueStats"
                },
                "status": {
                    "example": "ready",
                    "type": "string"
                }
            },
            "type": "object"
        },
        "handlers.SearchView": {
            "properties": {
                "blood_quantity": {
                    "example": 2,
                    "type": "integer"
                },
                "city": {
                    "example": "dhaka",
                    "type": "string"
                },
                "created_at": {
                    "example": 1767225600,
                    "type": "integer"
                },
                "donation_date_time": {
                    "type": "string"
                },
                "geohash": {
                    "example": "wh0r35qr",
                    "type": "string"
                },
                "notified_count": {
                    "example": 12,
                    "type": "integer"
                },
                "notified_donors": {
                    "items": {
                        "$ref": "#/definitions/services.NotifiedDonor"
                    },
                    "type": "array"
                },
                "request_id": {
                    "example": "req-7",
                    "type": "string"
                },
                "requested_blood_group": {
                    "example": "O-",
                    "type": "string"
                },
                "seeker_id": {
                    "example": "seeker-42",
                    "type": "string"
                },
                "status": {
                    "example": "PENDING",
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "urgency_level": {
                    "example": "URGENT",
                    "type": "string"
                }
            },
            "type": "object"
        },
        "repo.QueueStats": {
            "properties": {
                "dead": {
                    "type": "integer"
                },
                "in_flight": {
                    "type": "integer"
                },
                "ready": {
                    "type": "integer"
                }
            },
            "type": "object"
        },
        "services.NotifiedDonor": {
            "properties": {
                "distance_km": {
                    "type": "number"
                },
                "donor_id": {
                    "type": "string"
                },
                "location_id": {
                    "type": "string"
                }
            },
            "type": "object"
        }
    },
    "host": "{{.Host}}",
    "info": {
        "contact": {},
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "paths": {
        "/donors/{donorId}/locations/{locationId}": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "description": "Donors may keep several locations. Searches see a change once the donor cache entry for its cell expires.",
                "operationId": "putDonorLocation",
                "parameters": [
                    {
                        "description": "Donor ID",
                        "in": "path",
                        "name": "donorId",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Location ID",
                        "in": "path",
                        "name": "locationId",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Location",
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.PutLocationBody"
                        }
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Register or move a donor location",
                "tags": [
                    "Donors"
                ]
            }
        },
        "/health": {
            "get": {
                "operationId": "health",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "additionalProperties": {
                                "type": "string"
                            },
                            "type": "object"
                        }
                    }
                },
                "summary": "Liveness probe",
                "tags": [
                    "Ops"
                ]
            }
        },
        "/ready": {
            "get": {
                "description": "Checks the database and reports round-queue depth.",
                "operationId": "ready",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.ReadyResponse"
                        }
                    },
                    "503": {
                        "description": "Dependency unavailable",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Readiness probe",
                "tags": [
                    "Ops"
                ]
            }
        },
        "/seekers/{seekerId}/requests/{requestId}/{createdAt}": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "description": "Stores the request and starts, refreshes, or reopens its donor search.",
                "operationId": "putRequest",
                "parameters": [
                    {
                        "description": "Seeker ID",
                        "in": "path",
                        "name": "seekerId",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Request ID",
                        "in": "path",
                        "name": "requestId",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Request creation time (unix s)",
                        "in": "path",
                        "name": "createdAt",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "description": "Donation request",
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.PutRequestBody"
                        }
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Updated",
                        "schema": {
                            "$ref": "#/definitions/handlers.PutRequestResponse"
                        }
                    },
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/handlers.PutRequestResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Create or update a donation request",
                "tags": [
                    "Requests"
                ]
            }
        },
        "/seekers/{seekerId}/requests/{requestId}/{createdAt}/acceptances": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "description": "Counts the donor toward the requested blood quantity. Once enough donors accept, the search completes.",
                "operationId": "acceptRequest",
                "parameters": [
                    {
                        "description": "Seeker ID",
                        "in": "path",
                        "name": "seekerId",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Request ID",
                        "in": "path",
                        "name": "requestId",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Request creation time (unix s)",
                        "in": "path",
                        "name": "createdAt",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "description": "Accepting donor",
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.AcceptRequestBody"
                        }
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Request not found",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Already accepted",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Record a donor acceptance",
                "tags": [
                    "Requests"
                ]
            }
        },
        "/seekers/{seekerId}/searches": {
            "get": {
                "description": "Returns the seeker's searches, newest request first, without the notified-donor ledger.",
                "operationId": "listSearches",
                "parameters": [
                    {
                        "description": "Seeker ID",
                        "in": "path",
                        "name": "seekerId",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "default": 1,
                        "description": "Page number",
                        "in": "query",
                        "minimum": 1,
                        "name": "page",
                        "type": "integer"
                    },
                    {
                        "default": 20,
                        "description": "Items per page",
                        "in": "query",
                        "maximum": 100,
                        "minimum": 1,
                        "name": "page_size",
                        "type": "integer"
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.ListSearchesResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "List a seeker's donor searches (paginated)",
                "tags": [
                    "Searches"
                ]
            }
        },
        "/seekers/{seekerId}/searches/{requestId}/{createdAt}": {
            "get": {
                "description": "Returns the search with its notified donors, nearest first.",
                "operationId": "getSearch",
                "parameters": [
                    {
                        "description": "Seeker ID",
                        "in": "path",
                        "name": "seekerId",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Request ID",
                        "in": "path",
                        "name": "requestId",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Request creation time (unix s)",
                        "in": "path",
                        "name": "createdAt",
                        "required": true,
                        "type": "integer"
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.SearchView"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Search not found",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "summary": "Get one donor search",
                "tags": [
                    "Searches"
                ]
            }
        }
    },
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0"
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Donor Search API",
	Description:      "Ops and intake API of the blood-donor search engine.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
