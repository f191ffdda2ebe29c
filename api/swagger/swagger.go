package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Atelier Workflow API",
        "description": "Made-to-order garment production workflow tracker",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Orders", "description": "Order items and the workflow board"},
        {"name": "Packets", "description": "Material packet lifecycle"},
        {"name": "Sections", "description": "Per-piece QA approval rounds"},
        {"name": "Sales", "description": "Client review and the rejection tree"},
        {"name": "Payments", "description": "Payments and the dispatch gate"},
        {"name": "Roster", "description": "Round-robin production heads"},
        {"name": "Exports", "description": "Printable sheets and CSV exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
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
        "/board": {
            "get": {
                "tags": ["Orders"],
                "summary": "Workflow board grouped by status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/order-items": {
            "post": {
                "tags": ["Orders"],
                "summary": "Register order item",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOrderItemRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/order-items/{id}": {
            "get": {
                "tags": ["Orders"],
                "summary": "Get order item with sections",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/order-items/{id}/inventory-check": {
            "post": {
                "tags": ["Orders"],
                "summary": "Record allocation outcome, create or extend the packet",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/InventoryCheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "State conflict"}
                }
            }
        },
        "/packets/{id}/assign": {
            "post": {
                "tags": ["Packets"],
                "summary": "Assign packet to a worker",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignPacketRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "State conflict"}
                }
            }
        },
        "/packets/{id}/pick": {
            "post": {
                "tags": ["Packets"],
                "summary": "Mark one pick-list item picked",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PickItemRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Already picked"}
                }
            }
        },
        "/packets/{id}/approve": {
            "post": {
                "tags": ["Packets"],
                "summary": "Approve completed packet and route downstream",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApprovePacketRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "State conflict"}
                }
            }
        },
        "/order-items/{id}/sections/{name}/approve": {
            "post": {
                "tags": ["Sections"],
                "summary": "Approve section through QA",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "name", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "State conflict"}
                }
            }
        },
        "/order-items/{id}/sections/{name}/reject": {
            "post": {
                "tags": ["Sections"],
                "summary": "Reject section with mandatory notes",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "name", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectSectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "State conflict"}
                }
            }
        },
        "/order-items/{id}/alterations": {
            "post": {
                "tags": ["Sales"],
                "summary": "Client alteration request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AlterationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "State conflict"}
                }
            }
        },
        "/order-items/{id}/payments": {
            "post": {
                "tags": ["Payments"],
                "summary": "Record payment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/roster/heads": {
            "get": {
                "tags": ["Roster"],
                "summary": "List active production heads",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Roster"],
                "summary": "Add production head",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddHeadRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
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
        "CreateOrderItemRequest": {
            "type": "object",
            "properties": {
                "orderId": {"type": "string"},
                "productId": {"type": "string"},
                "productName": {"type": "string"},
                "sizeCode": {"type": "string"},
                "pieces": {"type": "array", "items": {"type": "string"}},
                "totalAmount": {"type": "number"},
                "dueDate": {"type": "string", "format": "date-time"}
            },
            "required": ["orderId", "productId", "productName", "sizeCode", "pieces", "totalAmount"]
        },
        "InventoryCheckRequest": {
            "type": "object",
            "properties": {
                "passedSections": {"type": "array", "items": {"type": "string"}},
                "pendingSections": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["passedSections"]
        },
        "AssignPacketRequest": {
            "type": "object",
            "properties": {
                "userId": {"type": "string"}
            },
            "required": ["userId"]
        },
        "PickItemRequest": {
            "type": "object",
            "properties": {
                "itemId": {"type": "string"},
                "pickedQty": {"type": "number"}
            },
            "required": ["itemId", "pickedQty"]
        },
        "ApprovePacketRequest": {
            "type": "object",
            "properties": {
                "isReadyStock": {"type": "boolean"},
                "notes": {"type": "string"}
            }
        },
        "RejectSectionRequest": {
            "type": "object",
            "properties": {
                "reasonCode": {"type": "string"},
                "notes": {"type": "string"},
                "needsMaterials": {"type": "boolean"}
            },
            "required": ["reasonCode", "notes"]
        },
        "AlterationRequest": {
            "type": "object",
            "properties": {
                "sections": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "name": {"type": "string"},
                            "notes": {"type": "string"}
                        },
                        "required": ["name", "notes"]
                    }
                }
            },
            "required": ["sections"]
        },
        "PaymentRequest": {
            "type": "object",
            "properties": {
                "amount": {"type": "number"},
                "method": {"type": "string"},
                "reference": {"type": "string"}
            },
            "required": ["amount", "method"]
        },
        "AddHeadRequest": {
            "type": "object",
            "properties": {
                "userId": {"type": "string"},
                "fullName": {"type": "string"}
            },
            "required": ["userId", "fullName"]
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
