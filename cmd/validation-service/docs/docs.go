// Package docs registers the OpenAPI description of the validation service
// with swag. Regenerate with:
//
//	swag init -g cmd/validation-service/main.go -o cmd/validation-service/docs --parseInternal
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/events": {
            "post": {
                "description": "Validate both payloads and send the result as a CloudEvent",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Validate a pair and emit a business event",
                "parameters": [
                    {
                        "description": "Pair validation request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/models.ValidationRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.EventResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/api.EventResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/integrations": {
            "get": {
                "description": "List the integrations of the active rule set",
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "List integrations",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.IntegrationsResponse"}}
                }
            }
        },
        "/integrations/{id}/rules": {
            "get": {
                "description": "Get the declared rules of one integration",
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "Get integration rules",
                "parameters": [
                    {"type": "string", "description": "Integration ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/rules.IntegrationDefinition"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/rules": {
            "put": {
                "description": "Compile and store a complete rule set, replacing the current one",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "Import a rule set",
                "parameters": [
                    {"type": "string", "description": "Operator recorded on the update", "name": "X-Changed-By", "in": "header"},
                    {
                        "description": "Rule set",
                        "name": "rules",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/rules.Definitions"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/management.ImportResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/rules/export": {
            "get": {
                "description": "Return the stored rule set as declared",
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "Export the rule set",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/rules.Definitions"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/rules/reload": {
            "post": {
                "description": "Reload the rule set from its source without jitter",
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "Reload rules",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.RuleSetResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/validate/integration": {
            "post": {
                "description": "Check a payload against the rules of one integration",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["validation"],
                "summary": "Validate one integration payload",
                "parameters": [
                    {
                        "description": "Integration payload",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/validation.IntegrationRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/validation.ValidationResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/validate/pair": {
            "post": {
                "description": "Validate both payloads and compare their mapped fields",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["validation"],
                "summary": "Validate an integration pair",
                "parameters": [
                    {
                        "description": "Pair validation request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/models.ValidationRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/validation.PairValidationResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.EventResponse": {
            "type": "object",
            "properties": {
                "ingest": {"$ref": "#/definitions/events.IngestResult"},
                "validation": {"$ref": "#/definitions/validation.PairValidationResult"}
            }
        },
        "api.IntegrationsResponse": {
            "type": "object",
            "properties": {
                "integrationIds": {"type": "array", "items": {"type": "string"}},
                "integrations": {"type": "integer"},
                "loadedAt": {"type": "string"},
                "mappings": {"type": "integer"}
            }
        },
        "api.RuleSetResponse": {
            "type": "object",
            "properties": {
                "integrations": {"type": "integer"},
                "loadedAt": {"type": "string"},
                "mappings": {"type": "integer"}
            }
        },
        "errors.ErrorResponse": {
            "type": "object",
            "properties": {
                "details": {"type": "object", "additionalProperties": {}},
                "error": {"type": "string"},
                "error_code": {"type": "string"}
            }
        },
        "events.IngestError": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "status": {"type": "string"},
                "statusCode": {"type": "integer"},
                "subType": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "events.IngestResult": {
            "type": "object",
            "properties": {
                "cloudEvent": {"$ref": "#/definitions/models.CloudEvent"},
                "destinationDataTruncated": {"type": "boolean"},
                "error": {"$ref": "#/definitions/events.IngestError"},
                "message": {"type": "string"},
                "sourceDataTruncated": {"type": "boolean"},
                "status": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "management.ImportResult": {
            "type": "object",
            "properties": {
                "changedBy": {"type": "string"},
                "importedAt": {"type": "string"},
                "integrations": {"type": "integer"},
                "mappings": {"type": "integer"}
            }
        },
        "models.BusinessEventData": {
            "type": "object",
            "properties": {
                "destEventTime": {"type": "string"},
                "destinationData": {"type": "string"},
                "destinationIntegrationId": {"type": "string"},
                "errorSubType": {"type": "string"},
                "errorSummary": {"type": "string"},
                "errorType": {"type": "string"},
                "sourceData": {"type": "string"},
                "sourceIntegrationId": {"type": "string"},
                "srcEventTime": {"type": "string"},
                "transactionId": {"type": "string"}
            }
        },
        "models.CloudEvent": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/models.BusinessEventData"},
                "datacontenttype": {"type": "string"},
                "id": {"type": "string"},
                "source": {"type": "string"},
                "specversion": {"type": "string"},
                "time": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "models.ValidationRequest": {
            "type": "object",
            "properties": {
                "destEventTime": {"type": "string"},
                "destinationIntegrationId": {"type": "string"},
                "destinationPayload": {},
                "ingest": {"type": "boolean"},
                "requestId": {"type": "string"},
                "sourceIntegrationId": {"type": "string"},
                "sourcePayload": {},
                "srcEventTime": {"type": "string"},
                "transactionId": {"type": "string"}
            }
        },
        "rules.Definitions": {
            "type": "object",
            "properties": {
                "integrations": {"type": "array", "items": {"$ref": "#/definitions/rules.IntegrationDefinition"}},
                "mappings": {"type": "array", "items": {"$ref": "#/definitions/rules.MappingDefinition"}}
            }
        },
        "rules.FieldMappingDefinition": {
            "type": "object",
            "properties": {
                "compare": {"type": "string"},
                "destination": {"type": "string"},
                "expression": {"type": "string"},
                "required": {"type": "boolean"},
                "source": {"type": "string"}
            }
        },
        "rules.IntegrationDefinition": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "id": {"type": "string"},
                "rules": {"type": "array", "items": {"$ref": "#/definitions/rules.RuleDefinition"}}
            }
        },
        "rules.MappingDefinition": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "destination": {"type": "string"},
                "fields": {"type": "array", "items": {"$ref": "#/definitions/rules.FieldMappingDefinition"}},
                "source": {"type": "string"}
            }
        },
        "rules.RuleDefinition": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "predicate": {"type": "string"},
                "required": {"type": "boolean"},
                "type": {"type": "string"}
            }
        },
        "validation.ClassifiedError": {
            "type": "object",
            "properties": {
                "fieldPath": {"type": "string"},
                "message": {"type": "string"},
                "side": {"type": "string"},
                "subType": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "validation.Failure": {
            "type": "object",
            "properties": {
                "detail": {"type": "string"},
                "fieldPath": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "validation.IntegrationRequest": {
            "type": "object",
            "properties": {
                "integrationId": {"type": "string"},
                "payload": {}
            }
        },
        "validation.MappingComparison": {
            "type": "object",
            "properties": {
                "mismatches": {"type": "array", "items": {"$ref": "#/definitions/validation.Mismatch"}},
                "missingDestination": {"type": "array", "items": {"type": "string"}},
                "missingSource": {"type": "array", "items": {"type": "string"}}
            }
        },
        "validation.Mismatch": {
            "type": "object",
            "properties": {
                "destinationFieldPath": {"type": "string"},
                "destinationValue": {},
                "detail": {"type": "string"},
                "fieldPath": {"type": "string"},
                "sourceValue": {}
            }
        },
        "validation.PairValidationResult": {
            "type": "object",
            "properties": {
                "destinationIntegrationId": {"type": "string"},
                "destinationValidation": {"$ref": "#/definitions/validation.ValidationResult"},
                "errors": {"type": "array", "items": {"$ref": "#/definitions/validation.ClassifiedError"}},
                "isValid": {"type": "boolean"},
                "mappingComparison": {"$ref": "#/definitions/validation.MappingComparison"},
                "sourceIntegrationId": {"type": "string"},
                "sourceValidation": {"$ref": "#/definitions/validation.ValidationResult"}
            }
        },
        "validation.ValidationResult": {
            "type": "object",
            "properties": {
                "failures": {"type": "array", "items": {"$ref": "#/definitions/validation.Failure"}},
                "integrationId": {"type": "string"},
                "isValid": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "SOX Guard Validation Service API",
	Description:      "Validates integration pair payloads against declared rules and reports the outcome as business events",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
