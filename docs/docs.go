// Package docs содержит описание API в формате Swagger для /docs.
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
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Проверка живости",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/payments/webhook": {
            "post": {
                "description": "Выдаёт тариф при purchase_approved и subscription_renewed, сбрасывает при subscription_canceled и refund.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Payments"],
                "summary": "Вебхук платёжного провайдера",
                "parameters": [
                    {
                        "description": "Событие провайдера",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/webhook.Request"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/webhook.Response"}},
                    "400": {"description": "Пустое или некорректное тело, неизвестное событие", "schema": {"$ref": "#/definitions/webhook.Response"}},
                    "401": {"description": "Неверный секрет", "schema": {"$ref": "#/definitions/webhook.Response"}},
                    "405": {"description": "Метод не POST", "schema": {"$ref": "#/definitions/webhook.Response"}},
                    "500": {"description": "Ошибка обработки", "schema": {"$ref": "#/definitions/webhook.Response"}}
                }
            }
        },
        "/admin/webhooks": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Возвращает все подписки или только подписки на событие из параметра evento.",
                "produces": ["application/json"],
                "tags": ["Webhooks"],
                "summary": "Список подписок на вебхуки",
                "parameters": [
                    {"type": "string", "description": "Тип события", "name": "evento", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/response.Response"},
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {"type": "array", "items": {"$ref": "#/definitions/models.WebhookSubscription"}}
                                    }
                                }
                            ]
                        }
                    },
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "422": {"description": "Неизвестный тип события", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Направляет события указанного типа на внешний URL.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Webhooks"],
                "summary": "Создать подписку на вебхук",
                "parameters": [
                    {
                        "description": "URL и тип события",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/models.WebhookRequest"}
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/response.Response"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/models.WebhookSubscription"}}}
                            ]
                        }
                    },
                    "400": {"description": "Некорректный JSON", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "422": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/admin/webhooks/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Webhooks"],
                "summary": "Обновить подписку на вебхук",
                "parameters": [
                    {"type": "string", "description": "ID подписки", "name": "id", "in": "path", "required": true},
                    {
                        "description": "Изменяемые поля",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/models.WebhookPatchRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/response.Response"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/models.WebhookSubscription"}}}
                            ]
                        }
                    },
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Webhooks"],
                "summary": "Удалить подписку на вебхук",
                "parameters": [
                    {"type": "string", "description": "ID подписки", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/admin/reminders/trigger": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Отправляет напоминания о встречах, начинающихся в ближайшее окно, и возвращает их число.",
                "produces": ["application/json"],
                "tags": ["Reminders"],
                "summary": "Запустить сканер напоминаний",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/trigger.Response"}
                    },
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.WebhookPatchRequest": {
            "type": "object",
            "properties": {
                "evento": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "models.WebhookRequest": {
            "type": "object",
            "required": ["evento", "url"],
            "properties": {
                "evento": {
                    "type": "string",
                    "enum": ["criou_conta", "venda_realizada", "compromisso", "plano_expirou", "trial_expirou", "trial_expira_1h"]
                },
                "url": {"type": "string"}
            }
        },
        "models.WebhookSubscription": {
            "type": "object",
            "properties": {
                "criado_em": {"type": "string"},
                "evento": {"type": "string"},
                "id": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "trigger.Response": {
            "type": "object",
            "properties": {
                "triggered": {"type": "integer"}
            }
        },
        "response.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid request body"},
                "status": {"type": "string", "example": "Error"}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "webhook.Request": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "event": {"type": "string"},
                "secret": {"type": "string"}
            }
        },
        "webhook.Response": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "details": {"type": "string"},
                "message": {"type": "string"},
                "success": {"type": "boolean"},
                "user_id": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Finance Events API",
	Description:      "Платёжный вебхук, подписки на события и напоминания о встречах",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
