package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>codespace-backend — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document covering the main endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "codespace-backend", "version": "v0.1.0" },
  "paths": {
    "/api/auth/register": {
      "post": { "summary": "Create an account", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"},"name":{"type":"string"}}}}}}, "responses": { "200": { "description": "tokens returned" }, "409": { "description": "email taken" } } }
    },
    "/api/auth/login": {
      "post": { "summary": "Log in with email and password", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "tokens returned" }, "401": { "description": "invalid credentials" } } }
    },
    "/api/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/api/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/codespaces": {
      "post": { "summary": "Create a codespace (durable when authenticated, ephemeral otherwise)", "responses": { "201": { "description": "created" } } },
      "get": { "summary": "List the caller's codespaces", "responses": { "200": { "description": "listing" }, "401": { "description": "authentication required" } } }
    },
    "/api/codespaces/{uuid}": {
      "get": { "summary": "Retrieve a codespace (tmp- uuids need no auth)", "responses": { "200": { "description": "codespace" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Edit code (cached) or rename (persisted)", "responses": { "200": { "description": "updated" } } },
      "delete": { "summary": "Delete a codespace", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/codespaces/{uuid}/save": {
      "patch": { "summary": "Persist cached code edits", "responses": { "200": { "description": "saved" }, "404": { "description": "no cached changes" } } }
    },
    "/api/codespaces/token": {
      "post": { "summary": "Mint a share token (owner only)", "responses": { "201": { "description": "token" } } }
    },
    "/api/codespaces/shared/{token}": {
      "get": { "summary": "Retrieve a codespace via share token", "responses": { "200": { "description": "codespace" }, "401": { "description": "invalid or expired token" } } },
      "patch": { "summary": "Edit code via an edit-mode share token", "responses": { "200": { "description": "updated" }, "403": { "description": "view-only token" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
