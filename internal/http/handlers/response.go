// Package handlers provides the HTTP handlers for the importer API.
//
// This file holds the shared response helpers used by every import, worker
// and accrual endpoint, so success and failure bodies look the same across
// the API.
//
// Conventions:
//   - Every error response is an ErrorResponse with a stable `code` from
//     errors.go.
//   - `fail()` formats the envelope, aborts the chain, and logs 5xx errors
//     with the request-scoped logger.
//   - `ok()` writes a success body as JSON. The upload endpoint answers 202
//     with an ImportResult; creates answer 201.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "worker not found"
//	}
//
// Example success response:
//
//	HTTP/1.1 202 Accepted
//	{ "weekly_imported_rows": 2, "weekly_warnings": [], "historic_imported_rows": 2, "historic_warnings": [] }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/holiday-pay-importer/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by all endpoints.
//
// Fields:
//   - RequestID: the X-Request-ID of the request, so a client report can be
//     matched to the server's access and error logs.
//   - Code: a stable, machine-readable string (see errors.go constants), for
//     example "missing_header" when an upload lacks a required column.
//   - Message: a human-readable description, safe to show to payroll users.
//
// The struct is referenced by the Swagger annotations on every handler.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"worker not found"`
}

// fail aborts the request with a structured error.
//
// It builds an ErrorResponse from the response's X-Request-ID, writes it with
// the given status through gin.Context.AbortWithStatusJSON, and stops the
// handler chain. Statuses >= 500 are also logged at error level with the
// request-scoped logger from middleware; 4xx outcomes are left to the
// access log.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is fail for callers outside this package (router fallbacks).
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes body as JSON with status.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
