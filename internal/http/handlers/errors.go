// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them rather
// than on messages. Every error response carries one, wrapped in
// ErrorResponse by fail():
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "missing_header",
//	  "message": "Missing header: Worker ID"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodePayloadTooLarge  = "payload_too_large"

	// Import uploads:
	ErrCodeMissingFile     = "missing_file"
	ErrCodeMissingHeader   = "missing_header"
	ErrCodeMalformedFile   = "malformed_file"
	ErrCodeUnsupportedFile = "unsupported_file"
	ErrCodeImportFailed    = "import_failed"
	ErrCodeNotArchived     = "not_archived"

	// Workers and accruals:
	ErrCodeInvalidAccrual = "invalid_accrual"
	ErrCodeCreateFailed   = "create_failed"
	ErrCodeListFailed     = "list_failed"
)
