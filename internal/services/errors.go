// Package services holds the business logic for payout request imports,
// workers, and historic accruals. This file centralizes the service-level
// error values so handlers can map them to HTTP results consistently.
//
// A missing required header is reported as *importfile.MissingHeaderError
// rather than a sentinel, because it carries the list of missing headers.
package services

import "errors"

var (
	// ErrWorkerNotFound indicates that the requested worker does not exist.
	ErrWorkerNotFound = errors.New("worker not found")

	// ErrImportNotFound indicates that no import log exists for the given ID
	// (or, for replays, for the given idempotency key within the TTL).
	ErrImportNotFound = errors.New("import not found")

	// ErrFileNotArchived is returned when an import exists but its uploaded
	// file was not kept (archiving disabled or the write failed).
	ErrFileNotArchived = errors.New("import file not archived")

	// ErrUnsupportedFile is returned when the uploaded file's extension is
	// neither CSV nor XLSX.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrEmptyFile is returned when no file content was supplied at all.
	ErrEmptyFile = errors.New("no file uploaded")

	// ErrMalformedFile wraps parser failures that are not header problems
	// (broken CSV quoting, unreadable workbook).
	ErrMalformedFile = errors.New("malformed file")

	// ErrInvalidAccrual is returned when an accrual amount is not positive or
	// its rate is negative.
	ErrInvalidAccrual = errors.New("accrual amount must be positive and rate non-negative")

	// ErrInvalidWorkerName is returned when a worker is created with a blank
	// name.
	ErrInvalidWorkerName = errors.New("worker name is required")
)
