// Import HTTP handlers.
//
// This file exposes the upload endpoint and the import log:
//   - POST /imports/weekly-text-responses   (multipart upload, 202)
//   - GET  /imports                         (paginated import log)
//   - GET  /imports/{id}                    (one import log entry)
//   - GET  /imports/{id}/file               (the archived upload)
//
// Handlers are transport-thin: they read the upload, call the services, and
// map service errors onto the ErrorResponse codes in errors.go.
package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tbourn/holiday-pay-importer/internal/domain"
	"github.com/tbourn/holiday-pay-importer/internal/http/middleware"
	"github.com/tbourn/holiday-pay-importer/internal/importfile"
	"github.com/tbourn/holiday-pay-importer/internal/services"
	"github.com/tbourn/holiday-pay-importer/internal/utils"
)

//
// Service contracts (context-aware)
//

// ImportService processes uploads and serves the import log.
type ImportService interface {
	Import(ctx context.Context, req services.ImportRequest) (*services.ImportResult, error)
	// Replay returns the stored result for (actor, key) or
	// services.ErrImportNotFound.
	Replay(ctx context.Context, actor, key string) (*services.ImportResult, error)
	Get(ctx context.Context, id string) (*domain.ImportLog, error)
	File(ctx context.Context, id string) (*services.ImportFile, error)
	ListPage(ctx context.Context, page, pageSize int) ([]domain.ImportLog, int64, error)
}

// WorkerService creates and looks up workers.
type WorkerService interface {
	Create(ctx context.Context, name string) (*domain.Worker, error)
	Get(ctx context.Context, id uint) (*domain.Worker, error)
}

// AccrualService records historic accruals and computes statements.
type AccrualService interface {
	Record(ctx context.Context, workerID uint, amount, rate decimal.Decimal, importedAt time.Time) (*domain.HistoricAccrual, error)
	Statement(ctx context.Context, workerID uint) (*services.AccrualStatement, error)
}

// Handlers groups the importer's HTTP endpoints.
type Handlers struct {
	importSvc  ImportService
	workerSvc  WorkerService
	accrualSvc AccrualService
}

// New constructs Handlers bound to the given services.
func New(importSvc ImportService, workerSvc WorkerService, accrualSvc AccrualService) *Handlers {
	return &Handlers{importSvc: importSvc, workerSvc: workerSvc, accrualSvc: accrualSvc}
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListImportsResponse wraps a page of import log entries.
type ListImportsResponse struct {
	Imports    []domain.ImportLog `json:"imports"`
	Pagination Pagination         `json:"pagination"`
}

// uploadField is the multipart form field carrying the file.
const uploadField = "file"

// clampPagination parses page and page_size, bounding page_size to [1, 100].
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.PageParams(c.Query("page"), c.Query("page_size"), 20, 100)
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// isTooLarge reports whether err came from the body size limit.
func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

//
// Handlers
//

// ImportWeeklyTextResponses godoc
// @ID          importWeeklyTextResponses
// @Summary     Import weekly text responses
// @Description Imports a CSV (or XLSX) of weekly text responses into weekly and historic payout requests.
// @Description Row problems are returned as warnings; only a missing required header rejects the file.
// @Tags        Imports
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       X-User-ID        header    string  false  "Acting user"              example(payroll-admin)
// @Param       Idempotency-Key  header    string  false  "Replay key for retries"   example(upload-2022-06-27)
// @Param       file             formData  file    true   "Columns: Worker ID, Request Timestamp"
//
// @Success     202  {object}  services.ImportResult
// @Header      202  {string}  Idempotent-Replay  "true when served from a stored result"
// @Failure     400  {object}  handlers.ErrorResponse  "Missing, unsupported, or malformed file"
// @Failure     413  {object}  handlers.ErrorResponse  "File too large"
// @Failure     422  {object}  handlers.ErrorResponse  "Missing required header"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /imports/weekly-text-responses [post]
func (h *Handlers) ImportWeeklyTextResponses(c *gin.Context) {
	ctx := c.Request.Context()
	actor := middleware.Actor(c)
	key, hasKey := middleware.GetIdempotencyKey(c)

	if hasKey && middleware.IsReplay(c) {
		res, err := h.importSvc.Replay(ctx, actor, key)
		switch {
		case err == nil:
			c.Header(middleware.HeaderIdempotentReplay, "true")
			ok(c, http.StatusAccepted, res)
			return
		case !errors.Is(err, services.ErrImportNotFound):
			fail(c, http.StatusInternalServerError, ErrCodeImportFailed, err.Error())
			return
		}
		// expired between the middleware lookup and now: import normally
	}

	fh, err := c.FormFile(uploadField)
	if err != nil {
		if isTooLarge(err) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "file exceeds upload limit")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeMissingFile, `multipart field "file" is required`)
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeMalformedFile, "cannot open uploaded file")
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeMalformedFile, "cannot read uploaded file")
		return
	}

	res, err := h.importSvc.Import(ctx, services.ImportRequest{
		Actor:          actor,
		FileName:       fh.Filename,
		Content:        content,
		IdempotencyKey: key,
	})
	if err != nil {
		var mh *importfile.MissingHeaderError
		switch {
		case errors.As(err, &mh):
			fail(c, http.StatusUnprocessableEntity, ErrCodeMissingHeader, mh.Error())
		case errors.Is(err, services.ErrUnsupportedFile):
			fail(c, http.StatusBadRequest, ErrCodeUnsupportedFile, "file must be .csv or .xlsx")
		case errors.Is(err, services.ErrMalformedFile):
			fail(c, http.StatusBadRequest, ErrCodeMalformedFile, err.Error())
		case errors.Is(err, services.ErrEmptyFile):
			fail(c, http.StatusBadRequest, ErrCodeMissingFile, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeImportFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusAccepted, res)
}

// ListImports godoc
// @ID          listImports
// @Summary     List imports (paginated)
// @Description Returns the import log, newest first.
// @Tags        Imports
// @Produce     json
//
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListImportsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /imports [get]
func (h *Handlers) ListImports(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.importSvc.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListImportsResponse{Imports: items, Pagination: newPagination(page, pageSize, total)})
}

// GetImport godoc
// @ID          getImport
// @Summary     Get an import
// @Tags        Imports
// @Produce     json
//
// @Param       id  path  string  true  "Import ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.ImportLog
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Import not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /imports/{id} [get]
func (h *Handlers) GetImport(c *gin.Context) {
	id, valid := importIDParam(c)
	if !valid {
		return
	}
	rec, err := h.importSvc.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrImportNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "import not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	default:
		ok(c, http.StatusOK, rec)
	}
}

// GetImportFile godoc
// @ID          getImportFile
// @Summary     Download an imported file
// @Description Returns the file exactly as it was uploaded. Only available when archiving is enabled.
// @Tags        Imports
// @Produce     text/csv
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//
// @Param       id  path  string  true  "Import ID (UUID)"  format(uuid)
//
// @Success     200  {file}    file
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Import or file not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /imports/{id}/file [get]
func (h *Handlers) GetImportFile(c *gin.Context) {
	id, valid := importIDParam(c)
	if !valid {
		return
	}
	f, err := h.importSvc.File(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrImportNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "import not found")
	case errors.Is(err, services.ErrFileNotArchived):
		fail(c, http.StatusNotFound, ErrCodeNotArchived, err.Error())
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	default:
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
		c.Data(http.StatusOK, f.ContentType, f.Content)
	}
}

func importIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "import id must be a UUID")
		return "", false
	}
	return id, true
}
