// Worker and historic accrual HTTP handlers.
//
//   - POST /workers
//   - GET  /workers/{id}
//   - POST /workers/{id}/historic-accruals
//   - GET  /workers/{id}/historic-accrual-statement
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tbourn/holiday-pay-importer/internal/services"
)

// CreateWorkerRequest is the JSON payload for creating a worker.
type CreateWorkerRequest struct {
	Name string `json:"name" binding:"required,max=255" example:"Ada Lovelace"`
}

// CreateAccrualRequest is the JSON payload for recording a historic accrual.
// Amounts accept JSON strings or numbers; strings avoid float rounding.
type CreateAccrualRequest struct {
	Amount            *decimal.Decimal `json:"amount"              swaggertype:"string" example:"150.00"`
	AverageHourlyRate *decimal.Decimal `json:"average_hourly_rate" swaggertype:"string" example:"11.50"`
	// ImportedAt defaults to now.
	ImportedAt *time.Time `json:"imported_at,omitempty" example:"2022-06-01T00:00:00Z"`
}

func workerIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "worker id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

// CreateWorker godoc
// @ID          createWorker
// @Summary     Create a worker
// @Tags        Workers
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateWorkerRequest  true  "Worker"
//
// @Success     201  {object}  domain.Worker
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /workers [post]
func (h *Handlers) CreateWorker(c *gin.Context) {
	var req CreateWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required (1-255 chars)")
		return
	}
	w, err := h.workerSvc.Create(c.Request.Context(), req.Name)
	switch {
	case errors.Is(err, services.ErrInvalidWorkerName):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
	default:
		ok(c, http.StatusCreated, w)
	}
}

// GetWorker godoc
// @ID          getWorker
// @Summary     Get a worker
// @Tags        Workers
// @Produce     json
//
// @Param       id  path  int  true  "Worker ID"
//
// @Success     200  {object}  domain.Worker
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Worker not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /workers/{id} [get]
func (h *Handlers) GetWorker(c *gin.Context) {
	id, valid := workerIDParam(c)
	if !valid {
		return
	}
	w, err := h.workerSvc.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrWorkerNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	default:
		ok(c, http.StatusOK, w)
	}
}

// RecordHistoricAccrual godoc
// @ID          recordHistoricAccrual
// @Summary     Record a historic accrual
// @Description Adds holiday pay a worker accrued before the current system. Amount must be positive.
// @Tags        Workers
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                                true  "Worker ID"
// @Param       body  body  handlers.CreateAccrualRequest  true  "Accrual"
//
// @Success     201  {object}  domain.HistoricAccrual
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Worker not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /workers/{id}/historic-accruals [post]
func (h *Handlers) RecordHistoricAccrual(c *gin.Context) {
	id, valid := workerIDParam(c)
	if !valid {
		return
	}
	var req CreateAccrualRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil || req.AverageHourlyRate == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amount and average_hourly_rate are required")
		return
	}
	var importedAt time.Time
	if req.ImportedAt != nil {
		importedAt = *req.ImportedAt
	}

	a, err := h.accrualSvc.Record(c.Request.Context(), id, *req.Amount, *req.AverageHourlyRate, importedAt)
	switch {
	case errors.Is(err, services.ErrInvalidAccrual):
		fail(c, http.StatusBadRequest, ErrCodeInvalidAccrual, err.Error())
	case errors.Is(err, services.ErrWorkerNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
	default:
		ok(c, http.StatusCreated, a)
	}
}

// GetHistoricAccrualStatement godoc
// @ID          getHistoricAccrualStatement
// @Summary     Historic accrual statement
// @Description Accrued minus already-requested historic holiday pay, with the amount-weighted average rate.
// @Tags        Workers
// @Produce     json
//
// @Param       id  path  int  true  "Worker ID"
//
// @Success     200  {object}  services.AccrualStatement
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Worker not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /workers/{id}/historic-accrual-statement [get]
func (h *Handlers) GetHistoricAccrualStatement(c *gin.Context) {
	id, valid := workerIDParam(c)
	if !valid {
		return
	}
	st, err := h.accrualSvc.Statement(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrWorkerNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	default:
		ok(c, http.StatusOK, st)
	}
}
