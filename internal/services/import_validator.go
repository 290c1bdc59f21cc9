package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tbourn/holiday-pay-importer/internal/domain"
	"github.com/tbourn/holiday-pay-importer/internal/importfile"
	"github.com/tbourn/holiday-pay-importer/internal/payout"
)

// Request types produced by an import.
const (
	RequestTypeWeekly   = "weekly"
	RequestTypeHistoric = "historic"
)

// checkedRow is a row that resolved to a known worker and a valid timestamp.
type checkedRow struct {
	Row         importfile.Row
	WorkerID    uint
	RequestedAt time.Time
	Period      payout.Period
}

// typeOutcome is the per-request-type result of validating a file: the rows
// that may be materialized and the warnings, both in row order.
type typeOutcome struct {
	RequestType string
	Warnings    []string
	Valid       []checkedRow
}

func (o *typeOutcome) accept(r checkedRow) { o.Valid = append(o.Valid, r) }

func (o *typeOutcome) warn(msgs ...string) { o.Warnings = append(o.Warnings, msgs...) }

// importContext is the per-call state shared by every row of one import.
// All store lookups it needs are done once, up front, except accrual
// statements which are fetched lazily and memoized per worker.
type importContext struct {
	policy   payout.Policy
	accruals StatementSource

	known            map[string]uint
	weeklyExisting   map[domain.PeriodKey]struct{}
	historicExisting map[domain.PeriodKey]struct{}
	statements       map[uint]*AccrualStatement
}

// workerIDsOf returns the distinct numeric worker IDs referenced by rows.
// Cells that are not plain unsigned integers cannot match a worker and are
// left out of the lookup.
func workerIDsOf(rows []importfile.Row) []uint {
	seen := make(map[uint]struct{}, len(rows))
	out := make([]uint, 0, len(rows))
	for _, r := range rows {
		id, err := strconv.ParseUint(r.WorkerID, 10, 64)
		if err != nil {
			continue
		}
		if _, dup := seen[uint(id)]; dup {
			continue
		}
		seen[uint(id)] = struct{}{}
		out = append(out, uint(id))
	}
	return out
}

// knownSet keys the found IDs by their canonical text so a cell only matches
// when it is written exactly as the stored ID ("7", not "07").
func knownSet(ids []uint) map[string]uint {
	out := make(map[string]uint, len(ids))
	for _, id := range ids {
		out[strconv.FormatUint(uint64(id), 10)] = id
	}
	return out
}

func (ic *importContext) statement(ctx context.Context, workerID uint) (*AccrualStatement, error) {
	if st, ok := ic.statements[workerID]; ok {
		return st, nil
	}
	st, err := ic.accruals.Statement(ctx, workerID)
	if err != nil {
		return nil, err
	}
	ic.statements[workerID] = st
	return st, nil
}

// validate runs every row through the checks for both request types. Row
// problems become warnings; only store failures are returned as errors.
func (ic *importContext) validate(ctx context.Context, rows []importfile.Row) (weekly, historic typeOutcome, err error) {
	weekly.RequestType = RequestTypeWeekly
	historic.RequestType = RequestTypeHistoric

	for _, row := range rows {
		cr, problem := ic.check(row)
		if problem != "" {
			weekly.warn(problem)
			historic.warn(problem)
			continue
		}

		key := domain.PeriodKey{WorkerID: cr.WorkerID, BeginningOn: cr.Period.Key()}

		if _, dup := ic.weeklyExisting[key]; dup {
			weekly.warn(fmt.Sprintf("Weekly request for worker_id: %s already exists for payout period: %s", row.WorkerID, key.BeginningOn))
		} else {
			weekly.accept(cr)
		}

		var hw []string
		if _, dup := ic.historicExisting[key]; dup {
			hw = append(hw, fmt.Sprintf("Historic request for worker_id: %s already exists for payout period: %s", row.WorkerID, key.BeginningOn))
		}
		st, err := ic.statement(ctx, cr.WorkerID)
		if err != nil {
			return weekly, historic, err
		}
		if !st.HasBalance() {
			hw = append(hw, fmt.Sprintf("Worker with id: %s has no historic holiday pay", row.WorkerID))
		}
		if len(hw) > 0 {
			historic.warn(hw...)
		} else {
			historic.accept(cr)
		}
	}
	return weekly, historic, nil
}

// check resolves the worker and timestamp of a row. A non-empty problem
// applies to every request type.
func (ic *importContext) check(row importfile.Row) (checkedRow, string) {
	id, ok := ic.known[row.WorkerID]
	if !ok {
		return checkedRow{}, "Unknown worker id: " + row.WorkerID
	}
	ts, err := payout.ParseTimestamp(row.RequestTimestamp, ic.policy.Location)
	if err != nil {
		return checkedRow{}, "Invalid Timestamp: " + row.RequestTimestamp
	}
	return checkedRow{
		Row:         row,
		WorkerID:    id,
		RequestedAt: ts,
		Period:      ic.policy.Period(ts),
	}, ""
}

// weeklyRecords materializes the valid weekly rows.
func weeklyRecords(rows []checkedRow, now time.Time) []domain.WeeklyRequest {
	out := make([]domain.WeeklyRequest, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.WeeklyRequest{
			WorkerID:                r.WorkerID,
			PayoutPeriodBeginningOn: r.Period.BeginningOn,
			RequestedAt:             r.RequestedAt.UTC(),
			CreatedAt:               now,
			UpdatedAt:               now,
		})
	}
	return out
}

// historicRecords materializes the valid historic rows from the memoized
// statements. CreatedAt is the time the worker made the request.
//
// Every row claims the worker's full pre-import available balance, so two
// periods in one file each request the same amount. The balance is not split
// between them.
func (ic *importContext) historicRecords(rows []checkedRow, now time.Time) []domain.HistoricRequest {
	out := make([]domain.HistoricRequest, 0, len(rows))
	for _, r := range rows {
		st := ic.statements[r.WorkerID]
		out = append(out, domain.HistoricRequest{
			WorkerID:                r.WorkerID,
			PayoutPeriodBeginningOn: r.Period.BeginningOn,
			PaysOn:                  r.Period.PaysOn,
			HolidayRate:             st.AverageHolidayRate,
			HolidayRateCurrency:     domain.HolidayRateCurrency,
			Amount:                  st.Available.Round(2),
			CreatedAt:               r.RequestedAt.UTC(),
			UpdatedAt:               now,
		})
	}
	return out
}
