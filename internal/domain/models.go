// Package domain defines the persistence models for workers, historic
// holiday-pay accruals, and the weekly and historic payout requests created
// by the importer. These types are mapped with GORM and shared across the
// repository and service layers.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// HolidayRateCurrency is the currency every historic request is issued in.
const HolidayRateCurrency = "GBP"

// Worker is a person who can claim holiday pay. Imports refer to workers by
// their numeric ID rendered as text.
type Worker struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null;default:''"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Worker.
func (Worker) TableName() string { return "workers" }

// HistoricAccrual is a point-in-time balance of holiday pay a worker built
// up before the current tracking system. A worker may have several.
//
// Fields:
//   - Amount: accrued money, in GBP.
//   - AverageHourlyRate: the rate the amount was accrued at; statements
//     report the amount-weighted mean across a worker's accruals.
//   - ImportedAt: when the balance was brought into the system.
type HistoricAccrual struct {
	ID                uint            `json:"id"                  gorm:"primaryKey"`
	WorkerID          uint            `json:"worker_id"           gorm:"not null;index"`
	Amount            decimal.Decimal `json:"amount"              gorm:"type:decimal(12,2);not null"`
	AverageHourlyRate decimal.Decimal `json:"average_hourly_rate" gorm:"type:decimal(12,4);not null"`
	ImportedAt        time.Time       `json:"imported_at"         gorm:"not null"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName returns the database table name for HistoricAccrual.
func (HistoricAccrual) TableName() string { return "historic_accruals" }

// WeeklyRequest is a worker's claim to take holiday pay for one payout
// period. (worker_id, payout_period_beginning_on) is unique.
type WeeklyRequest struct {
	ID                      uint      `json:"id"                         gorm:"primaryKey"`
	WorkerID                uint      `json:"worker_id"                  gorm:"not null;uniqueIndex:ux_weekly_worker_period,priority:1"`
	PayoutPeriodBeginningOn time.Time `json:"payout_period_beginning_on" gorm:"type:date;not null;uniqueIndex:ux_weekly_worker_period,priority:2"`
	RequestedAt             time.Time `json:"requested_at"               gorm:"not null"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// TableName returns the database table name for WeeklyRequest.
func (WeeklyRequest) TableName() string { return "weekly_requests" }

// HistoricRequest is a one-off claim against a worker's historic balance,
// attributed to a payout period. (worker_id, payout_period_beginning_on) is
// unique.
//
// CreatedAt carries the time the worker made the request, not the time the
// row was imported.
type HistoricRequest struct {
	ID                      uint            `json:"id"                         gorm:"primaryKey"`
	WorkerID                uint            `json:"worker_id"                  gorm:"not null;uniqueIndex:ux_historic_worker_period,priority:1"`
	PayoutPeriodBeginningOn time.Time       `json:"payout_period_beginning_on" gorm:"type:date;not null;uniqueIndex:ux_historic_worker_period,priority:2"`
	PaysOn                  time.Time       `json:"pays_on"                    gorm:"type:date;not null"`
	HolidayRate             decimal.Decimal `json:"holiday_rate"               gorm:"type:decimal(12,4);not null"`
	HolidayRateCurrency     string          `json:"holiday_rate_currency"      gorm:"type:varchar(3);not null;default:'GBP'"`
	Amount                  decimal.Decimal `json:"amount"                     gorm:"type:decimal(12,2);not null"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// TableName returns the database table name for HistoricRequest.
func (HistoricRequest) TableName() string { return "historic_requests" }

// PeriodKey identifies a stored request by worker and period start date
// (formatted YYYY-MM-DD).
type PeriodKey struct {
	WorkerID    uint
	BeginningOn string
}
