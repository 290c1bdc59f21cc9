package domain

import (
	"time"

	"gorm.io/datatypes"
)

// ImportLog records one processed upload: who sent it, what file it was,
// and the result returned to the caller. Uploads rejected before any row was
// read (unsupported format, missing header) are not logged.
//
// (actor, idempotency_key) is unique so that a retried upload carrying the
// same Idempotency-Key can be answered from Result instead of re-imported.
// IdempotencyKey is nil when the client did not send one, and is cleared
// once the replay window has passed so the key can be used again.
// ArchiveKey locates the uploaded file in the archive bucket, if archived.
type ImportLog struct {
	ID                   string         `json:"id"                     gorm:"type:char(36);primaryKey"`
	Actor                string         `json:"actor"                  gorm:"type:varchar(64);not null;index;uniqueIndex:ux_import_actor_key,priority:1"`
	IdempotencyKey       *string        `json:"idempotency_key,omitempty" gorm:"type:varchar(200);uniqueIndex:ux_import_actor_key,priority:2"`
	FileName             string         `json:"file_name"              gorm:"type:varchar(255);not null"`
	FileSHA256           string         `json:"file_sha256"            gorm:"type:char(64);not null;index"`
	Rows                 int            `json:"rows"                   gorm:"not null"`
	WeeklyImportedRows   int            `json:"weekly_imported_rows"   gorm:"not null"`
	WeeklyWarningCount   int            `json:"weekly_warning_count"   gorm:"not null"`
	HistoricImportedRows int            `json:"historic_imported_rows" gorm:"not null"`
	HistoricWarningCount int            `json:"historic_warning_count" gorm:"not null"`
	Result               datatypes.JSON `json:"result"                 gorm:"not null"`
	ArchiveKey           string         `json:"archive_key,omitempty"  gorm:"type:varchar(512)"`
	CreatedAt            time.Time      `json:"created_at"             gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (ImportLog) TableName() string { return "import_logs" }
