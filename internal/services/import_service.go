// Package services – ImportService
//
// ImportService turns an uploaded weekly text-response file into weekly and
// historic payout requests. One call is one synchronous pass:
//
//  1. parse the file and check the required headers (nothing in the store
//     is touched when a header is missing);
//  2. build the import context with one batched lookup each for known
//     workers and already-stored (worker, period) pairs;
//  3. validate rows in file order, collecting warnings per request type;
//  4. materialize and bulk insert each request type, ignoring conflicts on
//     (worker_id, payout_period_beginning_on);
//  5. record an import log that also backs Idempotency-Key replays, and
//     archive the uploaded file when an Archiver is configured.
//
// Observability: Import is traced with a span per phase, and row outcomes
// are counted on the holiday_pay_import_* Prometheus series.
package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/holiday-pay-importer/internal/archive"
	"github.com/tbourn/holiday-pay-importer/internal/domain"
	"github.com/tbourn/holiday-pay-importer/internal/importfile"
	"github.com/tbourn/holiday-pay-importer/internal/observability"
	"github.com/tbourn/holiday-pay-importer/internal/payout"
	"github.com/tbourn/holiday-pay-importer/internal/repo"
)

// ImportRepo defines the repository contract required by ImportService.
type ImportRepo interface {
	// FindWorkerIDs returns the subset of ids present in the worker store.
	FindWorkerIDs(ctx context.Context, db *gorm.DB, ids []uint) ([]uint, error)

	ExistingWeeklyPeriods(ctx context.Context, db *gorm.DB, workerIDs []uint) (map[domain.PeriodKey]struct{}, error)
	ExistingHistoricPeriods(ctx context.Context, db *gorm.DB, workerIDs []uint) (map[domain.PeriodKey]struct{}, error)

	// Insert* skip rows whose (worker, period) is already stored and return
	// the number actually inserted.
	InsertWeeklyRequests(ctx context.Context, db *gorm.DB, rows []domain.WeeklyRequest) (int64, error)
	InsertHistoricRequests(ctx context.Context, db *gorm.DB, rows []domain.HistoricRequest) (int64, error)

	CreateImportLog(ctx context.Context, db *gorm.DB, rec *domain.ImportLog) error
	GetImportLog(ctx context.Context, db *gorm.DB, id string) (*domain.ImportLog, error)
	GetImportLogByKey(ctx context.Context, db *gorm.DB, actor, key string, since time.Time) (*domain.ImportLog, error)
	CountImportLogs(ctx context.Context, db *gorm.DB) (int64, error)
	ListImportLogsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.ImportLog, error)
}

// StatementSource yields a worker's historic accrual statement.
type StatementSource interface {
	Statement(ctx context.Context, workerID uint) (*AccrualStatement, error)
}

// Archiver stores uploaded files. *archive.Store implements it.
type Archiver interface {
	Put(ctx context.Context, key string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// ImportRequest is one uploaded file.
type ImportRequest struct {
	Actor          string
	FileName       string
	Content        []byte
	IdempotencyKey string
}

// ImportResult is the summary returned to the caller and stored on the
// import log. Warning slices are never nil so they encode as [].
type ImportResult struct {
	ImportID             string   `json:"import_id,omitempty"`
	WeeklyImportedRows   int      `json:"weekly_imported_rows"`
	WeeklyWarnings       []string `json:"weekly_warnings"`
	HistoricImportedRows int      `json:"historic_imported_rows"`
	HistoricWarnings     []string `json:"historic_warnings"`
}

// ImportService coordinates file imports and the import log.
type ImportService struct {
	DB       *gorm.DB
	Repo     ImportRepo
	Accruals StatementSource
	Policy   payout.Policy

	// IdempotencyTTL bounds how long a keyed import can be replayed.
	IdempotencyTTL time.Duration

	// Archive keeps a copy of each imported file; nil disables archiving.
	Archive Archiver

	Now func() time.Time
}

// NewImportService constructs an ImportService with a 24h replay window.
func NewImportService(db *gorm.DB, r ImportRepo, accruals StatementSource, policy payout.Policy) *ImportService {
	return &ImportService{
		DB:             db,
		Repo:           r,
		Accruals:       accruals,
		Policy:         policy,
		IdempotencyTTL: 24 * time.Hour,
		Now:            func() time.Time { return time.Now().UTC() },
	}
}

// Import processes one file. It fails with *importfile.MissingHeaderError
// before any store access when a required header is absent; every row-level
// problem is reported as a warning instead.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	started := time.Now()
	status := "error"
	defer func() { observability.ObserveImport(status, time.Since(started)) }()

	ctx, span := otel.Tracer("services/ImportService").Start(ctx, "Import",
		trace.WithAttributes(
			attribute.String("import.actor", req.Actor),
			attribute.String("import.file_name", req.FileName),
			attribute.Int("import.bytes", len(req.Content)),
		),
	)
	defer span.End()

	if req.Content == nil {
		return nil, ErrEmptyFile
	}
	format, err := importfile.FormatFor(req.FileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, filepath.Ext(req.FileName))
	}

	rows, err := s.parse(ctx, req.Content, format)
	if err != nil {
		var mh *importfile.MissingHeaderError
		if errors.As(err, &mh) {
			status = "missing_header"
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	ic, err := s.newImportContext(ctx, rows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	vctx, vspan := otel.Tracer("services/ImportService").Start(ctx, "validate")
	weekly, historic, err := ic.validate(vctx, rows)
	vspan.End()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	res, err := s.persist(ctx, ic, weekly, historic)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.recordLog(ctx, req, len(rows), res)
	status = "ok"

	span.SetAttributes(
		attribute.Int("import.rows", len(rows)),
		attribute.Int("import.weekly_imported", res.WeeklyImportedRows),
		attribute.Int("import.historic_imported", res.HistoricImportedRows),
	)
	log.Ctx(ctx).Info().
		Str("actor", req.Actor).
		Str("file_name", req.FileName).
		Str("import_id", res.ImportID).
		Int("rows", len(rows)).
		Int("weekly_imported", res.WeeklyImportedRows).
		Int("weekly_warnings", len(res.WeeklyWarnings)).
		Int("historic_imported", res.HistoricImportedRows).
		Int("historic_warnings", len(res.HistoricWarnings)).
		Msg("import completed")
	return res, nil
}

func (s *ImportService) parse(ctx context.Context, content []byte, format importfile.Format) ([]importfile.Row, error) {
	_, span := otel.Tracer("services/ImportService").Start(ctx, "parse",
		trace.WithAttributes(attribute.String("import.format", format.String())),
	)
	defer span.End()

	rows, err := importfile.Parse(bytes.NewReader(content), format)
	if errors.Is(err, importfile.ErrMalformed) {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFile, err)
	}
	return rows, err
}

func (s *ImportService) newImportContext(ctx context.Context, rows []importfile.Row) (*importContext, error) {
	ctx, span := otel.Tracer("services/ImportService").Start(ctx, "load_context")
	defer span.End()

	found, err := s.Repo.FindWorkerIDs(ctx, s.DB, workerIDsOf(rows))
	if err != nil {
		return nil, err
	}
	weekly, err := s.Repo.ExistingWeeklyPeriods(ctx, s.DB, found)
	if err != nil {
		return nil, err
	}
	historic, err := s.Repo.ExistingHistoricPeriods(ctx, s.DB, found)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("import.known_workers", len(found)))

	return &importContext{
		policy:           s.Policy,
		accruals:         s.Accruals,
		known:            knownSet(found),
		weeklyExisting:   weekly,
		historicExisting: historic,
		statements:       make(map[uint]*AccrualStatement),
	}, nil
}

func (s *ImportService) persist(ctx context.Context, ic *importContext, weekly, historic typeOutcome) (*ImportResult, error) {
	ctx, span := otel.Tracer("services/ImportService").Start(ctx, "persist")
	defer span.End()

	now := s.now()
	weeklyN, err := s.Repo.InsertWeeklyRequests(ctx, s.DB, weeklyRecords(weekly.Valid, now))
	if err != nil {
		return nil, err
	}
	historicN, err := s.Repo.InsertHistoricRequests(ctx, s.DB, ic.historicRecords(historic.Valid, now))
	if err != nil {
		return nil, err
	}

	for _, o := range []struct {
		typ      typeOutcome
		inserted int64
	}{{weekly, weeklyN}, {historic, historicN}} {
		observability.ObserveImportRows(o.typ.RequestType, observability.OutcomeImported, int(o.inserted))
		observability.ObserveImportRows(o.typ.RequestType, observability.OutcomeWarned, len(o.typ.Warnings))
		observability.ObserveImportRows(o.typ.RequestType, observability.OutcomeConflict, len(o.typ.Valid)-int(o.inserted))
	}

	return &ImportResult{
		WeeklyImportedRows:   int(weeklyN),
		WeeklyWarnings:       nonNil(weekly.Warnings),
		HistoricImportedRows: int(historicN),
		HistoricWarnings:     nonNil(historic.Warnings),
	}, nil
}

// recordLog stores the import log and sets res.ImportID. The requests are
// already committed at this point, so a failure here is logged, not
// returned.
func (s *ImportService) recordLog(ctx context.Context, req ImportRequest, rows int, res *ImportResult) {
	sum := sha256.Sum256(req.Content)
	rec := &domain.ImportLog{
		ID:                   uuid.NewString(),
		Actor:                req.Actor,
		FileName:             req.FileName,
		FileSHA256:           hex.EncodeToString(sum[:]),
		Rows:                 rows,
		WeeklyImportedRows:   res.WeeklyImportedRows,
		WeeklyWarningCount:   len(res.WeeklyWarnings),
		HistoricImportedRows: res.HistoricImportedRows,
		HistoricWarningCount: len(res.HistoricWarnings),
		CreatedAt:            s.now(),
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		rec.IdempotencyKey = &key
	}
	payload, err := json.Marshal(res)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("encode import result")
		return
	}
	rec.Result = datatypes.JSON(payload)
	rec.ArchiveKey = s.archive(ctx, rec, req.Content)

	switch err := s.Repo.CreateImportLog(ctx, s.DB, rec); {
	case errors.Is(err, repo.ErrDuplicate):
		log.Ctx(ctx).Warn().Str("idempotency_key", req.IdempotencyKey).Msg("import log already recorded for key")
	case err != nil:
		log.Ctx(ctx).Error().Err(err).Msg("record import log")
	default:
		res.ImportID = rec.ID
	}
}

// archive stores the upload and returns its key, or "" when archiving is
// disabled or fails. A failed archive does not fail the import.
func (s *ImportService) archive(ctx context.Context, rec *domain.ImportLog, content []byte) string {
	if s.Archive == nil {
		return ""
	}
	key := archive.Key(rec.ID, rec.FileName, rec.CreatedAt)
	if err := s.Archive.Put(ctx, key, content); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("archive_key", key).Msg("archive upload")
		return ""
	}
	return key
}

// Replay returns the stored result of a keyed import by the same actor
// within IdempotencyTTL, or ErrImportNotFound.
func (s *ImportService) Replay(ctx context.Context, actor, key string) (*ImportResult, error) {
	rec, err := s.Repo.GetImportLogByKey(ctx, s.DB, actor, key, s.now().Add(-s.IdempotencyTTL))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrImportNotFound
	}
	if err != nil {
		return nil, err
	}
	res, err := decodeResult(rec)
	if err != nil {
		return nil, err
	}
	observability.ObserveImport("replay", 0)
	return res, nil
}

// Get returns an import log by ID, or ErrImportNotFound.
func (s *ImportService) Get(ctx context.Context, id string) (*domain.ImportLog, error) {
	rec, err := s.Repo.GetImportLog(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrImportNotFound
	}
	return rec, err
}

// ImportFile is an archived upload.
type ImportFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// File returns the archived upload of an import. It fails with
// ErrImportNotFound for unknown IDs and ErrFileNotArchived when the
// import has no archived copy.
func (s *ImportService) File(ctx context.Context, id string) (*ImportFile, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.ArchiveKey == "" || s.Archive == nil {
		return nil, ErrFileNotArchived
	}
	content, err := s.Archive.Get(ctx, rec.ArchiveKey)
	if errors.Is(err, archive.ErrNotFound) {
		return nil, ErrFileNotArchived
	}
	if err != nil {
		return nil, err
	}
	format, _ := importfile.FormatFor(rec.FileName)
	return &ImportFile{Name: rec.FileName, ContentType: format.ContentType(), Content: content}, nil
}

// ListPage returns a page of import logs, newest first, with the total
// count. Invalid page/pageSize fall back to 1 and 20.
func (s *ImportService) ListPage(ctx context.Context, page, pageSize int) ([]domain.ImportLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountImportLogs(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ImportLog{}, 0, nil
	}
	items, err := s.Repo.ListImportLogsPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}

// decodeResult rebuilds the ImportResult stored on an import log.
func decodeResult(rec *domain.ImportLog) (*ImportResult, error) {
	var res ImportResult
	if err := json.Unmarshal(rec.Result, &res); err != nil {
		return nil, fmt.Errorf("decode import %s: %w", rec.ID, err)
	}
	res.ImportID = rec.ID
	res.WeeklyWarnings = nonNil(res.WeeklyWarnings)
	res.HistoricWarnings = nonNil(res.HistoricWarnings)
	return &res, nil
}

func (s *ImportService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
