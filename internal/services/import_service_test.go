package services

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/tbourn/holiday-pay-importer/internal/domain"
	"github.com/tbourn/holiday-pay-importer/internal/importfile"
	"github.com/tbourn/holiday-pay-importer/internal/payout"
)

// ----- Fake repo (records calls, injects failures) -----

type fakeImportRepo struct {
	dbStore
	calls     int
	findErr   error
	insertErr error
	logErr    error
}

func (r *fakeImportRepo) FindWorkerIDs(ctx context.Context, db *gorm.DB, ids []uint) ([]uint, error) {
	r.calls++
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.dbStore.FindWorkerIDs(ctx, db, ids)
}

func (r *fakeImportRepo) InsertWeeklyRequests(ctx context.Context, db *gorm.DB, rows []domain.WeeklyRequest) (int64, error) {
	r.calls++
	if r.insertErr != nil {
		return 0, r.insertErr
	}
	return r.dbStore.InsertWeeklyRequests(ctx, db, rows)
}

func (r *fakeImportRepo) CreateImportLog(ctx context.Context, db *gorm.DB, rec *domain.ImportLog) error {
	r.calls++
	if r.logErr != nil {
		return r.logErr
	}
	return r.dbStore.CreateImportLog(ctx, db, rec)
}

// countingImportRepo counts each lookup the import context makes.
type countingImportRepo struct {
	dbStore
	find, weekly, historic int
}

func (r *countingImportRepo) FindWorkerIDs(ctx context.Context, db *gorm.DB, ids []uint) ([]uint, error) {
	r.find++
	return r.dbStore.FindWorkerIDs(ctx, db, ids)
}

func (r *countingImportRepo) ExistingWeeklyPeriods(ctx context.Context, db *gorm.DB, ids []uint) (map[domain.PeriodKey]struct{}, error) {
	r.weekly++
	return r.dbStore.ExistingWeeklyPeriods(ctx, db, ids)
}

func (r *countingImportRepo) ExistingHistoricPeriods(ctx context.Context, db *gorm.DB, ids []uint) (map[domain.PeriodKey]struct{}, error) {
	r.historic++
	return r.dbStore.ExistingHistoricPeriods(ctx, db, ids)
}

// countingStatements counts Statement calls per worker.
type countingStatements struct {
	next  StatementSource
	calls map[uint]int
}

func (c *countingStatements) Statement(ctx context.Context, workerID uint) (*AccrualStatement, error) {
	c.calls[workerID]++
	return c.next.Statement(ctx, workerID)
}

func importCSV(t *testing.T, svc *ImportService, content []byte) *ImportResult {
	t.Helper()
	res, err := svc.Import(context.Background(), ImportRequest{Actor: "admin", FileName: "weekly.csv", Content: content})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	return res
}

// ----- Tests -----

func TestImport_MissingHeaderTouchesNoStore(t *testing.T) {
	f := newFixture(t)
	fake := &fakeImportRepo{}
	f.imports.Repo = fake

	_, err := f.imports.Import(context.Background(), ImportRequest{
		Actor: "admin", FileName: "weekly.csv", Content: []byte("Request Timestamp\n2022-06-20 03:02\n"),
	})
	var mh *importfile.MissingHeaderError
	if !errors.As(err, &mh) || mh.Error() != "Missing header: Worker ID" {
		t.Fatalf("expected missing header error, got %v", err)
	}
	if fake.calls != 0 {
		t.Fatalf("store touched %d times before header check", fake.calls)
	}
}

func TestImport_UnknownWorker(t *testing.T) {
	f := newFixture(t)
	f.worker(t, "150.0", "11.5")

	res := importCSV(t, f.imports, csvFile("99,2022-06-20 03:02", "01,2022-06-20 03:02"))

	want := []string{"Unknown worker id: 99", "Unknown worker id: 01"}
	if !reflect.DeepEqual(res.WeeklyWarnings, want) || !reflect.DeepEqual(res.HistoricWarnings, want) {
		t.Fatalf("unexpected warnings: %+v", res)
	}
	if res.WeeklyImportedRows != 0 || res.HistoricImportedRows != 0 {
		t.Fatalf("unknown workers must not import: %+v", res)
	}
}

func TestImport_InvalidTimestamp(t *testing.T) {
	f := newFixture(t)
	f.worker(t, "150.0", "11.5")

	res := importCSV(t, f.imports, csvFile("1,20/14/2022 03:02", "1,"))

	want := []string{"Invalid Timestamp: 20/14/2022 03:02", "Invalid Timestamp: "}
	if !reflect.DeepEqual(res.WeeklyWarnings, want) || !reflect.DeepEqual(res.HistoricWarnings, want) {
		t.Fatalf("unexpected warnings: %+v", res)
	}
	if res.WeeklyImportedRows != 0 || res.HistoricImportedRows != 0 {
		t.Fatalf("invalid rows must not import: %+v", res)
	}
}

func TestImport_EndToEnd(t *testing.T) {
	f := newFixture(t)
	w1 := f.worker(t, "150.0", "11.5")
	w2 := f.worker(t, "150.0", "11.5")

	res := importCSV(t, f.imports, csvFile("1,2022-06-20 03:02", "2,2022-06-20 03:02"))

	if res.WeeklyImportedRows != 2 || res.HistoricImportedRows != 2 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if len(res.WeeklyWarnings) != 0 || len(res.HistoricWarnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", res)
	}
	if res.ImportID == "" {
		t.Fatalf("expected an import log ID")
	}

	begin := time.Date(2022, 6, 20, 0, 0, 0, 0, time.UTC)
	requestedAt := time.Date(2022, 6, 20, 3, 2, 0, 0, time.UTC)

	for _, w := range []*domain.Worker{w1, w2} {
		var wk domain.WeeklyRequest
		if err := f.db.First(&wk, "worker_id = ?", w.ID).Error; err != nil {
			t.Fatalf("weekly for %d: %v", w.ID, err)
		}
		if !wk.PayoutPeriodBeginningOn.Equal(begin) || !wk.RequestedAt.Equal(requestedAt) {
			t.Fatalf("unexpected weekly row: %+v", wk)
		}

		var hr domain.HistoricRequest
		if err := f.db.First(&hr, "worker_id = ?", w.ID).Error; err != nil {
			t.Fatalf("historic for %d: %v", w.ID, err)
		}
		if !hr.PayoutPeriodBeginningOn.Equal(begin) || !hr.PaysOn.Equal(begin.AddDate(0, 0, 11)) {
			t.Fatalf("unexpected historic period: %+v", hr)
		}
		if !hr.Amount.Equal(decimal.RequireFromString("150")) || !hr.HolidayRate.Equal(decimal.RequireFromString("11.5")) {
			t.Fatalf("unexpected historic money: amount=%s rate=%s", hr.Amount, hr.HolidayRate)
		}
		if hr.HolidayRateCurrency != "GBP" || !hr.CreatedAt.Equal(requestedAt) {
			t.Fatalf("unexpected historic row: %+v", hr)
		}
	}
}

func TestImport_ZeroBalance(t *testing.T) {
	f := newFixture(t)
	f.worker(t, "", "")
	f.worker(t, "", "")

	res := importCSV(t, f.imports, csvFile("1,2022-06-20 03:02", "2,2022-06-20 03:02"))

	if res.WeeklyImportedRows != 2 || len(res.WeeklyWarnings) != 0 {
		t.Fatalf("weekly should import normally: %+v", res)
	}
	want := []string{
		"Worker with id: 1 has no historic holiday pay",
		"Worker with id: 2 has no historic holiday pay",
	}
	if res.HistoricImportedRows != 0 || !reflect.DeepEqual(res.HistoricWarnings, want) {
		t.Fatalf("unexpected historic outcome: %+v", res)
	}
}

func TestImport_DuplicateIndependence(t *testing.T) {
	f := newFixture(t)
	w := f.worker(t, "150.0", "11.5")

	begin := time.Date(2022, 6, 20, 0, 0, 0, 0, time.UTC)
	prior := &domain.HistoricRequest{
		WorkerID: w.ID, PayoutPeriodBeginningOn: begin, PaysOn: begin.AddDate(0, 0, 11),
		HolidayRate: decimal.RequireFromString("11.5"), HolidayRateCurrency: "GBP",
		Amount: decimal.RequireFromString("50"),
	}
	if err := f.db.Create(prior).Error; err != nil {
		t.Fatalf("seed historic: %v", err)
	}

	res := importCSV(t, f.imports, csvFile("1,2022-06-20 03:02"))

	if res.WeeklyImportedRows != 1 || len(res.WeeklyWarnings) != 0 {
		t.Fatalf("weekly should import: %+v", res)
	}
	want := []string{"Historic request for worker_id: 1 already exists for payout period: 2022-06-20"}
	if res.HistoricImportedRows != 0 || !reflect.DeepEqual(res.HistoricWarnings, want) {
		t.Fatalf("unexpected historic outcome: %+v", res)
	}
}

func TestImport_DuplicateAndNoBalanceBothReported(t *testing.T) {
	f := newFixture(t)
	w := f.worker(t, "", "")

	begin := time.Date(2022, 6, 20, 0, 0, 0, 0, time.UTC)
	prior := &domain.HistoricRequest{
		WorkerID: w.ID, PayoutPeriodBeginningOn: begin, PaysOn: begin.AddDate(0, 0, 11),
		HolidayRate: decimal.Zero, HolidayRateCurrency: "GBP", Amount: decimal.Zero,
	}
	if err := f.db.Create(prior).Error; err != nil {
		t.Fatalf("seed historic: %v", err)
	}

	res := importCSV(t, f.imports, csvFile("1,2022-06-21 09:00"))
	want := []string{
		"Historic request for worker_id: 1 already exists for payout period: 2022-06-20",
		"Worker with id: 1 has no historic holiday pay",
	}
	if !reflect.DeepEqual(res.HistoricWarnings, want) {
		t.Fatalf("got %v, want %v", res.HistoricWarnings, want)
	}
}

func TestImport_SecondRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.worker(t, "150.0", "11.5")
	f.worker(t, "150.0", "11.5")
	content := csvFile("1,2022-06-20 03:02", "2,2022-06-20 03:02")

	first := importCSV(t, f.imports, content)
	if first.WeeklyImportedRows != 2 || first.HistoricImportedRows != 2 {
		t.Fatalf("first run: %+v", first)
	}

	second := importCSV(t, f.imports, content)
	if second.WeeklyImportedRows != 0 || second.HistoricImportedRows != 0 {
		t.Fatalf("second run inserted rows: %+v", second)
	}
	wantWeekly := []string{
		"Weekly request for worker_id: 1 already exists for payout period: 2022-06-20",
		"Weekly request for worker_id: 2 already exists for payout period: 2022-06-20",
	}
	if !reflect.DeepEqual(second.WeeklyWarnings, wantWeekly) {
		t.Fatalf("weekly warnings = %v", second.WeeklyWarnings)
	}
	// The first run drew the full balance, so each row also has none left.
	wantHistoric := []string{
		"Historic request for worker_id: 1 already exists for payout period: 2022-06-20",
		"Worker with id: 1 has no historic holiday pay",
		"Historic request for worker_id: 2 already exists for payout period: 2022-06-20",
		"Worker with id: 2 has no historic holiday pay",
	}
	if !reflect.DeepEqual(second.HistoricWarnings, wantHistoric) {
		t.Fatalf("historic warnings = %v", second.HistoricWarnings)
	}

	var weekly, historic int64
	f.db.Model(&domain.WeeklyRequest{}).Count(&weekly)
	f.db.Model(&domain.HistoricRequest{}).Count(&historic)
	if weekly != 2 || historic != 2 {
		t.Fatalf("stored rows changed: weekly=%d historic=%d", weekly, historic)
	}
}

func TestImport_RepeatedPairInOneFile(t *testing.T) {
	f := newFixture(t)
	f.worker(t, "150.0", "11.5")

	res := importCSV(t, f.imports, csvFile("1,2022-06-20 03:02", "1,2022-06-22 10:00"))
	if res.WeeklyImportedRows != 1 || res.HistoricImportedRows != 1 {
		t.Fatalf("same period twice should insert once: %+v", res)
	}
	if len(res.WeeklyWarnings) != 0 || len(res.HistoricWarnings) != 0 {
		t.Fatalf("no warnings expected: %+v", res)
	}
}

func TestImport_RejectsUnsupportedAndMalformedFiles(t *testing.T) {
	f := newFixture(t)
	f.worker(t, "150.0", "11.5")

	_, err := f.imports.Import(context.Background(), ImportRequest{
		Actor: "admin", FileName: "weekly.pdf", Content: []byte("x"),
	})
	if !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
	_, err = f.imports.Import(context.Background(), ImportRequest{
		Actor: "admin", FileName: "weekly.xlsx", Content: []byte("not a workbook"),
	})
	if !errors.Is(err, ErrMalformedFile) {
		t.Fatalf("expected ErrMalformedFile, got %v", err)
	}
	_, err = f.imports.Import(context.Background(), ImportRequest{Actor: "admin", FileName: "weekly.csv"})
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
}

func TestImport_XLSXMatchesCSV(t *testing.T) {
	xf := newFixture(t)
	xf.worker(t, "150.0", "11.5")
	xf.worker(t, "150.0", "11.5")

	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)
	_ = wb.SetSheetRow(sheet, "A1", &[]any{"Worker ID", "Request Timestamp"})
	_ = wb.SetSheetRow(sheet, "A2", &[]any{1, time.Date(2022, 6, 20, 3, 2, 0, 0, time.UTC)})
	_ = wb.SetSheetRow(sheet, "A3", &[]any{"2", "2022-06-20 03:02"})
	_ = wb.SetSheetRow(sheet, "A4", &[]any{"99", "2022-06-20 03:02"})
	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	got, err := xf.imports.Import(context.Background(), ImportRequest{Actor: "admin", FileName: "weekly.xlsx", Content: buf.Bytes()})
	if err != nil {
		t.Fatalf("Import xlsx: %v", err)
	}

	cf := newFixture(t)
	cf.worker(t, "150.0", "11.5")
	cf.worker(t, "150.0", "11.5")
	want := importCSV(t, cf.imports, csvFile("1,2022-06-20 03:02", "2,2022-06-20 03:02", "99,2022-06-20 03:02"))

	if got.WeeklyImportedRows != want.WeeklyImportedRows || got.HistoricImportedRows != want.HistoricImportedRows ||
		!reflect.DeepEqual(got.WeeklyWarnings, want.WeeklyWarnings) || !reflect.DeepEqual(got.HistoricWarnings, want.HistoricWarnings) {
		t.Fatalf("xlsx result %+v differs from csv result %+v", got, want)
	}
	if got.WeeklyImportedRows != 2 || !reflect.DeepEqual(got.WeeklyWarnings, []string{"Unknown worker id: 99"}) {
		t.Fatalf("unexpected xlsx result: %+v", got)
	}

	var wk domain.WeeklyRequest
	if err := xf.db.First(&wk, "worker_id = ?", 1).Error; err != nil {
		t.Fatalf("load weekly: %v", err)
	}
	if !wk.RequestedAt.Equal(time.Date(2022, 6, 20, 3, 2, 0, 0, time.UTC)) {
		t.Fatalf("date serial stored as %v", wk.RequestedAt)
	}
}

func TestImport_LookupsRunOncePerImport(t *testing.T) {
	f := newFixture(t)
	f.worker(t, "150.0", "11.5")
	f.worker(t, "", "")

	counter := &countingImportRepo{}
	stmts := &countingStatements{next: f.accruals, calls: map[uint]int{}}
	f.imports.Repo = counter
	f.imports.Accruals = stmts

	res := importCSV(t, f.imports, csvFile(
		"1,2022-06-20 03:02",
		"1,2022-06-27 09:00",
		"2,2022-06-20 03:02",
		"2,2022-06-28 10:00",
		"42,2022-06-20 03:02",
		"1,not a date",
	))
	if res.WeeklyImportedRows != 4 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if counter.find != 1 || counter.weekly != 1 || counter.historic != 1 {
		t.Fatalf("lookups per import: find=%d weekly=%d historic=%d, want 1/1/1", counter.find, counter.weekly, counter.historic)
	}
	if !reflect.DeepEqual(stmts.calls, map[uint]int{1: 1, 2: 1}) {
		t.Fatalf("statements fetched %v, want once per known worker", stmts.calls)
	}
}

func TestImport_RFC3339KeepsWrittenDate(t *testing.T) {
	f := newFixture(t)
	f.worker(t, "150.0", "11.5")

	res := importCSV(t, f.imports, csvFile("1,2022-06-19T23:30:00Z"))
	if res.WeeklyImportedRows != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	var wk domain.WeeklyRequest
	if err := f.db.First(&wk).Error; err != nil {
		t.Fatalf("load weekly: %v", err)
	}
	if payout.FormatDate(wk.PayoutPeriodBeginningOn) != "2022-06-13" {
		t.Fatalf("period = %s, want 2022-06-13", payout.FormatDate(wk.PayoutPeriodBeginningOn))
	}
	if !wk.RequestedAt.Equal(time.Date(2022, 6, 19, 23, 30, 0, 0, time.UTC)) {
		t.Fatalf("requested_at = %v", wk.RequestedAt)
	}
}

func TestImport_EachPeriodClaimsPreImportBalance(t *testing.T) {
	f := newFixture(t)
	f.worker(t, "150.0", "11.5")

	res := importCSV(t, f.imports, csvFile("1,2022-06-20 03:02", "1,2022-06-27 03:02"))
	if res.HistoricImportedRows != 2 || len(res.HistoricWarnings) != 0 {
		t.Fatalf("unexpected historic outcome: %+v", res)
	}

	var rows []domain.HistoricRequest
	if err := f.db.Order("payout_period_beginning_on").Find(&rows).Error; err != nil {
		t.Fatalf("load historic: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d historic rows", len(rows))
	}
	for _, hr := range rows {
		if !hr.Amount.Equal(decimal.RequireFromString("150")) {
			t.Fatalf("period %s amount = %s, want 150", payout.FormatDate(hr.PayoutPeriodBeginningOn), hr.Amount)
		}
	}
}

func TestImport_StoreFailures(t *testing.T) {
	boom := errors.New("boom")

	t.Run("lookup", func(t *testing.T) {
		f := newFixture(t)
		f.imports.Repo = &fakeImportRepo{findErr: boom}
		_, err := f.imports.Import(context.Background(), ImportRequest{FileName: "w.csv", Content: csvFile("1,2022-06-20")})
		if !errors.Is(err, boom) {
			t.Fatalf("expected lookup error, got %v", err)
		}
	})

	t.Run("insert", func(t *testing.T) {
		f := newFixture(t)
		f.worker(t, "", "")
		f.imports.Repo = &fakeImportRepo{insertErr: boom}
		_, err := f.imports.Import(context.Background(), ImportRequest{FileName: "w.csv", Content: csvFile("1,2022-06-20")})
		if !errors.Is(err, boom) {
			t.Fatalf("expected insert error, got %v", err)
		}
	})

	t.Run("log write is not fatal", func(t *testing.T) {
		f := newFixture(t)
		f.worker(t, "", "")
		f.imports.Repo = &fakeImportRepo{logErr: boom}
		res, err := f.imports.Import(context.Background(), ImportRequest{FileName: "w.csv", Content: csvFile("1,2022-06-20")})
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if res.WeeklyImportedRows != 1 || res.ImportID != "" {
			t.Fatalf("unexpected result: %+v", res)
		}
	})
}

func TestReplay_ReturnsStoredResult(t *testing.T) {
	f := newFixture(t)
	f.worker(t, "", "")
	ctx := context.Background()

	res, err := f.imports.Import(ctx, ImportRequest{
		Actor: "admin", FileName: "w.csv", Content: csvFile("1,2022-06-20", "5,2022-06-20"), IdempotencyKey: "retry-1",
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	got, err := f.imports.Replay(ctx, "admin", "retry-1")
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !reflect.DeepEqual(got, res) {
		t.Fatalf("replay = %+v, want %+v", got, res)
	}

	if _, err := f.imports.Replay(ctx, "someone-else", "retry-1"); !errors.Is(err, ErrImportNotFound) {
		t.Fatalf("expected ErrImportNotFound for other actor, got %v", err)
	}

	f.imports.Now = func() time.Time { return fixedNow.Add(25 * time.Hour) }
	if _, err := f.imports.Replay(ctx, "admin", "retry-1"); !errors.Is(err, ErrImportNotFound) {
		t.Fatalf("expected ErrImportNotFound after TTL, got %v", err)
	}
}

func TestImportLogs_GetAndListPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	items, total, err := f.imports.ListPage(ctx, 0, 0)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("empty list: %v %d %v", items, total, err)
	}

	for i := 0; i < 3; i++ {
		f.imports.Now = func() time.Time { return fixedNow.Add(time.Duration(i) * time.Minute) }
		importCSV(t, f.imports, csvFile("9,2022-06-20"))
	}

	items, total, err = f.imports.ListPage(ctx, 1, 2)
	if err != nil || total != 3 || len(items) != 2 {
		t.Fatalf("page 1: %d items, total %d, err %v", len(items), total, err)
	}
	if items[0].WeeklyWarningCount != 1 || items[0].Rows != 1 {
		t.Fatalf("unexpected log: %+v", items[0])
	}

	got, err := f.imports.Get(ctx, items[0].ID)
	if err != nil || got.ID != items[0].ID {
		t.Fatalf("Get: %v %v", got, err)
	}
	if _, err := f.imports.Get(ctx, "nope"); !errors.Is(err, ErrImportNotFound) {
		t.Fatalf("expected ErrImportNotFound, got %v", err)
	}
}

func TestWorkerIDsOf_DistinctNumericOnly(t *testing.T) {
	rows := []importfile.Row{{WorkerID: "3"}, {WorkerID: "x"}, {WorkerID: "3"}, {WorkerID: "07"}, {WorkerID: ""}, {WorkerID: "-1"}}
	if got := workerIDsOf(rows); !reflect.DeepEqual(got, []uint{3, 7}) {
		t.Fatalf("workerIDsOf = %v", got)
	}
	known := knownSet([]uint{7})
	if _, ok := known["07"]; ok {
		t.Fatalf("non-canonical IDs must not match")
	}
}

func TestValidate_SundayWeekPolicy(t *testing.T) {
	f := newFixture(t)
	f.worker(t, "10", "10")
	f.imports.Policy = payout.Policy{WeekStart: time.Sunday, PaysOnOffsetDays: 5, Location: time.UTC}

	importCSV(t, f.imports, csvFile("1,2022-06-20 03:02"))

	var hr domain.HistoricRequest
	if err := f.db.First(&hr).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if payout.FormatDate(hr.PayoutPeriodBeginningOn) != "2022-06-19" || payout.FormatDate(hr.PaysOn) != "2022-06-24" {
		t.Fatalf("unexpected period: %s / %s", hr.PayoutPeriodBeginningOn, hr.PaysOn)
	}
}
