package missing

import (
	"strings"
	"testing"
	"time"

	"curvelab/internal/inventory"
	"curvelab/internal/model"
	"curvelab/internal/snapshot"
)

func day(y int, m time.Month, d int) model.Date {
	return model.NewDate(y, m, d)
}

// invWith 组装指定 (target_month, asof) 组合的台帐
func invWith(pairs ...[2]string) *inventory.Inventory {
	files := make(map[inventory.Key]model.RawFileRecord)
	for _, p := range pairs {
		month, asofDigits := p[0], p[1]
		t, _ := time.Parse("20060102", asofDigits)
		files[inventory.Key{TargetMonth: month, AsOfDate: asofDigits}] = model.RawFileRecord{
			Path:        "raw/booking_" + month + "_" + asofDigits + ".xlsx",
			HotelID:     "h1",
			TargetMonth: month,
			AsOfDate:    model.DateOf(t),
		}
	}
	return &inventory.Inventory{HotelID: "h1", RootDir: "raw", Files: files}
}

func newTestEngine(t *testing.T, now time.Time) (*Engine, *snapshot.Store) {
	t.Helper()
	store := snapshot.NewStore(t.TempDir())
	e := NewEngine(store, nil)
	e.Now = func() time.Time { return now }
	return e, store
}

func countKind(records []model.MissingRecord, kind string) int {
	n := 0
	for _, r := range records {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

func findKind(records []model.MissingRecord, kind string) (model.MissingRecord, bool) {
	for _, r := range records {
		if r.Kind == kind {
			return r, true
		}
	}
	return model.MissingRecord{}, false
}

func TestOperationalReport_AsOfMissingVsRawMissing(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(t, now)
	e.WindowDays = 1
	e.HorizonMonths = 3

	// 03-09 有当月文件但缺前瞻月，03-10 整日无文件
	inv := invWith([2]string{"202303", "20230309"})

	records, err := e.OperationalReport("h1", inv, nil)
	if err != nil {
		t.Fatalf("OperationalReport: %v", err)
	}

	// 03-09 应有 202304..202306 三个组合的 raw_missing
	if n := countKind(records, model.KindRawMissing); n != 3 {
		t.Fatalf("raw_missing = %d, want 3", n)
	}
	asofMissing, ok := findKind(records, model.KindAsOfMissing)
	if !ok {
		t.Fatalf("expected asof_missing for 03-10")
	}
	if asofMissing.AsOfDate != "2023-03-10" {
		t.Fatalf("asof_missing date = %s, want 2023-03-10", asofMissing.AsOfDate)
	}
	if asofMissing.MissingCount != 4 {
		t.Fatalf("asof_missing count = %d, want 4 expected months", asofMissing.MissingCount)
	}
	if asofMissing.Severity != model.SeverityError {
		t.Fatalf("asof_missing severity = %s, want ERROR", asofMissing.Severity)
	}

	// 快照文件尚未生成
	if n := countKind(records, model.KindSnapshotFileMissing); n != 1 {
		t.Fatalf("snapshot_file_missing = %d, want 1", n)
	}
}

func TestOperationalReport_HorizonBoundsExpectation(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(t, now)
	e.WindowDays = 1
	e.HorizonMonths = 3

	inv := invWith(
		[2]string{"202303", "20230309"},
		[2]string{"202303", "20230310"},
		[2]string{"202304", "20230309"},
		[2]string{"202304", "20230310"},
		[2]string{"202305", "20230309"},
		[2]string{"202305", "20230310"},
		[2]string{"202306", "20230309"},
		[2]string{"202306", "20230310"},
	)

	records, err := e.OperationalReport("h1", inv, nil)
	if err != nil {
		t.Fatalf("OperationalReport: %v", err)
	}
	// 前瞻期满配：既无 raw_missing 也无 asof_missing，202307 不在期待内
	if n := countKind(records, model.KindRawMissing); n != 0 {
		t.Fatalf("raw_missing = %d, want 0", n)
	}
	if n := countKind(records, model.KindAsOfMissing); n != 0 {
		t.Fatalf("asof_missing = %d, want 0", n)
	}
}

func TestOperationalReport_AckSuppressesRecords(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(t, now)
	e.WindowDays = 1
	e.HorizonMonths = 3

	inv := invWith([2]string{"202303", "20230309"})

	records, err := e.OperationalReport("h1", inv, nil)
	if err != nil {
		t.Fatalf("OperationalReport: %v", err)
	}
	target, ok := findKind(records, model.KindRawMissing)
	if !ok {
		t.Fatalf("no raw_missing to ack")
	}

	acked, err := e.OperationalReport("h1", inv, map[string]bool{target.AckKey(): true})
	if err != nil {
		t.Fatalf("OperationalReport with acks: %v", err)
	}
	if len(acked) != len(records)-1 {
		t.Fatalf("acked report = %d records, want %d", len(acked), len(records)-1)
	}
}

func TestOperationalReport_OnhandMissing(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)
	e, store := newTestEngine(t, now)
	e.WindowDays = 1
	e.HorizonMonths = 3

	inv := invWith([2]string{"202303", "20230309"})

	// asof 03-09 只灌了 03-09 与 03-10 两个宿泊日，其后到月末缺失
	asof := day(2023, time.March, 9)
	err := store.Append("h1", []model.SnapshotRow{
		{HotelID: "h1", AsOfDate: asof, StayDate: day(2023, time.March, 9), RoomsOH: model.Dec(10)},
		{HotelID: "h1", AsOfDate: asof, StayDate: day(2023, time.March, 10), RoomsOH: model.Dec(12)},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := e.OperationalReport("h1", inv, nil)
	if err != nil {
		t.Fatalf("OperationalReport: %v", err)
	}
	onhand, ok := findKind(records, model.KindOnhandMissing)
	if !ok {
		t.Fatalf("expected onhand_missing")
	}
	// 3 月共 31 天，03-09 起 23 天应在快照内，实有 2 天
	if onhand.MissingCount != 21 {
		t.Fatalf("onhand missing count = %d, want 21", onhand.MissingCount)
	}
	if onhand.TargetMonth != "202303" || onhand.AsOfDate != "2023-03-09" {
		t.Fatalf("onhand group = (%s, %s)", onhand.TargetMonth, onhand.AsOfDate)
	}
}

func TestOperationalVsAudit_HistoricalGapOnlyInAudit(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(t, now)
	e.WindowDays = 1
	e.HorizonMonths = 3

	// 台帐只剩一个历史组合：202211 只在 11-05 收到过文件
	inv := invWith([2]string{"202211", "20221105"})

	ops, err := e.OperationalReport("h1", inv, nil)
	if err != nil {
		t.Fatalf("OperationalReport: %v", err)
	}
	for _, r := range ops {
		if strings.HasPrefix(r.AsOfDate, "2022") || r.TargetMonth == "202211" {
			t.Fatalf("operational window must not surface the 2022 gap: %+v", r)
		}
	}

	audit, err := e.AuditReport("h1", inv)
	if err != nil {
		t.Fatalf("AuditReport: %v", err)
	}
	found := false
	for _, r := range audit {
		if r.Kind == model.KindAsOfMissing && strings.HasPrefix(r.AsOfDate, "2022-11") {
			found = true
		}
	}
	if !found {
		t.Fatalf("audit must surface the 2022-11 asof gaps, got %d records", len(audit))
	}
	// 11-05 当天组合齐备，不该再报 raw_missing
	if n := countKind(audit, model.KindRawMissing); n != 0 {
		t.Fatalf("raw_missing = %d, want 0", n)
	}
}

func TestAuditReport_ActMissingMonthEndCritical(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)
	e, store := newTestEngine(t, now)

	// 关账 ASOF：202302 里月末次日的 03-01
	inv := invWith([2]string{"202302", "20230301"})

	// 关账快照缺月末 02-28
	closing := day(2023, time.March, 1)
	var rows []model.SnapshotRow
	for d := 1; d <= 27; d++ {
		rows = append(rows, model.SnapshotRow{
			HotelID: "h1", AsOfDate: closing, StayDate: day(2023, time.February, d), RoomsOH: model.Dec(int64(d)),
		})
	}
	if err := store.Append("h1", rows); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := e.AuditReport("h1", inv)
	if err != nil {
		t.Fatalf("AuditReport: %v", err)
	}
	act, ok := findKind(records, model.KindActMissingCritical)
	if !ok {
		t.Fatalf("expected act_missing_month_end_critical")
	}
	if act.Severity != model.SeverityError || act.MissingCount != 1 {
		t.Fatalf("act record = %+v", act)
	}
	if act.AsOfDate != "2023-03-01" || act.TargetMonth != "202302" {
		t.Fatalf("act closing = (%s, %s)", act.TargetMonth, act.AsOfDate)
	}
}

func TestAuditReport_ActMissingMidMonthIsWarn(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)
	e, store := newTestEngine(t, now)

	inv := invWith([2]string{"202302", "20230301"})

	// 月末在、月中 02-15 缺
	closing := day(2023, time.March, 1)
	var rows []model.SnapshotRow
	for d := 1; d <= 28; d++ {
		if d == 15 {
			continue
		}
		rows = append(rows, model.SnapshotRow{
			HotelID: "h1", AsOfDate: closing, StayDate: day(2023, time.February, d), RoomsOH: model.Dec(int64(d)),
		})
	}
	if err := store.Append("h1", rows); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := e.AuditReport("h1", inv)
	if err != nil {
		t.Fatalf("AuditReport: %v", err)
	}
	if _, ok := findKind(records, model.KindActMissingCritical); ok {
		t.Fatalf("mid-month gap must not be critical")
	}
	act, ok := findKind(records, model.KindActMissing)
	if !ok {
		t.Fatalf("expected act_missing")
	}
	if act.Severity != model.SeverityWarn || act.MissingSample != "2023-02-15" {
		t.Fatalf("act record = %+v", act)
	}
}

func TestAuditReport_NoClosingSnapshotIsError(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)
	e, store := newTestEngine(t, now)

	inv := invWith([2]string{"202302", "20230301"})

	// 快照文件存在但关账 ASOF 没有任何行
	err := store.Append("h1", []model.SnapshotRow{
		{HotelID: "h1", AsOfDate: day(2023, time.February, 15), StayDate: day(2023, time.February, 20), RoomsOH: model.Dec(30)},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := e.AuditReport("h1", inv)
	if err != nil {
		t.Fatalf("AuditReport: %v", err)
	}
	act, ok := findKind(records, model.KindActMissing)
	if !ok {
		t.Fatalf("expected act_missing for absent closing snapshot")
	}
	if act.Severity != model.SeverityError {
		t.Fatalf("severity = %s, want ERROR", act.Severity)
	}
	if act.MissingSample != "(no snapshot for closing asof)" {
		t.Fatalf("sample = %q", act.MissingSample)
	}
}

func TestAuditReport_IgnoresAcks(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(t, now)
	e.HorizonMonths = 3

	inv := invWith([2]string{"202303", "20230309"})

	// 审计接口没有确认参数：全量呈报是接口形状本身保证的
	records, err := e.AuditReport("h1", inv)
	if err != nil {
		t.Fatalf("AuditReport: %v", err)
	}
	if len(records) == 0 {
		t.Fatalf("audit report should surface the full history")
	}
	if n := countKind(records, model.KindAsOfMissing); n == 0 {
		t.Fatalf("expected historical asof_missing records")
	}
}
