package missing

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"curvelab/internal/inventory"
	"curvelab/internal/ledger"
	"curvelab/internal/model"
	"curvelab/internal/snapshot"
)

// 扫描参数缺省值
const (
	DefaultWindowDays    = 180
	DefaultHorizonMonths = 3
	sampleLimit          = 10
)

// Engine 缺失扫描引擎
// 两套互相独立的扫描：运营模式（滚动窗口 + 确认过滤）与审计模式（全历史、无过滤）
type Engine struct {
	Snapshots *snapshot.Store
	Ledger    *ledger.Store // 可为 nil，解析失败记录来源
	Now       func() time.Time

	WindowDays    int
	HorizonMonths int
}

// NewEngine 创建缺失扫描引擎
func NewEngine(snapshots *snapshot.Store, lg *ledger.Store) *Engine {
	return &Engine{
		Snapshots:     snapshots,
		Ledger:        lg,
		Now:           time.Now,
		WindowDays:    DefaultWindowDays,
		HorizonMonths: DefaultHorizonMonths,
	}
}

// OperationalReport 运营模式扫描
// ASOF 范围为今天向前 WindowDays 天，宿泊月范围为当月起 HorizonMonths 个月；
// 呈报给用户的计数会剔除与确认记录匹配的行（仅 ERROR/WARN 参与过滤）
func (e *Engine) OperationalReport(hotelID string, inv *inventory.Inventory, ackKeys map[string]bool) ([]model.MissingRecord, error) {
	today := model.DateOf(e.Now())
	windowStart := today.AddDays(-e.WindowDays)
	currentMonth := today.YYYYMM()
	scopeEnd, err := model.AddMonthsYYYYMM(currentMonth, e.HorizonMonths)
	if err != nil {
		return nil, err
	}

	records, err := e.scan(hotelID, inv, scanScope{
		asofMin:      windowStart,
		asofMax:      today,
		stayMonthMin: currentMonth,
		stayMonthMax: scopeEnd,
	})
	if err != nil {
		return nil, err
	}
	return FilterAcked(records, ackKeys), nil
}

// AuditReport 审计模式扫描
// 范围为最早到最晚观测过的宿泊月，ASOF 不晚于今天；确认记录一律不适用，
// 审计永远呈报完整图景
func (e *Engine) AuditReport(hotelID string, inv *inventory.Inventory) ([]model.MissingRecord, error) {
	today := model.DateOf(e.Now())

	months := inv.TargetMonths()
	snapRows, err := e.Snapshots.Read(hotelID)
	if err != nil {
		return nil, err
	}
	for _, r := range snapRows {
		months[r.StayDate.YYYYMM()] = true
	}
	if len(months) == 0 {
		return nil, nil
	}
	minMonth, maxMonth := "", ""
	for m := range months {
		if minMonth == "" || m < minMonth {
			minMonth = m
		}
		if m > maxMonth {
			maxMonth = m
		}
	}

	// ASOF 的期待范围由宿泊月范围倒推：每个宿泊月期待它前 HorizonMonths 个月起的逐日 ASOF
	asofMinMonth, err := model.AddMonthsYYYYMM(minMonth, -e.HorizonMonths)
	if err != nil {
		return nil, err
	}
	asofMin, err := model.MonthStart(asofMinMonth)
	if err != nil {
		return nil, err
	}
	asofMax, err := model.MonthEnd(maxMonth)
	if err != nil {
		return nil, err
	}
	if asofMax.After(today) {
		asofMax = today // 未来日期不可能缺失
	}

	return e.scan(hotelID, inv, scanScope{
		asofMin:      asofMin,
		asofMax:      asofMax,
		stayMonthMin: minMonth,
		stayMonthMax: maxMonth,
	})
}

// scanScope 扫描范围
type scanScope struct {
	asofMin      model.Date
	asofMax      model.Date
	stayMonthMin string
	stayMonthMax string
}

// contains (asof, stay_month) 组合是否落在范围且在 ASOF 的前瞻期内
func (s scanScope) contains(asof model.Date, stayMonth string, horizon int) bool {
	if asof.Before(s.asofMin) || asof.After(s.asofMax) {
		return false
	}
	if stayMonth < s.stayMonthMin || stayMonth > s.stayMonthMax {
		return false
	}
	asofMonth := asof.YYYYMM()
	if stayMonth < asofMonth {
		return false
	}
	maxMonth, err := model.AddMonthsYYYYMM(asofMonth, horizon)
	if err != nil || stayMonth > maxMonth {
		return false
	}
	return true
}

// scan 按范围比对期待组合与实际台帐/快照
func (e *Engine) scan(hotelID string, inv *inventory.Inventory, scope scanScope) ([]model.MissingRecord, error) {
	var records []model.MissingRecord

	asofDates := inv.AsOfDates()

	// 逐日 ASOF：整日无任何文件为 asof_missing，个别组合缺失为 raw_missing
	for d := scope.asofMin; !d.After(scope.asofMax); d = d.AddDays(1) {
		var expected []string
		for m := scope.stayMonthMin; m <= scope.stayMonthMax; {
			if scope.contains(d, m, e.HorizonMonths) {
				expected = append(expected, m)
			}
			next, err := model.AddMonthsYYYYMM(m, 1)
			if err != nil {
				return nil, err
			}
			m = next
		}
		if len(expected) == 0 {
			continue
		}

		if !asofDates[d.String()] {
			records = append(records, model.MissingRecord{
				Kind:         model.KindAsOfMissing,
				HotelID:      hotelID,
				AsOfDate:     d.String(),
				MissingCount: len(expected),
				Message:      "no raw file ingested for this as-of date",
				Path:         inv.RootDir,
				Severity:     model.SeverityError,
			})
			continue
		}
		for _, m := range expected {
			if !inv.HasPair(d, m) {
				records = append(records, model.MissingRecord{
					Kind:          model.KindRawMissing,
					HotelID:       hotelID,
					AsOfDate:      d.String(),
					TargetMonth:   m,
					MissingCount:  1,
					MissingSample: m,
					Path:          inv.RootDir,
					Severity:      model.SeverityWarn,
				})
			}
		}
	}

	snapRecords, err := e.scanSnapshots(hotelID, inv, scope)
	if err != nil {
		return nil, err
	}
	records = append(records, snapRecords...)

	ledgerRecords, err := e.scanParseFailures(hotelID, scope)
	if err != nil {
		return nil, err
	}
	records = append(records, ledgerRecords...)

	return records, nil
}

// scanSnapshots 对已灌入的快照做 on-hand/ACT 补齐检查
func (e *Engine) scanSnapshots(hotelID string, inv *inventory.Inventory, scope scanScope) ([]model.MissingRecord, error) {
	var records []model.MissingRecord
	path := e.Snapshots.Path(hotelID)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return []model.MissingRecord{{
			Kind:     model.KindSnapshotFileMissing,
			HotelID:  hotelID,
			Message:  "daily snapshots file is missing",
			Path:     path,
			Severity: model.SeverityWarn,
		}}, nil
	}

	rows, err := e.Snapshots.Read(hotelID)
	if err != nil {
		return nil, err
	}

	// onhand_missing：每个已灌入的 (asof, 宿泊月) 组里，asof 当日及之后的
	// 宿泊日应当齐全
	type groupKey struct {
		asof  model.Date
		month string
	}
	groups := make(map[groupKey]map[model.Date]bool)
	for _, r := range rows {
		month := r.StayDate.YYYYMM()
		if !scope.contains(r.AsOfDate, month, e.HorizonMonths) {
			continue
		}
		k := groupKey{asof: r.AsOfDate, month: month}
		if groups[k] == nil {
			groups[k] = make(map[model.Date]bool)
		}
		groups[k][r.StayDate] = true
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].asof.Equal(keys[j].asof) {
			return keys[i].asof.Before(keys[j].asof)
		}
		return keys[i].month < keys[j].month
	})

	for _, k := range keys {
		dates, err := model.MonthDates(k.month)
		if err != nil {
			return nil, err
		}
		var missing []model.Date
		for _, d := range dates {
			if d.Before(k.asof) {
				continue
			}
			if !groups[k][d] {
				missing = append(missing, d)
			}
		}
		if len(missing) == 0 {
			continue
		}
		records = append(records, model.MissingRecord{
			Kind:          model.KindOnhandMissing,
			HotelID:       hotelID,
			AsOfDate:      k.asof.String(),
			TargetMonth:   k.month,
			MissingCount:  len(missing),
			MissingSample: sampleDates(missing),
			Path:          path,
			Severity:      model.SeverityWarn,
		})
	}

	actRecords, err := e.scanACT(hotelID, inv, rows, scope)
	if err != nil {
		return nil, err
	}
	return append(records, actRecords...), nil
}

// scanACT 检查每个已关账宿泊月的 ACT 快照完备性
// 关账 ASOF = 台帐中该对象月里月末次日或更晚的最早 ASOF
func (e *Engine) scanACT(hotelID string, inv *inventory.Inventory, rows []model.SnapshotRow, scope scanScope) ([]model.MissingRecord, error) {
	var records []model.MissingRecord
	path := e.Snapshots.Path(hotelID)

	closing := make(map[string]model.Date)
	for _, rec := range inv.Files {
		monthEnd, err := model.MonthEnd(rec.TargetMonth)
		if err != nil {
			continue
		}
		if !rec.AsOfDate.After(monthEnd) {
			continue
		}
		if cur, ok := closing[rec.TargetMonth]; !ok || rec.AsOfDate.Before(cur) {
			closing[rec.TargetMonth] = rec.AsOfDate
		}
	}

	months := make([]string, 0, len(closing))
	for m := range closing {
		if m < scope.stayMonthMin || m > scope.stayMonthMax {
			continue
		}
		months = append(months, m)
	}
	sort.Strings(months)

	byAsofMonth := make(map[string]map[model.Date]bool)
	for _, r := range rows {
		key := r.AsOfDate.String() + "|" + r.StayDate.YYYYMM()
		if byAsofMonth[key] == nil {
			byAsofMonth[key] = make(map[model.Date]bool)
		}
		if r.RoomsOH != nil {
			byAsofMonth[key][r.StayDate] = true
		}
	}

	for _, m := range months {
		closingAsOf := closing[m]
		dates, err := model.MonthDates(m)
		if err != nil {
			return nil, err
		}
		present := byAsofMonth[closingAsOf.String()+"|"+m]

		if len(present) == 0 {
			records = append(records, model.MissingRecord{
				Kind:          model.KindActMissing,
				HotelID:       hotelID,
				AsOfDate:      closingAsOf.String(),
				TargetMonth:   m,
				MissingCount:  len(dates),
				MissingSample: "(no snapshot for closing asof)",
				Path:          path,
				Severity:      model.SeverityError,
			})
			continue
		}

		var missing []model.Date
		for _, d := range dates {
			if !present[d] {
				missing = append(missing, d)
			}
		}
		if len(missing) == 0 {
			continue
		}

		kind := model.KindActMissing
		severity := model.SeverityWarn
		monthEnd := dates[len(dates)-1]
		for _, d := range missing {
			if d.Equal(monthEnd) {
				kind = model.KindActMissingCritical
				severity = model.SeverityError
				break
			}
		}
		records = append(records, model.MissingRecord{
			Kind:          kind,
			HotelID:       hotelID,
			AsOfDate:      closingAsOf.String(),
			TargetMonth:   m,
			MissingCount:  len(missing),
			MissingSample: sampleDates(missing),
			Path:          path,
			Severity:      severity,
		})
	}
	return records, nil
}

// scanParseFailures 把解析失败留痕并入报告
func (e *Engine) scanParseFailures(hotelID string, scope scanScope) ([]model.MissingRecord, error) {
	if e.Ledger == nil {
		return nil, nil
	}
	failures, err := e.Ledger.ListParseFailures(hotelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list parse failures: %w", err)
	}
	var records []model.MissingRecord
	for _, f := range failures {
		if f.AsOfDate != "" {
			asof, err := model.ParseDate(f.AsOfDate)
			// ASOF 可知时按范围过滤，不可知时保留
			if err == nil && (asof.Before(scope.asofMin) || asof.After(scope.asofMax)) {
				continue
			}
		}
		records = append(records, model.MissingRecord{
			Kind:        f.Kind,
			HotelID:     hotelID,
			AsOfDate:    f.AsOfDate,
			TargetMonth: f.TargetMonth,
			Message:     f.Message,
			Path:        f.Path,
			Severity:    f.Severity,
		})
	}
	return records, nil
}

// sampleDates 取前若干个缺失日期作为样本
func sampleDates(dates []model.Date) string {
	n := len(dates)
	if n > sampleLimit {
		n = sampleLimit
	}
	parts := make([]string, 0, n)
	for _, d := range dates[:n] {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, ",")
}
