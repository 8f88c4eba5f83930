package curve

import (
	"sort"

	"github.com/shopspring/decimal"

	"curvelab/internal/model"
)

// DefaultMaxLT 缺省的最大 lead time 天数
const DefaultMaxLT = 120

// ltKey 交叉表分组键
type ltKey struct {
	stay model.Date
	lt   int
}

// BuildLTTable 把对象月的快照行整形为 宿泊日 × lead time 交叉表
//
// lt = stay_date - as_of_date 的天数，仅保留 0..maxLT；同键取 ASOF 较新者。
// ACT(-1) 只在存在 as_of_date > stay_date 的快照时填充，取严格晚于宿泊日的
// 最早 ASOF 的值，未着地的宿泊日保持空，不做任何推断或补间。
func BuildLTTable(rows []model.SnapshotRow, hotelID, targetMonth string, metric model.Metric, maxLT int) *model.LTTable {
	table := &model.LTTable{
		HotelID:     hotelID,
		TargetMonth: targetMonth,
		Metric:      metric,
		MaxLT:       maxLT,
	}

	// 指标缺测的行不参与（0 保留）
	usable := make([]model.SnapshotRow, 0, len(rows))
	for _, r := range rows {
		if r.StayDate.YYYYMM() != targetMonth {
			continue
		}
		if _, ok := r.MetricValue(metric); ok {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		return table
	}

	// 0..maxLT 交叉表：同 (stay, lt) 键后来的 ASOF 胜
	cells := make(map[ltKey]model.SnapshotRow)
	for _, r := range usable {
		lt := r.StayDate.DaysSince(r.AsOfDate)
		if lt < 0 || lt > maxLT {
			continue
		}
		key := ltKey{stay: r.StayDate, lt: lt}
		if prev, ok := cells[key]; ok && prev.AsOfDate.After(r.AsOfDate) {
			continue
		}
		cells[key] = r
	}

	// ACT：每个宿泊日取严格晚于它的最早 ASOF
	act := make(map[model.Date]model.SnapshotRow)
	for _, r := range usable {
		if !r.AsOfDate.After(r.StayDate) {
			continue
		}
		if prev, ok := act[r.StayDate]; ok && prev.AsOfDate.Before(r.AsOfDate) {
			continue
		}
		act[r.StayDate] = r
	}

	stays := make(map[model.Date]bool)
	for k := range cells {
		stays[k.stay] = true
	}
	for stay := range act {
		stays[stay] = true
	}

	stayList := make([]model.Date, 0, len(stays))
	for stay := range stays {
		stayList = append(stayList, stay)
	}
	sort.Slice(stayList, func(i, j int) bool { return stayList[i].Before(stayList[j]) })

	for _, stay := range stayList {
		row := model.LTRow{StayDate: stay, Cells: make(map[int]decimal.Decimal)}
		for lt := 0; lt <= maxLT; lt++ {
			if r, ok := cells[ltKey{stay: stay, lt: lt}]; ok {
				v, _ := r.MetricValue(metric)
				row.Cells[lt] = v
			}
		}
		if r, ok := act[stay]; ok {
			v, _ := r.MetricValue(metric)
			row.Cells[model.ACTLT] = v
		}
		table.Rows = append(table.Rows, row)
	}

	return table
}
