package curve

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"curvelab/internal/model"
)

// BuildMonthlyCurve 聚合月次订房曲线
//
// 按 ASOF 分组，对对象月内宿泊日的指标求和（缺测格跳过），得到
// “该 ASOF 观测到的月累计”，再按 lt = 月末 - ASOF 的天数归桶。
// 负 lt 一律归入 -1（ACT），多个月末后 ASOF 竞争时最早者胜，与 LT
// 表的 ACT 判定保持一致。本函数只从快照行派生，绝不回读 LT 表产物。
func BuildMonthlyCurve(rows []model.SnapshotRow, hotelID, targetMonth string, metric model.Metric, maxLT int) (*model.MonthlyCurve, error) {
	monthEnd, err := model.MonthEnd(targetMonth)
	if err != nil {
		return nil, fmt.Errorf("invalid target month: %w", err)
	}

	curve := &model.MonthlyCurve{
		HotelID:     hotelID,
		TargetMonth: targetMonth,
		Metric:      metric,
		MaxLT:       maxLT,
	}

	type asofTotal struct {
		asof  model.Date
		total decimal.Decimal
		n     int
	}
	totals := make(map[model.Date]*asofTotal)
	for _, r := range rows {
		if r.StayDate.YYYYMM() != targetMonth {
			continue
		}
		v, ok := r.MetricValue(metric)
		if !ok {
			continue
		}
		t, exists := totals[r.AsOfDate]
		if !exists {
			t = &asofTotal{asof: r.AsOfDate}
			totals[r.AsOfDate] = t
		}
		t.total = t.total.Add(v)
		t.n++
	}

	byLT := make(map[int]asofTotal)
	for _, t := range totals {
		lt := monthEnd.DaysSince(t.asof)
		if lt > maxLT {
			continue
		}
		if lt < 0 {
			lt = model.ACTLT
		}
		if prev, ok := byLT[lt]; ok {
			// 只有 -1 桶可能撞键：取月末后最早的 ASOF
			if prev.asof.Before(t.asof) {
				continue
			}
		}
		byLT[lt] = *t
	}

	lts := make([]int, 0, len(byLT))
	for lt := range byLT {
		lts = append(lts, lt)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(lts)))

	for _, lt := range lts {
		curve.Points = append(curve.Points, model.CurvePoint{LT: lt, Total: byLT[lt].total})
	}
	return curve, nil
}
