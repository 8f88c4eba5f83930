package model

import "github.com/shopspring/decimal"

// ACTLT ACT 列对应的 lead time 取值
const ACTLT = -1

// Metric 快照指标类型
type Metric string

const (
	MetricRooms   Metric = "rooms"
	MetricPax     Metric = "pax"
	MetricRevenue Metric = "revenue"
)

// MetricValue 按指标取出快照行的数值，缺测返回 ok=false
func (r SnapshotRow) MetricValue(m Metric) (decimal.Decimal, bool) {
	var p *decimal.Decimal
	switch m {
	case MetricRooms:
		p = r.RoomsOH
	case MetricPax:
		p = r.PaxOH
	case MetricRevenue:
		p = r.RevenueOH
	}
	if p == nil {
		return decimal.Decimal{}, false
	}
	return *p, true
}

// LTTable 宿泊日 × lead time 交叉表，纯派生视图
// lt ∈ {-1, 0, .., MaxLT}，-1 为 ACT 列；无观测的单元格不出现在 Cells 中
type LTTable struct {
	HotelID     string  `json:"hotelId"`
	TargetMonth string  `json:"targetMonth"`
	Metric      Metric  `json:"metric"`
	MaxLT       int     `json:"maxLt"`
	Rows        []LTRow `json:"rows"`
}

// LTRow 单个宿泊日的 lead time 行
type LTRow struct {
	StayDate Date                    `json:"stayDate"`
	Cells    map[int]decimal.Decimal `json:"cells"`
}

// MonthlyCurve 月次累计订房曲线，与 LTTable 相互独立、同源派生
type MonthlyCurve struct {
	HotelID     string       `json:"hotelId"`
	TargetMonth string       `json:"targetMonth"`
	Metric      Metric       `json:"metric"`
	MaxLT       int          `json:"maxLt"`
	Points      []CurvePoint `json:"points"`
}

// CurvePoint 单个 lead time 上的月次合计
type CurvePoint struct {
	LT    int             `csv:"lt" json:"lt"`
	Total decimal.Decimal `csv:"total" json:"total"`
}
