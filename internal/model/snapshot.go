package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotRow 日别快照行，唯一键为 (hotel_id, as_of_date, stay_date)
// 数值列允许为空（缺测 ≠ 0）
type SnapshotRow struct {
	HotelID   string           `csv:"hotel_id" json:"hotelId"`
	AsOfDate  Date             `csv:"as_of_date" json:"asOfDate"`
	StayDate  Date             `csv:"stay_date" json:"stayDate"`
	RoomsOH   *decimal.Decimal `csv:"rooms_oh" json:"roomsOh"`
	PaxOH     *decimal.Decimal `csv:"pax_oh" json:"paxOh"`
	RevenueOH *decimal.Decimal `csv:"revenue_oh" json:"revenueOh"`
}

// Key 返回快照行的唯一键
func (r SnapshotRow) Key() SnapshotKey {
	return SnapshotKey{HotelID: r.HotelID, AsOfDate: r.AsOfDate, StayDate: r.StayDate}
}

// SnapshotKey 快照行唯一键
type SnapshotKey struct {
	HotelID  string
	AsOfDate Date
	StayDate Date
}

// RawFileRecord 原始 PMS 文件台帐记录
// 每家酒店内以 (target_month, asof_date) 为唯一键，重复键通过 mtime 决算
type RawFileRecord struct {
	Path        string    `json:"path"`
	HotelID     string    `json:"hotelId"`
	TargetMonth string    `json:"targetMonth"`
	AsOfDate    Date      `json:"asofDate"`
	ModTime     time.Time `json:"mtime"`
}

// Dec 构造 decimal 指针，测试与广播时使用
func Dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// DecFromString 从字符串构造 decimal 指针，非法输入返回 nil
func DecFromString(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}
