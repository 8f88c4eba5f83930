package model

import "strings"

// 缺失记录的 kind 值
const (
	KindRawMissing          = "raw_missing"
	KindAsOfMissing         = "asof_missing"
	KindOnhandMissing       = "onhand_missing"
	KindActMissing          = "act_missing"
	KindActMissingCritical  = "act_missing_month_end_critical"
	KindSnapshotFileMissing = "snapshot_file_missing"
	KindLayoutUnknown       = "layout_unknown"
	KindNoDateColumn        = "no_date_column"
)

// 严重度
const (
	SeverityError = "ERROR"
	SeverityWarn  = "WARN"
	SeverityInfo  = "INFO"
)

// MissingRecord 缺失记录，每次扫描重新生成，仅以 CSV 产物落盘
type MissingRecord struct {
	Kind          string `csv:"kind" json:"kind"`
	HotelID       string `csv:"hotel_id" json:"hotelId"`
	AsOfDate      string `csv:"asof_date" json:"asofDate"`
	TargetMonth   string `csv:"target_month" json:"targetMonth"`
	MissingCount  int    `csv:"missing_count" json:"missingCount"`
	MissingSample string `csv:"missing_sample" json:"missingSample"`
	Message       string `csv:"message" json:"message"`
	Path          string `csv:"path" json:"path"`
	Severity      string `csv:"severity" json:"severity"`
}

// AckKey 返回用于确认匹配的识别键
func (r MissingRecord) AckKey() string {
	return BuildAckKey(r.Kind, r.TargetMonth, r.AsOfDate, r.Path)
}

// AckRecord 运营模式专用的缺失确认记录
// 识别键为 (kind, target_month, asof_date, path)，acked_at/severity 仅作记录
type AckRecord struct {
	Kind        string `csv:"kind" json:"kind"`
	TargetMonth string `csv:"target_month" json:"targetMonth"`
	AsOfDate    string `csv:"asof_date" json:"asofDate"`
	Path        string `csv:"path" json:"path"`
	AckedAt     string `csv:"acked_at" json:"ackedAt"`
	Severity    string `csv:"severity" json:"severity"`
}

// Key 返回确认记录的识别键
func (a AckRecord) Key() string {
	return BuildAckKey(a.Kind, a.TargetMonth, a.AsOfDate, a.Path)
}

// BuildAckKey 拼接确认识别键
func BuildAckKey(kind, targetMonth, asofDate, path string) string {
	return strings.Join([]string{
		strings.TrimSpace(kind),
		strings.TrimSpace(targetMonth),
		strings.TrimSpace(asofDate),
		strings.TrimSpace(path),
	}, "|")
}
