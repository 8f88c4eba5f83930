package parser

import (
	"curvelab/internal/model"
)

// LayoutKind 版面类型
type LayoutKind string

const (
	LayoutInline  LayoutKind = "inline"  // 一行一宿泊日
	LayoutShifted LayoutKind = "shifted" // 两行一宿泊日，OH 在日期行下一行
	LayoutStop    LayoutKind = "stop"    // 拒绝解析
)

// StopReason 拒绝解析的原因，宁可停止也不猜测
type StopReason string

const (
	StopNoDateColumn  StopReason = "no_date_column"
	StopLayoutUnknown StopReason = "layout_unknown"
)

// 固定的列契约：A 列宿泊日、C 列星期（可选）、E/F/G 列 rooms/pax/revenue
const (
	colStayDate = 0
	colWeekday  = 2
	colRooms    = 4
	colPax      = 5
	colRevenue  = 6

	// 宿泊日候选从第 9 行开始搜索，避开表头中手工填写的日期
	dateSearchStartRow = 8

	// ASOF 指定单元格 Q1
	asofCellRow = 0
	asofCellCol = 16
)

// dateRow A 列含有效日期的行
type dateRow struct {
	row  int
	date model.Date
}

// LayoutResult 版面分类结果，每个文件只判定一次
type LayoutResult struct {
	Kind     LayoutKind
	Reason   StopReason
	dateRows []dateRow
	spacers  int // 被识别为装饰行的数量
}

// FileMeta 单个原始文件的外部信息
type FileMeta struct {
	Path    string
	HotelID string
}

// 文件级解析状态
const (
	StatusImported = "imported"
	StatusStopped  = "stopped"
	StatusError    = "error"
)

// ParseOutcome 单文件解析结果，批处理按文件逐个汇报
type ParseOutcome struct {
	Path        string     `json:"path"`
	Status      string     `json:"status"`
	StopReason  StopReason `json:"stopReason,omitempty"`
	Layout      LayoutKind `json:"layout,omitempty"`
	AsOfDate    model.Date `json:"asofDate,omitempty"`
	TargetMonth string     `json:"targetMonth,omitempty"`
	Rows        int        `json:"rows"`
	Skipped     int        `json:"skipped"`
	Warnings    []string   `json:"warnings,omitempty"`
	Message     string     `json:"message,omitempty"`
}
