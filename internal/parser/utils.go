package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"curvelab/internal/model"
)

// Excel 序列值的基准日（1900 日期系统，含闰年 bug 补偿）
var excelBaseDate = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// 单元格里常见的日期写法
var dateCellLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"01-02-06",
	"1/2/06",
	"20060102",
}

// ParseDateCell 解析单元格中的日期
// 支持常见日期字符串与 Excel 序列值；无法解析时返回 ok=false
func ParseDateCell(raw string) (model.Date, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return model.Date{}, false
	}

	for _, layout := range dateCellLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			// 两位年份等歧义写法解析出的极端年份按无效处理
			if t.Year() >= 1990 && t.Year() <= 2100 {
				return model.DateOf(t), true
			}
		}
	}

	// Excel 序列值（未套日期格式时 GetRows 会给出数字文本）
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial >= 32874 && serial <= 73415 { // 1990-01-01 .. 2100-12-31
			t := excelBaseDate.Add(time.Duration(serial * 24 * float64(time.Hour)))
			return model.DateOf(t), true
		}
	}

	return model.Date{}, false
}

// ParseNumericCell 解析 OH 数值单元格
// 清除千分位逗号与货币符号；无法解析时返回 nil（该格置空，不整行失败）
func ParseNumericCell(raw string) *decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "¥")
	s = strings.TrimPrefix(s, "￥")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// cellAt 安全取格，越界返回空串
func cellAt(grid [][]string, row, col int) string {
	if row < 0 || row >= len(grid) {
		return ""
	}
	cells := grid[row]
	if col < 0 || col >= len(cells) {
		return ""
	}
	return cells[col]
}

// rowIsBlank 整行是否为空
func rowIsBlank(grid [][]string, row int) bool {
	if row < 0 || row >= len(grid) {
		return true
	}
	for _, c := range grid[row] {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// isZeroOrBlank OH 格是否为零值或空
func isZeroOrBlank(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return true
	}
	d := ParseNumericCell(s)
	return d != nil && d.IsZero()
}

var (
	asofNameRe  = regexp.MustCompile(`(20\d{6})`)
	monthNameRe = regexp.MustCompile(`(20\d{4})`)
)

// ParseFilenameAsOf 从文件名中提取 ASOF 日期（YYYYMMDD 连写）
func ParseFilenameAsOf(name string) (model.Date, bool) {
	m := asofNameRe.FindStringSubmatch(name)
	if m == nil {
		return model.Date{}, false
	}
	t, err := time.Parse("20060102", m[1])
	if err != nil {
		return model.Date{}, false
	}
	return model.DateOf(t), true
}

// ParseFilenameMonth 从文件名中提取对象月 YYYYMM
// 先剔除 8 位 ASOF 连写，避免把 ASOF 的前 6 位误判成月份
func ParseFilenameMonth(name string) (string, bool) {
	stripped := asofNameRe.ReplaceAllString(name, "")
	m := monthNameRe.FindStringSubmatch(stripped)
	if m == nil {
		return "", false
	}
	if _, err := time.Parse("200601", m[1]); err != nil {
		return "", false
	}
	return m[1], true
}

// ParseNFaceFilename 从 N@FACE 文件名中提取 (target_month, asof_date)
func ParseNFaceFilename(name string) (targetMonth string, asof model.Date, ok bool) {
	asof, okAsof := ParseFilenameAsOf(name)
	targetMonth, okMonth := ParseFilenameMonth(name)
	return targetMonth, asof, okAsof && okMonth
}
