package model

import (
	"fmt"
	"time"
)

// Date 自然日（无时区、无时刻），内部统一为 UTC 零点
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

// NewDate 创建指定年月日的 Date
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf 截取时间的日期部分
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate 解析 YYYY-MM-DD 格式的日期
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// IsZero 是否为零值日期
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Time 返回 UTC 零点时刻
func (d Date) Time() time.Time {
	return d.t
}

// AddDays 偏移指定天数
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysSince 返回 d - o 的天数差
func (d Date) DaysSince(o Date) int {
	return int(d.t.Sub(o.t).Hours() / 24)
}

// Before 日期先后比较
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After 日期先后比较
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// Equal 日期相等比较
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// Weekday 返回星期
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// YYYYMM 返回所属月份（如 "202404"）
func (d Date) YYYYMM() string {
	return d.t.Format("200601")
}

// String 输出 YYYY-MM-DD
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

// MarshalText CSV/JSON 序列化为 YYYY-MM-DD，零值输出空串
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText 空串解析为零值
func (d *Date) UnmarshalText(data []byte) error {
	s := string(data)
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthStart 返回 YYYYMM 月份的首日
func MonthStart(yyyymm string) (Date, error) {
	t, err := time.Parse("200601", yyyymm)
	if err != nil {
		return Date{}, fmt.Errorf("invalid month %q: %w", yyyymm, err)
	}
	return DateOf(t), nil
}

// MonthEnd 返回 YYYYMM 月份的末日
func MonthEnd(yyyymm string) (Date, error) {
	start, err := MonthStart(yyyymm)
	if err != nil {
		return Date{}, err
	}
	return Date{t: start.t.AddDate(0, 1, -1)}, nil
}

// AddMonthsYYYYMM 对 YYYYMM 月份加减月数
func AddMonthsYYYYMM(yyyymm string, delta int) (string, error) {
	start, err := MonthStart(yyyymm)
	if err != nil {
		return "", err
	}
	return start.t.AddDate(0, delta, 0).Format("200601"), nil
}

// MonthRange 返回 [from, to] 间的全部 YYYYMM 月份（含两端）
func MonthRange(from, to string) ([]string, error) {
	start, err := MonthStart(from)
	if err != nil {
		return nil, err
	}
	end, err := MonthStart(to)
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, fmt.Errorf("month range start %s after end %s", from, to)
	}
	var months []string
	for cur := start.t; !cur.After(end.t); cur = cur.AddDate(0, 1, 0) {
		months = append(months, cur.Format("200601"))
	}
	return months, nil
}

// MonthDates 返回 YYYYMM 月份内的全部日期
func MonthDates(yyyymm string) ([]Date, error) {
	start, err := MonthStart(yyyymm)
	if err != nil {
		return nil, err
	}
	end, err := MonthEnd(yyyymm)
	if err != nil {
		return nil, err
	}
	var dates []Date
	for d := start; !d.After(end); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates, nil
}
