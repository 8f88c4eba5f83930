package exporter

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"curvelab/internal/curve"
	"curvelab/internal/model"
	"curvelab/internal/snapshot"
)

// Exporter 订房曲线工作簿导出器
// 每个指标一张 LT 矩阵页，外加一张月次曲线汇总页
type Exporter struct {
	snapshots *snapshot.Store
	maxLT     int
}

// NewExporter 创建导出器
func NewExporter(snapshots *snapshot.Store, maxLT int) *Exporter {
	if maxLT <= 0 {
		maxLT = curve.DefaultMaxLT
	}
	return &Exporter{snapshots: snapshots, maxLT: maxLT}
}

// ExportOptions 导出选项
type ExportOptions struct {
	HotelID     string
	TargetMonth string // YYYYMM
	Metrics     []model.Metric
}

// WorkbookName 导出文件名
func WorkbookName(hotelID, targetMonth string) string {
	return fmt.Sprintf("booking_curve_%s_%s.xlsx", hotelID, targetMonth)
}

// Export 生成导出工作簿
func (e *Exporter) Export(opts ExportOptions) (*excelize.File, error) {
	metrics := opts.Metrics
	if len(metrics) == 0 {
		metrics = []model.Metric{model.MetricRooms, model.MetricPax, model.MetricRevenue}
	}

	rows, err := e.snapshots.ReadForMonth(opts.HotelID, opts.TargetMonth)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots for export: %w", err)
	}

	f := excelize.NewFile()
	first := true
	for _, m := range metrics {
		table := curve.BuildLTTable(rows, opts.HotelID, opts.TargetMonth, m, e.maxLT)
		sheet := fmt.Sprintf("LT_%s", m)
		if first {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
			first = false
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
			}
		}
		if err := e.fillLTSheet(f, sheet, table); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	if err := e.fillCurveSheet(f, rows, opts, metrics); err != nil {
		_ = f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// fillLTSheet 填充 LT 矩阵页：首列宿泊日，其后 maxLT..0 与 ACT(-1) 列
func (e *Exporter) fillLTSheet(f *excelize.File, sheet string, table *model.LTTable) error {
	header := []interface{}{"stay_date"}
	for lt := table.MaxLT; lt >= 0; lt-- {
		header = append(header, strconv.Itoa(lt))
	}
	header = append(header, strconv.Itoa(model.ACTLT))
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header on %s: %w", sheet, err)
	}

	for i, row := range table.Rows {
		out := []interface{}{row.StayDate.String()}
		for lt := table.MaxLT; lt >= 0; lt-- {
			out = append(out, ltCell(row.Cells, lt))
		}
		out = append(out, ltCell(row.Cells, model.ACTLT))
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to locate cell on %s: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &out); err != nil {
			return fmt.Errorf("failed to write row on %s: %w", sheet, err)
		}
	}
	return nil
}

// fillCurveSheet 填充月次曲线页：各指标一列，行键为 lead time
func (e *Exporter) fillCurveSheet(f *excelize.File, rows []model.SnapshotRow, opts ExportOptions, metrics []model.Metric) error {
	const sheet = "monthly_curve"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	curves := make(map[model.Metric]map[int]decimal.Decimal, len(metrics))
	for _, m := range metrics {
		mc, err := curve.BuildMonthlyCurve(rows, opts.HotelID, opts.TargetMonth, m, e.maxLT)
		if err != nil {
			return fmt.Errorf("failed to build monthly curve for %s: %w", m, err)
		}
		byLT := make(map[int]decimal.Decimal, len(mc.Points))
		for _, p := range mc.Points {
			byLT[p.LT] = p.Total
		}
		curves[m] = byLT
	}

	header := []interface{}{"lt"}
	for _, m := range metrics {
		header = append(header, string(m))
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header on %s: %w", sheet, err)
	}

	rowIdx := 2
	writeRow := func(lt int) error {
		out := []interface{}{lt}
		any := false
		for _, m := range metrics {
			if v, ok := curves[m][lt]; ok {
				out = append(out, v.String())
				any = true
			} else {
				out = append(out, "")
			}
		}
		if !any {
			return nil
		}
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return fmt.Errorf("failed to locate cell on %s: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &out); err != nil {
			return fmt.Errorf("failed to write row on %s: %w", sheet, err)
		}
		rowIdx++
		return nil
	}
	for lt := e.maxLT; lt >= 0; lt-- {
		if err := writeRow(lt); err != nil {
			return err
		}
	}
	if err := writeRow(model.ACTLT); err != nil {
		return err
	}
	return nil
}

// ltCell 取单元格原值：写字符串避免大额营收经 float64 转换后丢位
func ltCell(cells map[int]decimal.Decimal, lt int) interface{} {
	if v, ok := cells[lt]; ok {
		return v.String()
	}
	return ""
}
