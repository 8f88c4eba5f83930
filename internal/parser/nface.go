package parser

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"curvelab/internal/model"
)

// NFaceAdapter N@FACE 原始表适配器
// 把分类后的表格抽取为标准快照行
type NFaceAdapter struct {
	classifier *Classifier
}

// NewNFaceAdapter 创建适配器
func NewNFaceAdapter() *NFaceAdapter {
	return &NFaceAdapter{classifier: NewClassifier()}
}

// ParseFile 打开并解析单个 N@FACE 文件
// forcedLayout 传 "auto" 或空串时自动判定版面
func (a *NFaceAdapter) ParseFile(meta FileMeta, forcedLayout string) ([]model.SnapshotRow, ParseOutcome) {
	f, err := excelize.OpenFile(meta.Path)
	if err != nil {
		return nil, ParseOutcome{
			Path:    meta.Path,
			Status:  StatusError,
			Message: fmt.Sprintf("failed to open workbook: %v", err),
		}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ParseOutcome{
			Path:    meta.Path,
			Status:  StatusError,
			Message: "workbook has no sheets",
		}
	}

	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, ParseOutcome{
			Path:    meta.Path,
			Status:  StatusError,
			Message: fmt.Sprintf("failed to read sheet %s: %v", sheets[0], err),
		}
	}

	return a.ParseGrid(grid, meta, forcedLayout)
}

// ParseGrid 解析已读入的表格
func (a *NFaceAdapter) ParseGrid(grid [][]string, meta FileMeta, forcedLayout string) ([]model.SnapshotRow, ParseOutcome) {
	if forcedLayout == "auto" {
		forcedLayout = ""
	}
	layout := a.classifier.Classify(grid, forcedLayout)
	if layout.Kind == LayoutStop {
		return nil, ParseOutcome{
			Path:       meta.Path,
			Status:     StatusStopped,
			StopReason: layout.Reason,
			Message:    fmt.Sprintf("layout classification refused: %s", layout.Reason),
		}
	}

	outcome := ParseOutcome{
		Path:   meta.Path,
		Status: StatusImported,
		Layout: layout.Kind,
	}
	if layout.spacers > 0 {
		log.Printf("%s: 跳过 %d 行装饰行", meta.Path, layout.spacers)
	}

	asof, warns := resolveAsOf(grid, meta.Path)
	outcome.Warnings = append(outcome.Warnings, warns...)
	if asof.IsZero() {
		outcome.Status = StatusError
		outcome.Message = "as-of date not found in cell Q1 nor filename"
		return nil, outcome
	}
	outcome.AsOfDate = asof

	targetMonth := inferTargetMonth(layout.dateRows)
	outcome.TargetMonth = targetMonth
	if nameMonth, ok := ParseFilenameMonth(filepath.Base(meta.Path)); ok && nameMonth != targetMonth {
		// 文件名与表内月份不一致：信任表内容，仅警告留待人工复核
		w := fmt.Sprintf("mismatch_name_vs_sheet: filename says %s, sheet says %s", nameMonth, targetMonth)
		outcome.Warnings = append(outcome.Warnings, w)
		log.Printf("%s: %s", meta.Path, w)
	}

	rows := make([]model.SnapshotRow, 0, len(layout.dateRows))
	for i := 0; i < len(layout.dateRows); i++ {
		dr := layout.dateRows[i]

		ohRow := dr.row
		if layout.Kind == LayoutShifted {
			ohRow = dr.row + 1
			// dup2 版面下 OH 行自身也带日期，跳过它避免重复抽取
			if i+1 < len(layout.dateRows) && layout.dateRows[i+1].row == ohRow &&
				layout.dateRows[i+1].date.Equal(dr.date) {
				i++
			}
		}

		if dr.date.YYYYMM() != targetMonth {
			outcome.Skipped++
			continue
		}
		rows = append(rows, model.SnapshotRow{
			HotelID:   meta.HotelID,
			AsOfDate:  asof,
			StayDate:  dr.date,
			RoomsOH:   ParseNumericCell(cellAt(grid, ohRow, colRooms)),
			PaxOH:     ParseNumericCell(cellAt(grid, ohRow, colPax)),
			RevenueOH: ParseNumericCell(cellAt(grid, ohRow, colRevenue)),
		})
	}
	outcome.Rows = len(rows)

	if total := outcome.Rows + outcome.Skipped; total > 0 && outcome.Rows*2 < total {
		w := fmt.Sprintf("more than half of date rows fall outside target month (kept=%d / total=%d)", outcome.Rows, total)
		outcome.Warnings = append(outcome.Warnings, w)
		log.Printf("%s: %s", meta.Path, w)
	}
	if outcome.Skipped > 0 {
		log.Printf("%s: 跳过对象月之外的 %d 行", meta.Path, outcome.Skipped)
	}

	return rows, outcome
}

// resolveAsOf 解析 ASOF 日期
// 优先级固定：Q1 单元格非空即用；仅当单元格为空时回退到文件名
// 两者都有且不一致时以单元格为准，警告留痕
func resolveAsOf(grid [][]string, path string) (model.Date, []string) {
	var warns []string

	cellAsOf, cellOK := ParseDateCell(cellAt(grid, asofCellRow, asofCellCol))
	nameAsOf, nameOK := ParseFilenameAsOf(filepath.Base(path))

	switch {
	case cellOK && nameOK && !cellAsOf.Equal(nameAsOf):
		w := fmt.Sprintf("mismatch_asof_name_vs_sheet: cell says %s, filename says %s", cellAsOf, nameAsOf)
		warns = append(warns, w)
		log.Printf("%s: %s", path, w)
		return cellAsOf, warns
	case cellOK:
		return cellAsOf, warns
	case nameOK:
		w := "asof_fallback_used: cell Q1 empty, as-of taken from filename"
		warns = append(warns, w)
		log.Printf("%s: %s", path, w)
		return nameAsOf, warns
	default:
		return model.Date{}, warns
	}
}

// inferTargetMonth 从宿泊日分布推断对象月（众数月）
func inferTargetMonth(rows []dateRow) string {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.date.YYYYMM()]++
	}
	best := ""
	for month, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && month < best) {
			best = month
		}
	}
	return best
}
