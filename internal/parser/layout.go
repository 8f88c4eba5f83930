package parser

import (
	"strings"
)

// Classifier 版面分类器
// 对一个原始表格判定 inline/shifted，判定不了就 STOP，绝不部分解析
type Classifier struct{}

// NewClassifier 创建版面分类器
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify 判定整表版面
// forced 传入 "inline"/"shifted" 时跳过自动判定（酒店配置可固定版面），
// 但日期行扫描仍然执行，零日期行一律 STOP(no_date_column)
func (c *Classifier) Classify(grid [][]string, forced string) LayoutResult {
	dateRows := collectDateRows(grid)
	if len(dateRows) == 0 {
		return LayoutResult{Kind: LayoutStop, Reason: StopNoDateColumn}
	}

	switch forced {
	case string(LayoutInline):
		return LayoutResult{Kind: LayoutInline, dateRows: dateRows}
	case string(LayoutShifted):
		return LayoutResult{Kind: LayoutShifted, dateRows: dateRows}
	}

	var (
		shiftedSignals int
		inlineSignals  int
		spacers        int
	)

	for i := 0; i+1 < len(dateRows); i++ {
		cur := dateRows[i]
		next := dateRows[i+1]
		gap := next.row - cur.row

		switch {
		case gap == 1 && next.date.Equal(cur.date):
			// dup2：同一宿泊日连续出现两行
			// 下一行是本宿泊日的 OH 行，不参与后续配对
			shiftedSignals++
			i++
		case gap == 1:
			inlineSignals++
		case gap == 2:
			mid := cur.row + 1
			switch {
			case rowIsBlank(grid, mid):
				// 日期行的下一行整行为空：两行式的 OH 行缺数据信号
				shiftedSignals++
			case isSpacerRow(grid, mid):
				// 装饰行：有星期、OH 列全零，属于 inline 的解释
				spacers++
				inlineSignals++
			default:
				// 中间行无日期却带内容：两行式的 OH 行
				shiftedSignals++
			}
		}
	}

	if shiftedSignals > 0 && inlineSignals > 0 {
		// 有的段落像 inline、有的像 shifted，又没有装饰行能解释：整表拒绝
		return LayoutResult{Kind: LayoutStop, Reason: StopLayoutUnknown, dateRows: dateRows, spacers: spacers}
	}
	if shiftedSignals > 0 {
		return LayoutResult{Kind: LayoutShifted, dateRows: dateRows, spacers: spacers}
	}
	if inlineSignals > 0 {
		return LayoutResult{Kind: LayoutInline, dateRows: dateRows, spacers: spacers}
	}
	// 两个方向都没有证据（比如只有一个日期行）：拒绝而不猜测
	return LayoutResult{Kind: LayoutStop, Reason: StopLayoutUnknown, dateRows: dateRows, spacers: spacers}
}

// collectDateRows 从第 9 行起扫描 A 列日期行
func collectDateRows(grid [][]string) []dateRow {
	var rows []dateRow
	for i := dateSearchStartRow; i < len(grid); i++ {
		if d, ok := ParseDateCell(cellAt(grid, i, colStayDate)); ok {
			rows = append(rows, dateRow{row: i, date: d})
		}
	}
	return rows
}

// isSpacerRow 装饰行：C 列有星期值且 OH 三列全为零或空
func isSpacerRow(grid [][]string, row int) bool {
	if strings.TrimSpace(cellAt(grid, row, colWeekday)) == "" {
		return false
	}
	return isZeroOrBlank(cellAt(grid, row, colRooms)) &&
		isZeroOrBlank(cellAt(grid, row, colPax)) &&
		isZeroOrBlank(cellAt(grid, row, colRevenue))
}
