package parser

import (
	"strings"
	"testing"
	"time"

	"curvelab/internal/model"
)

// gridWithAsOf 组装带 Q1 ASOF 单元格的网格
func gridWithAsOf(asofCell string, dataRows ...[]string) [][]string {
	grid := gridWithHeader(dataRows...)
	head := make([]string, asofCellCol+1)
	head[asofCellCol] = asofCell
	grid[0] = head
	return grid
}

func TestParseGrid_CellAsOfWinsOverFilename(t *testing.T) {
	t.Parallel()

	grid := gridWithAsOf("2023-01-15",
		dataRow("2023-02-01", "水", "40", "60", "480000"),
		dataRow("2023-02-02", "木", "42", "64", "504000"),
	)
	meta := FileMeta{Path: "booking_202302_20230114.xlsx", HotelID: "h1"}
	rows, outcome := NewNFaceAdapter().ParseGrid(grid, meta, "")

	if outcome.Status != StatusImported {
		t.Fatalf("status = %s (%s)", outcome.Status, outcome.Message)
	}
	if want := model.NewDate(2023, time.January, 15); !outcome.AsOfDate.Equal(want) {
		t.Fatalf("asof = %s, want cell value %s", outcome.AsOfDate, want)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	// 单元格与文件名不一致：警告留痕但不阻断
	found := false
	for _, w := range outcome.Warnings {
		if strings.HasPrefix(w, "mismatch_asof_name_vs_sheet") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected asof mismatch warning, got %v", outcome.Warnings)
	}
}

func TestParseGrid_FilenameFallbackWarns(t *testing.T) {
	t.Parallel()

	grid := gridWithAsOf("",
		dataRow("2023-02-01", "水", "40", "60", "480000"),
		dataRow("2023-02-02", "木", "42", "64", "504000"),
	)
	meta := FileMeta{Path: "booking_202302_20230114.xlsx", HotelID: "h1"}
	_, outcome := NewNFaceAdapter().ParseGrid(grid, meta, "")

	if outcome.Status != StatusImported {
		t.Fatalf("status = %s (%s)", outcome.Status, outcome.Message)
	}
	if want := model.NewDate(2023, time.January, 14); !outcome.AsOfDate.Equal(want) {
		t.Fatalf("asof = %s, want filename value %s", outcome.AsOfDate, want)
	}
	found := false
	for _, w := range outcome.Warnings {
		if strings.HasPrefix(w, "asof_fallback_used") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected fallback warning, got %v", outcome.Warnings)
	}
}

func TestParseGrid_NoAsOfAnywhere(t *testing.T) {
	t.Parallel()

	grid := gridWithAsOf("",
		dataRow("2023-02-01", "水", "40", "60", "480000"),
		dataRow("2023-02-02", "木", "42", "64", "504000"),
	)
	meta := FileMeta{Path: "booking.xlsx", HotelID: "h1"}
	_, outcome := NewNFaceAdapter().ParseGrid(grid, meta, "")
	if outcome.Status != StatusError {
		t.Fatalf("status = %s, want error", outcome.Status)
	}
}

func TestParseGrid_TargetMonthFromContent(t *testing.T) {
	t.Parallel()

	// 表内众数月是 202302，文件名却写 202301：信任表内容
	grid := gridWithAsOf("2023-01-20",
		dataRow("2023-01-31", "火", "10", "15", "120000"),
		dataRow("2023-02-01", "水", "40", "60", "480000"),
		dataRow("2023-02-02", "木", "42", "64", "504000"),
	)
	meta := FileMeta{Path: "booking_202301_20230120.xlsx", HotelID: "h1"}
	rows, outcome := NewNFaceAdapter().ParseGrid(grid, meta, "")

	if outcome.TargetMonth != "202302" {
		t.Fatalf("target month = %s, want 202302", outcome.TargetMonth)
	}
	if outcome.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1 (the January row)", outcome.Skipped)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	found := false
	for _, w := range outcome.Warnings {
		if strings.HasPrefix(w, "mismatch_name_vs_sheet") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected month mismatch warning, got %v", outcome.Warnings)
	}
}

func TestParseGrid_NumericCoercionNullsSingleCell(t *testing.T) {
	t.Parallel()

	grid := gridWithAsOf("2023-01-15",
		dataRow("2023-02-01", "水", "40", "n/a", "480000"),
		dataRow("2023-02-02", "木", "42", "64", "504000"),
	)
	meta := FileMeta{Path: "booking_202302_20230115.xlsx", HotelID: "h1"}
	rows, outcome := NewNFaceAdapter().ParseGrid(grid, meta, "")

	if outcome.Status != StatusImported || len(rows) != 2 {
		t.Fatalf("status = %s rows = %d", outcome.Status, len(rows))
	}
	r := rows[0]
	if r.RoomsOH == nil || r.RoomsOH.String() != "40" {
		t.Fatalf("rooms = %v, want 40", r.RoomsOH)
	}
	if r.PaxOH != nil {
		t.Fatalf("pax = %v, want nil after failed coercion", r.PaxOH)
	}
	if r.RevenueOH == nil || r.RevenueOH.String() != "480000" {
		t.Fatalf("revenue = %v, want 480000", r.RevenueOH)
	}
}

func TestParseGrid_ShiftedReadsNextRow(t *testing.T) {
	t.Parallel()

	grid := gridWithAsOf("2023-01-15",
		dataRow("2023-02-01", "水", "", "", ""),
		[]string{},
		dataRow("2023-02-02", "木", "", "", ""),
		ohOnlyRow("42", "64", "504000"),
	)
	meta := FileMeta{Path: "booking_202302_20230115.xlsx", HotelID: "h1"}
	rows, outcome := NewNFaceAdapter().ParseGrid(grid, meta, "")

	if outcome.Layout != LayoutShifted {
		t.Fatalf("layout = %s, want shifted", outcome.Layout)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	// 空 OH 行：三列皆空
	if rows[0].RoomsOH != nil || rows[0].PaxOH != nil || rows[0].RevenueOH != nil {
		t.Fatalf("row for 02-01 should be all null, got %+v", rows[0])
	}
	if rows[1].RoomsOH == nil || rows[1].RoomsOH.String() != "42" {
		t.Fatalf("row for 02-02 rooms = %v, want 42", rows[1].RoomsOH)
	}
}

func TestParseGrid_DataBearingOHRowsExtractShifted(t *testing.T) {
	t.Parallel()

	// 两行式、OH 行全部带数据且无空行：必须按 shifted 从下一行取 OH，
	// 绝不能按 inline 从日期行取出全空指标
	grid := gridWithAsOf("2023-01-15",
		dataRow("2023-02-01", "水", "", "", ""),
		ohOnlyRow("40", "60", "480000"),
		dataRow("2023-02-02", "木", "", "", ""),
		ohOnlyRow("42", "64", "504000"),
		dataRow("2023-02-03", "金", "", "", ""),
		ohOnlyRow("44", "66", "528000"),
	)
	meta := FileMeta{Path: "booking_202302_20230115.xlsx", HotelID: "h1"}
	rows, outcome := NewNFaceAdapter().ParseGrid(grid, meta, "")

	if outcome.Status != StatusImported {
		t.Fatalf("status = %s (%s)", outcome.Status, outcome.Message)
	}
	if outcome.Layout != LayoutShifted {
		t.Fatalf("layout = %s, want shifted", outcome.Layout)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	for i, want := range []string{"40", "42", "44"} {
		if rows[i].RoomsOH == nil || rows[i].RoomsOH.String() != want {
			t.Fatalf("rows[%d].RoomsOH = %v, want %s", i, rows[i].RoomsOH, want)
		}
	}
}

func TestParseGrid_Dup2ExtractsOncePerDate(t *testing.T) {
	t.Parallel()

	grid := gridWithAsOf("2023-01-15",
		dataRow("2023-02-01", "水", "", "", ""),
		dataRow("2023-02-01", "", "40", "60", "480000"),
		dataRow("2023-02-02", "木", "", "", ""),
		dataRow("2023-02-02", "", "42", "64", "504000"),
	)
	meta := FileMeta{Path: "booking_202302_20230115.xlsx", HotelID: "h1"}
	rows, outcome := NewNFaceAdapter().ParseGrid(grid, meta, "")

	if outcome.Layout != LayoutShifted {
		t.Fatalf("layout = %s, want shifted", outcome.Layout)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (one per stay date)", len(rows))
	}
	if rows[0].RoomsOH == nil || rows[0].RoomsOH.String() != "40" {
		t.Fatalf("rows[0].RoomsOH = %v, want 40 from the OH row", rows[0].RoomsOH)
	}
	if !rows[1].StayDate.Equal(model.NewDate(2023, time.February, 2)) {
		t.Fatalf("rows[1].StayDate = %s", rows[1].StayDate)
	}
}

func TestParseGrid_StoppedFileProducesNoRows(t *testing.T) {
	t.Parallel()

	grid := gridWithAsOf("2023-01-15",
		dataRow("2023-02-01", "水", "40", "60", "480000"),
		dataRow("2023-02-02", "木", "", "", ""),
		[]string{},
		dataRow("2023-02-03", "金", "44", "66", "528000"),
	)
	meta := FileMeta{Path: "booking_202302_20230115.xlsx", HotelID: "h1"}
	rows, outcome := NewNFaceAdapter().ParseGrid(grid, meta, "")

	if outcome.Status != StatusStopped {
		t.Fatalf("status = %s, want stopped", outcome.Status)
	}
	if outcome.StopReason != StopLayoutUnknown {
		t.Fatalf("reason = %s, want %s", outcome.StopReason, StopLayoutUnknown)
	}
	if rows != nil {
		t.Fatalf("rows = %v, want none for a stopped file", rows)
	}
}
