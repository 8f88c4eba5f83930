package curve

import (
	"testing"
	"time"

	"curvelab/internal/model"
)

func pointOf(curve *model.MonthlyCurve, lt int) (string, bool) {
	for _, p := range curve.Points {
		if p.LT == lt {
			return p.Total.String(), true
		}
	}
	return "", false
}

func TestBuildMonthlyCurve_SumsPerAsOf(t *testing.T) {
	t.Parallel()

	asof := day(2023, time.February, 8) // 月末 02-28，lt=20
	rows := []model.SnapshotRow{
		snap(asof, day(2023, time.February, 10), 40),
		snap(asof, day(2023, time.February, 11), 35),
		snap(asof, day(2023, time.March, 1), 99), // 月外宿泊日不计
	}
	curve, err := BuildMonthlyCurve(rows, "h1", "202302", model.MetricRooms, 120)
	if err != nil {
		t.Fatalf("BuildMonthlyCurve: %v", err)
	}
	if v, ok := pointOf(curve, 20); !ok || v != "75" {
		t.Fatalf("lt=20 total = %s ok=%v, want 75", v, ok)
	}
}

func TestBuildMonthlyCurve_NullCellsSkippedNotZeroed(t *testing.T) {
	t.Parallel()

	asof := day(2023, time.February, 8)
	full := snap(asof, day(2023, time.February, 10), 40)
	missing := snap(asof, day(2023, time.February, 11), 0)
	missing.RoomsOH = nil
	curve, err := BuildMonthlyCurve([]model.SnapshotRow{full, missing}, "h1", "202302", model.MetricRooms, 120)
	if err != nil {
		t.Fatalf("BuildMonthlyCurve: %v", err)
	}
	if v, ok := pointOf(curve, 20); !ok || v != "40" {
		t.Fatalf("lt=20 total = %s ok=%v, want 40 (null skipped)", v, ok)
	}
}

func TestBuildMonthlyCurve_NegativeLTClampsToACT(t *testing.T) {
	t.Parallel()

	// 月末 02-28 之后的两个 ASOF 竞争 -1 桶：最早者胜
	rows := []model.SnapshotRow{
		snap(day(2023, time.March, 2), day(2023, time.February, 10), 58),
		snap(day(2023, time.March, 9), day(2023, time.February, 10), 57),
	}
	curve, err := BuildMonthlyCurve(rows, "h1", "202302", model.MetricRooms, 120)
	if err != nil {
		t.Fatalf("BuildMonthlyCurve: %v", err)
	}
	if v, ok := pointOf(curve, model.ACTLT); !ok || v != "58" {
		t.Fatalf("ACT total = %s ok=%v, want earliest post-month-end 58", v, ok)
	}
	if len(curve.Points) != 1 {
		t.Fatalf("points = %d, want the single ACT bucket", len(curve.Points))
	}
}

func TestBuildMonthlyCurve_PointsDescendWithACTLast(t *testing.T) {
	t.Parallel()

	rows := []model.SnapshotRow{
		snap(day(2023, time.February, 8), day(2023, time.February, 10), 40),  // lt=20
		snap(day(2023, time.February, 18), day(2023, time.February, 10), 50), // lt=10
		snap(day(2023, time.March, 2), day(2023, time.February, 10), 58),     // ACT
	}
	curve, err := BuildMonthlyCurve(rows, "h1", "202302", model.MetricRooms, 120)
	if err != nil {
		t.Fatalf("BuildMonthlyCurve: %v", err)
	}
	if len(curve.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(curve.Points))
	}
	if curve.Points[0].LT != 20 || curve.Points[1].LT != 10 || curve.Points[2].LT != model.ACTLT {
		t.Fatalf("order = %d,%d,%d, want 20,10,-1", curve.Points[0].LT, curve.Points[1].LT, curve.Points[2].LT)
	}
}

func TestBuildMonthlyCurve_LTBeyondMaxExcluded(t *testing.T) {
	t.Parallel()

	rows := []model.SnapshotRow{
		snap(day(2022, time.September, 1), day(2023, time.February, 10), 5), // lt 远超 120
	}
	curve, err := BuildMonthlyCurve(rows, "h1", "202302", model.MetricRooms, 120)
	if err != nil {
		t.Fatalf("BuildMonthlyCurve: %v", err)
	}
	if len(curve.Points) != 0 {
		t.Fatalf("points = %d, want 0", len(curve.Points))
	}
}

func TestBuildMonthlyCurve_BadMonth(t *testing.T) {
	t.Parallel()

	if _, err := BuildMonthlyCurve(nil, "h1", "2023-02", model.MetricRooms, 120); err == nil {
		t.Fatalf("expected error for malformed month")
	}
}
