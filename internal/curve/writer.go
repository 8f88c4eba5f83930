package curve

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jszwec/csvutil"

	"curvelab/internal/model"
)

// LTArtifactName LT 表产物文件名
// metric 为空时返回兼容旧版的 rooms 专用文件名
func LTArtifactName(hotelID, targetMonth string, metric model.Metric) string {
	if metric == "" {
		return fmt.Sprintf("lt_data_%s_%s.csv", targetMonth, hotelID)
	}
	return fmt.Sprintf("lt_data_%s_%s_%s.csv", targetMonth, hotelID, metric)
}

// MonthlyCurveArtifactName 月次曲线产物文件名
func MonthlyCurveArtifactName(hotelID, targetMonth string) string {
	return fmt.Sprintf("monthly_curve_%s_%s.csv", targetMonth, hotelID)
}

// WriteLTTableCSV 把 LT 表写为 CSV 产物
// 表头为 stay_date 加 maxLT..0,-1 降序：无观测的格输出空串，数值不做舍入
func WriteLTTableCSV(path string, table *model.LTTable) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create lt csv %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	header := make([]string, 0, table.MaxLT+3)
	header = append(header, "stay_date")
	for lt := table.MaxLT; lt >= 0; lt-- {
		header = append(header, strconv.Itoa(lt))
	}
	header = append(header, strconv.Itoa(model.ACTLT))
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("failed to write lt csv header: %w", err)
	}

	for _, row := range table.Rows {
		record := make([]string, 0, len(header))
		record = append(record, row.StayDate.String())
		for lt := table.MaxLT; lt >= model.ACTLT; lt-- {
			if v, ok := row.Cells[lt]; ok {
				record = append(record, v.String())
			} else {
				record = append(record, "")
			}
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("failed to write lt csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush lt csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close lt csv: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace lt csv %s (file may be open elsewhere): %w", path, err)
	}
	return nil
}

// WriteMonthlyCurveCSV 把月次曲线写为 CSV 产物，lt 降序
func WriteMonthlyCurveCSV(path string, curve *model.MonthlyCurve) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := csvutil.Marshal(curve.Points)
	if err != nil {
		return fmt.Errorf("failed to encode monthly curve csv: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write monthly curve csv %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace monthly curve csv %s (file may be open elsewhere): %w", path, err)
	}
	return nil
}
