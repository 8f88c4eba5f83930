package missing

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"

	"curvelab/internal/model"
)

// ReportArtifactName 缺失报告产物文件名，mode 为 "ops" 或 "audit"
func ReportArtifactName(hotelID, mode string) string {
	return fmt.Sprintf("missing_report_%s_%s.csv", hotelID, mode)
}

// WriteReportCSV 把缺失报告写为 CSV 产物
func WriteReportCSV(path string, records []model.MissingRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := csvutil.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode missing report csv: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write missing report csv %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace missing report csv %s (file may be open elsewhere): %w", path, err)
	}
	return nil
}
