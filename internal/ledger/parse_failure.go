package ledger

import (
	"fmt"
	"strings"
)

// ParseFailure 单文件解析失败留痕
type ParseFailure struct {
	HotelID     string `json:"hotelId"`
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	AsOfDate    string `json:"asofDate"`
	TargetMonth string `json:"targetMonth"`
}

// ReplaceParseFailures 替换一批路径的解析失败留痕
// 先删除本次重扫过的路径的旧记录，再写入新的失败；成功解析的文件由此自然出账
func (s *Store) ReplaceParseFailures(hotelID string, scannedPaths []string, failures []ParseFailure) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if len(scannedPaths) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(scannedPaths)), ",")
		args := make([]interface{}, 0, len(scannedPaths)+1)
		args = append(args, hotelID)
		for _, p := range scannedPaths {
			args = append(args, p)
		}
		query := fmt.Sprintf(`DELETE FROM parse_failures WHERE hotel_id = ? AND path IN (%s)`, placeholders)
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to clear stale parse failures: %w", err)
		}
	}

	for _, f := range failures {
		_, err := tx.Exec(`
			INSERT INTO parse_failures (hotel_id, path, kind, severity, message, asof_date, target_month)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, hotelID, f.Path, f.Kind, f.Severity, f.Message, f.AsOfDate, f.TargetMonth)
		if err != nil {
			return fmt.Errorf("failed to insert parse failure: %w", err)
		}
	}

	return tx.Commit()
}

// ListParseFailures 读出指定酒店的解析失败留痕
func (s *Store) ListParseFailures(hotelID string) ([]ParseFailure, error) {
	rows, err := s.db.Query(`
		SELECT hotel_id, path, kind, severity, message, asof_date, target_month
		FROM parse_failures
		WHERE hotel_id = ?
		ORDER BY path
	`, hotelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parse failures: %w", err)
	}
	defer rows.Close()

	var out []ParseFailure
	for rows.Next() {
		var f ParseFailure
		if err := rows.Scan(&f.HotelID, &f.Path, &f.Kind, &f.Severity, &f.Message, &f.AsOfDate, &f.TargetMonth); err != nil {
			return nil, fmt.Errorf("failed to scan parse failure: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
