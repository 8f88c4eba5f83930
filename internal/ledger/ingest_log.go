package ledger

import "fmt"

// IngestSummary 单批灌入汇总
type IngestSummary struct {
	TotalFiles    int
	ImportedFiles int
	StoppedFiles  int
	FailedFiles   int
	ImportedRows  int
}

// CreateIngestLog 创建灌入日志，返回 ingest_log_id
func (s *Store) CreateIngestLog(hotelID, mode string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO ingest_logs (hotel_id, mode, status)
		VALUES (?, ?, 'processing')
	`, hotelID, mode)
	if err != nil {
		return 0, fmt.Errorf("failed to create ingest log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get ingest log id: %w", err)
	}
	return id, nil
}

// CompleteIngestLog 完成灌入日志更新
func (s *Store) CompleteIngestLog(id int64, sum IngestSummary, status, errorMessage string) error {
	_, err := s.db.Exec(`
		UPDATE ingest_logs SET
			total_files = ?,
			imported_files = ?,
			stopped_files = ?,
			failed_files = ?,
			imported_rows = ?,
			status = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, sum.TotalFiles, sum.ImportedFiles, sum.StoppedFiles, sum.FailedFiles,
		sum.ImportedRows, status, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update ingest log: %w", err)
	}
	return nil
}
