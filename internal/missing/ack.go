package missing

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"

	"curvelab/internal/model"
)

// AckStore 缺失确认存储
// 仅运营模式使用；审计模式从不应用确认
type AckStore struct {
	dir string
}

// NewAckStore 创建确认存储
func NewAckStore(dir string) *AckStore {
	return &AckStore{dir: dir}
}

// Path 返回指定酒店的确认 CSV 路径
func (s *AckStore) Path(hotelID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("missing_ack_%s_ops.csv", hotelID))
}

// Load 读出确认记录，文件不存在返回空
func (s *AckStore) Load(hotelID string) ([]model.AckRecord, error) {
	data, err := os.ReadFile(s.Path(hotelID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read ack csv: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []model.AckRecord
	if err := csvutil.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode ack csv %s: %w", s.Path(hotelID), err)
	}
	return records, nil
}

// LoadKeySet 读出确认识别键集合
func (s *AckStore) LoadKeySet(hotelID string) (map[string]bool, error) {
	records, err := s.Load(hotelID)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(records))
	for _, r := range records {
		if k := r.Key(); k != "|||" {
			keys[k] = true
		}
	}
	return keys, nil
}

// Save 原子化落盘确认记录
func (s *AckStore) Save(hotelID string, records []model.AckRecord) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create ack directory: %w", err)
	}
	data, err := csvutil.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode ack csv: %w", err)
	}
	path := s.Path(hotelID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write ack csv %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace ack csv %s (file may be open elsewhere): %w", path, err)
	}
	return nil
}

// FilterAcked 从报告中剔除已确认的行
// 只有 ERROR/WARN 行参与过滤，INFO 行原样保留
func FilterAcked(records []model.MissingRecord, ackKeys map[string]bool) []model.MissingRecord {
	if len(ackKeys) == 0 {
		return records
	}
	out := make([]model.MissingRecord, 0, len(records))
	for _, r := range records {
		if (r.Severity == model.SeverityError || r.Severity == model.SeverityWarn) && ackKeys[r.AckKey()] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// UpdateAcks 根据本次报告与提交的识别键重建确认记录
// 不再出现在报告里的旧确认保留；已确认行沿用最早的 acked_at
func UpdateAcks(existing []model.AckRecord, report []model.MissingRecord, ackedKeys map[string]bool, ackedAt string) []model.AckRecord {
	reportKeys := make(map[string]bool, len(report))
	for _, r := range report {
		reportKeys[r.AckKey()] = true
	}

	existingAt := make(map[string]string, len(existing))
	var out []model.AckRecord
	for _, a := range existing {
		existingAt[a.Key()] = a.AckedAt
		if !reportKeys[a.Key()] {
			out = append(out, a)
		}
	}

	seen := make(map[string]bool, len(out))
	for _, a := range out {
		seen[a.Key()] = true
	}
	for _, r := range report {
		if r.Severity != model.SeverityError && r.Severity != model.SeverityWarn {
			continue
		}
		key := r.AckKey()
		if !ackedKeys[key] || seen[key] {
			continue
		}
		seen[key] = true
		at := ackedAt
		if prev, ok := existingAt[key]; ok && prev != "" {
			at = prev
		}
		out = append(out, model.AckRecord{
			Kind:        r.Kind,
			TargetMonth: r.TargetMonth,
			AsOfDate:    r.AsOfDate,
			Path:        r.Path,
			AckedAt:     at,
			Severity:    r.Severity,
		})
	}
	return out
}
