package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jszwec/csvutil"

	"curvelab/internal/model"
)

// Store 日别快照存储层
// 每家酒店一个 CSV 文件，追加时整表读改写：归一 → 合并 → 去重(keep-last) → 排序 → 落盘
type Store struct {
	dir string
}

// NewStore 创建快照存储，dir 为产物目录
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path 返回指定酒店的快照 CSV 路径
func (s *Store) Path(hotelID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("daily_snapshots_%s.csv", hotelID))
}

// Normalize 归一化快照行
// hotelID / asOf 为非零值时广播到所有行；宿泊日为零值的行丢弃
func Normalize(rows []model.SnapshotRow, hotelID string, asOf model.Date) []model.SnapshotRow {
	out := make([]model.SnapshotRow, 0, len(rows))
	for _, r := range rows {
		if hotelID != "" {
			r.HotelID = hotelID
		}
		if !asOf.IsZero() {
			r.AsOfDate = asOf
		}
		if r.StayDate.IsZero() || r.AsOfDate.IsZero() || r.HotelID == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Read 读出指定酒店的全部快照行，文件不存在返回空
func (s *Store) Read(hotelID string) ([]model.SnapshotRow, error) {
	data, err := os.ReadFile(s.Path(hotelID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot csv: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var rows []model.SnapshotRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot csv %s: %w", s.Path(hotelID), err)
	}
	return rows, nil
}

// ReadForMonth 读出宿泊日落在对象月内的快照行
func (s *Store) ReadForMonth(hotelID, targetMonth string) ([]model.SnapshotRow, error) {
	rows, err := s.Read(hotelID)
	if err != nil {
		return nil, err
	}
	out := rows[:0:0]
	for _, r := range rows {
		if r.StayDate.YYYYMM() == targetMonth {
			out = append(out, r)
		}
	}
	return out, nil
}

// Append 追加快照行
// 与既存行合并后按键去重（后追加者胜），再按 (as_of_date, stay_date) 排序落盘
// 重复灌入同一 ASOF 幂等且自修正
func (s *Store) Append(hotelID string, rows []model.SnapshotRow) error {
	existing, err := s.Read(hotelID)
	if err != nil {
		return err
	}
	merged := dedupeKeepLast(append(existing, rows...))
	sortRows(merged)
	return s.write(hotelID, merged)
}

// ReplaceAsOfRange 局部重建：删除 [asofMin, asofMax] 范围内的既存行后再追加
// 绝不盲目整表覆盖，范围外的行保持原样
func (s *Store) ReplaceAsOfRange(hotelID string, asofMin, asofMax model.Date, rows []model.SnapshotRow) error {
	existing, err := s.Read(hotelID)
	if err != nil {
		return err
	}
	kept := existing[:0:0]
	for _, r := range existing {
		inRange := true
		if !asofMin.IsZero() && r.AsOfDate.Before(asofMin) {
			inRange = false
		}
		if !asofMax.IsZero() && r.AsOfDate.After(asofMax) {
			inRange = false
		}
		if !inRange {
			kept = append(kept, r)
		}
	}
	merged := dedupeKeepLast(append(kept, rows...))
	sortRows(merged)
	return s.write(hotelID, merged)
}

// LatestAsOfDate 返回最新 ASOF，按需查询、从不缓存
func (s *Store) LatestAsOfDate(hotelID string) (model.Date, error) {
	rows, err := s.Read(hotelID)
	if err != nil {
		return model.Date{}, err
	}
	var latest model.Date
	for _, r := range rows {
		if r.AsOfDate.After(latest) {
			latest = r.AsOfDate
		}
	}
	return latest, nil
}

// write 原子化落盘（先写临时文件再改名）
// 输出文件被其他进程占用时直接把错误呈给操作者，不做静默重试
func (s *Store) write(hotelID string, rows []model.SnapshotRow) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot csv: %w", err)
	}
	path := s.Path(hotelID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot csv %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace snapshot csv %s (file may be open elsewhere): %w", path, err)
	}
	return nil
}

// dedupeKeepLast 按键去重，后出现者胜
func dedupeKeepLast(rows []model.SnapshotRow) []model.SnapshotRow {
	idx := make(map[model.SnapshotKey]int, len(rows))
	out := make([]model.SnapshotRow, 0, len(rows))
	for _, r := range rows {
		if i, ok := idx[r.Key()]; ok {
			out[i] = r
			continue
		}
		idx[r.Key()] = len(out)
		out = append(out, r)
	}
	return out
}

// sortRows 按 (hotel_id, as_of_date, stay_date) 稳定排序
func sortRows(rows []model.SnapshotRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.HotelID != b.HotelID {
			return a.HotelID < b.HotelID
		}
		if !a.AsOfDate.Equal(b.AsOfDate) {
			return a.AsOfDate.Before(b.AsOfDate)
		}
		return a.StayDate.Before(b.StayDate)
	})
}
