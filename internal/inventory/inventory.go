package inventory

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"curvelab/internal/model"
	"curvelab/internal/parser"
)

// Key 原始文件台帐键
type Key struct {
	TargetMonth string
	AsOfDate    string // YYYYMMDD
}

// Health 台帐健全性评估
type Health struct {
	CandidateFiles   int     `json:"candidateFiles"`
	ParsedFiles      int     `json:"parsedFiles"`
	FailedFiles      int     `json:"failedFiles"`
	ParseSuccessRate float64 `json:"parseSuccessRate"`
	LatestAsOf       string  `json:"latestAsof"`
	Severity         string  `json:"severity"` // OK / WARN / STOP
	Message          string  `json:"message"`
}

// Inventory 单酒店原始文件台帐
// 每个 (target_month, asof_date) 键至多一个现役文件，重复键决算后只留一个胜者
type Inventory struct {
	HotelID string
	RootDir string
	Files   map[Key]model.RawFileRecord
	Health  Health
}

// Options 台帐构建选项
type Options struct {
	HotelID           string
	RootDir           string
	IncludeSubfolders bool
	Now               func() time.Time // 为空时取 time.Now
}

// Build 构建原始文件台帐
func Build(opts Options) (*Inventory, error) {
	if opts.RootDir == "" {
		return nil, fmt.Errorf("%s: raw root dir is required", opts.HotelID)
	}
	info, err := os.Stat(opts.RootDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s: raw root dir does not exist or is not a directory: %s", opts.HotelID, opts.RootDir)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	today := model.DateOf(now())

	candidates, err := discoverCandidates(opts.RootDir, opts.IncludeSubfolders)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to scan raw root dir: %w", opts.HotelID, err)
	}

	files := make(map[Key]model.RawFileRecord)
	parsed := 0
	latestAsOf := ""

	for _, path := range candidates {
		targetMonth, asof, ok := parser.ParseNFaceFilename(filepath.Base(path))
		if !ok {
			log.Printf("%s: 无法从文件名解析 target_month/asof，跳过", path)
			continue
		}
		parsed++

		if asof.After(today) {
			log.Printf("%s: 未来 ASOF(%s)，不计入台帐", path, asof)
			continue
		}

		st, err := os.Stat(path)
		if err != nil {
			log.Printf("%s: stat 失败，跳过: %v", path, err)
			continue
		}

		rec := model.RawFileRecord{
			Path:        path,
			HotelID:     opts.HotelID,
			TargetMonth: targetMonth,
			AsOfDate:    asof,
			ModTime:     st.ModTime(),
		}
		key := Key{TargetMonth: targetMonth, AsOfDate: asof.Time().Format("20060102")}

		if existing, dup := files[key]; dup {
			winner, loser := resolveDuplicate(existing, rec)
			files[key] = winner
			log.Printf("重复原始文件键 (%s, %s)：采用 %s，废弃 %s（请人工清理）",
				key.TargetMonth, key.AsOfDate, winner.Path, loser.Path)
		} else {
			files[key] = rec
		}

		if key.AsOfDate > latestAsOf {
			latestAsOf = key.AsOfDate
		}
	}

	health := buildHealth(opts.HotelID, opts.RootDir, len(candidates), parsed, latestAsOf)
	return &Inventory{
		HotelID: opts.HotelID,
		RootDir: opts.RootDir,
		Files:   files,
		Health:  health,
	}, nil
}

// SortedRecords 按 (asof, target_month) 升序返回现役文件
func (inv *Inventory) SortedRecords() []model.RawFileRecord {
	recs := make([]model.RawFileRecord, 0, len(inv.Files))
	for _, r := range inv.Files {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].AsOfDate.Equal(recs[j].AsOfDate) {
			return recs[i].AsOfDate.Before(recs[j].AsOfDate)
		}
		if recs[i].TargetMonth != recs[j].TargetMonth {
			return recs[i].TargetMonth < recs[j].TargetMonth
		}
		return recs[i].Path < recs[j].Path
	})
	return recs
}

// AsOfDates 返回台帐中出现过的 ASOF 集合（YYYY-MM-DD）
func (inv *Inventory) AsOfDates() map[string]bool {
	out := make(map[string]bool)
	for _, r := range inv.Files {
		out[r.AsOfDate.String()] = true
	}
	return out
}

// HasPair 指定 (asof, target_month) 组合是否有现役文件
func (inv *Inventory) HasPair(asof model.Date, targetMonth string) bool {
	_, ok := inv.Files[Key{TargetMonth: targetMonth, AsOfDate: asof.Time().Format("20060102")}]
	return ok
}

// TargetMonths 返回台帐覆盖的对象月集合
func (inv *Inventory) TargetMonths() map[string]bool {
	out := make(map[string]bool)
	for k := range inv.Files {
		out[k.TargetMonth] = true
	}
	return out
}

// resolveDuplicate 重复键决算：mtime 新者胜，完全同时则路径字典序大者胜
// 纯函数，决算结果跨多次运行确定
func resolveDuplicate(a, b model.RawFileRecord) (winner, loser model.RawFileRecord) {
	if a.ModTime.After(b.ModTime) {
		return a, b
	}
	if b.ModTime.After(a.ModTime) {
		return b, a
	}
	if a.Path > b.Path {
		return a, b
	}
	return b, a
}

// discoverCandidates 枚举候选原始文件（*.xls*，排除 Excel 锁文件）
func discoverCandidates(root string, recursive bool) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, "~$") {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		if strings.HasPrefix(ext, ".xls") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// buildHealth 生成台帐健全性评估
// 解析成功率低于 0.30 为 STOP，低于 0.80 为 WARN
func buildHealth(hotelID, rootDir string, candidates, parsed int, latestAsOf string) Health {
	h := Health{
		CandidateFiles: candidates,
		ParsedFiles:    parsed,
		FailedFiles:    candidates - parsed,
		LatestAsOf:     latestAsOf,
	}
	if candidates > 0 {
		h.ParseSuccessRate = float64(parsed) / float64(candidates)
	}

	switch {
	case candidates == 0:
		h.Severity = "STOP"
		h.Message = fmt.Sprintf("%s: raw files not found under %s", hotelID, rootDir)
	case h.ParseSuccessRate < 0.30:
		h.Severity = "STOP"
		h.Message = fmt.Sprintf("%s: parse success rate %.1f%% below stop threshold", hotelID, h.ParseSuccessRate*100)
	case h.ParseSuccessRate < 0.80:
		h.Severity = "WARN"
		h.Message = fmt.Sprintf("%s: parse success rate %.1f%% below warn threshold", hotelID, h.ParseSuccessRate*100)
	default:
		h.Severity = "OK"
		h.Message = fmt.Sprintf("%s: raw inventory ready (%d/%d parsed)", hotelID, parsed, candidates)
	}
	if latestAsOf != "" {
		h.Message = fmt.Sprintf("%s; latest_asof=%s", h.Message, latestAsOf)
	}
	return h
}
