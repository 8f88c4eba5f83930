package ingest

import (
	"fmt"
	"log"
	"sync"
	"time"

	"curvelab/internal/config"
	"curvelab/internal/inventory"
	"curvelab/internal/ledger"
	"curvelab/internal/model"
	"curvelab/internal/parser"
	"curvelab/internal/snapshot"
)

// 灌入模式
const (
	ModeFull    = "full"
	ModePartial = "partial"
)

// DefaultBufferDays 自动推定 asof_min 时向前回溯的缓冲天数
const DefaultBufferDays = 14

// Coordinator 灌入协调器
// 单文件 STOP 绝不中断整批；同一酒店的重建不允许并行
type Coordinator struct {
	cfg       *config.AppConfig
	snapshots *snapshot.Store
	ledger    *ledger.Store // 可为 nil

	mu   sync.Mutex
	busy map[string]bool
}

// NewCoordinator 创建灌入协调器
func NewCoordinator(cfg *config.AppConfig, snapshots *snapshot.Store, lg *ledger.Store) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		snapshots: snapshots,
		ledger:    lg,
		busy:      make(map[string]bool),
	}
}

// Options 灌入选项
type Options struct {
	HotelID      string
	Mode         string // full / partial
	TargetMonths []string
	AsOfMin      model.Date
	AsOfMax      model.Date
	// partial 模式下未指定 AsOfMin 时，从既存快照最新 ASOF 向前推 BufferDays 天
	AutoAsOfFromStore bool
	BufferDays        int
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"` // start/file_done/done/error
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Result 单批灌入结果
type Result struct {
	HotelID      string              `json:"hotelId"`
	Mode         string              `json:"mode"`
	Outcomes     []parser.ParseOutcome `json:"outcomes"`
	ImportedRows int                 `json:"importedRows"`
	Summary      ledger.IngestSummary `json:"summary"`
}

// Run 执行一批灌入，返回进度通道
// 同一酒店已有批次在跑时直接报错，由调用方阻止并行重建
func (c *Coordinator) Run(opts Options) (<-chan ProgressEvent, error) {
	if _, err := c.cfg.Hotel(opts.HotelID); err != nil {
		return nil, err
	}
	if opts.Mode == "" {
		opts.Mode = ModeFull
	}
	if opts.Mode != ModeFull && opts.Mode != ModePartial {
		return nil, fmt.Errorf("unsupported ingest mode %q", opts.Mode)
	}

	c.mu.Lock()
	if c.busy[opts.HotelID] {
		c.mu.Unlock()
		return nil, fmt.Errorf("hotel %s: ingest already running", opts.HotelID)
	}
	c.busy[opts.HotelID] = true
	c.mu.Unlock()

	ch := make(chan ProgressEvent, 100)
	go func() {
		defer close(ch)
		defer func() {
			c.mu.Lock()
			delete(c.busy, opts.HotelID)
			c.mu.Unlock()
		}()
		c.run(opts, ch)
	}()
	return ch, nil
}

// RunSync 同步执行一批灌入
func (c *Coordinator) RunSync(opts Options) (*Result, error) {
	ch, err := c.Run(opts)
	if err != nil {
		return nil, err
	}
	var result *Result
	var runErr error
	for ev := range ch {
		switch ev.Type {
		case "done":
			if r, ok := ev.Data.(*Result); ok {
				result = r
			}
		case "error":
			runErr = fmt.Errorf("%s", ev.Message)
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	if result == nil {
		return nil, fmt.Errorf("ingest finished without result")
	}
	return result, nil
}

func (c *Coordinator) run(opts Options, ch chan ProgressEvent) {
	hotel, err := c.cfg.Hotel(opts.HotelID)
	if err != nil {
		c.send(ch, ProgressEvent{Type: "error", Message: err.Error(), Timestamp: time.Now()})
		return
	}

	c.send(ch, ProgressEvent{
		Type:      "start",
		Message:   fmt.Sprintf("hotel %s: ingest started (mode=%s)", opts.HotelID, opts.Mode),
		Timestamp: time.Now(),
	})

	inv, err := inventory.Build(inventory.Options{
		HotelID:           opts.HotelID,
		RootDir:           hotel.RawRootDir,
		IncludeSubfolders: hotel.IncludeSubfolders,
	})
	if err != nil {
		c.send(ch, ProgressEvent{Type: "error", Message: err.Error(), Timestamp: time.Now()})
		return
	}
	if inv.Health.Severity == "STOP" {
		c.send(ch, ProgressEvent{Type: "error", Message: inv.Health.Message, Timestamp: time.Now()})
		return
	}
	if inv.Health.Severity == "WARN" {
		log.Printf("%s", inv.Health.Message)
	}

	asofMin, asofMax := opts.AsOfMin, opts.AsOfMax
	if opts.Mode == ModePartial && opts.AutoAsOfFromStore && asofMin.IsZero() && asofMax.IsZero() {
		latest, err := c.snapshots.LatestAsOfDate(opts.HotelID)
		if err != nil {
			c.send(ch, ProgressEvent{Type: "error", Message: err.Error(), Timestamp: time.Now()})
			return
		}
		if !latest.IsZero() {
			buffer := opts.BufferDays
			if buffer <= 0 {
				buffer = DefaultBufferDays
			}
			asofMin = latest.AddDays(-buffer)
		}
	}

	monthFilter := make(map[string]bool, len(opts.TargetMonths))
	for _, m := range opts.TargetMonths {
		monthFilter[m] = true
	}

	var ledgerID int64
	if c.ledger != nil {
		if ledgerID, err = c.ledger.CreateIngestLog(opts.HotelID, opts.Mode); err != nil {
			c.send(ch, ProgressEvent{Type: "error", Message: err.Error(), Timestamp: time.Now()})
			return
		}
	}

	adapter := parser.NewNFaceAdapter()
	result := &Result{HotelID: opts.HotelID, Mode: opts.Mode}
	var allRows []model.SnapshotRow
	var failures []ledger.ParseFailure
	var scannedPaths []string

	for _, rec := range inv.SortedRecords() {
		if opts.Mode == ModePartial {
			if !asofMin.IsZero() && rec.AsOfDate.Before(asofMin) {
				continue
			}
			if !asofMax.IsZero() && rec.AsOfDate.After(asofMax) {
				continue
			}
			if len(monthFilter) > 0 && !monthFilter[rec.TargetMonth] {
				continue
			}
		}
		scannedPaths = append(scannedPaths, rec.Path)
		result.Summary.TotalFiles++

		rows, outcome := adapter.ParseFile(parser.FileMeta{Path: rec.Path, HotelID: opts.HotelID}, hotel.Layout)
		result.Outcomes = append(result.Outcomes, outcome)

		switch outcome.Status {
		case parser.StatusImported:
			result.Summary.ImportedFiles++
			allRows = append(allRows, snapshot.Normalize(rows, opts.HotelID, outcome.AsOfDate)...)
		case parser.StatusStopped:
			// 单文件拒绝：ERROR 留痕进缺失报告管线，整批继续
			result.Summary.StoppedFiles++
			failures = append(failures, ledger.ParseFailure{
				HotelID:     opts.HotelID,
				Path:        rec.Path,
				Kind:        string(outcome.StopReason),
				Severity:    model.SeverityError,
				Message:     outcome.Message,
				AsOfDate:    rec.AsOfDate.String(),
				TargetMonth: rec.TargetMonth,
			})
			log.Printf("%s: STOP(%s)，该文件整体排除", rec.Path, outcome.StopReason)
		default:
			result.Summary.FailedFiles++
			log.Printf("%s: 解析出错: %s", rec.Path, outcome.Message)
		}

		c.send(ch, ProgressEvent{
			Type:      "file_done",
			Message:   fmt.Sprintf("%s: %s", rec.Path, outcome.Status),
			Data:      outcome,
			Timestamp: time.Now(),
		})
	}

	if opts.Mode == ModePartial && (!asofMin.IsZero() || !asofMax.IsZero()) {
		err = c.snapshots.ReplaceAsOfRange(opts.HotelID, asofMin, asofMax, allRows)
	} else {
		err = c.snapshots.Append(opts.HotelID, allRows)
	}
	if err != nil {
		if c.ledger != nil {
			_ = c.ledger.CompleteIngestLog(ledgerID, result.Summary, "error", err.Error())
		}
		c.send(ch, ProgressEvent{Type: "error", Message: err.Error(), Timestamp: time.Now()})
		return
	}
	result.ImportedRows = len(allRows)
	result.Summary.ImportedRows = len(allRows)

	if c.ledger != nil {
		if err := c.ledger.ReplaceParseFailures(opts.HotelID, scannedPaths, failures); err != nil {
			log.Printf("hotel %s: 解析失败留痕写入失败: %v", opts.HotelID, err)
		}
		if err := c.ledger.CompleteIngestLog(ledgerID, result.Summary, "completed", ""); err != nil {
			log.Printf("hotel %s: 灌入日志更新失败: %v", opts.HotelID, err)
		}
	}

	c.send(ch, ProgressEvent{
		Type: "done",
		Message: fmt.Sprintf("hotel %s: %d/%d files imported, %d rows",
			opts.HotelID, result.Summary.ImportedFiles, result.Summary.TotalFiles, result.ImportedRows),
		Data:      result,
		Timestamp: time.Now(),
	})
}

func (c *Coordinator) send(ch chan ProgressEvent, ev ProgressEvent) {
	select {
	case ch <- ev:
	default:
		// 通道打满时丢弃进度事件，不阻塞灌入本体
	}
}
