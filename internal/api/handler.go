package api

import (
	"github.com/gin-gonic/gin"

	"curvelab/internal/config"
	"curvelab/internal/exporter"
	"curvelab/internal/ingest"
	"curvelab/internal/ledger"
	"curvelab/internal/missing"
	"curvelab/internal/snapshot"
)

// Handler API 处理器
type Handler struct {
	cfg         *config.AppConfig
	snapshots   *snapshot.Store
	ledger      *ledger.Store // 可为 nil
	coordinator *ingest.Coordinator
	exporter    *exporter.Exporter
	acks        *missing.AckStore
	downloads   *exportDownloadStore
}

// NewHandler 创建 API 处理器
func NewHandler(cfg *config.AppConfig, snapshots *snapshot.Store, lg *ledger.Store) *Handler {
	return &Handler{
		cfg:         cfg,
		snapshots:   snapshots,
		ledger:      lg,
		coordinator: ingest.NewCoordinator(cfg, snapshots, lg),
		exporter:    exporter.NewExporter(snapshots, cfg.Curve.MaxLT),
		acks:        missing.NewAckStore(cfg.AckDir()),
		downloads:   newExportDownloadStore(),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 原始文件灌入
	router.POST("/ingest", h.Ingest)

	// 曲线查询
	router.GET("/lt/:hotel/:month", h.GetLTTable)
	router.GET("/curve/:hotel/:month", h.GetMonthlyCurve)

	// 缺失报告与确认
	router.GET("/missing/:hotel", h.GetMissingReport)
	router.GET("/ack/:hotel", h.GetAcks)
	router.PUT("/ack/:hotel", h.UpdateAcks)

	// 工作簿导出
	router.POST("/export", h.Export)
	router.GET("/export/download/:token", h.DownloadExport)
}
