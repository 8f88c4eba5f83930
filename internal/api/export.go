package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"curvelab/internal/exporter"
	"curvelab/internal/model"
)

const downloadTTL = 10 * time.Minute

type exportDownload struct {
	filePath  string
	fileName  string
	expiresAt time.Time
}

// exportDownloadStore 导出文件的一次性下载令牌表
type exportDownloadStore struct {
	mu    sync.Mutex
	items map[string]exportDownload
}

func newExportDownloadStore() *exportDownloadStore {
	return &exportDownloadStore{items: make(map[string]exportDownload)}
}

func (s *exportDownloadStore) put(filePath, fileName string, ttl time.Duration) (token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	token = uuid.New().String()
	s.items[token] = exportDownload{
		filePath:  filePath,
		fileName:  fileName,
		expiresAt: time.Now().Add(ttl),
	}
	return token
}

func (s *exportDownloadStore) get(token string) (exportDownload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	v, ok := s.items[token]
	if !ok {
		return exportDownload{}, false
	}
	return v, true
}

func (s *exportDownloadStore) delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, token)
}

func (s *exportDownloadStore) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
		}
	}
}

// ExportRequest 导出请求
type ExportRequest struct {
	HotelID     string   `json:"hotelId" binding:"required"`
	TargetMonth string   `json:"targetMonth" binding:"required"` // YYYYMM
	Metrics     []string `json:"metrics"`
}

// Export 生成订房曲线工作簿，返回下载令牌
// POST /api/export
func (h *Handler) Export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.cfg.Hotel(req.HotelID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var metrics []model.Metric
	for _, m := range req.Metrics {
		metric, ok := parseMetric(m)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown metric %q", m)})
			return
		}
		metrics = append(metrics, metric)
	}

	f, err := h.exporter.Export(exporter.ExportOptions{
		HotelID:     req.HotelID,
		TargetMonth: req.TargetMonth,
		Metrics:     metrics,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	fileName := exporter.WorkbookName(req.HotelID, req.TargetMonth)
	if err := os.MkdirAll(h.cfg.Data.OutputDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	filePath := filepath.Join(h.cfg.Data.OutputDir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to save workbook: %v", err)})
		return
	}

	token := h.downloads.put(filePath, fileName, downloadTTL)
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"fileName": fileName,
	})
}

// DownloadExport 按令牌下载已生成的工作簿
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	item, ok := h.downloads.get(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "download token not found or expired"})
		return
	}
	h.downloads.delete(token)

	c.FileAttachment(item.filePath, item.fileName)
}
