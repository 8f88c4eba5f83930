package api

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"curvelab/internal/inventory"
	"curvelab/internal/missing"
	"curvelab/internal/model"
)

// MissingReportResponse 缺失报告响应
type MissingReportResponse struct {
	HotelID      string                `json:"hotelId"`
	Mode         string                `json:"mode"`
	Records      []model.MissingRecord `json:"records"`
	ArtifactPath string                `json:"artifactPath"`
}

// GetMissingReport 生成缺失报告并落盘
// GET /api/missing/:hotel?mode=ops|audit
func (h *Handler) GetMissingReport(c *gin.Context) {
	hotelID := c.Param("hotel")
	hotel, err := h.cfg.Hotel(hotelID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	mode := c.DefaultQuery("mode", "ops")
	if mode != "ops" && mode != "audit" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be ops or audit"})
		return
	}

	inv, err := inventory.Build(inventory.Options{
		HotelID:           hotelID,
		RootDir:           hotel.RawRootDir,
		IncludeSubfolders: hotel.IncludeSubfolders,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	engine := missing.NewEngine(h.snapshots, h.ledger)
	engine.WindowDays = h.cfg.Missing.WindowDays
	engine.HorizonMonths = h.cfg.Missing.HorizonMonths

	var records []model.MissingRecord
	if mode == "ops" {
		ackKeys, err := h.acks.LoadKeySet(hotelID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		records, err = engine.OperationalReport(hotelID, inv, ackKeys)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	} else {
		records, err = engine.AuditReport(hotelID, inv)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	artifact := filepath.Join(h.cfg.Data.OutputDir, missing.ReportArtifactName(hotelID, mode))
	if err := missing.WriteReportCSV(artifact, records); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, MissingReportResponse{
		HotelID:      hotelID,
		Mode:         mode,
		Records:      records,
		ArtifactPath: artifact,
	})
}

// GetAcks 查询运营确认记录
// GET /api/ack/:hotel
func (h *Handler) GetAcks(c *gin.Context) {
	hotelID := c.Param("hotel")
	if _, err := h.cfg.Hotel(hotelID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	acks, err := h.acks.Load(hotelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hotelId": hotelID, "acks": acks})
}

// AckUpdateRequest 确认更新请求
type AckUpdateRequest struct {
	Keys []string `json:"keys" binding:"required"`
}

// UpdateAcks 以当前运营报告为基准更新确认集合
// PUT /api/ack/:hotel
func (h *Handler) UpdateAcks(c *gin.Context) {
	hotelID := c.Param("hotel")
	hotel, err := h.cfg.Hotel(hotelID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req AckUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := inventory.Build(inventory.Options{
		HotelID:           hotelID,
		RootDir:           hotel.RawRootDir,
		IncludeSubfolders: hotel.IncludeSubfolders,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	engine := missing.NewEngine(h.snapshots, h.ledger)
	engine.WindowDays = h.cfg.Missing.WindowDays
	engine.HorizonMonths = h.cfg.Missing.HorizonMonths

	// 未过滤的运营报告才能看到待确认的全量记录
	report, err := engine.OperationalReport(hotelID, inv, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.acks.Load(hotelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ackedKeys := make(map[string]bool, len(req.Keys))
	for _, k := range req.Keys {
		ackedKeys[k] = true
	}

	updated := missing.UpdateAcks(existing, report, ackedKeys, time.Now().Format("2006-01-02 15:04:05"))
	if err := h.acks.Save(hotelID, updated); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"hotelId": hotelID, "acks": updated})
}
