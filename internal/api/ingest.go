package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"curvelab/internal/ingest"
	"curvelab/internal/model"
)

// IngestRequest 灌入请求
type IngestRequest struct {
	HotelID      string   `json:"hotelId" binding:"required"`
	Mode         string   `json:"mode"` // full / partial，缺省 full
	TargetMonths []string `json:"targetMonths"`
	AsOfMin      string   `json:"asofMin"` // YYYY-MM-DD
	AsOfMax      string   `json:"asofMax"`
	// partial 模式下未给定 asof 范围时，从既存快照最新 ASOF 自动回溯
	AutoAsOfFromStore bool `json:"autoAsofFromStore"`
	BufferDays        int  `json:"bufferDays"`
}

// Ingest 执行一批灌入 (SSE 流式响应)
// POST /api/ingest
func (h *Handler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := ingest.Options{
		HotelID:           req.HotelID,
		Mode:              req.Mode,
		TargetMonths:      req.TargetMonths,
		AutoAsOfFromStore: req.AutoAsOfFromStore,
		BufferDays:        req.BufferDays,
	}
	var err error
	if req.AsOfMin != "" {
		if opts.AsOfMin, err = model.ParseDate(req.AsOfMin); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid asofMin: %v", err)})
			return
		}
	}
	if req.AsOfMax != "" {
		if opts.AsOfMax, err = model.ParseDate(req.AsOfMax); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid asofMax: %v", err)})
			return
		}
	}

	progress, err := h.coordinator.Run(opts)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	// SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	for event := range progress {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}
