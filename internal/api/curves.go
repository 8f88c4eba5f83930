package api

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"curvelab/internal/curve"
	"curvelab/internal/model"
)

// GetLTTable 查询 lead time 矩阵
// GET /api/lt/:hotel/:month?metric=rooms
func (h *Handler) GetLTTable(c *gin.Context) {
	hotelID := c.Param("hotel")
	targetMonth := c.Param("month")
	if _, err := h.cfg.Hotel(hotelID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	metric, ok := parseMetric(c.DefaultQuery("metric", string(model.MetricRooms)))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "metric must be one of rooms/pax/revenue"})
		return
	}

	rows, err := h.snapshots.ReadForMonth(hotelID, targetMonth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	table := curve.BuildLTTable(rows, hotelID, targetMonth, metric, h.cfg.Curve.MaxLT)

	// 每次查询同步落一份 CSV 产物，供下游表格工具直接取用
	artifact := filepath.Join(h.cfg.Data.OutputDir, curve.LTArtifactName(hotelID, targetMonth, metric))
	if err := curve.WriteLTTableCSV(artifact, table); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if metric == model.MetricRooms {
		// rooms 口径另落一份旧版文件名，既有下游仍按它取数
		legacy := filepath.Join(h.cfg.Data.OutputDir, curve.LTArtifactName(hotelID, targetMonth, ""))
		if err := curve.WriteLTTableCSV(legacy, table); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, table)
}

// GetMonthlyCurve 查询月次累计曲线
// GET /api/curve/:hotel/:month?metric=rooms
func (h *Handler) GetMonthlyCurve(c *gin.Context) {
	hotelID := c.Param("hotel")
	targetMonth := c.Param("month")
	if _, err := h.cfg.Hotel(hotelID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	metric, ok := parseMetric(c.DefaultQuery("metric", string(model.MetricRooms)))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "metric must be one of rooms/pax/revenue"})
		return
	}

	rows, err := h.snapshots.ReadForMonth(hotelID, targetMonth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	mc, err := curve.BuildMonthlyCurve(rows, hotelID, targetMonth, metric, h.cfg.Curve.MaxLT)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if metric == model.MetricRooms {
		// 月次曲线产物是 rooms 口径的固定文件名，其余指标仅随响应返回
		artifact := filepath.Join(h.cfg.Data.OutputDir, curve.MonthlyCurveArtifactName(hotelID, targetMonth))
		if err := curve.WriteMonthlyCurveCSV(artifact, mc); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, mc)
}

func parseMetric(s string) (model.Metric, bool) {
	switch model.Metric(s) {
	case model.MetricRooms, model.MetricPax, model.MetricRevenue:
		return model.Metric(s), true
	}
	return "", false
}
