package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HotelStatus 单酒店状态
type HotelStatus struct {
	HotelID      string `json:"hotelId"`
	DisplayName  string `json:"displayName"`
	SnapshotPath string `json:"snapshotPath"`
	SnapshotRows int    `json:"snapshotRows"`
	LatestAsOf   string `json:"latestAsof"` // 为空表示尚无快照
}

// StatusResponse 系统状态响应
type StatusResponse struct {
	Hotels []HotelStatus `json:"hotels"`
	MaxLT  int           `json:"maxLt"`
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{MaxLT: h.cfg.Curve.MaxLT}
	for _, id := range h.cfg.HotelIDs() {
		hotel, err := h.cfg.Hotel(id)
		if err != nil {
			continue
		}
		st := HotelStatus{
			HotelID:      id,
			DisplayName:  hotel.DisplayName,
			SnapshotPath: h.snapshots.Path(id),
		}
		if rows, err := h.snapshots.Read(id); err == nil {
			st.SnapshotRows = len(rows)
		}
		if latest, err := h.snapshots.LatestAsOfDate(id); err == nil && !latest.IsZero() {
			st.LatestAsOf = latest.String()
		}
		resp.Hotels = append(resp.Hotels, st)
	}
	c.JSON(http.StatusOK, resp)
}
