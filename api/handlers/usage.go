package handlers

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/internal/pattern"
	"github.com/OldStager01/smart-pump/internal/usagelog"
	"github.com/OldStager01/smart-pump/pkg/config"
	"github.com/OldStager01/smart-pump/pkg/models"
	"github.com/OldStager01/smart-pump/pkg/validation"
)

type UsageHandler struct {
	store  usagelog.Store
	config config.APIConfig
}

func NewUsageHandler(store usagelog.Store, cfg config.APIConfig) *UsageHandler {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 1000
	}
	return &UsageHandler{store: store, config: cfg}
}

func (h *UsageHandler) Recent(c *gin.Context) {
	raw, ok := parseInt(c, "limit", 0)
	if !ok {
		return
	}
	limit, err := validation.ValidateLimit(raw, h.config.DefaultLimit, h.config.MaxLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := h.store.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.ErrorCtxf(c.Request.Context(), "Failed to read usage log: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read usage log"})
		return
	}

	data := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		data = append(data, usageView(e))
	}
	c.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
}

// usageView renders an entry with unreadable sensor values as null, since
// JSON has no NaN.
func usageView(e models.UsageLogEntry) gin.H {
	s := e.Snapshot
	return gin.H{
		"date":       e.Date.Format(dateLayout),
		"start_hour": e.StartHour,
		"duration":   e.Duration,
		"snapshot": gin.H{
			"water_level":    finite(s.WaterLevel),
			"flow_rate":      finite(s.FlowRate),
			"voltage":        finite(s.Voltage),
			"current":        finite(s.Current),
			"temperature":    finite(s.Temperature),
			"inflow_rate":    finite(s.InflowRate),
			"outflow_rate":   finite(s.OutflowRate),
			"is_special_day": s.IsSpecialDay,
			"has_inflow":     s.HasInflow,
		},
	}
}

func finite(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func (h *UsageHandler) Trend(c *gin.Context) {
	entries, err := h.store.Recent(c.Request.Context(), 7)
	if err != nil {
		logger.ErrorCtxf(c.Request.Context(), "Failed to read usage log: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read usage log"})
		return
	}

	trend, err := pattern.Trend(entries)
	if err != nil {
		if errors.Is(err, pattern.ErrInsufficientHistory) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not enough usage history", "count": len(entries)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute trend"})
		return
	}
	c.JSON(http.StatusOK, trend)
}
