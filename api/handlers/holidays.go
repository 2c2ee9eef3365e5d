package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/smart-pump/internal/adjust"
	"github.com/OldStager01/smart-pump/internal/holiday"
	"github.com/OldStager01/smart-pump/pkg/validation"
)

type HolidayHandler struct {
	engine   *holiday.Engine
	location *time.Location
}

func NewHolidayHandler(engine *holiday.Engine, loc *time.Location) *HolidayHandler {
	if loc == nil {
		loc = time.Local
	}
	return &HolidayHandler{engine: engine, location: loc}
}

func (h *HolidayHandler) Impact(c *gin.Context) {
	date, ok := parseDate(c, h.location)
	if !ok {
		return
	}
	lookahead, ok := parseInt(c, "lookahead", adjust.DefaultLookahead)
	if !ok {
		return
	}
	if err := validation.ValidateLookahead(lookahead, h.engine.MaxLookahead()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":      date.Format(dateLayout),
		"lookahead": lookahead,
		"impact":    h.engine.ImpactForWindow(date, lookahead),
		"weekend":   adjust.Weekend(date),
	})
}

func (h *HolidayHandler) Upcoming(c *gin.Context) {
	from, ok := parseDate(c, h.location)
	if !ok {
		return
	}
	days, ok := parseInt(c, "days", 30)
	if !ok {
		return
	}
	if days < 1 || days > 366 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 366"})
		return
	}

	upcoming := h.engine.Upcoming(from, days)
	items := make([]gin.H, 0, len(upcoming))
	for _, hol := range upcoming {
		rule := holiday.Classify(hol.Event)
		items = append(items, gin.H{
			"date":  hol.Date.Format(dateLayout),
			"event": hol.Event,
			"type":  hol.Type,
			"tier":  rule.Tier,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "count": len(items)})
}
