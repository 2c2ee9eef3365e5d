package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/smart-pump/internal/pattern"
)

type PatternHandler struct {
	store    *pattern.Store
	location *time.Location
}

func NewPatternHandler(store *pattern.Store, loc *time.Location) *PatternHandler {
	if loc == nil {
		loc = time.Local
	}
	return &PatternHandler{store: store, location: loc}
}

func (h *PatternHandler) Summary(c *gin.Context) {
	summary, err := h.store.Summary()
	if err != nil {
		if errors.Is(err, pattern.ErrEmptyDataset) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no historical runs available", "records": h.store.Len()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate history"})
		return
	}
	c.JSON(http.StatusOK, summary.Rounded())
}

// Similar lists historical days sharing the month and weekday of ?date=.
func (h *PatternHandler) Similar(c *gin.Context) {
	date, ok := parseDate(c, h.location)
	if !ok {
		return
	}

	records := h.store.SimilarConditions(date)
	mean, hasRuns := pattern.MeanOf(records)

	resp := gin.H{
		"date":    date.Format(dateLayout),
		"data":    records,
		"count":   len(records),
		"has_run": hasRuns,
	}
	if hasRuns {
		resp["mean"] = mean.Rounded()
	}
	c.JSON(http.StatusOK, resp)
}
