package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/smart-pump/pkg/validation"
)

const dateLayout = "2006-01-02"

// parseDate reads ?date=YYYY-MM-DD, defaulting to today in loc.
func parseDate(c *gin.Context, loc *time.Location) (time.Time, bool) {
	raw := validation.SanitizeString(c.Query("date"))
	if raw == "" {
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), true
	}

	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return t, true
}

// parseInt reads an integer query parameter. ok is false after a 400 has
// been written.
func parseInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer"})
		return 0, false
	}
	return v, true
}
