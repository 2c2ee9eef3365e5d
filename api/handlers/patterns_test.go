package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/smart-pump/api/handlers"
	"github.com/OldStager01/smart-pump/internal/pattern"
	"github.com/OldStager01/smart-pump/pkg/models"
)

func monday(week int) time.Time {
	return time.Date(2024, 3, 4+7*week, 0, 0, 0, 0, time.UTC)
}

func servePatterns(t *testing.T, store *pattern.Store) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/patterns", handlers.NewPatternHandler(store, time.UTC).Summary)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patterns", nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestPatternSummary_RoundsMeans(t *testing.T) {
	store := pattern.NewStore([]models.HistoricalRecord{
		{Date: monday(0), Hour: 6, Duration: 80, Temperature: 25},
		{Date: monday(1), Hour: 6, Duration: 80, Temperature: 25},
		{Date: monday(2), Hour: 7, Duration: 81, Temperature: 25},
	})

	rec, body := servePatterns(t, store)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6.33, body["avg_start_hour"])
	assert.Equal(t, 80.33, body["avg_duration"])

	weekday := body["by_weekday"].(map[string]interface{})["0"].(map[string]interface{})
	assert.Equal(t, 6.33, weekday["hour"])
	assert.Equal(t, 80.33, weekday["duration"])

	summary, err := store.Summary()
	require.NoError(t, err)
	assert.InDelta(t, 19.0/3, summary.AvgStartHour, 1e-12)
}

func TestPatternSummary_NoRuns(t *testing.T) {
	store := pattern.NewStore([]models.HistoricalRecord{
		{Date: monday(0), Hour: 6, Duration: 0},
	})

	rec, body := servePatterns(t, store)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, float64(1), body["records"])
}
