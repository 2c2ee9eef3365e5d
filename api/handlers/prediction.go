package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/smart-pump/internal/control"
	"github.com/OldStager01/smart-pump/internal/logger"
	"github.com/OldStager01/smart-pump/internal/sensors"
	"github.com/OldStager01/smart-pump/pkg/models"
)

type PredictionHandler struct {
	predictor control.Predictor
	sensors   sensors.Source
	location  *time.Location
}

// NewPredictionHandler serves on-demand predictions. source may be nil, in
// which case predictions skip model inference.
func NewPredictionHandler(predictor control.Predictor, source sensors.Source, loc *time.Location) *PredictionHandler {
	if loc == nil {
		loc = time.Local
	}
	return &PredictionHandler{predictor: predictor, sensors: source, location: loc}
}

func (h *PredictionHandler) Get(c *gin.Context) {
	target, ok := parseDate(c, h.location)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	var snap *models.SensorSnapshot
	if h.sensors != nil && c.Query("sensors") != "false" {
		s, err := h.sensors.Read(ctx)
		if err != nil {
			logger.WarnCtxf(ctx, "Sensor read failed for on-demand prediction: %v", err)
		} else {
			snap = s
		}
	}

	c.JSON(http.StatusOK, h.predictor.Predict(ctx, target, snap))
}
