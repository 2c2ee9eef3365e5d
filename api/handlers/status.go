package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/smart-pump/internal/control"
)

type StatusProvider interface {
	Status() control.Status
}

type StatusHandler struct {
	loop StatusProvider
}

func NewStatusHandler(loop StatusProvider) *StatusHandler {
	return &StatusHandler{loop: loop}
}

func (h *StatusHandler) Get(c *gin.Context) {
	if h.loop == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "control loop not running"})
		return
	}
	c.JSON(http.StatusOK, h.loop.Status())
}
