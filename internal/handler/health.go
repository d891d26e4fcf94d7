package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Returns the health status of the service and the time of the last trading cycle
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "healthy"}
	if h.deps.Scanner != nil {
		if last := h.deps.Scanner.LastRun(); !last.IsZero() {
			body["last_scan"] = last.UTC().Format(time.RFC3339)
		}
	}
	c.JSON(http.StatusOK, body)
}
