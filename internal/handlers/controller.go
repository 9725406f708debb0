package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errGetState     = "failed to load state"
	errGetTelemetry = "failed to load telemetry"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get controller state
// @Description  Latest snapshot written by the polling cycle: temperatures, raw ADC means, relay state and active faults.
// @Tags         controller
// @Produce      json
// @Success      200  {object}  models.ControllerState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/controller/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "controller_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Get effective configuration
// @Description  Every parameter with its compiled-in default and current value, plus the outcome of the boot-time remote load.
// @Tags         controller
// @Produce      json
// @Success      200  {object}  service.SettingsView
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/controller/config [get]
// @Security     BearerAuth
func (h *Handler) getConfig(c *gin.Context) {
	view := h.services.Configuration.Settings()
	c.JSON(http.StatusOK, gin.H{
		"namespace": view.Namespace,
		"params":    view.Params,
		"last_load": view.LastLoad,
		"failed":    view.LastLoad.Failed(),
	})
}
