package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      List telemetry
// @Description  Contents of the wrapping telemetry log ordered by time. Temperatures are recomputed from the raw readings with the calibration in effect and are null for readings at an ADC rail.
// @Tags         telemetry
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, entries"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/telemetry [get]
// @Security     BearerAuth
func (h *Handler) getTelemetry(c *gin.Context) {
	points, err := h.services.TelemetryLog.Entries(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetTelemetry, "telemetry_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(points),
		"entries": points,
	})
}
