package handlers

import (
	"errors"
	"net/http"

	"drc_online/internal/models"
	"drc_online/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK      = "ok"
	statusStarted = "started"
	statusStopped = "stopped"

	errStartSweep = "failed to start sweep"
	errStopSweep  = "failed to stop sweep"
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

// @Summary      Start sweep session
// @Tags         sweep
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, connection"
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/sweep/start [post]
// @Security     BearerAuth
func (h *Handler) startSweep(c *gin.Context) {
	if err := h.services.Sweep.Start(c.Request.Context()); err != nil {
		if errors.Is(err, service.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusBadGateway, errStartSweep, "sweep_start_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusStarted, "connection": h.services.Sweep.Status()})
}

// @Summary      Stop sweep session
// @Tags         sweep
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/sweep/stop [post]
// @Security     BearerAuth
func (h *Handler) stopSweep(c *gin.Context) {
	if err := h.services.Sweep.Stop(); err != nil {
		if errors.Is(err, service.ErrNotRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errStopSweep, "sweep_stop_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusStopped})
}

// @Summary      Sweep status
// @Tags         sweep
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "running, connection"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/sweep/status [get]
// @Security     BearerAuth
func (h *Handler) sweepStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":    h.services.Sweep.Running(),
		"connection": h.services.Sweep.Status(),
	})
}

// @Summary      Get sweep configuration
// @Tags         sweep
// @Produce      json
// @Success      200  {object}  models.SweepConfig
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/sweep/config [get]
// @Security     BearerAuth
func (h *Handler) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Sweep.Config())
}

// @Summary      Update sweep configuration
// @Description  Rejected while a sweep is running; stop it first.
// @Tags         sweep
// @Accept       json
// @Produce      json
// @Param        config  body  models.SweepConfig  true  "new configuration"
// @Success      200  {object}  models.SweepConfig
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/sweep/config [put]
// @Security     BearerAuth
func (h *Handler) updateConfig(c *gin.Context) {
	var cfg models.SweepConfig
	if ok := h.bindJSONOrBadRequest(c, &cfg); !ok {
		return
	}
	if err := h.services.Sweep.UpdateConfig(cfg); err != nil {
		if errors.Is(err, service.ErrSweepActive) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.services.Sweep.Config())
}

// @Summary      Scan serial ports
// @Tags         sweep
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ports"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/sweep/ports [get]
// @Security     BearerAuth
func (h *Handler) scanPorts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ports": h.services.Sweep.ScanPorts()})
}
