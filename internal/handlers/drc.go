package handlers

import (
	"errors"
	"net/http"

	"drc_online/internal/regression"
	"drc_online/internal/service"

	"github.com/gin-gonic/gin"
)

// calibrationRequest carries the two calibration points for a batch.
type calibrationRequest struct {
	BatchID     string  `json:"batch_id" binding:"required"`
	S21LowDB    float64 `json:"s21_low_db"`
	Drc1Percent float64 `json:"drc1_percent"`
	S21HighDB   float64 `json:"s21_high_db"`
	Drc2Percent float64 `json:"drc2_percent"`
}

type calculateRequest struct {
	S21RMS float64 `json:"s21_rms"`
}

// @Summary      Save DRC calibration
// @Tags         drc
// @Accept       json
// @Produce      json
// @Param        calibration  body  calibrationRequest  true  "two-point calibration"
// @Success      200  {object}  models.DrcCalibration
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/drc/calibration [post]
// @Security     BearerAuth
func (h *Handler) saveCalibration(c *gin.Context) {
	var req calibrationRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	cal, err := h.services.Drc.SaveCalibration(c.Request.Context(),
		req.BatchID, req.S21LowDB, req.Drc1Percent, req.S21HighDB, req.Drc2Percent)
	if err != nil {
		var verr *regression.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to save calibration", "calibration_save_failed", err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

// @Summary      Get DRC calibration
// @Description  Returns the calibration for ?batch_id, or the latest one.
// @Tags         drc
// @Produce      json
// @Success      200  {object}  models.DrcCalibration
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/drc/calibration [get]
// @Security     BearerAuth
func (h *Handler) getCalibration(c *gin.Context) {
	cal, err := h.services.Drc.Calibration(c.Request.Context(), c.Query("batch_id"))
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load calibration", "calibration_load_failed", err)
		return
	}
	if cal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no calibration found"})
		return
	}
	c.JSON(http.StatusOK, cal)
}

// @Summary      Calculate DRC from an S21 reading
// @Tags         drc
// @Accept       json
// @Produce      json
// @Param        request  body  calculateRequest  true  "S21 RMS in dB"
// @Success      200  {object}  service.DrcResult
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/drc/calculate [post]
// @Security     BearerAuth
func (h *Handler) calculateDrc(c *gin.Context) {
	var req calculateRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	res, err := h.services.Drc.Calculate(c.Request.Context(), req.S21RMS)
	if err != nil {
		if errors.Is(err, service.ErrNoCalibration) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to calculate drc", "drc_calculate_failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
