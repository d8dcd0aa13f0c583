package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// analyzeRequest tunes period detection; zero values select defaults.
type analyzeRequest struct {
	ThresholdDB float64 `json:"threshold_db,omitempty"`
	MinDuration int     `json:"min_duration,omitempty"`
}

// @Summary      Analyze measurement periods
// @Description  Segments the rolling history into sample-presence periods and cross-compares them.
// @Tags         analysis
// @Accept       json
// @Produce      json
// @Param        request  body  analyzeRequest  false  "detection tuning"
// @Success      200  {object}  models.AnalysisResult
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/analysis [post]
// @Security     BearerAuth
func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	// Empty body means defaults.
	_ = c.ShouldBindJSON(&req)
	c.JSON(http.StatusOK, h.services.Analysis.Analyze(req.ThresholdDB, req.MinDuration))
}
