package handlers

import (
	"net/http"
	"strconv"
	"time"

	"drc_online/internal/models"

	"github.com/gin-gonic/gin"
)

// saveRequest identifies the batch a saved sweep belongs to. All fields may
// be empty; the batch id then falls back to a timestamp.
type saveRequest struct {
	SlipNo     string `json:"slip_no,omitempty"`
	SamplingNo string `json:"sampling_no,omitempty"`
	TestNo     string `json:"test_no,omitempty"`
}

const queryTimeLayout = "2006-01-02T15:04:05"

// @Summary      Save current measurement
// @Description  Persists the most recent sweep under the given batch identity.
// @Tags         measurements
// @Accept       json
// @Produce      json
// @Param        request  body  saveRequest  false  "batch identity"
// @Success      200  {object}  models.SaveResult
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/measurements [post]
// @Security     BearerAuth
func (h *Handler) saveMeasurement(c *gin.Context) {
	var req saveRequest
	_ = c.ShouldBindJSON(&req)

	res, err := h.services.Measurements.Save(c.Request.Context(), models.BatchMeta{
		SlipNo:     req.SlipNo,
		SamplingNo: req.SamplingNo,
		TestNo:     req.TestNo,
	})
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, res.Message, "measurement_save_failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Query historical measurements
// @Description  Date bounds use 2006-01-02T15:04:05; both optional.
// @Tags         measurements
// @Produce      json
// @Param        from   query  string  false  "range start"
// @Param        to     query  string  false  "range end"
// @Param        limit  query  int     false  "max rows (default 100)"
// @Success      200  {object}  map[string]interface{}  "rows"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/measurements [get]
// @Security     BearerAuth
func (h *Handler) queryMeasurements(c *gin.Context) {
	from, ok := h.parseQueryTime(c, "from")
	if !ok {
		return
	}
	to, ok := h.parseQueryTime(c, "to")
	if !ok {
		return
	}
	limit := 0
	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = v
	}

	rows, err := h.services.Measurements.Query(c.Request.Context(), from, to, limit)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to query measurements", "measurement_query_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows, "count": len(rows)})
}

// @Summary      Last saved measurement
// @Tags         measurements
// @Produce      json
// @Success      200  {object}  service.SavedInfo
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/measurements/last [get]
// @Security     BearerAuth
func (h *Handler) lastSaved(c *gin.Context) {
	info := h.services.Measurements.LastSaved()
	if info == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "nothing saved yet"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// parseQueryTime reads an optional time query param; writes 400 and returns
// ok=false on a malformed value.
func (h *Handler) parseQueryTime(c *gin.Context, key string) (time.Time, bool) {
	s := c.Query(key)
	if s == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(queryTimeLayout, s)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key + " time, want " + queryTimeLayout})
		return time.Time{}, false
	}
	return t, true
}
