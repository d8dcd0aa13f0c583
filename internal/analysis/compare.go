package analysis

import (
	"math"

	"drc_online/internal/models"
)

// Similarity tuning. ToleranceDB is the combined S11+S21 RMS deviation at
// which two periods score 0%; SameSampleThreshold is the acceptance bar for
// flagging two periods as the same physical sample.
const (
	ToleranceDB         = 3.0
	SameSampleThreshold = 70.0
)

// ComparePeriods scores every unordered pair (i<j) of detected periods for
// sample identity. similarity = 100*(1 - min(1, (|s11Δ|+|s21Δ|)/(2*tol))),
// bounded to [0,100]. Fewer than two periods is not an error: the result is
// simply empty and the caller presents a "need at least 2 periods" state.
func ComparePeriods(periods []models.Period) []models.Comparison {
	if len(periods) < 2 {
		return nil
	}

	out := make([]models.Comparison, 0, len(periods)*(len(periods)-1)/2)
	for i := 0; i < len(periods); i++ {
		for j := i + 1; j < len(periods); j++ {
			a, b := periods[i], periods[j]
			s11Diff := math.Abs(a.S11RMS - b.S11RMS)
			s21Diff := math.Abs(a.S21RMS - b.S21RMS)

			ratio := (s11Diff + s21Diff) / (2 * ToleranceDB)
			if ratio > 1 {
				ratio = 1
			}
			similarity := 100 * (1 - ratio)

			out = append(out, models.Comparison{
				Period1:    a.ID,
				Period2:    b.ID,
				S11RMS1:    a.S11RMS,
				S11RMS2:    b.S11RMS,
				S21RMS1:    a.S21RMS,
				S21RMS2:    b.S21RMS,
				S11Diff:    s11Diff,
				S21Diff:    s21Diff,
				Similarity: similarity,
				IsSame:     similarity >= SameSampleThreshold,
			})
		}
	}
	return out
}
