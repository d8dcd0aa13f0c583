package regression

import (
	"time"

	"drc_online/internal/models"
)

// FitLinear derives a two-point linear calibration:
//
//	DRC% = slope_m * S21_RMS(dB) + intercept_b
//	slope_m = (drc2 - drc1) / (s21High - s21Low)
//
// Fails with ValidationError when the calibration points share an S21 value
// (division by zero) or a percentage is outside [0,100].
func FitLinear(s21LowDB, drc1Percent, s21HighDB, drc2Percent float64) (models.DrcCalibration, error) {
	if s21HighDB == s21LowDB {
		return models.DrcCalibration{}, validationErrorf("s21 high dB must differ from s21 low dB")
	}
	if drc1Percent < 0 || drc1Percent > 100 || drc2Percent < 0 || drc2Percent > 100 {
		return models.DrcCalibration{}, validationErrorf("drc percentages must be between 0 and 100")
	}

	slope := (drc2Percent - drc1Percent) / (s21HighDB - s21LowDB)
	return models.DrcCalibration{
		S21LowDB:    s21LowDB,
		S21HighDB:   s21HighDB,
		Drc1Percent: drc1Percent,
		Drc2Percent: drc2Percent,
		SlopeM:      slope,
		InterceptB:  drc1Percent - slope*s21LowDB,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Evaluate applies a calibration to an S21 RMS value and clamps the result
// to the calibrated DRC range. Pure and idempotent.
func Evaluate(cal models.DrcCalibration, s21RMSdb float64) float64 {
	drc := cal.SlopeM*s21RMSdb + cal.InterceptB
	return clamp(drc, cal.Drc1Percent, cal.Drc2Percent)
}

// clamp bounds v to [min(a,b), max(a,b)].
func clamp(v, a, b float64) float64 {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
