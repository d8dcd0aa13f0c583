package analysis

import (
	"drc_online/internal/models"
)

// DetectPeriods segments a history snapshot into discrete measurement
// periods. A point is in-period when its S11 average is at or below
// thresholdDB (the device absorbing signal means a physical sample is
// present). Consecutive in-period points form a run; runs shorter than
// minDuration points are silently dropped. Ids are assigned chronologically
// starting at 1.
//
// An empty snapshot yields an empty result; a snapshot entirely below the
// threshold yields a single period spanning the whole history.
func DetectPeriods(snapshot []models.HistoryPoint, thresholdDB float64, minDuration int) []models.Period {
	if minDuration < 1 {
		minDuration = 1
	}

	var periods []models.Period
	runStart := -1

	closeRun := func(start, end int) {
		n := end - start + 1
		if n < minDuration {
			return
		}
		periods = append(periods, fingerprint(snapshot, len(periods)+1, start, end))
	}

	for i, p := range snapshot {
		if p.S11AvgDB <= thresholdDB {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			closeRun(runStart, i-1)
			runStart = -1
		}
	}
	if runStart >= 0 {
		closeRun(runStart, len(snapshot)-1)
	}
	return periods
}

// fingerprint computes the per-period statistics over the summary dB series
// of the run [start, end]. RMS uses the power-domain definition in RMSdb.
func fingerprint(snapshot []models.HistoryPoint, id, start, end int) models.Period {
	s11 := make([]float64, 0, end-start+1)
	s21 := make([]float64, 0, end-start+1)
	for i := start; i <= end; i++ {
		s11 = append(s11, snapshot[i].S11AvgDB)
		s21 = append(s21, snapshot[i].S21AvgDB)
	}

	s11Min, s11Max := minMax(s11)
	s21Min, s21Max := minMax(s21)

	return models.Period{
		ID:         id,
		StartIndex: start,
		EndIndex:   end,
		Duration:   snapshot[end].Timestamp.Sub(snapshot[start].Timestamp).Seconds(),
		NumPoints:  end - start + 1,
		TimeAgo:    snapshot[end].SecondsAgo,
		S11RMS:     RMSdb(s11),
		S21RMS:     RMSdb(s21),
		S11Range:   s11Max - s11Min,
		S21Range:   s21Max - s21Min,
		S11Std:     stddev(s11),
		S21Std:     stddev(s21),
		S11Min:     s11Min,
		S11Max:     s11Max,
		S21Min:     s21Min,
		S21Max:     s21Max,
	}
}
