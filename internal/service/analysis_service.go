package service

import (
	"time"

	"drc_online/internal/analysis"
	"drc_online/internal/logger"
	"drc_online/internal/models"
)

// Detection defaults; overridable per analyze request.
const (
	DefaultThresholdDB       = -10.0
	DefaultMinDurationPoints = 3
)

// historySource provides the rolling window to analyze. Satisfied by
// SweepService.
type historySource interface {
	History() *analysis.History
}

// AnalysisService segments the rolling history into sample-presence periods
// and cross-compares them.
type AnalysisService struct {
	src historySource
	log *logger.Logger
}

func NewAnalysisService(src historySource, log *logger.Logger) *AnalysisService {
	return &AnalysisService{src: src, log: log}
}

// Analyze runs period detection and pairwise comparison over the current
// history snapshot. Zero threshold/minDuration select the defaults.
func (s *AnalysisService) Analyze(thresholdDB float64, minDuration int) models.AnalysisResult {
	if thresholdDB == 0 {
		thresholdDB = DefaultThresholdDB
	}
	if minDuration <= 0 {
		minDuration = DefaultMinDurationPoints
	}

	snapshot := s.src.History().Snapshot(time.Now())
	if len(snapshot) == 0 {
		return models.AnalysisResult{Success: false, Message: "no sweep history to analyze"}
	}

	periods := analysis.DetectPeriods(snapshot, thresholdDB, minDuration)
	if len(periods) == 0 {
		return models.AnalysisResult{Success: false, Message: "no measurement periods found"}
	}
	comparisons := analysis.ComparePeriods(periods)

	s.log.Infow("analysis_run", "points", len(snapshot), "periods", len(periods), "comparisons", len(comparisons))
	return models.AnalysisResult{
		Success:     true,
		Periods:     periods,
		Comparisons: comparisons,
		Summary:     summarize(periods, comparisons),
	}
}

func summarize(periods []models.Period, comparisons []models.Comparison) models.AnalysisSummary {
	sum := models.AnalysisSummary{
		TotalPeriods:     len(periods),
		TotalComparisons: len(comparisons),
	}
	if len(comparisons) == 0 {
		return sum
	}
	total := 0.0
	for _, c := range comparisons {
		total += c.Similarity
		if c.IsSame {
			sum.SameSampleCount++
		}
	}
	sum.AvgSimilarity = total / float64(len(comparisons))
	return sum
}
