package models

// Period is a contiguous run of sweeps containing a physical sample, detected
// by thresholding the S11 average. Derived, never persisted.
type Period struct {
	ID         int     `json:"id"` // 1-based, chronological
	StartIndex int     `json:"start_idx"`
	EndIndex   int     `json:"end_idx"`
	Duration   float64 `json:"duration"` // seconds
	NumPoints  int     `json:"num_points"`
	TimeAgo    float64 `json:"time_ago"` // seconds since the period ended
	S11RMS     float64 `json:"s11_rms"`
	S21RMS     float64 `json:"s21_rms"`
	S11Range   float64 `json:"s11_range"`
	S21Range   float64 `json:"s21_range"`
	S11Std     float64 `json:"s11_std"`
	S21Std     float64 `json:"s21_std"`
	S11Min     float64 `json:"s11_min"`
	S11Max     float64 `json:"s11_max"`
	S21Min     float64 `json:"s21_min"`
	S21Max     float64 `json:"s21_max"`
}

// Comparison scores one unordered pair of periods for sample identity.
type Comparison struct {
	Period1    int     `json:"period_1"`
	Period2    int     `json:"period_2"`
	S11RMS1    float64 `json:"s11_rms_1"`
	S11RMS2    float64 `json:"s11_rms_2"`
	S21RMS1    float64 `json:"s21_rms_1"`
	S21RMS2    float64 `json:"s21_rms_2"`
	S11Diff    float64 `json:"s11_diff"`
	S21Diff    float64 `json:"s21_diff"`
	Similarity float64 `json:"similarity"` // 0..100
	IsSame     bool    `json:"is_same"`
}

// AnalysisSummary aggregates one analysis request.
type AnalysisSummary struct {
	TotalPeriods     int     `json:"total_periods"`
	TotalComparisons int     `json:"total_comparisons"`
	SameSampleCount  int     `json:"same_sample_count"`
	AvgSimilarity    float64 `json:"avg_similarity"`
}

// AnalysisResult is the full payload of an analyze_measurements request.
type AnalysisResult struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message,omitempty"`
	Periods     []Period        `json:"periods,omitempty"`
	Comparisons []Comparison    `json:"comparisons,omitempty"`
	Summary     AnalysisSummary `json:"summary"`
}
