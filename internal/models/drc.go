package models

import "time"

// DrcCalibration is a two-point linear calibration mapping S21 RMS (dB) to
// DRC%. slope_m = (drc2-drc1)/(s21_high-s21_low); s21_high != s21_low.
type DrcCalibration struct {
	BatchID     string    `json:"batch_id"`
	S21LowDB    float64   `json:"s21_low_db"`
	S21HighDB   float64   `json:"s21_high_db"`
	Drc1Percent float64   `json:"drc1_percent"`
	Drc2Percent float64   `json:"drc2_percent"`
	SlopeM      float64   `json:"slope_m"`
	InterceptB  float64   `json:"intercept_b"`
	CreatedAt   time.Time `json:"created_at"`
}

// Model types accepted by the evaluation dispatch table.
const (
	ModelLinear       = "linear"
	ModelPolynomial   = "polynomial"
	ModelSVR          = "svr"
	ModelRandomForest = "random_forest"
)

// ModelParams is the tagged-variant parameter blob of a trained model.
// Kind selects the evaluator; Payload is kind-specific fitted coefficients.
type ModelParams struct {
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
	Formula string         `json:"formula,omitempty"`
}

// TrainedModel is a fitted regression model with its performance metrics.
// At most one model is active at any time.
type TrainedModel struct {
	Name          string      `json:"name"`
	Type          string      `json:"type"`
	Parameters    ModelParams `json:"parameters"`
	RSquared      float64     `json:"r_squared"`
	RMSE          float64     `json:"rmse"`
	MAE           float64     `json:"mae"`
	TrainingCount int         `json:"training_count"`
	IsActive      bool        `json:"is_active"`
	Notes         string      `json:"notes,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// TrainingRecord is one (S21 RMS, DRC%) observation of a training dataset.
type TrainingRecord struct {
	S21Avg      float64 `json:"s21_avg"`
	DrcEvaluate float64 `json:"drc_evaluate"`
}

// BatchMeta identifies the physical sample a saved measurement belongs to:
// slip number + sampling number + test number.
type BatchMeta struct {
	SlipNo     string `json:"slip_no"`
	SamplingNo string `json:"sampling_no"`
	TestNo     string `json:"test_no"`
}

// SaveResult reports the outcome of persisting a measurement.
type SaveResult struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	BatchID    string   `json:"batch_id,omitempty"`
	DrcPercent *float64 `json:"drc_percent,omitempty"`
}

// SummaryRow is a persisted per-sweep summary returned by historical queries.
type SummaryRow struct {
	Timestamp     time.Time `json:"timestamp"`
	SweepCount    int64     `json:"sweep_count"`
	S11RMS        float64   `json:"s11_rms"`
	S11Min        float64   `json:"s11_min"`
	S11Max        float64   `json:"s11_max"`
	S21RMS        float64   `json:"s21_rms"`
	S21Min        float64   `json:"s21_min"`
	S21Max        float64   `json:"s21_max"`
	SignalQuality float64   `json:"signal_quality"`
	BatchID       string    `json:"batch_id,omitempty"`
	SlipNo        string    `json:"slip_no,omitempty"`
	SamplingNo    string    `json:"sampling_no,omitempty"`
	TestNo        string    `json:"test_no,omitempty"`
	DrcPercent    *float64  `json:"drc_percent,omitempty"`
}
