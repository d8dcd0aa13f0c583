package regression

import (
	"errors"
	"math"
	"testing"

	"drc_online/internal/models"
)

func TestFitLinear_TwoPointCalibration(t *testing.T) {
	cal, err := FitLinear(-40, 50, -20, 70)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(cal.SlopeM-1.0) > 1e-9 {
		t.Fatalf("slope = %v, want 1.0", cal.SlopeM)
	}
	if math.Abs(cal.InterceptB-90) > 1e-9 {
		t.Fatalf("intercept = %v, want 90", cal.InterceptB)
	}
	if got := Evaluate(cal, -30); math.Abs(got-60) > 1e-9 {
		t.Fatalf("evaluate(-30) = %v, want 60", got)
	}
}

func TestFitLinear_EqualPointsIsValidationError(t *testing.T) {
	_, err := FitLinear(-30, 50, -30, 70)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestFitLinear_PercentOutOfRange(t *testing.T) {
	cases := [][4]float64{
		{-40, -1, -20, 70},
		{-40, 50, -20, 101},
	}
	for _, c := range cases {
		_, err := FitLinear(c[0], c[1], c[2], c[3])
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("FitLinear(%v) expected ValidationError, got %v", c, err)
		}
	}
}

func TestEvaluate_ClampsAtExtremes(t *testing.T) {
	cal, err := FitLinear(-40, 50, -20, 70)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, in := range []float64{-1000, -40.0001, 0, 1000, math.MaxFloat64, -math.MaxFloat64} {
		got := Evaluate(cal, in)
		if got < 50 || got > 70 {
			t.Fatalf("evaluate(%v) = %v escaped [50,70]", in, got)
		}
	}
	// inverted calibration: range still respected
	inv, err := FitLinear(-40, 70, -20, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, in := range []float64{-1000, 1000} {
		got := Evaluate(inv, in)
		if got < 50 || got > 70 {
			t.Fatalf("inverted evaluate(%v) = %v escaped [50,70]", in, got)
		}
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	cal, _ := FitLinear(-40, 50, -20, 70)
	a := Evaluate(cal, -27.3)
	b := Evaluate(cal, -27.3)
	if a != b {
		t.Fatalf("evaluate not idempotent: %v vs %v", a, b)
	}
}

func TestTrainLinear_PerfectFit(t *testing.T) {
	// points on DRC = 2*S21 + 100
	ds := []models.TrainingRecord{
		{S21Avg: -30, DrcEvaluate: 40},
		{S21Avg: -25, DrcEvaluate: 50},
		{S21Avg: -20, DrcEvaluate: 60},
	}
	params, m, err := TrainLinear(ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slope, _ := payloadFloat(params.Payload, "slope")
	intercept, _ := payloadFloat(params.Payload, "intercept")
	if math.Abs(slope-2) > 1e-9 || math.Abs(intercept-100) > 1e-9 {
		t.Fatalf("fit = %v*x+%v, want 2*x+100", slope, intercept)
	}
	if math.Abs(m.RSquared-1) > 1e-9 || m.RMSE > 1e-9 || m.MAE > 1e-9 {
		t.Fatalf("expected perfect metrics, got %+v", m)
	}
	if params.Formula == "" {
		t.Fatalf("expected a formula string")
	}
}

func TestTrainLinear_DegenerateDataset(t *testing.T) {
	_, _, err := TrainLinear([]models.TrainingRecord{
		{S21Avg: -30, DrcEvaluate: 40},
		{S21Avg: -30, DrcEvaluate: 50},
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for identical s21 values, got %v", err)
	}
	if _, _, err := TrainLinear(nil); err == nil {
		t.Fatalf("expected error for empty dataset")
	}
}

func TestEvaluateModel_LinearAndPolynomial(t *testing.T) {
	lin := models.TrainedModel{
		Type: models.ModelLinear,
		Parameters: models.ModelParams{
			Kind:    models.ModelLinear,
			Payload: map[string]any{"slope": 1.0, "intercept": 90.0, "clamp_min": 50.0, "clamp_max": 70.0},
		},
	}
	got, err := EvaluateModel(lin, -30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-60) > 1e-9 {
		t.Fatalf("linear model evaluate = %v, want 60", got)
	}
	// far outside the range stays clamped
	if got, _ := EvaluateModel(lin, 500); got != 70 {
		t.Fatalf("expected clamp at 70, got %v", got)
	}

	poly := models.TrainedModel{
		Type: models.ModelPolynomial,
		Parameters: models.ModelParams{
			Kind:    models.ModelPolynomial,
			Payload: map[string]any{"coefficients": []any{10.0, 2.0}}, // 10 + 2x
		},
	}
	got, err = EvaluateModel(poly, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-20) > 1e-9 {
		t.Fatalf("polynomial evaluate = %v, want 20", got)
	}
}

func TestEvaluateModel_DefaultBoundsHold(t *testing.T) {
	lin := models.TrainedModel{
		Parameters: models.ModelParams{
			Kind:    models.ModelLinear,
			Payload: map[string]any{"slope": 10.0, "intercept": 500.0},
		},
	}
	got, err := EvaluateModel(lin, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 100 {
		t.Fatalf("expected default clamp to 100, got %v", got)
	}
}

func TestEvaluateModel_MalformedAndUnregistered(t *testing.T) {
	var ie *ModelInferenceError

	_, err := EvaluateModel(models.TrainedModel{
		Parameters: models.ModelParams{Kind: models.ModelLinear, Payload: map[string]any{}},
	}, -30)
	if !errors.As(err, &ie) {
		t.Fatalf("expected ModelInferenceError for missing params, got %v", err)
	}

	_, err = EvaluateModel(models.TrainedModel{
		Parameters: models.ModelParams{Kind: models.ModelRandomForest, Payload: map[string]any{}},
	}, -30)
	if !errors.As(err, &ie) {
		t.Fatalf("expected ModelInferenceError for unregistered kind, got %v", err)
	}
}

func TestRegisterEvaluator_ExternalCollaboratorHook(t *testing.T) {
	RegisterEvaluator("test_kind", func(payload map[string]any, x float64) (float64, error) {
		return 42, nil
	})
	got, err := EvaluateModel(models.TrainedModel{
		Parameters: models.ModelParams{Kind: "test_kind", Payload: map[string]any{}},
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42 from registered evaluator, got %v", got)
	}
}
