package regression

import (
	"sync"

	"drc_online/internal/models"
)

// Evaluator computes a raw (unclamped) prediction from a model's parameter
// payload. Evaluators for svr and random_forest are provided by the external
// training collaborator through RegisterEvaluator; without one, evaluation
// fails with ModelInferenceError and callers fall back to "no model".
type Evaluator func(payload map[string]any, s21RMSdb float64) (float64, error)

var (
	evalMu     sync.RWMutex
	evaluators = map[string]Evaluator{
		models.ModelLinear:     evaluateLinear,
		models.ModelPolynomial: evaluatePolynomial,
	}
)

// RegisterEvaluator installs or replaces the evaluator for a model kind.
func RegisterEvaluator(kind string, fn Evaluator) {
	evalMu.Lock()
	defer evalMu.Unlock()
	evaluators[kind] = fn
}

// EvaluateModel dispatches on the model's parameter kind and clamps the
// prediction the same way the calibration path does: to the payload's
// clamp_min/clamp_max bounds when present, [0,100] otherwise. Deterministic
// for identical inputs.
func EvaluateModel(m models.TrainedModel, s21RMSdb float64) (float64, error) {
	evalMu.RLock()
	fn, ok := evaluators[m.Parameters.Kind]
	evalMu.RUnlock()
	if !ok {
		return 0, &ModelInferenceError{Kind: m.Parameters.Kind, Reason: "no evaluator registered"}
	}

	raw, err := fn(m.Parameters.Payload, s21RMSdb)
	if err != nil {
		return 0, err
	}

	lo, hi := 0.0, 100.0
	if v, ok := payloadFloat(m.Parameters.Payload, "clamp_min"); ok {
		lo = v
	}
	if v, ok := payloadFloat(m.Parameters.Payload, "clamp_max"); ok {
		hi = v
	}
	return clamp(raw, lo, hi), nil
}

func evaluateLinear(payload map[string]any, x float64) (float64, error) {
	slope, ok1 := payloadFloat(payload, "slope")
	intercept, ok2 := payloadFloat(payload, "intercept")
	if !ok1 || !ok2 {
		return 0, &ModelInferenceError{Kind: models.ModelLinear, Reason: "missing slope or intercept"}
	}
	return slope*x + intercept, nil
}

// evaluatePolynomial expects "coefficients": ascending order, c0 + c1*x + ...
func evaluatePolynomial(payload map[string]any, x float64) (float64, error) {
	raw, ok := payload["coefficients"]
	if !ok {
		return 0, &ModelInferenceError{Kind: models.ModelPolynomial, Reason: "missing coefficients"}
	}
	coeffs, err := floatSlice(raw)
	if err != nil || len(coeffs) == 0 {
		return 0, &ModelInferenceError{Kind: models.ModelPolynomial, Reason: "malformed coefficients"}
	}
	// Horner, highest degree first
	acc := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc = acc*x + coeffs[i]
	}
	return acc, nil
}

// payloadFloat reads a numeric payload field, tolerating the float64/int and
// json.Unmarshal representations.
func payloadFloat(payload map[string]any, key string) (float64, bool) {
	v, ok := payload[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func floatSlice(v any) ([]float64, error) {
	switch s := v.(type) {
	case []float64:
		return s, nil
	case []any:
		out := make([]float64, len(s))
		for i, e := range s {
			f, ok := e.(float64)
			if !ok {
				return nil, &ModelInferenceError{Reason: "non-numeric element"}
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, &ModelInferenceError{Reason: "not a numeric list"}
}
