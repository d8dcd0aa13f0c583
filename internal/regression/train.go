package regression

import (
	"fmt"
	"math"

	"drc_online/internal/models"
)

// Metrics are the training-set performance figures stored with a model.
type Metrics struct {
	RSquared float64
	RMSE     float64
	MAE      float64
}

// TrainLinear fits an ordinary least-squares line mapping S21 RMS (dB) to
// DRC% over the dataset and reports training metrics. Fails with
// ValidationError on fewer than two records or a degenerate dataset where
// every S21 value is identical.
func TrainLinear(dataset []models.TrainingRecord) (models.ModelParams, Metrics, error) {
	n := len(dataset)
	if n < 2 {
		return models.ModelParams{}, Metrics{}, validationErrorf("insufficient data for training: need at least 2 records, got %d", n)
	}

	var sumX, sumY, sumXY, sumX2 float64
	for _, r := range dataset {
		sumX += r.S21Avg
		sumY += r.DrcEvaluate
		sumXY += r.S21Avg * r.DrcEvaluate
		sumX2 += r.S21Avg * r.S21Avg
	}

	fn := float64(n)
	denom := fn*sumX2 - sumX*sumX
	if denom == 0 {
		return models.ModelParams{}, Metrics{}, validationErrorf("cannot train: all s21 values are identical")
	}

	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	meanY := sumY / fn
	var ssRes, ssTot, absErr float64
	for _, r := range dataset {
		pred := slope*r.S21Avg + intercept
		d := r.DrcEvaluate - pred
		ssRes += d * d
		absErr += math.Abs(d)
		dy := r.DrcEvaluate - meanY
		ssTot += dy * dy
	}

	m := Metrics{
		RMSE: math.Sqrt(ssRes / fn),
		MAE:  absErr / fn,
	}
	if ssTot != 0 {
		m.RSquared = 1 - ssRes/ssTot
	}

	params := models.ModelParams{
		Kind: models.ModelLinear,
		Payload: map[string]any{
			"slope":     slope,
			"intercept": intercept,
		},
		Formula: fmt.Sprintf("DRC = %.6f * S21 + %.6f", slope, intercept),
	}
	return params, m, nil
}
