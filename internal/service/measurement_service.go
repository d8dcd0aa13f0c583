package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"drc_online/internal/logger"
	"drc_online/internal/models"
	"drc_online/internal/regression"
	"drc_online/internal/repository"

	"github.com/google/uuid"
)

// ErrInvalidWeights guards the weight-based DRC helper.
var ErrInvalidWeights = errors.New("weights must be positive and net <= gross")

// sampleSource provides the sweep to persist. Satisfied by SweepService.
type sampleSource interface {
	LastSample() *models.SweepSample
	Config() models.SweepConfig
}

// drcEvaluator computes DRC at save time and freezes the display afterwards.
// Satisfied by DrcService.
type drcEvaluator interface {
	Evaluate(ctx context.Context, s21RMS float64) (DrcResult, error)
	Hold(value float64)
}

// SavedInfo describes the most recent persisted measurement.
type SavedInfo struct {
	BatchID    string    `json:"batch_id"`
	SavedAt    time.Time `json:"saved_at"`
	DrcPercent *float64  `json:"drc_percent,omitempty"`
}

// MeasurementService persists sweeps with their batch identity and answers
// historical queries.
type MeasurementService struct {
	repo repository.MeasurementRepo
	src  sampleSource
	drc  drcEvaluator
	log  *logger.Logger

	mu        sync.Mutex
	lastSaved *SavedInfo
}

func NewMeasurementService(repo repository.MeasurementRepo, src sampleSource, drc drcEvaluator, log *logger.Logger) *MeasurementService {
	return &MeasurementService{repo: repo, src: src, drc: drc, log: log}
}

// Save persists the most recent sweep under the batch identity in meta.
// DRC is evaluated fresh at save time when a model or calibration exists;
// the displayed value is then held so the operator sees what was recorded.
func (s *MeasurementService) Save(ctx context.Context, meta models.BatchMeta) (models.SaveResult, error) {
	sample := s.src.LastSample()
	if sample == nil {
		return models.SaveResult{Success: false, Message: "no sweep data to save"}, nil
	}

	batchID := BatchID(meta, sample.Timestamp)

	var drcPercent *float64
	var infErr *regression.ModelInferenceError
	res, err := s.drc.Evaluate(ctx, sample.Summary.S21AvgDB)
	switch {
	case err == nil:
		v := res.DrcPercent
		drcPercent = &v
	case errors.Is(err, ErrNoCalibration):
		// Saving without DRC is allowed; calibration may come later.
	case errors.As(err, &infErr):
		// An unusable model means no DRC, not a failed save.
		s.log.Warnw("drc_unavailable_at_save", "err", err)
	default:
		return models.SaveResult{Success: false, Message: err.Error()}, err
	}

	quality := SignalQuality(*sample, s.src.Config().Points)
	if err := s.repo.Save(ctx, *sample, meta, batchID, drcPercent, quality); err != nil {
		return models.SaveResult{Success: false, Message: "save failed: " + err.Error()}, err
	}

	if drcPercent != nil {
		s.drc.Hold(*drcPercent)
	}

	info := &SavedInfo{BatchID: batchID, SavedAt: time.Now(), DrcPercent: drcPercent}
	s.mu.Lock()
	s.lastSaved = info
	s.mu.Unlock()

	s.log.Infow("measurement_saved", "batch_id", batchID, "sweep_count", sample.SweepCount)
	return models.SaveResult{
		Success:    true,
		Message:    "measurement saved",
		BatchID:    batchID,
		DrcPercent: drcPercent,
	}, nil
}

// LastSaved returns the identity of the most recent save, or nil before one.
func (s *MeasurementService) LastSaved() *SavedInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSaved == nil {
		return nil
	}
	cp := *s.lastSaved
	return &cp
}

// Query returns stored summary rows in [from, to]. DRC is re-evaluated
// against the current model/calibration so old rows reflect today's fit;
// rows keep their stored value when no calibration exists.
func (s *MeasurementService) Query(ctx context.Context, from, to time.Time, limit int) ([]models.SummaryRow, error) {
	rows, err := s.repo.QuerySummaries(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		res, err := s.drc.Evaluate(ctx, rows[i].S21RMS)
		if err != nil {
			continue
		}
		v := res.DrcPercent
		rows[i].DrcPercent = &v
	}
	return rows, nil
}

// BatchID derives the batch identity: slip_sampling_test when any component
// is present, otherwise a timestamped id with a short uuid suffix.
func BatchID(meta models.BatchMeta, ts time.Time) string {
	if meta.SlipNo != "" || meta.SamplingNo != "" || meta.TestNo != "" {
		return strings.Trim(fmt.Sprintf("%s_%s_%s", meta.SlipNo, meta.SamplingNo, meta.TestNo), "_")
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("%s_%s", ts.UTC().Format("20060102T150405"), uuid.NewString()[:8])
}

// DrcFromWeights computes DRC% from rubber weights:
// drc = net * factor / gross * 100.
func DrcFromWeights(netWeight, grossWeight, factor float64) (float64, error) {
	if netWeight <= 0 || grossWeight <= 0 || factor <= 0 || netWeight > grossWeight {
		return 0, ErrInvalidWeights
	}
	return netWeight * factor / grossWeight * 100, nil
}
