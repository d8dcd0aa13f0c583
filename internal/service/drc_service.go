package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"drc_online/internal/logger"
	"drc_online/internal/models"
	"drc_online/internal/regression"
	"drc_online/internal/repository"
)

// ErrNoCalibration is returned when DRC is requested but neither an active
// model nor a saved calibration exists.
var ErrNoCalibration = errors.New("no calibration or active model available")

// DefaultHoldDuration freezes the displayed DRC value after a save so the
// operator can read the number that was recorded.
const DefaultHoldDuration = 5 * time.Second

// DrcResult is one DRC evaluation as shown to clients.
type DrcResult struct {
	DrcPercent float64 `json:"drc_percent"`
	S21RMS     float64 `json:"s21_rms"`
	Source     string  `json:"source"`
	Held       bool    `json:"held,omitempty"`
}

// DrcService owns calibration persistence and DRC evaluation. Evaluation
// prefers the active trained model and falls back to the latest two-point
// calibration.
type DrcService struct {
	cals    repository.CalibrationRepo
	mdls    repository.ModelRepo
	log     *logger.Logger
	holdFor time.Duration

	mu        sync.Mutex
	heldValue *float64
	holdTimer *time.Timer
	holdGen   uint64
}

func NewDrcService(cals repository.CalibrationRepo, mdls repository.ModelRepo, log *logger.Logger) *DrcService {
	return &DrcService{cals: cals, mdls: mdls, log: log, holdFor: DefaultHoldDuration}
}

// newDrcServiceWithHold exists for tests that cannot wait out the real hold.
func newDrcServiceWithHold(cals repository.CalibrationRepo, mdls repository.ModelRepo, log *logger.Logger, hold time.Duration) *DrcService {
	s := NewDrcService(cals, mdls, log)
	s.holdFor = hold
	return s
}

// SaveCalibration fits and persists a two-point calibration for a batch.
func (s *DrcService) SaveCalibration(ctx context.Context, batchID string, s21LowDB, drc1, s21HighDB, drc2 float64) (models.DrcCalibration, error) {
	cal, err := regression.FitLinear(s21LowDB, drc1, s21HighDB, drc2)
	if err != nil {
		return models.DrcCalibration{}, err
	}
	cal.BatchID = batchID
	cal.CreatedAt = time.Now()
	if err := s.cals.Save(ctx, cal); err != nil {
		return models.DrcCalibration{}, err
	}
	s.log.Infow("calibration_saved", "batch_id", batchID, "slope", cal.SlopeM, "intercept", cal.InterceptB)
	return cal, nil
}

// Calibration returns the calibration for batchID, or the latest one when
// batchID is empty. Nil without error when none exists.
func (s *DrcService) Calibration(ctx context.Context, batchID string) (*models.DrcCalibration, error) {
	if batchID == "" {
		return s.cals.Latest(ctx)
	}
	return s.cals.Get(ctx, batchID)
}

// Calculate evaluates DRC% for an S21 RMS reading. A pending display hold
// wins over a fresh evaluation.
func (s *DrcService) Calculate(ctx context.Context, s21RMS float64) (DrcResult, error) {
	s.mu.Lock()
	held := s.heldValue
	s.mu.Unlock()
	if held != nil {
		return DrcResult{DrcPercent: *held, S21RMS: s21RMS, Source: "held", Held: true}, nil
	}
	return s.evaluate(ctx, s21RMS)
}

// Evaluate computes DRC% ignoring any display hold. Used at save time so the
// persisted value is always fresh.
func (s *DrcService) Evaluate(ctx context.Context, s21RMS float64) (DrcResult, error) {
	return s.evaluate(ctx, s21RMS)
}

func (s *DrcService) evaluate(ctx context.Context, s21RMS float64) (DrcResult, error) {
	active, err := s.mdls.Active(ctx)
	if err != nil {
		return DrcResult{}, fmt.Errorf("load active model: %w", err)
	}
	if active != nil {
		v, err := regression.EvaluateModel(*active, s21RMS)
		if err == nil {
			return DrcResult{DrcPercent: v, S21RMS: s21RMS, Source: "model:" + active.Name}, nil
		}
		var infErr *regression.ModelInferenceError
		if !errors.As(err, &infErr) {
			return DrcResult{}, err
		}
		// an active model with unusable parameters degrades to the
		// calibration path rather than blocking DRC entirely
		s.log.Warnw("active_model_unusable", "model", active.Name, "err", err)
	}

	cal, err := s.cals.Latest(ctx)
	if err != nil {
		return DrcResult{}, fmt.Errorf("load latest calibration: %w", err)
	}
	if cal == nil {
		return DrcResult{}, ErrNoCalibration
	}
	v := regression.Evaluate(*cal, s21RMS)
	return DrcResult{DrcPercent: v, S21RMS: s21RMS, Source: "calibration:" + cal.BatchID}, nil
}

// Hold freezes the displayed DRC value. A second hold before the first
// expires restarts the window with the new value.
func (s *DrcService) Hold(value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holdTimer != nil {
		s.holdTimer.Stop()
	}
	v := value
	s.heldValue = &v
	s.holdGen++
	gen := s.holdGen
	s.holdTimer = time.AfterFunc(s.holdFor, func() { s.releaseHold(gen) })
}

// releaseHold clears the hold only for the timer that still owns it. A timer
// that fired concurrently with a newer Hold finds a bumped generation and
// leaves the fresh window alone.
func (s *DrcService) releaseHold(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.holdGen {
		return
	}
	s.heldValue = nil
	s.holdTimer = nil
}

// HeldValue returns the frozen display value, or nil when no hold is active.
func (s *DrcService) HeldValue() *float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.heldValue == nil {
		return nil
	}
	v := *s.heldValue
	return &v
}
