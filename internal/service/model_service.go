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

// Training errors.
var (
	ErrUnsupportedModelType = errors.New("model type cannot be trained here")
	ErrDatasetTooSmall      = errors.New("training dataset needs at least 2 records")
	ErrModelNameRequired    = errors.New("model name required")
)

// ModelService manages the trained-model store and the single-active
// invariant. Mutations to the active slot go through one mutex so activate /
// deactivate never interleave.
type ModelService struct {
	repo repository.ModelRepo
	bus  *Bus
	log  *logger.Logger

	activeMu sync.Mutex
}

func NewModelService(repo repository.ModelRepo, bus *Bus, log *logger.Logger) *ModelService {
	return &ModelService{repo: repo, bus: bus, log: log}
}

// Train fits a model of the given type on the dataset, persists it under
// name, and returns it with its metrics. Only linear models are fitted
// locally; other kinds arrive pre-fitted through ImportModel.
func (s *ModelService) Train(ctx context.Context, name, modelType string, dataset []models.TrainingRecord, notes string) (models.TrainedModel, error) {
	if name == "" {
		return models.TrainedModel{}, ErrModelNameRequired
	}
	if modelType != models.ModelLinear {
		return models.TrainedModel{}, fmt.Errorf("%w: %q", ErrUnsupportedModelType, modelType)
	}
	if len(dataset) < 2 {
		return models.TrainedModel{}, ErrDatasetTooSmall
	}

	params, metrics, err := regression.TrainLinear(dataset)
	if err != nil {
		return models.TrainedModel{}, err
	}

	m := models.TrainedModel{
		Name:          name,
		Type:          modelType,
		Parameters:    params,
		RSquared:      metrics.RSquared,
		RMSE:          metrics.RMSE,
		MAE:           metrics.MAE,
		TrainingCount: len(dataset),
		Notes:         notes,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.Save(ctx, m); err != nil {
		return models.TrainedModel{}, err
	}
	s.log.Infow("model_trained", "name", name, "type", modelType, "n", len(dataset), "r2", metrics.RSquared)
	return m, nil
}

// ImportModel stores an externally fitted model (svr, random_forest,
// polynomial) whose parameters were produced by the training collaborator.
func (s *ModelService) ImportModel(ctx context.Context, m models.TrainedModel) error {
	if m.Name == "" {
		return ErrModelNameRequired
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return s.repo.Save(ctx, m)
}

func (s *ModelService) List(ctx context.Context) ([]models.TrainedModel, error) {
	return s.repo.List(ctx)
}

func (s *ModelService) Get(ctx context.Context, name string) (*models.TrainedModel, error) {
	return s.repo.Get(ctx, name)
}

// Activate makes name the single active model and announces the change.
func (s *ModelService) Activate(ctx context.Context, name string) error {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	if err := s.repo.SetActive(ctx, name); err != nil {
		return err
	}
	s.log.Infow("model_activated", "name", name)
	s.bus.Publish(EventModelChanged, map[string]any{"active": name})
	return nil
}

// Deactivate clears the active model; evaluation falls back to the latest
// calibration afterwards.
func (s *ModelService) Deactivate(ctx context.Context, name string) error {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	if err := s.repo.Deactivate(ctx, name); err != nil {
		return err
	}
	s.log.Infow("model_deactivated", "name", name)
	s.bus.Publish(EventModelChanged, map[string]any{"active": ""})
	return nil
}

func (s *ModelService) Delete(ctx context.Context, name string) error {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}
	s.log.Infow("model_deleted", "name", name)
	return nil
}

func (s *ModelService) UpdateNotes(ctx context.Context, name, notes string) error {
	return s.repo.UpdateNotes(ctx, name, notes)
}
