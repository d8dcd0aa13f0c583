package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"drc_online/internal/logger"
	"drc_online/internal/models"
)

func newModelsForTest() (*ModelService, *fakeModelRepo, *Bus) {
	repo := newFakeModelRepo()
	bus := NewBus()
	return NewModelService(repo, bus, logger.Get(logger.ErrorLevel)), repo, bus
}

func TestModelService_TrainLinearPersists(t *testing.T) {
	s, repo, bus := newModelsForTest()
	defer bus.Close()

	dataset := []models.TrainingRecord{
		{S21Avg: -40, DrcEvaluate: 30},
		{S21Avg: -30, DrcEvaluate: 40},
		{S21Avg: -20, DrcEvaluate: 50},
	}
	m, err := s.Train(context.Background(), "lin-1", models.ModelLinear, dataset, "first run")
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if m.TrainingCount != 3 {
		t.Fatalf("training count: want 3, got %d", m.TrainingCount)
	}
	if math.Abs(m.RSquared-1) > 1e-9 {
		t.Fatalf("perfect line must have R²=1, got %v", m.RSquared)
	}
	if _, ok := repo.models["lin-1"]; !ok {
		t.Fatalf("trained model not persisted")
	}
	if repo.models["lin-1"].IsActive {
		t.Fatalf("training must not auto-activate")
	}
}

func TestModelService_TrainRejectsUnsupportedType(t *testing.T) {
	s, _, bus := newModelsForTest()
	defer bus.Close()

	_, err := s.Train(context.Background(), "m", models.ModelSVR, []models.TrainingRecord{{}, {}}, "")
	if !errors.Is(err, ErrUnsupportedModelType) {
		t.Fatalf("want ErrUnsupportedModelType, got %v", err)
	}
}

func TestModelService_TrainRejectsEmptyName(t *testing.T) {
	s, repo, bus := newModelsForTest()
	defer bus.Close()

	dataset := []models.TrainingRecord{{S21Avg: -40, DrcEvaluate: 30}, {S21Avg: -20, DrcEvaluate: 50}}
	_, err := s.Train(context.Background(), "", models.ModelLinear, dataset, "")
	if !errors.Is(err, ErrModelNameRequired) {
		t.Fatalf("want ErrModelNameRequired, got %v", err)
	}
	if len(repo.models) != 0 {
		t.Fatalf("nameless model must not be persisted")
	}
}

func TestModelService_TrainRejectsTinyDataset(t *testing.T) {
	s, _, bus := newModelsForTest()
	defer bus.Close()

	_, err := s.Train(context.Background(), "m", models.ModelLinear, []models.TrainingRecord{{S21Avg: -30, DrcEvaluate: 40}}, "")
	if !errors.Is(err, ErrDatasetTooSmall) {
		t.Fatalf("want ErrDatasetTooSmall, got %v", err)
	}
}

func TestModelService_ActivateIsExclusiveAndAnnounced(t *testing.T) {
	s, repo, bus := newModelsForTest()
	defer bus.Close()

	repo.models["a"] = models.TrainedModel{Name: "a"}
	repo.models["b"] = models.TrainedModel{Name: "b"}

	events, cancel := bus.Subscribe()
	defer cancel()

	if err := s.Activate(context.Background(), "a"); err != nil {
		t.Fatalf("Activate(a) failed: %v", err)
	}
	if err := s.Activate(context.Background(), "b"); err != nil {
		t.Fatalf("Activate(b) failed: %v", err)
	}
	if repo.active != "b" {
		t.Fatalf("active slot: want b, got %q", repo.active)
	}

	var changes int
	for len(events) > 0 {
		ev := <-events
		if ev.Name == EventModelChanged {
			changes++
		}
	}
	if changes != 2 {
		t.Fatalf("each activation must be announced, got %d events", changes)
	}
}

func TestModelService_DeactivateClearsSlot(t *testing.T) {
	s, repo, bus := newModelsForTest()
	defer bus.Close()

	repo.models["a"] = models.TrainedModel{Name: "a"}
	repo.active = "a"

	if err := s.Deactivate(context.Background(), "a"); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if repo.active != "" {
		t.Fatalf("active slot must be empty after deactivate")
	}
}

func TestModelService_DeleteUnknownPropagates(t *testing.T) {
	s, _, bus := newModelsForTest()
	defer bus.Close()

	if err := s.Delete(context.Background(), "ghost"); err == nil {
		t.Fatalf("expected error for unknown model")
	}
}

func TestModelService_ImportRequiresName(t *testing.T) {
	s, repo, bus := newModelsForTest()
	defer bus.Close()

	if err := s.ImportModel(context.Background(), models.TrainedModel{}); err == nil {
		t.Fatalf("expected error for unnamed model")
	}
	m := models.TrainedModel{Name: "ext-svr", Type: models.ModelSVR}
	if err := s.ImportModel(context.Background(), m); err != nil {
		t.Fatalf("ImportModel failed: %v", err)
	}
	if _, ok := repo.models["ext-svr"]; !ok {
		t.Fatalf("imported model not persisted")
	}
}
