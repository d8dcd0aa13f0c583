package repository

import (
	"context"
	"database/sql"
	"time"

	"drc_online/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// MeasurementRepo persists full sweeps (per-point rows plus a summary row)
// and answers historical queries.
type MeasurementRepo interface {
	Save(ctx context.Context, sample models.SweepSample, meta models.BatchMeta, batchID string, drcPercent *float64, signalQuality float64) error
	QuerySummaries(ctx context.Context, from, to time.Time, limit int) ([]models.SummaryRow, error)
}

// CalibrationRepo stores two-point DRC calibrations; Latest is the one in
// effect.
type CalibrationRepo interface {
	Save(ctx context.Context, cal models.DrcCalibration) error
	Latest(ctx context.Context) (*models.DrcCalibration, error)
	Get(ctx context.Context, batchID string) (*models.DrcCalibration, error)
}

// ModelRepo manages trained regression models. SetActive must leave exactly
// one active model.
type ModelRepo interface {
	Save(ctx context.Context, m models.TrainedModel) error
	List(ctx context.Context) ([]models.TrainedModel, error)
	Get(ctx context.Context, name string) (*models.TrainedModel, error)
	Active(ctx context.Context) (*models.TrainedModel, error)
	SetActive(ctx context.Context, name string) error
	Deactivate(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
	UpdateNotes(ctx context.Context, name, notes string) error
}

type Repository struct {
	Measurements MeasurementRepo
	Calibrations CalibrationRepo
	Models       ModelRepo
	Auth         Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Measurements: NewMeasurementSQLite(db),
		Calibrations: NewCalibrationSQLite(db),
		Models:       NewModelSQLite(db),
		Auth:         NewUserRepository(db),
	}
}
