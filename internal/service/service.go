package service

import (
	"context"
	"time"

	"drc_online/internal/analysis"
	"drc_online/internal/device"
	"drc_online/internal/logger"
	"drc_online/internal/models"
	"drc_online/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Sweep exposes the orchestrator surface: session lifecycle, config, status.
type Sweep interface {
	Start(ctx context.Context) error
	Stop() error
	Running() bool
	Config() models.SweepConfig
	UpdateConfig(cfg models.SweepConfig) error
	ScanPorts() []models.PortInfo
	Status() models.ConnectionStatus
	LastSample() *models.SweepSample
}

// Analysis runs period detection + comparison over the rolling history.
type Analysis interface {
	Analyze(thresholdDB float64, minDuration int) models.AnalysisResult
}

// Drc covers calibration persistence and DRC evaluation with display hold.
type Drc interface {
	SaveCalibration(ctx context.Context, batchID string, s21LowDB, drc1, s21HighDB, drc2 float64) (models.DrcCalibration, error)
	Calibration(ctx context.Context, batchID string) (*models.DrcCalibration, error)
	Calculate(ctx context.Context, s21RMS float64) (DrcResult, error)
	Evaluate(ctx context.Context, s21RMS float64) (DrcResult, error)
	Hold(value float64)
	HeldValue() *float64
}

// Models manages the trained regression model store.
type Models interface {
	Train(ctx context.Context, name, modelType string, dataset []models.TrainingRecord, notes string) (models.TrainedModel, error)
	ImportModel(ctx context.Context, m models.TrainedModel) error
	List(ctx context.Context) ([]models.TrainedModel, error)
	Get(ctx context.Context, name string) (*models.TrainedModel, error)
	Activate(ctx context.Context, name string) error
	Deactivate(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
	UpdateNotes(ctx context.Context, name, notes string) error
}

// Measurements persists sweeps and answers historical queries.
type Measurements interface {
	Save(ctx context.Context, meta models.BatchMeta) (models.SaveResult, error)
	LastSaved() *SavedInfo
	Query(ctx context.Context, from, to time.Time, limit int) ([]models.SummaryRow, error)
}

// Service aggregates all sub-services behind one dependency for the
// handlers.
type Service struct {
	Sweep
	Analysis
	Drc
	Models
	Measurements
	Authorization

	Bus *Bus
}

// Options carries the tunables main reads from config.
type Options struct {
	SweepConfig   models.SweepConfig
	MaxFailures   int
	JWTSigningKey string
	JWTTokenTTL   time.Duration
	HistoryPoints int
}

// NewService wires repositories, the device and the event bus into the
// service graph.
func NewService(repos *repository.Repository, dev device.Device, bus *Bus, log *logger.Logger, opts Options) *Service {
	capacity := opts.HistoryPoints
	if capacity <= 0 {
		capacity = analysis.DefaultHistoryPoints
	}
	sweep := NewSweepService(dev, bus, analysis.NewHistory(capacity), log, opts.SweepConfig, opts.MaxFailures)
	drc := NewDrcService(repos.Calibrations, repos.Models, log)
	return &Service{
		Sweep:         sweep,
		Analysis:      NewAnalysisService(sweep, log),
		Drc:           drc,
		Models:        NewModelService(repos.Models, bus, log),
		Measurements:  NewMeasurementService(repos.Measurements, sweep, drc, log),
		Authorization: NewAuthService(repos.Auth, opts.JWTSigningKey, opts.JWTTokenTTL),
		Bus:           bus,
	}
}
