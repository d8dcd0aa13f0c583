package handlers

import (
	"context"
	"net/http"
	"time"

	"drc_online/internal/models"
	"drc_online/internal/service"

	"github.com/gin-gonic/gin"
)

// Hand-written fakes for the service seams exercised by handler tests.

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockSweep struct {
	startErr  error
	stopErr   error
	updateErr error
	running   bool
	cfg       models.SweepConfig
	status    models.ConnectionStatus
	ports     []models.PortInfo
	last      *models.SweepSample

	startCalled int
	stopCalled  int
	lastCfg     models.SweepConfig
}

func (m *mockSweep) Start(ctx context.Context) error {
	m.startCalled++
	return m.startErr
}
func (m *mockSweep) Stop() error {
	m.stopCalled++
	return m.stopErr
}
func (m *mockSweep) Running() bool { return m.running }
func (m *mockSweep) Config() models.SweepConfig { return m.cfg }
func (m *mockSweep) UpdateConfig(cfg models.SweepConfig) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.lastCfg = cfg
	m.cfg = cfg
	return nil
}
func (m *mockSweep) ScanPorts() []models.PortInfo { return m.ports }
func (m *mockSweep) Status() models.ConnectionStatus { return m.status }
func (m *mockSweep) LastSample() *models.SweepSample { return m.last }

type mockAnalysis struct {
	result models.AnalysisResult

	lastThreshold float64
	lastMinDur    int
}

func (m *mockAnalysis) Analyze(thresholdDB float64, minDuration int) models.AnalysisResult {
	m.lastThreshold = thresholdDB
	m.lastMinDur = minDuration
	return m.result
}

type mockDrc struct {
	cal     *models.DrcCalibration
	saveErr error
	calc    service.DrcResult
	calcErr error
	held    *float64

	holdCalls []float64
}

func (m *mockDrc) SaveCalibration(ctx context.Context, batchID string, s21Low, drc1, s21High, drc2 float64) (models.DrcCalibration, error) {
	if m.saveErr != nil {
		return models.DrcCalibration{}, m.saveErr
	}
	cal := models.DrcCalibration{BatchID: batchID, S21LowDB: s21Low, Drc1Percent: drc1, S21HighDB: s21High, Drc2Percent: drc2}
	m.cal = &cal
	return cal, nil
}
func (m *mockDrc) Calibration(ctx context.Context, batchID string) (*models.DrcCalibration, error) {
	return m.cal, nil
}
func (m *mockDrc) Calculate(ctx context.Context, s21 float64) (service.DrcResult, error) {
	return m.calc, m.calcErr
}
func (m *mockDrc) Evaluate(ctx context.Context, s21 float64) (service.DrcResult, error) {
	return m.calc, m.calcErr
}
func (m *mockDrc) Hold(v float64) { m.holdCalls = append(m.holdCalls, v) }
func (m *mockDrc) HeldValue() *float64 { return m.held }

type mockModels struct {
	trained   models.TrainedModel
	trainErr  error
	list      []models.TrainedModel
	listErr   error
	mutateErr error

	activated   []string
	deactivated []string
	deleted     []string
}

func (m *mockModels) Train(ctx context.Context, name, modelType string, dataset []models.TrainingRecord, notes string) (models.TrainedModel, error) {
	return m.trained, m.trainErr
}
func (m *mockModels) ImportModel(ctx context.Context, mdl models.TrainedModel) error { return nil }
func (m *mockModels) List(ctx context.Context) ([]models.TrainedModel, error) {
	return m.list, m.listErr
}
func (m *mockModels) Get(ctx context.Context, name string) (*models.TrainedModel, error) {
	for i := range m.list {
		if m.list[i].Name == name {
			return &m.list[i], nil
		}
	}
	return nil, m.mutateErr
}
func (m *mockModels) Activate(ctx context.Context, name string) error {
	m.activated = append(m.activated, name)
	return m.mutateErr
}
func (m *mockModels) Deactivate(ctx context.Context, name string) error {
	m.deactivated = append(m.deactivated, name)
	return m.mutateErr
}
func (m *mockModels) Delete(ctx context.Context, name string) error {
	m.deleted = append(m.deleted, name)
	return m.mutateErr
}
func (m *mockModels) UpdateNotes(ctx context.Context, name, notes string) error {
	return m.mutateErr
}

type mockMeasurements struct {
	saveResult models.SaveResult
	saveErr    error
	rows       []models.SummaryRow
	queryErr   error
	last       *service.SavedInfo

	lastMeta models.BatchMeta
}

func (m *mockMeasurements) Save(ctx context.Context, meta models.BatchMeta) (models.SaveResult, error) {
	m.lastMeta = meta
	return m.saveResult, m.saveErr
}
func (m *mockMeasurements) LastSaved() *service.SavedInfo { return m.last }
func (m *mockMeasurements) Query(ctx context.Context, from, to time.Time, limit int) ([]models.SummaryRow, error) {
	return m.rows, m.queryErr
}

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
