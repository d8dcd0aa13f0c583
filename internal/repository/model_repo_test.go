package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"drc_online/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newModelRepoMock(t *testing.T) (*ModelSQLite, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	cleanup := func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	}
	return NewModelSQLite(db), mock, cleanup
}

func TestModelSQLite_SaveSerializesParameters(t *testing.T) {
	repo, mock, cleanup := newModelRepoMock(t)
	defer cleanup()

	m := models.TrainedModel{
		Name: "lin-1",
		Type: models.ModelLinear,
		Parameters: models.ModelParams{
			Kind:    models.ModelLinear,
			Payload: map[string]any{"slope": 1.0, "intercept": 70.0},
			Formula: "drc = 1.000*s21 + 70.000",
		},
		RSquared:      0.98,
		RMSE:          1.2,
		MAE:           0.9,
		TrainingCount: 12,
		CreatedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trained_models")).
		WithArgs(m.Name, m.Type, sqlmock.AnyArg(), m.TrainingCount, m.RMSE, m.RSquared, m.MAE, m.CreatedAt, m.Notes).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), m); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}

func TestModelSQLite_GetDecodesParameters(t *testing.T) {
	repo, mock, cleanup := newModelRepoMock(t)
	defer cleanup()

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	params := `{"kind":"linear","payload":{"slope":1,"intercept":70}}`
	rows := sqlmock.NewRows([]string{
		"name", "model_type", "parameters", "training_count",
		"rmse", "r_squared", "mae", "created_at", "is_active", "notes",
	}).AddRow("lin-1", "linear", params, 12, 1.2, 0.98, 0.9, created, true, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM trained_models WHERE name = ?")).
		WithArgs("lin-1").
		WillReturnRows(rows)

	m, err := repo.Get(context.Background(), "lin-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if m.Parameters.Kind != models.ModelLinear {
		t.Fatalf("parameters not decoded: %+v", m.Parameters)
	}
	if v, ok := m.Parameters.Payload["slope"].(float64); !ok || v != 1 {
		t.Fatalf("payload slope lost in decode: %+v", m.Parameters.Payload)
	}
	if !m.IsActive {
		t.Fatalf("is_active not mapped")
	}
	if m.Notes != "" {
		t.Fatalf("NULL notes must map to empty string")
	}
}

func TestModelSQLite_GetUnknownName(t *testing.T) {
	repo, mock, cleanup := newModelRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM trained_models WHERE name = ?")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{
			"name", "model_type", "parameters", "training_count",
			"rmse", "r_squared", "mae", "created_at", "is_active", "notes",
		}))

	if _, err := repo.Get(context.Background(), "ghost"); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("want ErrModelNotFound, got %v", err)
	}
}

func TestModelSQLite_ActiveNoneIsNilNotError(t *testing.T) {
	repo, mock, cleanup := newModelRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_active = 1")).
		WillReturnRows(sqlmock.NewRows([]string{
			"name", "model_type", "parameters", "training_count",
			"rmse", "r_squared", "mae", "created_at", "is_active", "notes",
		}))

	m, err := repo.Active(context.Background())
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if m != nil {
		t.Fatalf("no active model must yield nil, got %+v", m)
	}
}

func TestModelSQLite_SetActiveIsTransactional(t *testing.T) {
	repo, mock, cleanup := newModelRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET is_active = 0 WHERE is_active = 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET is_active = 1 WHERE name = ?")).
		WithArgs("lin-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.SetActive(context.Background(), "lin-1"); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
}

func TestModelSQLite_SetActiveUnknownRollsBack(t *testing.T) {
	repo, mock, cleanup := newModelRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET is_active = 0 WHERE is_active = 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET is_active = 1 WHERE name = ?")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := repo.SetActive(context.Background(), "ghost"); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("want ErrModelNotFound, got %v", err)
	}
}

func TestModelSQLite_DeleteUnknown(t *testing.T) {
	repo, mock, cleanup := newModelRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM trained_models WHERE name = ?")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "ghost"); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("want ErrModelNotFound, got %v", err)
	}
}
