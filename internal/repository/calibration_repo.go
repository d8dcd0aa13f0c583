package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"drc_online/internal/models"
)

type CalibrationSQLite struct {
	db *sql.DB
}

func NewCalibrationSQLite(db *sql.DB) *CalibrationSQLite {
	return &CalibrationSQLite{db: db}
}

var _ CalibrationRepo = (*CalibrationSQLite)(nil)

const calibrationColumns = `batch_id, s21_low_db, drc1_percent, s21_high_db, drc2_percent, slope_m, intercept_b, created_at`

// Save upserts the calibration for its batch; re-saving a batch replaces the
// previous points.
func (r *CalibrationSQLite) Save(ctx context.Context, cal models.DrcCalibration) error {
	if cal.CreatedAt.IsZero() {
		cal.CreatedAt = time.Now()
	}
	const q = `
		INSERT INTO drc_calibrations (` + calibrationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(batch_id) DO UPDATE SET
			s21_low_db = excluded.s21_low_db,
			drc1_percent = excluded.drc1_percent,
			s21_high_db = excluded.s21_high_db,
			drc2_percent = excluded.drc2_percent,
			slope_m = excluded.slope_m,
			intercept_b = excluded.intercept_b,
			created_at = excluded.created_at
	`
	_, err := r.db.ExecContext(ctx, q,
		cal.BatchID, cal.S21LowDB, cal.Drc1Percent, cal.S21HighDB, cal.Drc2Percent,
		cal.SlopeM, cal.InterceptB, cal.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save calibration %q: %w", cal.BatchID, err)
	}
	return nil
}

// Latest returns the most recently saved calibration, or nil when none exist.
func (r *CalibrationSQLite) Latest(ctx context.Context) (*models.DrcCalibration, error) {
	const q = `SELECT ` + calibrationColumns + ` FROM drc_calibrations ORDER BY created_at DESC, id DESC LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, q))
}

// Get returns the calibration saved for batchID, or nil when none exists.
func (r *CalibrationSQLite) Get(ctx context.Context, batchID string) (*models.DrcCalibration, error) {
	const q = `SELECT ` + calibrationColumns + ` FROM drc_calibrations WHERE batch_id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, batchID))
}

func (r *CalibrationSQLite) scanOne(row *sql.Row) (*models.DrcCalibration, error) {
	var cal models.DrcCalibration
	err := row.Scan(
		&cal.BatchID, &cal.S21LowDB, &cal.Drc1Percent, &cal.S21HighDB, &cal.Drc2Percent,
		&cal.SlopeM, &cal.InterceptB, &cal.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan calibration: %w", err)
	}
	cal.CreatedAt = cal.CreatedAt.UTC()
	return &cal, nil
}
