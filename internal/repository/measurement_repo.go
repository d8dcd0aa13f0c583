package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"drc_online/internal/models"
)

type MeasurementSQLite struct {
	db *sql.DB
}

func NewMeasurementSQLite(db *sql.DB) *MeasurementSQLite {
	return &MeasurementSQLite{db: db}
}

var _ MeasurementRepo = (*MeasurementSQLite)(nil)

const (
	insertMeasurementSQL = `
		INSERT INTO measurements
		(time, sweep_count, frequency, s11_magnitude, s11_db, s11_phase, s11_real, s11_imag,
		 s21_magnitude, s21_db, s21_phase, s21_real, s21_imag,
		 batch_id, slip_no, sampling_no, test_no, drc_percent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	insertSummarySQL = `
		INSERT INTO measurement_summary
		(time, sweep_count, s11_rms, s11_max, s11_min, s21_rms, s21_max, s21_min,
		 signal_quality, batch_id, slip_no, sampling_no, test_no, drc_percent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
)

// Save writes every frequency point of the sweep plus one summary row in a
// single transaction, so a failed save never leaves a summary without its
// points.
func (r *MeasurementSQLite) Save(ctx context.Context, sample models.SweepSample, meta models.BatchMeta, batchID string, drcPercent *float64, signalQuality float64) error {
	ts := sample.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, insertMeasurementSQL)
	if err != nil {
		return fmt.Errorf("prepare measurement insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, p11 := range sample.S11 {
		var s21Mag, s21DB, s21Phase, s21Real, s21Imag any
		if i < len(sample.S21) {
			p21 := sample.S21[i]
			s21Mag, s21DB, s21Phase, s21Real, s21Imag = p21.Magnitude, p21.DB, p21.Phase, p21.Real, p21.Imag
		}
		if _, err := stmt.ExecContext(ctx,
			ts, sample.SweepCount, p11.Frequency,
			p11.Magnitude, p11.DB, p11.Phase, p11.Real, p11.Imag,
			s21Mag, s21DB, s21Phase, s21Real, s21Imag,
			batchID, meta.SlipNo, meta.SamplingNo, meta.TestNo, drcPtr(drcPercent),
		); err != nil {
			return fmt.Errorf("insert measurement point %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, insertSummarySQL,
		ts, sample.SweepCount,
		sample.Summary.S11AvgDB, sample.Summary.S11MaxDB, sample.Summary.S11MinDB,
		sample.Summary.S21AvgDB, sample.Summary.S21MaxDB, sample.Summary.S21MinDB,
		signalQuality, batchID, meta.SlipNo, meta.SamplingNo, meta.TestNo, drcPtr(drcPercent),
	); err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// QuerySummaries returns persisted summary rows in [from, to], newest first.
// Zero times are open-ended.
func (r *MeasurementSQLite) QuerySummaries(ctx context.Context, from, to time.Time, limit int) ([]models.SummaryRow, error) {
	if limit <= 0 {
		limit = 100
	}

	q := `SELECT time, sweep_count, s11_rms, s11_min, s11_max, s21_rms, s21_min, s21_max,
	             signal_quality, batch_id, slip_no, sampling_no, test_no, drc_percent
	      FROM measurement_summary`
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "time >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "time <= ?")
		args = append(args, to.UTC())
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY time DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]models.SummaryRow, 0, limit)
	for rows.Next() {
		var (
			row     models.SummaryRow
			batch   sql.NullString
			slip    sql.NullString
			sampl   sql.NullString
			test    sql.NullString
			quality sql.NullFloat64
			drc     sql.NullFloat64
		)
		if err := rows.Scan(
			&row.Timestamp, &row.SweepCount,
			&row.S11RMS, &row.S11Min, &row.S11Max,
			&row.S21RMS, &row.S21Min, &row.S21Max,
			&quality, &batch, &slip, &sampl, &test, &drc,
		); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		row.Timestamp = row.Timestamp.UTC()
		row.SignalQuality = quality.Float64
		row.BatchID = batch.String
		row.SlipNo = slip.String
		row.SamplingNo = sampl.String
		row.TestNo = test.String
		if drc.Valid {
			v := drc.Float64
			row.DrcPercent = &v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// drcPtr converts an optional DRC value for sql args.
func drcPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
