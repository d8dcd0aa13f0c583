package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens/creates the SQLite file and ensures the measurement tables
// exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// Conservative pool settings for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const sqliteDriverName = "sqlite"

// Per-point sweep rows; one row per frequency point per saved sweep.
const schemaMeasurements = `
CREATE TABLE IF NOT EXISTS measurements (
    time TIMESTAMP NOT NULL,
    sweep_count INTEGER NOT NULL,
    frequency REAL NOT NULL,
    s11_magnitude REAL,
    s11_db REAL,
    s11_phase REAL,
    s11_real REAL,
    s11_imag REAL,
    s21_magnitude REAL,
    s21_db REAL,
    s21_phase REAL,
    s21_real REAL,
    s21_imag REAL,
    batch_id TEXT,
    slip_no TEXT,
    sampling_no TEXT,
    test_no TEXT,
    drc_percent REAL
);
CREATE INDEX IF NOT EXISTS idx_measurements_time ON measurements (time DESC);
CREATE INDEX IF NOT EXISTS idx_measurements_slip ON measurements (slip_no, sampling_no);
`

const schemaSummary = `
CREATE TABLE IF NOT EXISTS measurement_summary (
    time TIMESTAMP NOT NULL PRIMARY KEY,
    sweep_count INTEGER NOT NULL,
    s11_rms REAL,
    s11_max REAL,
    s11_min REAL,
    s21_rms REAL,
    s21_max REAL,
    s21_min REAL,
    signal_quality REAL,
    batch_id TEXT,
    slip_no TEXT,
    sampling_no TEXT,
    test_no TEXT,
    drc_percent REAL
);
CREATE INDEX IF NOT EXISTS idx_summary_slip ON measurement_summary (slip_no, sampling_no);
`

const schemaCalibrations = `
CREATE TABLE IF NOT EXISTS drc_calibrations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    batch_id TEXT UNIQUE NOT NULL,
    s21_low_db REAL NOT NULL,
    drc1_percent REAL NOT NULL,
    s21_high_db REAL NOT NULL,
    drc2_percent REAL NOT NULL,
    slope_m REAL NOT NULL,
    intercept_b REAL NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`

const schemaTrainedModels = `
CREATE TABLE IF NOT EXISTS trained_models (
    name TEXT PRIMARY KEY,
    model_type TEXT NOT NULL,
    parameters TEXT NOT NULL,
    training_count INTEGER,
    rmse REAL,
    r_squared REAL,
    mae REAL,
    created_at TIMESTAMP NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT 0,
    notes TEXT
);
CREATE INDEX IF NOT EXISTS idx_trained_models_active ON trained_models (is_active);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		// In case of panic, rollback to avoid leaving an open transaction
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaMeasurements,
		schemaSummary,
		schemaCalibrations,
		schemaTrainedModels,
		schemaUsers,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
