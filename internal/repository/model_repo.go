package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"drc_online/internal/models"
)

// ErrModelNotFound is returned for operations on a model name that does not
// exist in the store.
var ErrModelNotFound = errors.New("trained model not found")

type ModelSQLite struct {
	db *sql.DB
}

func NewModelSQLite(db *sql.DB) *ModelSQLite {
	return &ModelSQLite{db: db}
}

var _ ModelRepo = (*ModelSQLite)(nil)

const modelColumns = `name, model_type, parameters, training_count, rmse, r_squared, mae, created_at, is_active, notes`

// Save upserts a trained model under its name. Activation state is managed
// separately through SetActive/Deactivate; a re-saved model keeps is_active
// false until activated.
func (r *ModelSQLite) Save(ctx context.Context, m models.TrainedModel) error {
	params, err := json.Marshal(m.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameters for model %q: %w", m.Name, err)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	const q = `
		INSERT INTO trained_models (` + modelColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(name) DO UPDATE SET
			model_type = excluded.model_type,
			parameters = excluded.parameters,
			training_count = excluded.training_count,
			rmse = excluded.rmse,
			r_squared = excluded.r_squared,
			mae = excluded.mae,
			created_at = excluded.created_at,
			is_active = 0,
			notes = excluded.notes
	`
	if _, err := r.db.ExecContext(ctx, q,
		m.Name, m.Type, string(params), m.TrainingCount,
		m.RMSE, m.RSquared, m.MAE, m.CreatedAt.UTC(), m.Notes,
	); err != nil {
		return fmt.Errorf("save model %q: %w", m.Name, err)
	}
	return nil
}

// List returns all trained models, newest first.
func (r *ModelSQLite) List(ctx context.Context) ([]models.TrainedModel, error) {
	const q = `SELECT ` + modelColumns + ` FROM trained_models ORDER BY created_at DESC, name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.TrainedModel
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ModelSQLite) Get(ctx context.Context, name string) (*models.TrainedModel, error) {
	const q = `SELECT ` + modelColumns + ` FROM trained_models WHERE name = ?`
	rows, err := r.db.QueryContext(ctx, q, name)
	if err != nil {
		return nil, fmt.Errorf("get model %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrModelNotFound
	}
	return scanModel(rows)
}

// Active returns the currently active model, or nil when no model is active.
func (r *ModelSQLite) Active(ctx context.Context) (*models.TrainedModel, error) {
	const q = `SELECT ` + modelColumns + ` FROM trained_models WHERE is_active = 1 LIMIT 1`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query active model: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return scanModel(rows)
}

// SetActive activates name and deactivates every other model in one
// transaction, preserving the single-active invariant.
func (r *ModelSQLite) SetActive(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE trained_models SET is_active = 0 WHERE is_active = 1`); err != nil {
		return fmt.Errorf("deactivate current model: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE trained_models SET is_active = 1 WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("activate model %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrModelNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit activate: %w", err)
	}
	return nil
}

// Deactivate clears the active flag of name; deactivating an already
// inactive model is a no-op.
func (r *ModelSQLite) Deactivate(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE trained_models SET is_active = 0 WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deactivate model %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrModelNotFound
	}
	return nil
}

func (r *ModelSQLite) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trained_models WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete model %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrModelNotFound
	}
	return nil
}

func (r *ModelSQLite) UpdateNotes(ctx context.Context, name, notes string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE trained_models SET notes = ? WHERE name = ?`, notes, name)
	if err != nil {
		return fmt.Errorf("update notes for model %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrModelNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModel(row rowScanner) (*models.TrainedModel, error) {
	var (
		m      models.TrainedModel
		params string
		notes  sql.NullString
	)
	if err := row.Scan(
		&m.Name, &m.Type, &params, &m.TrainingCount,
		&m.RMSE, &m.RSquared, &m.MAE, &m.CreatedAt, &m.IsActive, &notes,
	); err != nil {
		return nil, fmt.Errorf("scan model: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &m.Parameters); err != nil {
		return nil, fmt.Errorf("decode parameters for model %q: %w", m.Name, err)
	}
	m.CreatedAt = m.CreatedAt.UTC()
	m.Notes = notes.String
	return &m, nil
}
