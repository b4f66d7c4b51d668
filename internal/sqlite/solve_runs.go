package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tour-planner/internal/database"
	"tour-planner/internal/models"
)

const solveRunColumns = `id, kind, size, status, objective, sequence, iterations, error, duration_ms, created_at`

type solveRunRepository struct {
	store *Store
}

func (r *solveRunRepository) Create(ctx context.Context, run *models.SolveRun) (*models.SolveRun, error) {
	created := *run
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	if created.Sequence == nil {
		created.Sequence = []int{}
	}

	sequence, err := json.Marshal(created.Sequence)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sequence: %w", err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err = r.store.db.ExecContext(ctx,
		`INSERT INTO solve_runs (`+solveRunColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, string(created.Kind), created.Size, created.Status, created.Objective,
		string(sequence), created.Iterations, created.Error, created.DurationMs, created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create solve run: %w", err)
	}
	return &created, nil
}

func (r *solveRunRepository) GetByID(ctx context.Context, id string) (*models.SolveRun, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	row := r.store.db.QueryRowContext(ctx, `SELECT `+solveRunColumns+` FROM solve_runs WHERE id = ?`, id)
	run, err := scanSolveRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get solve run: %w", err)
	}
	return run, nil
}

func (r *solveRunRepository) List(ctx context.Context, kind models.SolveKind, limit int) ([]models.SolveRun, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := `SELECT ` + solveRunColumns + ` FROM solve_runs`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list solve runs: %w", err)
	}
	defer rows.Close()

	runs := []models.SolveRun{}
	for rows.Next() {
		run, err := scanSolveRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan solve run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanSolveRun(row rowScanner) (*models.SolveRun, error) {
	var (
		run      models.SolveRun
		kind     string
		sequence string
	)
	if err := row.Scan(&run.ID, &kind, &run.Size, &run.Status, &run.Objective,
		&sequence, &run.Iterations, &run.Error, &run.DurationMs, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.Kind = models.SolveKind(kind)
	if err := json.Unmarshal([]byte(sequence), &run.Sequence); err != nil {
		return nil, fmt.Errorf("failed to decode sequence: %w", err)
	}
	return &run, nil
}
