package render

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	Create(ctx context.Context, r *Render) error
	Get(ctx context.Context, id string) (*Render, error)
	ListByProject(ctx context.Context, projectID string) ([]*Render, error)
	UpdateProgress(ctx context.Context, id string, progress int) error
	MarkCompleted(ctx context.Context, id, outputPath string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, rec *Render) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO renders (id, project_id, status, progress, output_path, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.ProjectID, rec.Status, rec.Progress, rec.OutputPath, rec.Error,
		rec.CreatedAt.Format(time.RFC3339), rec.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Render, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, status, progress, output_path, error, created_at, updated_at
		FROM renders WHERE id = ?
	`, id)

	var rec Render
	var createdAt, updatedAt string
	err := row.Scan(&rec.ID, &rec.ProjectID, &rec.Status, &rec.Progress, &rec.OutputPath, &rec.Error, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &rec, nil
}

func (r *SQLiteRepository) ListByProject(ctx context.Context, projectID string) ([]*Render, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, status, progress, output_path, error, created_at, updated_at
		FROM renders WHERE project_id = ? ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var renders []*Render
	for rows.Next() {
		var rec Render
		var createdAt, updatedAt string
		if err := rows.Scan(&rec.ID, &rec.ProjectID, &rec.Status, &rec.Progress, &rec.OutputPath, &rec.Error, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		renders = append(renders, &rec)
	}
	return renders, rows.Err()
}

func (r *SQLiteRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE renders SET progress = ?, updated_at = ? WHERE id = ?
	`, progress, time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) MarkCompleted(ctx context.Context, id, outputPath string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE renders SET status = ?, progress = 100, output_path = ?, updated_at = ? WHERE id = ?
	`, StatusCompleted, outputPath, time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE renders SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, StatusFailed, errMsg, time.Now().Format(time.RFC3339), id)
	return err
}
