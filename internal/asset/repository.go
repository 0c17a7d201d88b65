package asset

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	Create(ctx context.Context, a *Asset) error
	Get(ctx context.Context, id string) (*Asset, error)
	GetByPath(ctx context.Context, path string) (*Asset, error)
	List(ctx context.Context) ([]*Asset, error)
	Delete(ctx context.Context, id string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, a *Asset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (id, kind, path, display_name, duration_s, width, height, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Kind, a.Path, a.DisplayName, a.Duration, a.Width, a.Height, a.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Asset, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, path, display_name, duration_s, width, height, created_at
		FROM assets WHERE id = ?
	`, id)
	return scanAsset(row)
}

func (r *SQLiteRepository) GetByPath(ctx context.Context, path string) (*Asset, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, path, display_name, duration_s, width, height, created_at
		FROM assets WHERE path = ?
	`, path)
	return scanAsset(row)
}

func scanAsset(row *sql.Row) (*Asset, error) {
	var a Asset
	var createdAt string
	err := row.Scan(&a.ID, &a.Kind, &a.Path, &a.DisplayName, &a.Duration, &a.Width, &a.Height, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*Asset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, path, display_name, duration_s, width, height, created_at
		FROM assets ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		var a Asset
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Kind, &a.Path, &a.DisplayName, &a.Duration, &a.Width, &a.Height, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		assets = append(assets, &a)
	}
	return assets, rows.Err()
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	return err
}
