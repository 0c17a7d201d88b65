package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

type Repository interface {
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context) ([]*Project, error)
	Update(ctx context.Context, p *Project) error
	UpdateStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, p *Project) error {
	tlJSON, err := marshalTimeline(p.Timeline)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (id, title, description, status, timeline, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Title, p.Description, p.Status, tlJSON,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, timeline, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)
	return scanProject(row)
}

func scanProject(row *sql.Row) (*Project, error) {
	var p Project
	var tlJSON sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Status, &tlJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.Timeline, err = unmarshalTimeline(tlJSON.String)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", p.ID, err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, status, timeline, created_at, updated_at
		FROM projects ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		var tlJSON sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Status, &tlJSON, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.Timeline, err = unmarshalTimeline(tlJSON.String)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", p.ID, err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) Update(ctx context.Context, p *Project) error {
	tlJSON, err := marshalTimeline(p.Timeline)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE projects SET title = ?, description = ?, status = ?, timeline = ?, updated_at = ?
		WHERE id = ?
	`, p.Title, p.Description, p.Status, tlJSON, p.UpdatedAt.Format(time.RFC3339), p.ID)
	return err
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	return err
}

func marshalTimeline(tl *timeline.Timeline) (string, error) {
	if tl == nil {
		tl = timeline.New()
	}
	data, err := json.Marshal(tl)
	if err != nil {
		return "", fmt.Errorf("marshal timeline: %w", err)
	}
	return string(data), nil
}

func unmarshalTimeline(raw string) (*timeline.Timeline, error) {
	if raw == "" {
		return timeline.New(), nil
	}
	var tl timeline.Timeline
	if err := json.Unmarshal([]byte(raw), &tl); err != nil {
		return nil, fmt.Errorf("unmarshal timeline: %w", err)
	}
	return &tl, nil
}
