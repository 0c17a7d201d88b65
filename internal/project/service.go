package project

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

type ProjectService interface {
	Create(ctx context.Context, title, description string) (*Project, error)
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context) ([]*Project, error)
	Rename(ctx context.Context, id, title, description string) (*Project, error)
	SaveTimeline(ctx context.Context, id string, tl *timeline.Timeline) (*Project, error)
	SetStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With("component", "project")}
}

func (s *Service) Create(ctx context.Context, title, description string) (*Project, error) {
	if title == "" {
		title = "Untitled"
	}
	now := time.Now()
	p := &Project{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Status:      StatusDraft,
		Timeline:    timeline.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project_id", p.ID, "title", p.Title)
	return p, nil
}

// Get loads a project and validates its stored timeline, so a corrupted
// document is caught at the boundary rather than at render time.
func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if err := p.Timeline.Validate(); err != nil {
		return nil, fmt.Errorf("stored timeline invalid: %w", err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]*Project, error) {
	return s.repo.List(ctx)
}

func (s *Service) Rename(ctx context.Context, id, title, description string) (*Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if title != "" {
		p.Title = title
	}
	p.Description = description
	p.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveTimeline replaces the project's timeline after validating it.
func (s *Service) SaveTimeline(ctx context.Context, id string, tl *timeline.Timeline) (*Project, error) {
	if tl == nil {
		return nil, fmt.Errorf("%w: timeline is required", timeline.ErrValidation)
	}
	if err := tl.Validate(); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Timeline = tl
	p.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Debug("timeline saved",
		"project_id", id, "clips", len(tl.Clips), "overlays", len(tl.Overlays))
	return p, nil
}

func (s *Service) SetStatus(ctx context.Context, id, status string) error {
	if !validStatus(status) {
		return fmt.Errorf("invalid project status %q", status)
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}
