package asset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/reelcut/reelcut-agent/internal/engine"
)

type AssetService interface {
	Register(ctx context.Context, path, displayName string) (*Asset, error)
	Get(ctx context.Context, id string) (*Asset, error)
	List(ctx context.Context) ([]*Asset, error)
	Remove(ctx context.Context, id string) error
}

type Service struct {
	repo   Repository
	eng    engine.Engine
	logger *slog.Logger
}

func NewService(repo Repository, eng engine.Engine, logger *slog.Logger) *Service {
	return &Service{repo: repo, eng: eng, logger: logger.With("component", "asset")}
}

// Register probes a media file and records it. Registering an already
// known path returns the existing asset.
func (s *Service) Register(ctx context.Context, path, displayName string) (*Asset, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory")
	}

	kind := KindForPath(absPath)
	if kind == "" {
		return nil, fmt.Errorf("unsupported media type: %s", filepath.Ext(absPath))
	}

	existing, err := s.repo.GetByPath(ctx, absPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	probe, err := s.eng.Probe(ctx, absPath)
	if err != nil {
		return nil, fmt.Errorf("probe media: %w", err)
	}

	if displayName == "" {
		displayName = filepath.Base(absPath)
	}

	a := &Asset{
		ID:          uuid.NewString(),
		Kind:        kind,
		Path:        absPath,
		DisplayName: displayName,
		Duration:    probe.Duration,
		Width:       probe.Width,
		Height:      probe.Height,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("asset registered",
		"asset_id", a.ID, "kind", a.Kind, "duration_s", a.Duration)
	return a, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Asset, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *Service) List(ctx context.Context) ([]*Asset, error) {
	return s.repo.List(ctx)
}

func (s *Service) Remove(ctx context.Context, id string) error {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if a == nil {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}
