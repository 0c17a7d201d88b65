package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelcut/reelcut-agent/internal/asset"
	"github.com/reelcut/reelcut-agent/internal/compile"
	"github.com/reelcut/reelcut-agent/internal/engine"
	"github.com/reelcut/reelcut-agent/internal/project"
)

// Manager owns render execution: it compiles a project's timeline, runs
// the engine in the background, persists job state and fans progress out
// to listeners. One render per project at a time.
type Manager struct {
	repo     Repository
	projects project.ProjectService
	assets   asset.AssetService
	eng      engine.Engine
	dir      string
	timeout  time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	active    map[string]*task // keyed by project id
	listeners []Listener
}

type task struct {
	renderID  string
	projectID string
	cancel    context.CancelFunc
	done      chan struct{}

	mu       sync.Mutex
	canceled bool
	progress int
}

func NewManager(repo Repository, projects project.ProjectService, assets asset.AssetService,
	eng engine.Engine, dir string, timeout time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		repo:     repo,
		projects: projects,
		assets:   assets,
		eng:      eng,
		dir:      dir,
		timeout:  timeout,
		logger:   logger.With("component", "render"),
		active:   make(map[string]*task),
	}
}

// Subscribe registers a listener for all subsequent render events.
func (m *Manager) Subscribe(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Start compiles the project's timeline and launches the render. The
// compile step runs synchronously so an invalid or empty timeline fails
// the request instead of the job.
func (m *Manager) Start(ctx context.Context, projectID string) (*Render, error) {
	p, err := m.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	sources, paths, err := m.resolveSources(ctx, p)
	if err != nil {
		return nil, err
	}
	ops, err := compile.Compile(p.Timeline, sources)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, busy := m.active[projectID]; busy {
		m.mu.Unlock()
		return nil, ErrInProgress
	}

	now := time.Now()
	rec := &Render{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	runCtx, cancel := context.WithTimeout(context.Background(), m.timeout)
	t := &task{
		renderID:  rec.ID,
		projectID: projectID,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	m.active[projectID] = t
	m.mu.Unlock()

	if err := m.repo.Create(ctx, rec); err != nil {
		cancel()
		m.removeTask(t)
		close(t.done)
		return nil, err
	}
	if err := m.projects.SetStatus(ctx, projectID, project.StatusProcessing); err != nil {
		m.logger.Warn("failed to mark project processing", "project_id", projectID, "error", err)
	}

	m.logger.Info("render started",
		"render_id", rec.ID, "project_id", projectID, "ops", len(ops))
	go m.run(runCtx, t, ops, paths)
	return rec, nil
}

// Cancel stops a running render. It blocks until the render goroutine
// has exited, so no events arrive after Cancel returns.
func (m *Manager) Cancel(ctx context.Context, renderID string) error {
	m.mu.Lock()
	var t *task
	for _, cand := range m.active {
		if cand.renderID == renderID {
			t = cand
			break
		}
	}
	m.mu.Unlock()

	if t == nil {
		rec, err := m.repo.Get(ctx, renderID)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrNotFound
		}
		return fmt.Errorf("render %s is not running", renderID)
	}

	t.mu.Lock()
	t.canceled = true
	t.mu.Unlock()
	t.cancel()
	<-t.done

	// The job may have reached a terminal state before the cancel landed.
	rec, err := m.repo.Get(ctx, renderID)
	if err != nil {
		return err
	}
	if rec != nil && rec.Status != StatusRunning {
		return fmt.Errorf("render %s is not running", renderID)
	}

	if err := m.repo.MarkFailed(ctx, renderID, "canceled"); err != nil {
		return err
	}
	if err := m.projects.SetStatus(ctx, t.projectID, project.StatusDraft); err != nil {
		m.logger.Warn("failed to reset project status", "project_id", t.projectID, "error", err)
	}
	m.logger.Info("render canceled", "render_id", renderID, "project_id", t.projectID)
	return nil
}

func (m *Manager) Get(ctx context.Context, renderID string) (*Render, error) {
	rec, err := m.repo.Get(ctx, renderID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (m *Manager) ListByProject(ctx context.Context, projectID string) ([]*Render, error) {
	return m.repo.ListByProject(ctx, projectID)
}

func (m *Manager) run(ctx context.Context, t *task, ops []compile.Op, paths map[string]string) {
	defer close(t.done)
	defer t.cancel()
	defer m.removeTask(t)

	workDir := filepath.Join(m.dir, t.renderID, "work")
	outputPath := filepath.Join(m.dir, t.renderID, "output.mp4")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		m.finishFailed(t, fmt.Errorf("create work dir: %w", err))
		return
	}
	// Intermediates are never kept, whatever the outcome.
	defer os.RemoveAll(workDir)

	err := m.eng.Execute(ctx, engine.Request{
		Ops:        ops,
		Sources:    paths,
		WorkDir:    workDir,
		OutputPath: outputPath,
		OnProgress: func(pct int) { m.reportProgress(t, pct) },
	})

	if t.isCanceled() {
		os.RemoveAll(filepath.Join(m.dir, t.renderID))
		return
	}
	if err != nil {
		m.finishFailed(t, err)
		return
	}
	m.finishCompleted(t, outputPath)
}

func (m *Manager) reportProgress(t *task, pct int) {
	t.mu.Lock()
	if t.canceled || pct <= t.progress {
		t.mu.Unlock()
		return
	}
	t.progress = pct
	t.mu.Unlock()

	if err := m.repo.UpdateProgress(context.Background(), t.renderID, pct); err != nil {
		m.logger.Warn("failed to persist progress", "render_id", t.renderID, "error", err)
	}
	m.emit(Event{
		RenderID:  t.renderID,
		ProjectID: t.projectID,
		Status:    StatusRunning,
		Progress:  pct,
	})
}

func (m *Manager) finishCompleted(t *task, outputPath string) {
	ctx := context.Background()
	if err := m.repo.MarkCompleted(ctx, t.renderID, outputPath); err != nil {
		m.logger.Error("failed to mark render completed", "render_id", t.renderID, "error", err)
	}
	if err := m.projects.SetStatus(ctx, t.projectID, project.StatusCompleted); err != nil {
		m.logger.Warn("failed to update project status", "project_id", t.projectID, "error", err)
	}
	m.logger.Info("render completed", "render_id", t.renderID, "output", outputPath)
	m.emit(Event{
		RenderID:   t.renderID,
		ProjectID:  t.projectID,
		Status:     StatusCompleted,
		Progress:   100,
		OutputPath: outputPath,
	})
}

func (m *Manager) finishFailed(t *task, err error) {
	ctx := context.Background()
	if dbErr := m.repo.MarkFailed(ctx, t.renderID, err.Error()); dbErr != nil {
		m.logger.Error("failed to mark render failed", "render_id", t.renderID, "error", dbErr)
	}
	if stErr := m.projects.SetStatus(ctx, t.projectID, project.StatusFailed); stErr != nil {
		m.logger.Warn("failed to update project status", "project_id", t.projectID, "error", stErr)
	}
	m.logger.Error("render failed", "render_id", t.renderID, "error", err)

	t.mu.Lock()
	progress := t.progress
	t.mu.Unlock()
	m.emit(Event{
		RenderID:  t.renderID,
		ProjectID: t.projectID,
		Status:    StatusFailed,
		Progress:  progress,
		Error:     err.Error(),
	})
}

func (m *Manager) emit(ev Event) {
	m.mu.Lock()
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

func (m *Manager) removeTask(t *task) {
	m.mu.Lock()
	if cur, ok := m.active[t.projectID]; ok && cur == t {
		delete(m.active, t.projectID)
	}
	m.mu.Unlock()
}

func (t *task) isCanceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canceled
}

// resolveSources maps every asset the timeline references to its probe
// metadata for the compiler and its file path for the engine.
func (m *Manager) resolveSources(ctx context.Context, p *project.Project) (map[string]compile.SourceInfo, map[string]string, error) {
	ids := make(map[string]bool)
	for _, c := range p.Timeline.Clips {
		ids[c.SourceID] = true
	}
	if p.Timeline.AudioSourceID != "" {
		ids[p.Timeline.AudioSourceID] = true
	}

	infos := make(map[string]compile.SourceInfo, len(ids))
	paths := make(map[string]string, len(ids))
	for id := range ids {
		a, err := m.assets.Get(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve source %s: %w", id, err)
		}
		if _, err := os.Stat(a.Path); err != nil {
			return nil, nil, fmt.Errorf("source file missing for asset %s: %w", id, err)
		}
		infos[id] = compile.SourceInfo{Duration: a.Duration, Width: a.Width, Height: a.Height}
		paths[id] = a.Path
	}
	return infos, paths, nil
}
