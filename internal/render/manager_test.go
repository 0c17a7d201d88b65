package render

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/reelcut/reelcut-agent/internal/asset"
	"github.com/reelcut/reelcut-agent/internal/compile"
	"github.com/reelcut/reelcut-agent/internal/db"
	"github.com/reelcut/reelcut-agent/internal/engine"
	"github.com/reelcut/reelcut-agent/internal/project"
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

// blockingEngine holds Execute open until its context is canceled.
type blockingEngine struct {
	started   chan struct{}
	startOnce sync.Once
}

func newBlockingEngine() *blockingEngine {
	return &blockingEngine{started: make(chan struct{})}
}

func (b *blockingEngine) Execute(ctx context.Context, req engine.Request) error {
	b.startOnce.Do(func() { close(b.started) })
	<-ctx.Done()
	return ctx.Err()
}

func (b *blockingEngine) Probe(ctx context.Context, filePath string) (*engine.ProbeInfo, error) {
	return &engine.ProbeInfo{Duration: 10, Width: 1920, Height: 1080}, nil
}

type fixture struct {
	manager  *Manager
	projects *project.Service
	assets   *asset.Service
}

func setupManager(t *testing.T, eng engine.Engine) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	projects := project.NewService(project.NewRepository(database.Conn()), logger)
	assets := asset.NewService(asset.NewRepository(database.Conn()), eng, logger)
	mgr := NewManager(NewRepository(database.Conn()), projects, assets, eng,
		t.TempDir(), 30*time.Second, logger)
	return &fixture{manager: mgr, projects: projects, assets: assets}
}

// newRenderableProject registers a media file and saves a one-clip timeline.
func newRenderableProject(t *testing.T, f *fixture) *project.Project {
	t.Helper()
	ctx := context.Background()

	mediaPath := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(mediaPath, []byte("media"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	a, err := f.assets.Register(ctx, mediaPath, "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	p, err := f.projects.Create(ctx, "Render Me", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	tl := timeline.New()
	clip := timeline.NewClip(a.ID, 0, a.Duration)
	clip.End = 4
	clip.TrimEnd = 4
	if err := tl.AddClip(clip); err != nil {
		t.Fatalf("AddClip() error = %v", err)
	}
	if _, err := f.projects.SaveTimeline(ctx, p.ID, tl); err != nil {
		t.Fatalf("SaveTimeline() error = %v", err)
	}
	return p
}

func waitForTerminal(t *testing.T, events <-chan Event) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Status != StatusRunning {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for terminal render event")
		}
	}
}

func TestManager_SuccessfulRender(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stub := engine.NewStub(logger)
	f := setupManager(t, stub)
	ctx := context.Background()
	p := newRenderableProject(t, f)

	events := make(chan Event, 16)
	f.manager.Subscribe(func(ev Event) { events <- ev })

	rec, err := f.manager.Start(ctx, p.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if rec.Status != StatusRunning {
		t.Errorf("initial status = %s, want %s", rec.Status, StatusRunning)
	}

	final := waitForTerminal(t, events)
	if final.Status != StatusCompleted {
		t.Fatalf("final event = %+v, want completed", final)
	}
	if final.Progress != 100 {
		t.Errorf("final progress = %d, want 100", final.Progress)
	}
	if _, err := os.Stat(final.OutputPath); err != nil {
		t.Errorf("output file missing: %v", err)
	}

	stored, err := f.manager.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Status != StatusCompleted || stored.Progress != 100 {
		t.Errorf("stored = %+v", stored)
	}

	got, _ := f.projects.Get(ctx, p.ID)
	if got.Status != project.StatusCompleted {
		t.Errorf("project status = %s, want %s", got.Status, project.StatusCompleted)
	}
}

func TestManager_ProgressMonotonic(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stub := engine.NewStub(logger)
	f := setupManager(t, stub)
	p := newRenderableProject(t, f)

	var mu sync.Mutex
	var seen []int
	done := make(chan struct{})
	f.manager.Subscribe(func(ev Event) {
		mu.Lock()
		seen = append(seen, ev.Progress)
		mu.Unlock()
		if ev.Status != StatusRunning {
			close(done)
		}
	})

	if _, err := f.manager.Start(context.Background(), p.ID); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("render did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("progress decreased: %v", seen)
		}
	}
}

func TestManager_SingleInFlightPerProject(t *testing.T) {
	eng := newBlockingEngine()
	f := setupManager(t, eng)
	ctx := context.Background()
	p := newRenderableProject(t, f)

	rec, err := f.manager.Start(ctx, p.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-eng.started

	if _, err := f.manager.Start(ctx, p.ID); !errors.Is(err, ErrInProgress) {
		t.Errorf("second Start() error = %v, want ErrInProgress", err)
	}

	if err := f.manager.Cancel(ctx, rec.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	// The slot is free again once the job is gone.
	rec2, err := f.manager.Start(ctx, p.ID)
	if err != nil {
		t.Fatalf("Start() after cancel error = %v", err)
	}
	if err := f.manager.Cancel(ctx, rec2.ID); err != nil {
		t.Errorf("Cancel() second render error = %v", err)
	}
}

func TestManager_Cancel(t *testing.T) {
	eng := newBlockingEngine()
	f := setupManager(t, eng)
	ctx := context.Background()
	p := newRenderableProject(t, f)

	var mu sync.Mutex
	var terminal []Event
	f.manager.Subscribe(func(ev Event) {
		if ev.Status != StatusRunning {
			mu.Lock()
			terminal = append(terminal, ev)
			mu.Unlock()
		}
	})

	rec, err := f.manager.Start(ctx, p.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-eng.started

	if err := f.manager.Cancel(ctx, rec.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	stored, err := f.manager.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Status != StatusFailed || stored.Error != "canceled" {
		t.Errorf("stored = %+v, want failed/canceled", stored)
	}

	got, _ := f.projects.Get(ctx, p.ID)
	if got.Status != project.StatusDraft {
		t.Errorf("project status = %s, want %s", got.Status, project.StatusDraft)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(terminal) != 0 {
		t.Errorf("terminal events after cancel = %+v, want none", terminal)
	}
}

func TestManager_CancelUnknownRender(t *testing.T) {
	f := setupManager(t, newBlockingEngine())

	err := f.manager.Cancel(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Cancel() error = %v, want ErrNotFound", err)
	}
}

func TestManager_StartEmptyTimelineFails(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := setupManager(t, engine.NewStub(logger))
	ctx := context.Background()

	p, err := f.projects.Create(ctx, "Empty", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = f.manager.Start(ctx, p.ID)
	if !errors.Is(err, compile.ErrEmptyTimeline) {
		t.Errorf("Start() error = %v, want ErrEmptyTimeline", err)
	}
}

func TestManager_FailedRender(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stub := engine.NewStub(logger)
	stub.FailWith(errors.New("encoder exploded"))
	f := setupManager(t, stub)
	ctx := context.Background()
	p := newRenderableProject(t, f)

	events := make(chan Event, 16)
	f.manager.Subscribe(func(ev Event) { events <- ev })

	rec, err := f.manager.Start(ctx, p.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	final := waitForTerminal(t, events)
	if final.Status != StatusFailed || final.Error == "" {
		t.Fatalf("final event = %+v, want failed with detail", final)
	}

	stored, _ := f.manager.Get(ctx, rec.ID)
	if stored.Status != StatusFailed {
		t.Errorf("stored status = %s, want %s", stored.Status, StatusFailed)
	}
	got, _ := f.projects.Get(ctx, p.ID)
	if got.Status != project.StatusFailed {
		t.Errorf("project status = %s, want %s", got.Status, project.StatusFailed)
	}
}
