package engine

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// Stub satisfies Engine without ffmpeg installed. It records the requests
// it receives and writes an empty output file, which is enough for the
// render manager and the API to be exercised end to end.
type Stub struct {
	logger *slog.Logger

	mu       sync.Mutex
	requests []Request
	probe    ProbeInfo
	execErr  error
}

func NewStub(logger *slog.Logger) *Stub {
	return &Stub{
		logger: logger,
		probe:  ProbeInfo{Duration: 10, Width: 1920, Height: 1080, HasAudio: true},
	}
}

// SetProbe overrides the metadata returned by Probe.
func (s *Stub) SetProbe(info ProbeInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probe = info
}

// FailWith makes every subsequent Execute return err.
func (s *Stub) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execErr = err
}

// Requests returns a copy of every Execute request seen so far.
func (s *Stub) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Stub) Execute(ctx context.Context, req Request) error {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	failErr := s.execErr
	s.mu.Unlock()

	s.logger.Info("engine stub: execute requested",
		"ops", len(req.Ops), "output", req.OutputPath)
	if failErr != nil {
		return failErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, pct := range []int{25, 50, 75, 100} {
		if err := ctx.Err(); err != nil {
			return err
		}
		if req.OnProgress != nil {
			req.OnProgress(pct)
		}
	}
	return os.WriteFile(req.OutputPath, nil, 0o644)
}

func (s *Stub) Probe(ctx context.Context, filePath string) (*ProbeInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.logger.Info("engine stub: probe requested", "path", filePath)
	s.mu.Lock()
	info := s.probe
	s.mu.Unlock()
	return &info, nil
}
