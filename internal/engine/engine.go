// Package engine executes compiled render operations. The agent talks to
// it only through the typed operation vocabulary; the ffmpeg-specific
// translation lives entirely inside this package.
package engine

import (
	"context"
	"fmt"

	"github.com/reelcut/reelcut-agent/internal/compile"
)

// Request is one render invocation: the compiled operations, the staged
// source files they reference, and a working directory for intermediates.
type Request struct {
	Ops        []compile.Op
	Sources    map[string]string // source id -> staged file path
	WorkDir    string
	OutputPath string

	// OnProgress receives percentages in [0, 100], non-decreasing within
	// one invocation. May be nil.
	OnProgress func(percent int)
}

// ProbeInfo is the metadata extracted from a media file on registration.
type ProbeInfo struct {
	Duration float64
	Width    int
	Height   int
	HasAudio bool
}

type Engine interface {
	Execute(ctx context.Context, req Request) error
	Probe(ctx context.Context, filePath string) (*ProbeInfo, error)
}

// Error identifies the operation a render failed on.
type Error struct {
	Op  compile.OpKind
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("engine: %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
