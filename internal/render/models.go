package render

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("render not found")
	ErrInProgress = errors.New("render already in progress for project")
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Render is one export job for a project.
type Render struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	OutputPath string    `json:"output_path,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Event is a progress or terminal notification for a running render.
type Event struct {
	RenderID   string `json:"render_id"`
	ProjectID  string `json:"project_id"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	OutputPath string `json:"output_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Listener receives render events. Callbacks run on the render goroutine
// and must not block.
type Listener func(Event)
