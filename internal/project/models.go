package project

import (
	"errors"
	"time"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

var ErrNotFound = errors.New("project not found")

const (
	StatusDraft      = "draft"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Project is an edit session: metadata plus its timeline document.
type Project struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Status      string             `json:"status"`
	Timeline    *timeline.Timeline `json:"timeline"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func validStatus(s string) bool {
	switch s {
	case StatusDraft, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}
