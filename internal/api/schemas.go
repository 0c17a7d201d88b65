package api

import (
	"time"

	"github.com/reelcut/reelcut-agent/internal/asset"
	"github.com/reelcut/reelcut-agent/internal/project"
	"github.com/reelcut/reelcut-agent/internal/render"
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State          string          `json:"state"`
	ProjectsCount  int             `json:"projects_count"`
	AssetsCount    int             `json:"assets_count"`
	RendersRunning int             `json:"renders_running"`
	ActiveRender   *RenderResponse `json:"active_render,omitempty"`
}

type CreateProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type UpdateProjectRequest struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type ProjectResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Status      string             `json:"status"`
	Timeline    *timeline.Timeline `json:"timeline,omitempty"`
	DurationS   float64            `json:"duration_s"`
	CreatedAt   string             `json:"created_at"`
	UpdatedAt   string             `json:"updated_at"`
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

// ClipOpRequest is one mutation against a project's timeline. Op selects
// which of the optional fields apply.
type ClipOpRequest struct {
	Op     string  `json:"op"` // add, remove, move, trim_left, trim_right, split
	ClipID string  `json:"clip_id,omitempty"`
	Value  float64 `json:"value,omitempty"` // target time for move/trim/split

	// add
	SourceID string  `json:"source_id,omitempty"`
	Start    float64 `json:"start,omitempty"`
	End      float64 `json:"end,omitempty"`
}

type RegisterAssetRequest struct {
	Path        string `json:"path"`
	DisplayName string `json:"display_name,omitempty"`
}

type AssetResponse struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	Path        string  `json:"path"`
	DisplayName string  `json:"display_name"`
	DurationS   float64 `json:"duration_s"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type AssetsResponse struct {
	Assets []AssetResponse `json:"assets"`
}

type RenderResponse struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	OutputPath string `json:"output_path,omitempty"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type RendersResponse struct {
	Renders []RenderResponse `json:"renders"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ProjectToResponse(p *project.Project, includeTimeline bool) ProjectResponse {
	resp := ProjectResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
	if p.Timeline != nil {
		resp.DurationS = p.Timeline.Duration()
		if includeTimeline {
			resp.Timeline = p.Timeline
		}
	}
	return resp
}

func AssetToResponse(a *asset.Asset) AssetResponse {
	return AssetResponse{
		ID:          a.ID,
		Kind:        a.Kind,
		Path:        a.Path,
		DisplayName: a.DisplayName,
		DurationS:   a.Duration,
		Width:       a.Width,
		Height:      a.Height,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

func RenderToResponse(r *render.Render) RenderResponse {
	return RenderResponse{
		ID:         r.ID,
		ProjectID:  r.ProjectID,
		Status:     r.Status,
		Progress:   r.Progress,
		OutputPath: r.OutputPath,
		Error:      r.Error,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  r.UpdatedAt.Format(time.RFC3339),
	}
}
