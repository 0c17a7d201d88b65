package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reelcut/reelcut-agent/internal/asset"
	"github.com/reelcut/reelcut-agent/internal/export"
	"github.com/reelcut/reelcut-agent/internal/project"
	"github.com/reelcut/reelcut-agent/internal/render"
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.TokenStore, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Get("/projects", listProjectsHandler(cfg))
		r.Post("/projects", createProjectHandler(cfg))
		r.Get("/projects/{id}", getProjectHandler(cfg))
		r.Patch("/projects/{id}", updateProjectHandler(cfg))
		r.Delete("/projects/{id}", deleteProjectHandler(cfg))

		r.Get("/projects/{id}/timeline", getTimelineHandler(cfg))
		r.Put("/projects/{id}/timeline", putTimelineHandler(cfg))
		r.Post("/projects/{id}/clips", clipOpHandler(cfg))

		r.Post("/projects/{id}/export", exportHandler(cfg))
		r.Post("/projects/{id}/render", startRenderHandler(cfg))
		r.Get("/projects/{id}/renders", listRendersHandler(cfg))
		r.Get("/renders/{id}", getRenderHandler(cfg))
		r.Delete("/renders/{id}", cancelRenderHandler(cfg))
		r.Get("/projects/{id}/events", eventsHandler(cfg))

		r.Get("/assets", listAssetsHandler(cfg))
		r.Post("/assets", registerAssetHandler(cfg))
		r.Get("/assets/{id}", getAssetHandler(cfg))
		r.Delete("/assets/{id}", deleteAssetHandler(cfg))

		r.Get("/playback/file", playbackHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  "0.1.0",
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		projects, _ := cfg.ProjectService.List(ctx)
		assets, _ := cfg.AssetService.List(ctx)

		state := "idle"
		rendersRunning := 0
		var active *RenderResponse
		for _, p := range projects {
			renders, err := cfg.RenderManager.ListByProject(ctx, p.ID)
			if err != nil {
				continue
			}
			for _, rec := range renders {
				if rec.Status == render.StatusRunning {
					state = "rendering"
					rendersRunning++
					if active == nil {
						resp := RenderToResponse(rec)
						active = &resp
					}
				}
			}
		}

		WriteJSON(w, http.StatusOK, StatusResponse{
			State:          state,
			ProjectsCount:  len(projects),
			AssetsCount:    len(assets),
			RendersRunning: rendersRunning,
			ActiveRender:   active,
		})
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.ProjectService.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}

		resp := ProjectsResponse{Projects: make([]ProjectResponse, len(projects))}
		for i, p := range projects {
			resp.Projects[i] = ProjectToResponse(p, false)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		p, err := cfg.ProjectService.Create(r.Context(), req.Title, req.Description)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusCreated, ProjectToResponse(p, true))
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadProject(w, r, cfg)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(p, true))
	}
}

func updateProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		p, err := cfg.ProjectService.Rename(r.Context(), chi.URLParam(r, "id"), req.Title, req.Description)
		if err != nil {
			writeProjectError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(p, false))
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.ProjectService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeProjectError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func getTimelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadProject(w, r, cfg)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, p.Timeline)
	}
}

func putTimelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tl timeline.Timeline
		if err := json.NewDecoder(r.Body).Decode(&tl); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid timeline document", "BAD_REQUEST")
			return
		}

		p, err := cfg.ProjectService.SaveTimeline(r.Context(), chi.URLParam(r, "id"), &tl)
		if err != nil {
			if errors.Is(err, timeline.ErrValidation) {
				WriteError(w, http.StatusUnprocessableEntity, err.Error(), "INVALID_TIMELINE")
				return
			}
			writeProjectError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(p, true))
	}
}

// clipOpHandler applies one timeline mutation and persists the result.
// A rejected mutation leaves the stored timeline untouched.
func clipOpHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClipOpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		p, ok := loadProject(w, r, cfg)
		if !ok {
			return
		}

		if err := applyClipOp(r, cfg, p.Timeline, req); err != nil {
			switch {
			case errors.Is(err, timeline.ErrValidation):
				WriteError(w, http.StatusUnprocessableEntity, err.Error(), "INVALID_OPERATION")
			case errors.Is(err, timeline.ErrClipNotFound), errors.Is(err, asset.ErrNotFound):
				WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			default:
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			}
			return
		}

		saved, err := cfg.ProjectService.SaveTimeline(r.Context(), p.ID, p.Timeline)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(saved, true))
	}
}

func applyClipOp(r *http.Request, cfg ServerConfig, tl *timeline.Timeline, req ClipOpRequest) error {
	switch req.Op {
	case "add":
		a, err := cfg.AssetService.Get(r.Context(), req.SourceID)
		if err != nil {
			return err
		}
		clip := timeline.NewClip(a.ID, req.Start, a.Duration)
		if req.End > req.Start {
			clip.End = req.End
			clip.TrimEnd = clip.TrimStart + (req.End - req.Start)
		}
		return tl.AddClip(clip)
	case "remove":
		return tl.RemoveClip(req.ClipID)
	case "move":
		c := tl.Clip(req.ClipID)
		if c == nil {
			return timeline.ErrClipNotFound
		}
		return tl.MoveClip(req.ClipID, req.Value-c.Start)
	case "trim_left":
		return tl.TrimLeft(req.ClipID, req.Value)
	case "trim_right":
		return tl.TrimRight(req.ClipID, req.Value)
	case "split":
		_, _, err := tl.SplitClip(req.ClipID, req.Value)
		return err
	default:
		return fmt.Errorf("unknown clip operation %q", req.Op)
	}
}

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		p, ok := loadProject(w, r, cfg)
		if !ok {
			return
		}

		resp, err := cfg.Exporter.Export(r.Context(), p, req)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func startRenderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := cfg.RenderManager.Start(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			switch {
			case errors.Is(err, project.ErrNotFound):
				WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			case errors.Is(err, render.ErrInProgress):
				WriteError(w, http.StatusConflict, err.Error(), "RENDER_IN_PROGRESS")
			default:
				WriteError(w, http.StatusUnprocessableEntity, err.Error(), "INVALID_TIMELINE")
			}
			return
		}
		WriteJSON(w, http.StatusAccepted, RenderToResponse(rec))
	}
}

func listRendersHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renders, err := cfg.RenderManager.ListByProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list renders", "INTERNAL_ERROR")
			return
		}
		resp := RendersResponse{Renders: make([]RenderResponse, len(renders))}
		for i, rec := range renders {
			resp.Renders[i] = RenderToResponse(rec)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getRenderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := cfg.RenderManager.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, render.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "render not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, RenderToResponse(rec))
	}
}

func cancelRenderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := cfg.RenderManager.Cancel(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, render.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "render not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusConflict, err.Error(), "NOT_RUNNING")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func eventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")
		if _, err := cfg.ProjectService.Get(r.Context(), projectID); err != nil {
			writeProjectError(w, err)
			return
		}
		cfg.EventHub.ServeWS(w, r, projectID)
	}
}

func listAssetsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assets, err := cfg.AssetService.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list assets", "INTERNAL_ERROR")
			return
		}
		resp := AssetsResponse{Assets: make([]AssetResponse, len(assets))}
		for i, a := range assets {
			resp.Assets[i] = AssetToResponse(a)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func registerAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterAssetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		a, err := cfg.AssetService.Register(r.Context(), req.Path, req.DisplayName)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusCreated, AssetToResponse(a))
	}
}

func getAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := cfg.AssetService.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, asset.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, AssetToResponse(a))
	}
}

func deleteAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.AssetService.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
			if errors.Is(err, asset.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func playbackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PreviewServer == nil {
			WriteError(w, http.StatusNotFound, "preview serving is disabled", "PREVIEW_DISABLED")
			return
		}

		assetID := r.URL.Query().Get("asset_id")
		if assetID == "" {
			WriteError(w, http.StatusBadRequest, "asset_id is required", "BAD_REQUEST")
			return
		}

		a, err := cfg.AssetService.Get(r.Context(), assetID)
		if err != nil {
			if errors.Is(err, asset.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		if err := cfg.PreviewServer.ServeMedia(w, r, a.Path); err != nil {
			cfg.Logger.Error("playback error", "error", err, "asset_id", assetID)
		}
	}
}

func loadProject(w http.ResponseWriter, r *http.Request, cfg ServerConfig) (*project.Project, bool) {
	p, err := cfg.ProjectService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeProjectError(w, err)
		return nil, false
	}
	return p, true
}

func writeProjectError(w http.ResponseWriter, err error) {
	if errors.Is(err, project.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
		return
	}
	WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
}
