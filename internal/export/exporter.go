package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/reelcut/reelcut-agent/internal/asset"
	"github.com/reelcut/reelcut-agent/internal/project"
)

const DefaultFrameRate = 30.0

// Exporter resolves a project's timeline against the asset store and
// writes the cut list to disk.
type Exporter struct {
	assets asset.AssetService
	logger *slog.Logger
}

func NewExporter(assets asset.AssetService, logger *slog.Logger) *Exporter {
	return &Exporter{assets: assets, logger: logger.With("component", "export")}
}

func (e *Exporter) Export(ctx context.Context, p *project.Project, req ExportRequest) (*ExportResponse, error) {
	if req.Format != "" && req.Format != "edl" {
		return nil, fmt.Errorf("unsupported export format %q", req.Format)
	}
	if err := ValidateOutputDir(req.OutputDir); err != nil {
		return nil, err
	}
	frameRate := req.FrameRate
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}

	clips, err := e.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("timeline has no video clips to export")
	}

	title := SanitizeName(p.Title, 60)
	if title == "" {
		title = "Untitled"
	}
	outputPath := filepath.Join(req.OutputDir, title+".edl")

	edl := GenerateEDL(clips, title, frameRate)
	if err := os.WriteFile(outputPath, []byte(edl), 0o644); err != nil {
		return nil, fmt.Errorf("write edl: %w", err)
	}

	e.logger.Info("timeline exported",
		"project_id", p.ID, "output", outputPath, "clips", len(clips))
	return &ExportResponse{
		Status:     "ok",
		Format:     "edl",
		OutputPath: outputPath,
		ClipCount:  len(clips),
	}, nil
}

func (e *Exporter) resolve(ctx context.Context, p *project.Project) ([]ResolvedClip, error) {
	var clips []ResolvedClip
	for _, c := range p.Timeline.VideoClipsSorted() {
		a, err := e.assets.Get(ctx, c.SourceID)
		if err != nil {
			return nil, fmt.Errorf("resolve clip %s: %w", c.ID, err)
		}
		clips = append(clips, ResolvedClip{
			ClipName:    SanitizeName(a.DisplayName, 60),
			MediaPath:   a.Path,
			SourceInMs:  int(c.TrimStart * 1000),
			SourceOutMs: int(c.TrimEnd * 1000),
			RecordInMs:  int(c.Start * 1000),
			RecordOutMs: int(c.End * 1000),
		})
	}
	return clips, nil
}
