package export

// ExportRequest asks for an interchange cut list of a project's timeline.
type ExportRequest struct {
	Format    string  `json:"format"`
	FrameRate float64 `json:"frame_rate,omitempty"`
	OutputDir string  `json:"output_dir"`
}

// ResolvedClip is one video clip with its source asset resolved to a
// media path. Source times are within the asset, record times are the
// clip's placement on the shared timeline.
type ResolvedClip struct {
	ClipName    string
	MediaPath   string
	SourceInMs  int
	SourceOutMs int
	RecordInMs  int
	RecordOutMs int
}

type ExportResponse struct {
	Status     string `json:"status"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
	ClipCount  int    `json:"clip_count"`
}
