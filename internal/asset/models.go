package asset

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

var ErrNotFound = errors.New("asset not found")

const (
	KindVideo = "video"
	KindAudio = "audio"
)

// Asset is a registered media file available to timelines.
type Asset struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Path        string    `json:"path"`
	DisplayName string    `json:"display_name"`
	Duration    float64   `json:"duration_s"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".aac":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
}

// KindForPath classifies a file by extension, returning "" when the
// extension is not a supported media type.
func KindForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case videoExtensions[ext]:
		return KindVideo
	case audioExtensions[ext]:
		return KindAudio
	default:
		return ""
	}
}
