// Package timeline holds the editable arrangement of media clips, text
// overlays and project-wide settings, and the mutations the editor applies
// to it. All mutations validate the timeline invariants and leave the
// arrangement untouched when they would be violated.
package timeline

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

type Layer string

const (
	LayerVideo Layer = "video"
	LayerAudio Layer = "audio"
	LayerText  Layer = "text"
)

// DefaultMinDuration is the floor below which trim and drag operations are
// rejected, preventing degenerate zero-length clips.
const DefaultMinDuration = 0.1

// timeEpsilon absorbs float64 noise when comparing clip boundaries.
const timeEpsilon = 1e-9

var (
	// ErrValidation is wrapped by every invariant violation so callers can
	// treat the whole class as a recoverable no-op.
	ErrValidation = errors.New("invalid timeline operation")

	ErrClipNotFound    = errors.New("clip not found")
	ErrOverlayNotFound = errors.New("overlay not found")
)

// Clip is one placed media segment: a window [TrimStart, TrimEnd) of a
// source asset mapped onto [Start, End) of the shared timeline.
type Clip struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id"`
	Layer    Layer  `json:"layer"`

	// Absolute seconds on the shared timeline. End > Start always holds.
	Start float64 `json:"start"`
	End   float64 `json:"end"`

	// Seconds within the source asset. 0 <= TrimStart < TrimEnd <= SourceDuration.
	TrimStart float64 `json:"trim_start"`
	TrimEnd   float64 `json:"trim_end"`

	// SourceDuration is a snapshot of the asset's total duration taken when
	// the clip was created, so trim bounds can be checked without the store.
	SourceDuration float64 `json:"source_duration"`

	// MinDuration overrides DefaultMinDuration when positive.
	MinDuration float64 `json:"min_duration,omitempty"`
}

// NewClip creates a video-layer clip covering the full source asset,
// placed at the given timeline start.
func NewClip(sourceID string, start, sourceDuration float64) *Clip {
	return &Clip{
		ID:             NewID(),
		SourceID:       sourceID,
		Layer:          LayerVideo,
		Start:          start,
		End:            start + sourceDuration,
		TrimStart:      0,
		TrimEnd:        sourceDuration,
		SourceDuration: sourceDuration,
	}
}

func (c *Clip) Duration() float64 {
	return c.End - c.Start
}

func (c *Clip) minDuration() float64 {
	if c.MinDuration > 0 {
		return c.MinDuration
	}
	return DefaultMinDuration
}

// sourceRate is the ratio of source seconds to timeline seconds. It is 1.0
// for normal playback but kept explicit so split and trim arithmetic stays
// exact for retimed clips.
func (c *Clip) sourceRate() float64 {
	d := c.Duration()
	if d <= 0 {
		return 1.0
	}
	return (c.TrimEnd - c.TrimStart) / d
}

// TextOverlay is a timed text layer. It has no trimming semantics, only a
// visibility window [Start, Start+Duration).
type TextOverlay struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	FontSize   int     `json:"font_size"`
	Color      string  `json:"color"`
	FontFamily string  `json:"font_family,omitempty"`
	Start      float64 `json:"start"`
	Duration   float64 `json:"duration"`
}

// FilterSettings are project-wide multiplicative adjustments around 1.0.
type FilterSettings struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
}

// NewFilterSettings returns the identity filter settings.
func NewFilterSettings() FilterSettings {
	return FilterSettings{Brightness: 1.0, Contrast: 1.0, Saturation: 1.0}
}

// IsIdentity reports whether applying the filters would be a no-op.
func (f FilterSettings) IsIdentity() bool {
	return f.Brightness == 1.0 && f.Contrast == 1.0 && f.Saturation == 1.0
}

type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Timeline is the full editable arrangement for one project.
type Timeline struct {
	Clips         []*Clip        `json:"clips"`
	Overlays      []*TextOverlay `json:"overlays"`
	Filters       FilterSettings `json:"filters"`
	AudioSourceID string         `json:"audio_source_id,omitempty"`
	Resolution    *Resolution    `json:"resolution,omitempty"`
}

// New returns an empty timeline with identity filters.
func New() *Timeline {
	return &Timeline{Filters: NewFilterSettings()}
}

// UnmarshalJSON decodes a timeline document. An absent or partial filters
// field defaults to identity rather than zero factors, which would render
// a black frame.
func (t *Timeline) UnmarshalJSON(data []byte) error {
	type plain Timeline
	doc := plain{Filters: NewFilterSettings()}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*t = Timeline(doc)
	return nil
}

// NewID returns a fresh unique identifier for clips, overlays and projects.
func NewID() string {
	return uuid.NewString()
}

// Clip returns the clip with the given id, or nil.
func (t *Timeline) Clip(id string) *Clip {
	for _, c := range t.Clips {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Overlay returns the text overlay with the given id, or nil.
func (t *Timeline) Overlay(id string) *TextOverlay {
	for _, o := range t.Overlays {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// Duration is the latest timeline end across all layers and overlays.
func (t *Timeline) Duration() float64 {
	var max float64
	for _, c := range t.Clips {
		if c.End > max {
			max = c.End
		}
	}
	for _, o := range t.Overlays {
		if end := o.Start + o.Duration; end > max {
			max = end
		}
	}
	return max
}
