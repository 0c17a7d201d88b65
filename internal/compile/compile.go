// Package compile translates a finalized timeline into the ordered list of
// media operations the codec engine executes. Compilation is read-only over
// the timeline and emits nothing on failure.
package compile

import (
	"errors"
	"fmt"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

var (
	ErrEmptyTimeline = errors.New("timeline has no video clips")
	ErrUnknownSource = errors.New("clip references unknown source")
)

type OpKind string

const (
	OpDecode   OpKind = "decode"
	OpTrim     OpKind = "trim"
	OpConcat   OpKind = "concat"
	OpFilter   OpKind = "filter"
	OpDrawText OpKind = "drawtext"
	OpScale    OpKind = "scale"
	OpMuxAudio OpKind = "mux_audio"
)

// Op is one step of the compiled render graph. Only the fields relevant to
// its kind are set.
type Op struct {
	Kind OpKind `json:"kind"`

	// decode, trim, mux_audio
	SourceID string `json:"source_id,omitempty"`

	// trim
	ClipID    string  `json:"clip_id,omitempty"`
	TrimStart float64 `json:"trim_start,omitempty"`
	TrimEnd   float64 `json:"trim_end,omitempty"`

	// concat, in timeline order
	ClipIDs []string `json:"clip_ids,omitempty"`

	// filter
	Brightness float64 `json:"brightness,omitempty"`
	Contrast   float64 `json:"contrast,omitempty"`
	Saturation float64 `json:"saturation,omitempty"`

	// drawtext
	Text     string  `json:"text,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	FontSize int     `json:"font_size,omitempty"`
	Color    string  `json:"color,omitempty"`
	From     float64 `json:"from,omitempty"`
	To       float64 `json:"to,omitempty"`

	// scale
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// SourceInfo is the externally-owned asset metadata compilation runs
// against.
type SourceInfo struct {
	Duration float64
	Width    int
	Height   int
}

// Compile builds the operation list for a timeline. It fails without
// emitting anything if the video layer is empty, a clip or the audio track
// references an unknown source, or the timeline invariants do not hold.
func Compile(tl *timeline.Timeline, sources map[string]SourceInfo) ([]Op, error) {
	if err := tl.Validate(); err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	clips := tl.VideoClipsSorted()
	if len(clips) == 0 {
		return nil, fmt.Errorf("compile: %w", ErrEmptyTimeline)
	}

	for _, c := range clips {
		if _, ok := sources[c.SourceID]; !ok {
			return nil, fmt.Errorf("compile: %w: %s (clip %s)", ErrUnknownSource, c.SourceID, c.ID)
		}
	}
	if tl.AudioSourceID != "" {
		if _, ok := sources[tl.AudioSourceID]; !ok {
			return nil, fmt.Errorf("compile: %w: audio track %s", ErrUnknownSource, tl.AudioSourceID)
		}
	}

	var ops []Op

	// One decode per distinct source, in first-use order.
	seen := make(map[string]bool)
	for _, c := range clips {
		if !seen[c.SourceID] {
			seen[c.SourceID] = true
			ops = append(ops, Op{Kind: OpDecode, SourceID: c.SourceID})
		}
	}

	for _, c := range clips {
		ops = append(ops, Op{
			Kind:      OpTrim,
			SourceID:  c.SourceID,
			ClipID:    c.ID,
			TrimStart: c.TrimStart,
			TrimEnd:   c.TrimEnd,
		})
	}

	concat := Op{Kind: OpConcat, ClipIDs: make([]string, len(clips))}
	for i, c := range clips {
		concat.ClipIDs[i] = c.ID
	}
	ops = append(ops, concat)

	if !tl.Filters.IsIdentity() {
		ops = append(ops, Op{
			Kind:       OpFilter,
			Brightness: tl.Filters.Brightness,
			Contrast:   tl.Filters.Contrast,
			Saturation: tl.Filters.Saturation,
		})
	}

	for _, o := range tl.Overlays {
		ops = append(ops, Op{
			Kind:     OpDrawText,
			Text:     o.Content,
			X:        o.X,
			Y:        o.Y,
			FontSize: o.FontSize,
			Color:    o.Color,
			From:     o.Start,
			To:       o.Start + o.Duration,
		})
	}

	if tl.Resolution != nil {
		native := sources[clips[0].SourceID]
		if tl.Resolution.Width != native.Width || tl.Resolution.Height != native.Height {
			ops = append(ops, Op{
				Kind:   OpScale,
				Width:  tl.Resolution.Width,
				Height: tl.Resolution.Height,
			})
		}
	}

	if tl.AudioSourceID != "" {
		ops = append(ops, Op{Kind: OpMuxAudio, SourceID: tl.AudioSourceID})
	}

	return ops, nil
}
