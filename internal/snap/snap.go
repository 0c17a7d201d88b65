// Package snap resolves drag and trim positions against nearby alignment
// targets: the playhead first, ruler ticks second.
package snap

import (
	"math"

	"github.com/reelcut/reelcut-agent/internal/ruler"
)

// Threshold is the pixel distance within which an edge snaps to a target.
const Threshold = 10.0

type Kind string

const (
	KindPlayhead Kind = "playhead"
	KindTick     Kind = "tick"
)

// Target is a resolved snap position.
type Target struct {
	Time float64
	Kind Kind
}

// Context carries the viewport state a resolution runs against.
type Context struct {
	Scale         float64 // pixels per second
	ScrollOffset  float64 // content pixels scrolled off the left edge
	ViewportWidth float64 // pixels
	CurrentTime   float64 // playhead time, seconds
}

// Resolve finds the snap target for a pointer at viewport-relative pixel
// position x. Aligning cuts to the playhead is the primary editing motion,
// so the playhead wins over ruler ticks. Returns false when the raw
// pointer time should be used unmodified.
func Resolve(x float64, ctx Context) (Target, bool) {
	scale := ruler.ClampScale(ctx.Scale)

	// The playhead is rendered at the fixed viewport center.
	centerPixel := ctx.ViewportWidth / 2
	if math.Abs(x-centerPixel) < Threshold {
		return Target{Time: ctx.CurrentTime, Kind: KindPlayhead}, true
	}

	timeAtX := ruler.PixelToTime(ctx.ScrollOffset+x, scale)
	interval := ruler.TickInterval(scale)
	nearest := math.Round(timeAtX/interval) * interval
	if nearest < 0 {
		nearest = 0
	}

	if math.Abs(nearest-timeAtX)*scale < Threshold {
		return Target{Time: nearest, Kind: KindTick}, true
	}

	return Target{}, false
}
