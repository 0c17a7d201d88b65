// Package ruler converts between timeline time and on-screen pixel
// position for a given zoom scale, and picks ruler tick intervals that
// never visually collide.
package ruler

// Zoom scale bounds in pixels per second, shared across the whole editor.
const (
	MinScale = 20.0
	MaxScale = 500.0
)

// MinTickSpacing is the smallest allowed distance between two ruler
// labels, in pixels.
const MinTickSpacing = 20.0

// tickIntervals is the ascending sequence of "nice" time intervals a ruler
// may use, from a single frame at 30fps up to fifteen minutes.
var tickIntervals = []float64{
	1.0 / 30, 0.05, 1.0 / 12, 0.1, 0.25, 0.5,
	1, 2, 5, 10, 15, 30,
	60, 120, 300, 600, 900,
}

// ClampScale bounds a zoom scale to [MinScale, MaxScale].
func ClampScale(scale float64) float64 {
	if scale < MinScale {
		return MinScale
	}
	if scale > MaxScale {
		return MaxScale
	}
	return scale
}

// TimeToPixel converts a timeline time to a content pixel offset.
func TimeToPixel(t, scale float64) float64 {
	return t * scale
}

// PixelToTime converts a content pixel offset back to timeline time.
func PixelToTime(x, scale float64) float64 {
	return x / scale
}

// TickInterval selects the smallest nice interval whose on-screen spacing
// is at least MinTickSpacing at the given scale. If even the largest
// interval is too dense it is returned anyway.
func TickInterval(scale float64) float64 {
	scale = ClampScale(scale)
	for _, interval := range tickIntervals {
		if interval*scale >= MinTickSpacing {
			return interval
		}
	}
	return tickIntervals[len(tickIntervals)-1]
}
