// Package gesture owns the drag, trim and zoom gesture state for the
// timeline editor. Pointer events arrive from the UI transport in order;
// the machine turns them into clip mutations, snap resolutions and
// viewport scrolling.
package gesture

import (
	"log/slog"

	"github.com/reelcut/reelcut-agent/internal/ruler"
	"github.com/reelcut/reelcut-agent/internal/snap"
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

type State string

const (
	StateIdle      State = "idle"
	StateDragging  State = "dragging"
	StateTrimLeft  State = "trimming-left"
	StateTrimRight State = "trimming-right"
)

const (
	// HandleWidth is the pixel width of the trim handle zone at each clip edge.
	HandleWidth = 8.0

	// EdgeScrollZone is the distance from the viewport edge within which an
	// active gesture auto-scrolls the viewport.
	EdgeScrollZone = 40.0

	// EdgeScrollStep is how far one pointer-move event scrolls when the
	// cursor sits in the edge zone, in pixels.
	EdgeScrollStep = 16.0
)

// Viewport is the visible window onto the timeline content.
type Viewport struct {
	Scale        float64 // pixels per second
	ScrollOffset float64 // content pixels scrolled off the left edge
	Width        float64 // pixels
}

// Synchronizer is the playback-side coupling: gestures suspend automatic
// scrolling while active and seek on drop.
type Synchronizer interface {
	Suspend()
	Resume()
	Seek(t float64)
	CurrentTime() float64
}

// Machine consumes pointer and zoom events and mutates the timeline.
// Exactly one clip may be under manipulation at a time; a pointer-down
// while a gesture is active is ignored until the gesture ends.
type Machine struct {
	tl     *timeline.Timeline
	sync   Synchronizer
	view   Viewport
	logger *slog.Logger

	state      State
	clipID     string
	anchorTime float64 // pointer time at gesture start
	grabStart  float64 // clip start at gesture start
	activeSnap *snap.Target
}

func NewMachine(tl *timeline.Timeline, sync Synchronizer, view Viewport, logger *slog.Logger) *Machine {
	view.Scale = ruler.ClampScale(view.Scale)
	return &Machine{
		tl:     tl,
		sync:   sync,
		view:   view,
		logger: logger,
		state:  StateIdle,
	}
}

func (m *Machine) State() State             { return m.state }
func (m *Machine) ActiveClipID() string     { return m.clipID }
func (m *Machine) ActiveSnap() *snap.Target { return m.activeSnap }
func (m *Machine) Viewport() Viewport       { return m.view }

// PointerDown starts a gesture if the pointer lands on a video clip. The
// handle zones at the clip edges start trims; the body starts a drag.
func (m *Machine) PointerDown(x float64) {
	if m.state != StateIdle {
		return
	}

	t := ruler.PixelToTime(m.view.ScrollOffset+x, m.view.Scale)
	clip := m.clipAt(t, x)
	if clip == nil {
		return
	}

	leftPx := ruler.TimeToPixel(clip.Start, m.view.Scale) - m.view.ScrollOffset
	rightPx := ruler.TimeToPixel(clip.End, m.view.Scale) - m.view.ScrollOffset

	switch {
	case x-leftPx >= 0 && x-leftPx <= HandleWidth:
		m.state = StateTrimLeft
	case rightPx-x >= 0 && rightPx-x <= HandleWidth:
		m.state = StateTrimRight
	default:
		m.state = StateDragging
	}

	m.clipID = clip.ID
	m.anchorTime = t
	m.grabStart = clip.Start
	if m.sync != nil {
		m.sync.Suspend()
	}

	if m.logger != nil {
		m.logger.Debug("gesture started", "state", string(m.state), "clip_id", clip.ID)
	}
}

// PointerMove advances the active gesture. Invariant violations from the
// clip model are swallowed: the clip simply does not follow the pointer.
func (m *Machine) PointerMove(x float64) {
	if m.state == StateIdle {
		return
	}

	pointerTime := m.resolvePointer(x)

	var err error
	switch m.state {
	case StateDragging:
		clip := m.tl.Clip(m.clipID)
		if clip == nil {
			m.reset()
			return
		}
		desired := m.grabStart + (pointerTime - m.anchorTime)
		err = m.tl.MoveClip(m.clipID, desired-clip.Start)
	case StateTrimLeft:
		err = m.tl.TrimLeft(m.clipID, pointerTime)
	case StateTrimRight:
		err = m.tl.TrimRight(m.clipID, pointerTime)
	}

	if err != nil && m.logger != nil {
		m.logger.Debug("gesture mutation rejected", "error", err)
	}

	m.edgeScroll(x)
}

// PointerUp ends the gesture. A completed drag seeks playback to the
// clip's new start.
func (m *Machine) PointerUp() {
	if m.state == StateIdle {
		return
	}

	wasDrag := m.state == StateDragging
	clipID := m.clipID
	m.reset()

	if m.sync != nil {
		m.sync.Resume()
		if wasDrag {
			if clip := m.tl.Clip(clipID); clip != nil {
				m.sync.Seek(clip.Start)
			}
		}
	}
}

// Zoom adjusts the scale multiplicatively, clamped to the shared bounds.
// Zoom gestures are independent of the pointer state machine.
func (m *Machine) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	m.view.Scale = ruler.ClampScale(m.view.Scale * factor)
}

// SetScroll moves the viewport directly, clamped to the content width.
func (m *Machine) SetScroll(offset float64) {
	m.view.ScrollOffset = m.clampScroll(offset)
}

func (m *Machine) resolvePointer(x float64) float64 {
	ctx := snap.Context{
		Scale:         m.view.Scale,
		ScrollOffset:  m.view.ScrollOffset,
		ViewportWidth: m.view.Width,
	}
	if m.sync != nil {
		ctx.CurrentTime = m.sync.CurrentTime()
	}

	if target, ok := snap.Resolve(x, ctx); ok {
		m.activeSnap = &target
		return target.Time
	}

	m.activeSnap = nil
	return ruler.PixelToTime(m.view.ScrollOffset+x, m.view.Scale)
}

func (m *Machine) edgeScroll(x float64) {
	switch {
	case x < EdgeScrollZone:
		m.view.ScrollOffset = m.clampScroll(m.view.ScrollOffset - EdgeScrollStep)
	case x > m.view.Width-EdgeScrollZone:
		m.view.ScrollOffset = m.clampScroll(m.view.ScrollOffset + EdgeScrollStep)
	}
}

func (m *Machine) clampScroll(offset float64) float64 {
	max := ruler.TimeToPixel(m.tl.Duration(), m.view.Scale) - m.view.Width
	if max < 0 {
		max = 0
	}
	if offset < 0 {
		return 0
	}
	if offset > max {
		return max
	}
	return offset
}

// clipAt finds the video clip under the pointer. The handle zones extend
// slightly past the clip span, so edges stay grabbable at high zoom.
func (m *Machine) clipAt(t, x float64) *timeline.Clip {
	for _, c := range m.tl.VideoClipsSorted() {
		if t >= c.Start && t < c.End {
			return c
		}
		leftPx := ruler.TimeToPixel(c.Start, m.view.Scale) - m.view.ScrollOffset
		rightPx := ruler.TimeToPixel(c.End, m.view.Scale) - m.view.ScrollOffset
		if (x >= leftPx-HandleWidth && x <= leftPx+HandleWidth) ||
			(x >= rightPx-HandleWidth && x <= rightPx+HandleWidth) {
			return c
		}
	}
	return nil
}

func (m *Machine) reset() {
	m.state = StateIdle
	m.clipID = ""
	m.activeSnap = nil
}
