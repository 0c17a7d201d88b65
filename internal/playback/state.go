package playback

import (
	"github.com/reelcut/reelcut-agent/internal/ruler"
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

// State keeps the logical playback time consistent between user scrubbing,
// autoplay ticks and the viewport auto-scroll that keeps the playhead at
// the viewport center. It is owned by the single editing goroutine and is
// not safe for concurrent use; the render path never touches it.
type State struct {
	tl        *timeline.Timeline
	current   float64
	playing   bool
	suspended bool
}

func NewState(tl *timeline.Timeline) *State {
	return &State{tl: tl}
}

func (s *State) CurrentTime() float64 { return s.current }
func (s *State) IsPlaying() bool      { return s.playing }

// Duration is derived from the timeline's latest end across all layers.
func (s *State) Duration() float64 {
	return s.tl.Duration()
}

func (s *State) Play() {
	if s.current >= s.Duration() {
		s.current = 0
	}
	s.playing = true
}

func (s *State) Pause() {
	s.playing = false
}

func (s *State) TogglePlay() {
	if s.playing {
		s.Pause()
	} else {
		s.Play()
	}
}

// Seek pauses playback before moving the playhead, so the play loop cannot
// immediately overwrite the chosen position.
func (s *State) Seek(t float64) {
	s.playing = false
	if t < 0 {
		t = 0
	}
	if d := s.Duration(); t > d {
		t = d
	}
	s.current = t
}

// Tick advances playback by dt seconds of wall time. Playback pauses when
// the playhead reaches the end of the arrangement.
func (s *State) Tick(dt float64) {
	if !s.playing || dt <= 0 {
		return
	}
	s.current += dt
	if d := s.Duration(); s.current >= d {
		s.current = d
		s.playing = false
	}
}

// Suspend stops the synchronizer from driving viewport scroll, so it does
// not fight an active scrub or clip gesture.
func (s *State) Suspend() { s.suspended = true }

// Resume re-enables automatic viewport scrolling.
func (s *State) Resume() { s.suspended = false }

func (s *State) Suspended() bool { return s.suspended }

// SyncScroll returns the scroll offset that keeps the playhead at the
// viewport center, and whether the move should be smoothed (autoplay) or
// applied immediately. ok is false while the synchronizer is suspended.
func (s *State) SyncScroll(scale, viewportWidth float64) (offset float64, smooth bool, ok bool) {
	if s.suspended {
		return 0, false, false
	}

	scale = ruler.ClampScale(scale)
	offset = ruler.TimeToPixel(s.current, scale) - viewportWidth/2

	max := ruler.TimeToPixel(s.Duration(), scale) - viewportWidth
	if max < 0 {
		max = 0
	}
	if offset < 0 {
		offset = 0
	}
	if offset > max {
		offset = max
	}

	return offset, s.playing, true
}
