package playback

import (
	"math"
	"testing"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

func stateWithClip(t *testing.T, start, end float64) *State {
	t.Helper()
	tl := timeline.New()
	err := tl.AddClip(&timeline.Clip{
		ID: "a", SourceID: "src", Layer: timeline.LayerVideo,
		Start: start, End: end,
		TrimStart: 0, TrimEnd: end - start, SourceDuration: end - start,
	})
	if err != nil {
		t.Fatalf("AddClip() error = %v", err)
	}
	return NewState(tl)
}

func TestSeek_PausesFirst(t *testing.T) {
	s := stateWithClip(t, 0, 10)
	s.Play()

	s.Seek(4)

	if s.IsPlaying() {
		t.Error("IsPlaying() after seek = true, want false")
	}
	if s.CurrentTime() != 4 {
		t.Errorf("CurrentTime() = %.2f, want 4.00", s.CurrentTime())
	}
}

func TestSeek_ClampsToTimeline(t *testing.T) {
	s := stateWithClip(t, 0, 10)

	s.Seek(-5)
	if s.CurrentTime() != 0 {
		t.Errorf("CurrentTime() after negative seek = %.2f, want 0", s.CurrentTime())
	}

	s.Seek(100)
	if s.CurrentTime() != 10 {
		t.Errorf("CurrentTime() after overshoot seek = %.2f, want 10", s.CurrentTime())
	}
}

func TestTick_AdvancesAndStopsAtEnd(t *testing.T) {
	s := stateWithClip(t, 0, 10)
	s.Play()

	s.Tick(2.5)
	if math.Abs(s.CurrentTime()-2.5) > 1e-9 {
		t.Errorf("CurrentTime() = %.2f, want 2.50", s.CurrentTime())
	}

	s.Tick(100)
	if s.CurrentTime() != 10 {
		t.Errorf("CurrentTime() at end = %.2f, want 10", s.CurrentTime())
	}
	if s.IsPlaying() {
		t.Error("IsPlaying() at end = true, want false")
	}
}

func TestTick_NoopWhilePaused(t *testing.T) {
	s := stateWithClip(t, 0, 10)

	s.Tick(5)
	if s.CurrentTime() != 0 {
		t.Errorf("CurrentTime() while paused = %.2f, want 0", s.CurrentTime())
	}
}

func TestPlay_RestartsFromEnd(t *testing.T) {
	s := stateWithClip(t, 0, 10)
	s.Seek(10)

	s.Play()
	if s.CurrentTime() != 0 {
		t.Errorf("CurrentTime() after replay = %.2f, want 0", s.CurrentTime())
	}
}

func TestSyncScroll_CentersPlayhead(t *testing.T) {
	s := stateWithClip(t, 0, 60) // content 6000px at scale 100
	s.Seek(30)

	offset, smooth, ok := s.SyncScroll(100, 800)
	if !ok {
		t.Fatal("SyncScroll() ok = false, want true")
	}
	if offset != 30*100-400 {
		t.Errorf("offset = %.0f, want 2600", offset)
	}
	if smooth {
		t.Error("smooth = true while paused, want immediate")
	}
}

func TestSyncScroll_SmoothOnlyDuringAutoplay(t *testing.T) {
	s := stateWithClip(t, 0, 60)
	s.Play()
	s.Tick(30)

	_, smooth, ok := s.SyncScroll(100, 800)
	if !ok || !smooth {
		t.Errorf("SyncScroll() smooth=%v ok=%v, want smooth during autoplay", smooth, ok)
	}
}

func TestSyncScroll_ClampsToContent(t *testing.T) {
	s := stateWithClip(t, 0, 10) // content 1000px at scale 100

	s.Seek(0.5)
	offset, _, _ := s.SyncScroll(100, 800)
	if offset != 0 {
		t.Errorf("offset near origin = %.0f, want clamp at 0", offset)
	}

	s.Seek(9.9)
	offset, _, _ = s.SyncScroll(100, 800)
	if offset != 200 {
		t.Errorf("offset near end = %.0f, want clamp at 200", offset)
	}
}

func TestSyncScroll_SuspendedWhileScrubbing(t *testing.T) {
	s := stateWithClip(t, 0, 10)

	s.Suspend()
	if _, _, ok := s.SyncScroll(100, 800); ok {
		t.Error("SyncScroll() ok = true while suspended, want false")
	}

	s.Resume()
	if _, _, ok := s.SyncScroll(100, 800); !ok {
		t.Error("SyncScroll() ok = false after resume, want true")
	}
}
