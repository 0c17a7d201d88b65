package timeline

import (
	"errors"
	"math"
	"testing"
)

func testClip(id string, start, end float64) *Clip {
	return &Clip{
		ID:             id,
		SourceID:       "src-" + id,
		Layer:          LayerVideo,
		Start:          start,
		End:            end,
		TrimStart:      0,
		TrimEnd:        end - start,
		SourceDuration: end - start,
	}
}

func TestAddClip_RejectsOverlap(t *testing.T) {
	tl := New()
	if err := tl.AddClip(testClip("a", 0, 5)); err != nil {
		t.Fatalf("AddClip(a) error = %v", err)
	}

	err := tl.AddClip(testClip("b", 4, 8))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("AddClip(overlapping) error = %v, want ErrValidation", err)
	}
	if len(tl.Clips) != 1 {
		t.Errorf("clip count after rejected add = %d, want 1", len(tl.Clips))
	}
}

func TestAddClip_AdjacentClipsAllowed(t *testing.T) {
	tl := New()
	if err := tl.AddClip(testClip("a", 0, 5)); err != nil {
		t.Fatalf("AddClip(a) error = %v", err)
	}
	if err := tl.AddClip(testClip("b", 5, 8)); err != nil {
		t.Errorf("AddClip(adjacent) error = %v, want nil", err)
	}
}

func TestMoveClip_ClampsToZero(t *testing.T) {
	tl := New()
	tl.AddClip(testClip("a", 2, 5))

	if err := tl.MoveClip("a", -10); err != nil {
		t.Fatalf("MoveClip() error = %v", err)
	}

	c := tl.Clip("a")
	if c.Start != 0 || c.End != 3 {
		t.Errorf("clip after clamped move = [%.2f, %.2f), want [0.00, 3.00)", c.Start, c.End)
	}
}

func TestMoveClip_RejectsOverlapAndRestores(t *testing.T) {
	tl := New()
	tl.AddClip(testClip("a", 0, 5))
	tl.AddClip(testClip("b", 6, 9))

	err := tl.MoveClip("b", -3)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("MoveClip(into overlap) error = %v, want ErrValidation", err)
	}

	b := tl.Clip("b")
	if b.Start != 6 || b.End != 9 {
		t.Errorf("clip after rejected move = [%.2f, %.2f), want [6.00, 9.00)", b.Start, b.End)
	}
	if err := tl.Validate(); err != nil {
		t.Errorf("Validate() after rejected move = %v", err)
	}
}

func TestMoveClip_NotFound(t *testing.T) {
	tl := New()
	if err := tl.MoveClip("missing", 1); !errors.Is(err, ErrClipNotFound) {
		t.Errorf("MoveClip(missing) error = %v, want ErrClipNotFound", err)
	}
}

func TestTrimLeft_ShiftsSourceWindow(t *testing.T) {
	tl := New()
	tl.AddClip(testClip("a", 0, 10))

	if err := tl.TrimLeft("a", 2); err != nil {
		t.Fatalf("TrimLeft() error = %v", err)
	}

	c := tl.Clip("a")
	if c.Start != 2 {
		t.Errorf("Start = %.2f, want 2.00", c.Start)
	}
	if math.Abs(c.TrimStart-2) > 1e-9 {
		t.Errorf("TrimStart = %.2f, want 2.00", c.TrimStart)
	}
	if c.TrimEnd != 10 {
		t.Errorf("TrimEnd = %.2f, want 10.00", c.TrimEnd)
	}
}

func TestTrimLeft_ClampsAtMinDuration(t *testing.T) {
	tl := New()
	tl.AddClip(testClip("a", 0, 10))

	// Requesting a start past the right edge clamps to end - minDuration.
	if err := tl.TrimLeft("a", 20); err != nil {
		t.Fatalf("TrimLeft() error = %v", err)
	}

	c := tl.Clip("a")
	if got := c.End - c.Start; got < DefaultMinDuration-1e-9 {
		t.Errorf("duration after trim = %.4f, below minimum %.2f", got, DefaultMinDuration)
	}
}

func TestTrimLeft_CannotExtendPastSourceHead(t *testing.T) {
	tl := New()
	c := testClip("a", 5, 10)
	c.TrimStart = 2
	c.TrimEnd = 7
	c.SourceDuration = 7
	tl.AddClip(c)

	// Only two seconds of head room exist in the source.
	if err := tl.TrimLeft("a", 0); err != nil {
		t.Fatalf("TrimLeft() error = %v", err)
	}

	got := tl.Clip("a")
	if math.Abs(got.Start-3) > 1e-9 {
		t.Errorf("Start = %.2f, want 3.00 (bounded by source head room)", got.Start)
	}
	if math.Abs(got.TrimStart) > 1e-9 {
		t.Errorf("TrimStart = %.2f, want 0.00", got.TrimStart)
	}
}

func TestTrimRight_BoundedBySource(t *testing.T) {
	tl := New()
	c := testClip("a", 0, 5)
	c.SourceDuration = 8
	tl.AddClip(c)

	if err := tl.TrimRight("a", 100); err != nil {
		t.Fatalf("TrimRight() error = %v", err)
	}

	got := tl.Clip("a")
	if math.Abs(got.End-8) > 1e-9 {
		t.Errorf("End = %.2f, want 8.00 (bounded by source duration)", got.End)
	}
	if math.Abs(got.TrimEnd-8) > 1e-9 {
		t.Errorf("TrimEnd = %.2f, want 8.00", got.TrimEnd)
	}
}

func TestTrimRight_MinDurationFloor(t *testing.T) {
	tl := New()
	tl.AddClip(testClip("a", 0, 5))

	if err := tl.TrimRight("a", 0.01); err != nil {
		t.Fatalf("TrimRight() error = %v", err)
	}

	c := tl.Clip("a")
	if got := c.End - c.Start; got < DefaultMinDuration-1e-9 {
		t.Errorf("duration after trim = %.4f, below minimum %.2f", got, DefaultMinDuration)
	}
}

func TestTrimRight_RejectsOverlapAndRestores(t *testing.T) {
	tl := New()
	a := testClip("a", 0, 5)
	a.SourceDuration = 20
	tl.AddClip(a)
	tl.AddClip(testClip("b", 6, 9))

	err := tl.TrimRight("a", 7)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("TrimRight(into overlap) error = %v, want ErrValidation", err)
	}
	if got := tl.Clip("a"); got.End != 5 || got.TrimEnd != 5 {
		t.Errorf("clip after rejected trim = end %.2f trimEnd %.2f, want 5.00 / 5.00", got.End, got.TrimEnd)
	}
}

func TestSplitClip_ChildrenMeetExactly(t *testing.T) {
	tl := New()
	tl.AddClip(testClip("a", 0, 10))

	first, second, err := tl.SplitClip("a", 4.0)
	if err != nil {
		t.Fatalf("SplitClip() error = %v", err)
	}

	if first.Start != 0 || first.End != 4 {
		t.Errorf("first child span = [%.2f, %.2f), want [0.00, 4.00)", first.Start, first.End)
	}
	if second.Start != 4 || second.End != 10 {
		t.Errorf("second child span = [%.2f, %.2f), want [4.00, 10.00)", second.Start, second.End)
	}
	if first.End != second.Start {
		t.Error("children do not meet at the split point")
	}
	if first.TrimEnd != second.TrimStart {
		t.Errorf("trim windows do not meet: first.TrimEnd=%.4f second.TrimStart=%.4f",
			first.TrimEnd, second.TrimStart)
	}
	if first.ID == "a" || second.ID == "a" || first.ID == second.ID {
		t.Error("children must have fresh distinct ids")
	}
	if tl.Clip("a") != nil {
		t.Error("original clip still present after split")
	}
	if err := tl.Validate(); err != nil {
		t.Errorf("Validate() after split = %v", err)
	}
}

func TestSplitClip_ReMergeReconstructsSpan(t *testing.T) {
	tl := New()
	c := testClip("a", 3, 11)
	c.TrimStart = 1
	c.TrimEnd = 9
	c.SourceDuration = 12
	tl.AddClip(c)

	first, second, err := tl.SplitClip("a", 6.5)
	if err != nil {
		t.Fatalf("SplitClip() error = %v", err)
	}

	if first.Start != 3 || second.End != 11 {
		t.Errorf("merged span = [%.2f, %.2f), want [3.00, 11.00)", first.Start, second.End)
	}
	if first.TrimStart != 1 || second.TrimEnd != 9 {
		t.Errorf("merged trim window = [%.2f, %.2f), want [1.00, 9.00)", first.TrimStart, second.TrimEnd)
	}
}

func TestSplitClip_OutsideSpan(t *testing.T) {
	tl := New()
	tl.AddClip(testClip("a", 2, 8))

	for _, at := range []float64{1.0, 2.0, 8.0, 9.0} {
		if _, _, err := tl.SplitClip("a", at); !errors.Is(err, ErrValidation) {
			t.Errorf("SplitClip(at=%.1f) error = %v, want ErrValidation", at, err)
		}
	}
	if len(tl.Clips) != 1 || tl.Clip("a") == nil {
		t.Error("timeline changed by rejected split")
	}
}

func TestRemoveClip(t *testing.T) {
	tl := New()
	tl.AddClip(testClip("a", 0, 5))

	if err := tl.RemoveClip("a"); err != nil {
		t.Fatalf("RemoveClip() error = %v", err)
	}
	if len(tl.Clips) != 0 {
		t.Errorf("clip count = %d, want 0", len(tl.Clips))
	}
	if err := tl.RemoveClip("a"); !errors.Is(err, ErrClipNotFound) {
		t.Errorf("RemoveClip(missing) error = %v, want ErrClipNotFound", err)
	}
}

func TestAddOverlay_Validation(t *testing.T) {
	tl := New()

	if err := tl.AddOverlay(&TextOverlay{Content: "hi", Start: 1, Duration: 2}); err != nil {
		t.Errorf("AddOverlay(valid) error = %v", err)
	}
	if err := tl.AddOverlay(&TextOverlay{Content: "bad", Start: 1, Duration: 0}); !errors.Is(err, ErrValidation) {
		t.Errorf("AddOverlay(zero duration) error = %v, want ErrValidation", err)
	}
	if err := tl.AddOverlay(&TextOverlay{Content: "bad", Start: -1, Duration: 2}); !errors.Is(err, ErrValidation) {
		t.Errorf("AddOverlay(negative start) error = %v, want ErrValidation", err)
	}
}

func TestRemoveOverlay(t *testing.T) {
	tl := New()
	o := &TextOverlay{Content: "hi", Start: 1, Duration: 2}
	tl.AddOverlay(o)

	if err := tl.RemoveOverlay(o.ID); err != nil {
		t.Fatalf("RemoveOverlay() error = %v", err)
	}
	if len(tl.Overlays) != 0 {
		t.Errorf("overlay count = %d, want 0", len(tl.Overlays))
	}
	if err := tl.RemoveOverlay(o.ID); !errors.Is(err, ErrOverlayNotFound) {
		t.Errorf("RemoveOverlay(missing) error = %v, want ErrOverlayNotFound", err)
	}
}

func TestTimeline_Duration(t *testing.T) {
	tl := New()
	if tl.Duration() != 0 {
		t.Errorf("empty timeline duration = %.2f, want 0", tl.Duration())
	}

	tl.AddClip(testClip("a", 0, 5))
	tl.AddOverlay(&TextOverlay{Content: "late", Start: 6, Duration: 3})

	if tl.Duration() != 9 {
		t.Errorf("Duration() = %.2f, want 9.00 (overlay extends past clips)", tl.Duration())
	}
}

func TestVideoClipsSorted_IgnoresInsertionOrder(t *testing.T) {
	tl := New()
	tl.AddClip(testClip("late", 10, 15))
	tl.AddClip(testClip("early", 0, 5))

	sorted := tl.VideoClipsSorted()
	if len(sorted) != 2 || sorted[0].ID != "early" || sorted[1].ID != "late" {
		t.Errorf("VideoClipsSorted() order wrong: got %v", []string{sorted[0].ID, sorted[1].ID})
	}
}
