package timeline

import "fmt"

// AddClip validates the clip and appends it to the arrangement.
func (t *Timeline) AddClip(c *Clip) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	if t.Clip(c.ID) != nil {
		return fmt.Errorf("%w: duplicate clip id %s", ErrValidation, c.ID)
	}
	if err := validateClip(c); err != nil {
		return err
	}
	if c.Layer == LayerVideo {
		t.Clips = append(t.Clips, c)
		if err := t.checkVideoOverlap(nil); err != nil {
			t.Clips = t.Clips[:len(t.Clips)-1]
			return err
		}
		return nil
	}
	t.Clips = append(t.Clips, c)
	return nil
}

// RemoveClip deletes the clip with the given id.
func (t *Timeline) RemoveClip(id string) error {
	for i, c := range t.Clips {
		if c.ID == id {
			t.Clips = append(t.Clips[:i], t.Clips[i+1:]...)
			return nil
		}
	}
	return ErrClipNotFound
}

// AddOverlay appends a text overlay after validating its time window.
func (t *Timeline) AddOverlay(o *TextOverlay) error {
	if o.ID == "" {
		o.ID = NewID()
	}
	if o.Duration <= 0 {
		return fmt.Errorf("%w: overlay duration must be positive", ErrValidation)
	}
	if o.Start < 0 {
		return fmt.Errorf("%w: overlay start must not be negative", ErrValidation)
	}
	t.Overlays = append(t.Overlays, o)
	return nil
}

// RemoveOverlay deletes the text overlay with the given id.
func (t *Timeline) RemoveOverlay(id string) error {
	for i, o := range t.Overlays {
		if o.ID == id {
			t.Overlays = append(t.Overlays[:i], t.Overlays[i+1:]...)
			return nil
		}
	}
	return ErrOverlayNotFound
}

// MoveClip shifts a clip by delta seconds, clamped so the clip never starts
// before zero. The move is rejected and the timeline left unchanged if it
// would overlap another video clip.
func (t *Timeline) MoveClip(id string, delta float64) error {
	c := t.Clip(id)
	if c == nil {
		return ErrClipNotFound
	}

	if c.Start+delta < 0 {
		delta = -c.Start
	}

	candidate := *c
	candidate.Start += delta
	candidate.End += delta

	if err := t.checkVideoOverlap(&candidate); err != nil {
		return err
	}

	c.Start = candidate.Start
	c.End = candidate.End
	return nil
}

// TrimLeft moves a clip's left edge to newStart. The source trim window
// advances by the same timeline delta, so the visible start of the media
// shifts with the edge.
func (t *Timeline) TrimLeft(id string, newStart float64) error {
	c := t.Clip(id)
	if c == nil {
		return ErrClipNotFound
	}

	newStart = clamp(newStart, 0, c.End-c.minDuration())
	// Extending left is bounded by the head room left in the source.
	if low := c.Start - c.TrimStart/c.sourceRate(); newStart < low {
		newStart = low
	}

	delta := newStart - c.Start

	candidate := *c
	candidate.Start = newStart
	candidate.TrimStart += delta * c.sourceRate()

	if err := validateClip(&candidate); err != nil {
		return err
	}
	if err := t.checkVideoOverlap(&candidate); err != nil {
		return err
	}

	*c = candidate
	return nil
}

// TrimRight moves a clip's right edge to newEnd, bounded by the source
// material remaining past the current trim window.
func (t *Timeline) TrimRight(id string, newEnd float64) error {
	c := t.Clip(id)
	if c == nil {
		return ErrClipNotFound
	}

	low := c.Start + c.minDuration()
	high := newEnd
	if c.SourceDuration > 0 {
		high = c.End + (c.SourceDuration-c.TrimEnd)/c.sourceRate()
	}
	newEnd = clamp(newEnd, low, high)

	delta := newEnd - c.End

	candidate := *c
	candidate.End = newEnd
	candidate.TrimEnd += delta * c.sourceRate()

	if err := validateClip(&candidate); err != nil {
		return err
	}
	if err := t.checkVideoOverlap(&candidate); err != nil {
		return err
	}

	*c = candidate
	return nil
}

// SplitClip replaces a clip with two children meeting exactly at the split
// point. Both children get fresh IDs; the split fails unless at lies
// strictly inside the clip's span.
func (t *Timeline) SplitClip(id string, at float64) (*Clip, *Clip, error) {
	c := t.Clip(id)
	if c == nil {
		return nil, nil, ErrClipNotFound
	}
	if at <= c.Start+timeEpsilon || at >= c.End-timeEpsilon {
		return nil, nil, fmt.Errorf("%w: split point %.3f outside clip span (%.3f, %.3f)",
			ErrValidation, at, c.Start, c.End)
	}

	trimAt := c.TrimStart + (at-c.Start)*c.sourceRate()

	first := *c
	first.ID = NewID()
	first.End = at
	first.TrimEnd = trimAt

	second := *c
	second.ID = NewID()
	second.Start = at
	second.TrimStart = trimAt

	if err := validateClip(&first); err != nil {
		return nil, nil, err
	}
	if err := validateClip(&second); err != nil {
		return nil, nil, err
	}

	for i, existing := range t.Clips {
		if existing.ID == id {
			t.Clips = append(t.Clips[:i], t.Clips[i+1:]...)
			break
		}
	}
	t.Clips = append(t.Clips, &first, &second)
	return &first, &second, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
