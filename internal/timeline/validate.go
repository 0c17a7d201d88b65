package timeline

import (
	"fmt"
	"sort"
)

// VideoClipsSorted returns the video-layer clips ordered by timeline start.
// Stored order is insertion order, so callers that need timeline order must
// go through here.
func (t *Timeline) VideoClipsSorted() []*Clip {
	var clips []*Clip
	for _, c := range t.Clips {
		if c.Layer == LayerVideo {
			clips = append(clips, c)
		}
	}
	sort.SliceStable(clips, func(i, j int) bool {
		return clips[i].Start < clips[j].Start
	})
	return clips
}

// Validate checks every timeline invariant: per-clip bounds and the
// video-layer non-overlap rule. It is used on load and before compiling.
func (t *Timeline) Validate() error {
	for _, c := range t.Clips {
		if err := validateClip(c); err != nil {
			return err
		}
	}
	for _, o := range t.Overlays {
		if o.Duration <= 0 {
			return fmt.Errorf("%w: overlay %s has non-positive duration", ErrValidation, o.ID)
		}
		if o.Start < 0 {
			return fmt.Errorf("%w: overlay %s starts before zero", ErrValidation, o.ID)
		}
	}
	if t.Filters.Brightness <= 0 || t.Filters.Contrast <= 0 || t.Filters.Saturation <= 0 {
		return fmt.Errorf("%w: filter factors must be positive multipliers", ErrValidation)
	}
	return t.checkVideoOverlap(nil)
}

func validateClip(c *Clip) error {
	if c.Start < 0 {
		return fmt.Errorf("%w: clip %s starts before zero", ErrValidation, c.ID)
	}
	if c.End-c.Start < c.minDuration()-timeEpsilon {
		return fmt.Errorf("%w: clip %s shorter than minimum duration", ErrValidation, c.ID)
	}
	if c.TrimStart < 0 || c.TrimEnd <= c.TrimStart {
		return fmt.Errorf("%w: clip %s has invalid trim window", ErrValidation, c.ID)
	}
	if c.SourceDuration > 0 && c.TrimEnd > c.SourceDuration+timeEpsilon {
		return fmt.Errorf("%w: clip %s trimmed past source duration", ErrValidation, c.ID)
	}
	return nil
}

// checkVideoOverlap verifies the video layer has no overlapping clips.
// If replace is non-nil it is substituted for the stored clip with the same
// ID, so candidate mutations can be checked before committing.
func (t *Timeline) checkVideoOverlap(replace *Clip) error {
	var clips []*Clip
	for _, c := range t.Clips {
		if replace != nil && c.ID == replace.ID {
			c = replace
		}
		if c.Layer == LayerVideo {
			clips = append(clips, c)
		}
	}
	sort.SliceStable(clips, func(i, j int) bool {
		return clips[i].Start < clips[j].Start
	})
	for i := 1; i < len(clips); i++ {
		prev, cur := clips[i-1], clips[i]
		if prev.End > cur.Start+timeEpsilon {
			return fmt.Errorf("%w: clips %s and %s overlap", ErrValidation, prev.ID, cur.ID)
		}
	}
	return nil
}
