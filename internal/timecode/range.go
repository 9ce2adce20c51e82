package timecode

import (
	"errors"
	"fmt"
)

// ErrInvalidTimeRange is returned when a range would have a negative duration.
var ErrInvalidTimeRange = errors.New("invalid time range")

// Range is a half-open span [Start, Start+Duration). A zero duration range is
// valid and represents an instant.
type Range struct {
	Start    Time `json:"start"`
	Duration Time `json:"duration"`
}

// NewRange validates duration >= 0.
func NewRange(start, duration Time) (Range, error) {
	if duration.IsNegative() {
		return Range{}, fmt.Errorf("%w: duration %s is negative", ErrInvalidTimeRange, duration)
	}
	return Range{Start: start, Duration: duration}, nil
}

// RangeFromTo builds [start, end). It fails when end < start.
func RangeFromTo(start, end Time) (Range, error) {
	if end.Less(start) {
		return Range{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidTimeRange, end, start)
	}
	return Range{Start: start, Duration: end.Sub(start)}, nil
}

// MustRange is NewRange for literals known to be valid.
func MustRange(start, duration Time) Range {
	r, err := NewRange(start, duration)
	if err != nil {
		panic(err)
	}
	return r
}

// End returns Start + Duration.
func (r Range) End() Time {
	return r.Start.Add(r.Duration)
}

// IsEmpty reports a zero-duration range.
func (r Range) IsEmpty() bool {
	return r.Duration.IsZero()
}

// Contains reports Start <= t < End.
func (r Range) Contains(t Time) bool {
	return r.Start.LessEq(t) && t.Less(r.End())
}

// Overlaps reports whether the two half-open ranges share any instant.
func (r Range) Overlaps(o Range) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.Start.Less(o.End()) && o.Start.Less(r.End())
}

// Intersect returns the shared part of r and o, and false when disjoint.
func (r Range) Intersect(o Range) (Range, bool) {
	start := Max(r.Start, o.Start)
	end := Min(r.End(), o.End())
	if !start.Less(end) {
		return Range{}, false
	}
	return Range{Start: start, Duration: end.Sub(start)}, true
}

// Shift moves the range by d.
func (r Range) Shift(d Time) Range {
	return Range{Start: r.Start.Add(d), Duration: r.Duration}
}

// Equal reports exact equality of start and duration.
func (r Range) Equal(o Range) bool {
	return r.Start.Equal(o.Start) && r.Duration.Equal(o.Duration)
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End())
}
