// Package keyframe finds safe cut points in video tracks.
//
// A Set holds the presentation instants of a track's keyframes. Nearest
// implements the cut policy used by the editor: pick the closest keyframe,
// but when the query already sits on one (within Epsilon) move on to the
// next keyframe after it. Snap is the plain closest-keyframe search used to
// align extraction ranges.
package keyframe

import (
	"sort"

	"splicer/internal/timecode"
)

// Direction restricts which keyframes a query may return.
type Direction int

const (
	// DirectionAny considers keyframes before and after the query.
	DirectionAny Direction = iota
	// DirectionForward only considers keyframes at or after the query.
	DirectionForward
)

func (d Direction) String() string {
	if d == DirectionForward {
		return "forward"
	}
	return "any"
}

var (
	// DefaultInterval spaces inferred keyframes when a track exposes none.
	DefaultInterval = timecode.New(1, 2)
	// DefaultEpsilon is the distance under which a query counts as aligned.
	DefaultEpsilon = timecode.FromMillis(1)
)

// Set is a strictly increasing list of keyframe instants.
type Set struct {
	Times []timecode.Time
	// Inferred marks a synthetic set spaced Interval apart.
	Inferred bool
	Interval timecode.Time
	// Epsilon overrides DefaultEpsilon when positive.
	Epsilon timecode.Time
	// Packets is how many packets the scan read.
	Packets int
}

// NewSet sorts and de-duplicates times.
func NewSet(times []timecode.Time) Set {
	sorted := append([]timecode.Time(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	out := sorted[:0]
	for i, t := range sorted {
		if i > 0 && t.Equal(out[len(out)-1]) {
			continue
		}
		out = append(out, t)
	}
	return Set{Times: out}
}

// Inferred returns keyframes every interval from zero up to, but excluding,
// duration.
func Inferred(duration, interval timecode.Time) Set {
	if interval.Sign() <= 0 {
		interval = DefaultInterval
	}
	var times []timecode.Time
	for t := timecode.Zero; t.Less(duration); t = t.Add(interval) {
		times = append(times, t)
	}
	return Set{Times: times, Inferred: true, Interval: interval}
}

// Len is the number of keyframes.
func (s Set) Len() int { return len(s.Times) }

func (s Set) epsilon() timecode.Time {
	if s.Epsilon.Sign() > 0 {
		return s.Epsilon
	}
	return DefaultEpsilon
}

// Nearest returns the keyframe closest to t, earliest on ties. When that
// keyframe is within Epsilon of t the first keyframe strictly after t is
// returned instead, if there is one. DirectionForward only considers
// keyframes at or after t and falls back to the last keyframe when none is.
// An empty set returns t unchanged.
func (s Set) Nearest(t timecode.Time, dir Direction) timecode.Time {
	nearest, ok := s.closest(t, dir)
	if !ok {
		return t
	}
	if nearest.Sub(t).Abs().Less(s.epsilon()) {
		if next, ok := s.after(t); ok {
			return next
		}
	}
	return nearest
}

// Snap returns the closest keyframe to t without the snap-forward rule.
// Snap(Snap(t)) == Snap(t).
func (s Set) Snap(t timecode.Time, dir Direction) timecode.Time {
	nearest, ok := s.closest(t, dir)
	if !ok {
		return t
	}
	return nearest
}

func (s Set) closest(t timecode.Time, dir Direction) (timecode.Time, bool) {
	n := len(s.Times)
	if n == 0 {
		return timecode.Time{}, false
	}
	// First index with Times[i] >= t.
	i := sort.Search(n, func(i int) bool { return !s.Times[i].Less(t) })

	if dir == DirectionForward {
		if i == n {
			return s.Times[n-1], true
		}
		return s.Times[i], true
	}

	switch {
	case i == 0:
		return s.Times[0], true
	case i == n:
		return s.Times[n-1], true
	}
	before, after := s.Times[i-1], s.Times[i]
	if after.Sub(t).Less(t.Sub(before)) {
		return after, true
	}
	return before, true
}

// after returns the first keyframe strictly after t.
func (s Set) after(t timecode.Time) (timecode.Time, bool) {
	i := sort.Search(len(s.Times), func(i int) bool { return t.Less(s.Times[i]) })
	if i == len(s.Times) {
		return timecode.Time{}, false
	}
	return s.Times[i], true
}
