package keyframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splicer/internal/timecode"
)

func secs(v int64, scale int64) timecode.Time { return timecode.New(v, scale) }

func gopSet() Set {
	// Keyframes every 2s on a 1/15360 time base.
	return NewSet([]timecode.Time{
		secs(0, 1), secs(2, 1), secs(4, 1), secs(6, 1), secs(8, 1),
	})
}

func TestNewSetSortsAndDedupes(t *testing.T) {
	set := NewSet([]timecode.Time{secs(4, 1), secs(0, 1), secs(8, 2), secs(2, 1)})
	require.Equal(t, 3, set.Len())
	assert.True(t, set.Times[0].IsZero())
	assert.True(t, set.Times[1].Equal(secs(2, 1)))
	assert.True(t, set.Times[2].Equal(secs(4, 1)))
}

func TestNearestPicksClosest(t *testing.T) {
	set := gopSet()
	assert.True(t, set.Nearest(secs(27, 10), DirectionAny).Equal(secs(2, 1)))
	assert.True(t, set.Nearest(secs(33, 10), DirectionAny).Equal(secs(4, 1)))
	assert.True(t, set.Nearest(secs(100, 1), DirectionAny).Equal(secs(8, 1)))
}

func TestNearestTieGoesEarliest(t *testing.T) {
	set := gopSet()
	assert.True(t, set.Nearest(secs(3, 1), DirectionAny).Equal(secs(2, 1)))
}

func TestNearestSnapsForwardWhenAligned(t *testing.T) {
	set := gopSet()

	// Exactly on a keyframe: move on to the next one.
	assert.True(t, set.Nearest(secs(4, 1), DirectionAny).Equal(secs(6, 1)))

	// Within 1ms before a keyframe: that keyframe is strictly after t.
	assert.True(t, set.Nearest(secs(39995, 10000), DirectionAny).Equal(secs(4, 1)))

	// Within 1ms after a keyframe: the following keyframe.
	assert.True(t, set.Nearest(secs(40005, 10000), DirectionAny).Equal(secs(6, 1)))

	// Just outside epsilon keeps the nearest.
	assert.True(t, set.Nearest(secs(4002, 1000), DirectionAny).Equal(secs(4, 1)))

	// Aligned on the last keyframe with nothing after it.
	assert.True(t, set.Nearest(secs(8, 1), DirectionAny).Equal(secs(8, 1)))
}

func TestNearestForward(t *testing.T) {
	set := gopSet()
	assert.True(t, set.Nearest(secs(21, 10), DirectionForward).Equal(secs(4, 1)))
	assert.True(t, set.Nearest(secs(6, 1), DirectionForward).Equal(secs(8, 1)))
	assert.True(t, set.Nearest(secs(9, 1), DirectionForward).Equal(secs(8, 1)), "falls back to the last keyframe")
}

func TestNearestEmptySetReturnsQuery(t *testing.T) {
	q := secs(7, 3)
	assert.True(t, Set{}.Nearest(q, DirectionAny).Equal(q))
	assert.True(t, Set{}.Snap(q, DirectionForward).Equal(q))
}

func TestSnapIsIdempotent(t *testing.T) {
	set := gopSet()
	for _, q := range []timecode.Time{secs(0, 1), secs(27, 10), secs(3, 1), secs(4, 1), secs(79, 10), secs(12, 1)} {
		for _, dir := range []Direction{DirectionAny, DirectionForward} {
			g := set.Snap(q, dir)
			assert.True(t, set.Snap(g, dir).Equal(g), "snap(%s, %s)", q, dir)
		}
	}
}

func TestNearestResultReSnapsToItself(t *testing.T) {
	set := gopSet()
	g := set.Nearest(secs(27, 10), DirectionAny)
	assert.True(t, set.Snap(g, DirectionAny).Equal(g))
}

func TestInferredSetBoundsDistance(t *testing.T) {
	duration := secs(1001, 100)
	set := Inferred(duration, DefaultInterval)
	require.True(t, set.Inferred)
	assert.Equal(t, 21, set.Len())
	assert.True(t, set.Times[set.Len()-1].Equal(secs(10, 1)))

	step := timecode.New(1, 300)
	for q := timecode.Zero; q.LessEq(set.Times[set.Len()-1]); q = q.Add(step) {
		for _, dir := range []Direction{DirectionAny, DirectionForward} {
			g := set.Nearest(q, dir)
			assert.True(t, g.Sub(q).Abs().LessEq(DefaultInterval), "query %s returned %s", q, g)
		}
	}
}

func TestInferredExcludesDuration(t *testing.T) {
	set := Inferred(secs(2, 1), secs(1, 2))
	assert.Equal(t, 4, set.Len())
	assert.True(t, set.Times[3].Equal(secs(3, 2)))

	assert.Equal(t, 0, Inferred(timecode.Zero, DefaultInterval).Len())
}
