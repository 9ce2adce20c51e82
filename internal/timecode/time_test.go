package timecode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddUsesCommonScale(t *testing.T) {
	a := New(1, 3)
	b := New(1, 6)
	sum := a.Add(b)
	assert.Equal(t, int64(1), sum.Value())
	assert.Equal(t, int64(2), sum.Scale())
}

func TestRepeatedAdditionDoesNotDrift(t *testing.T) {
	frame := New(1001, 30000)
	total := Zero
	for i := 0; i < 30000; i++ {
		total = total.Add(frame)
	}
	assert.True(t, total.Equal(FromSeconds(1001)), "got %s", total.Rational())

	for i := 0; i < 30000; i++ {
		total = total.Sub(frame)
	}
	assert.True(t, total.IsZero())
}

func TestCmpAcrossScales(t *testing.T) {
	assert.Equal(t, -1, New(1, 3).Cmp(New(1, 2)))
	assert.Equal(t, 1, New(2, 3).Cmp(New(1, 2)))
	assert.Equal(t, 0, New(2, 4).Cmp(New(1, 2)))
	assert.True(t, Time{}.Equal(Zero))
}

func TestMulByRationalFactor(t *testing.T) {
	half := FromSeconds(5).Mul(1, 2)
	assert.True(t, half.Equal(New(5, 2)))

	neg := FromSeconds(3).Mul(2, -3)
	assert.True(t, neg.Equal(FromSeconds(-2)))
}

func TestNewNormalizesSign(t *testing.T) {
	v := New(3, -6)
	assert.Equal(t, int64(-1), v.Value())
	assert.Equal(t, int64(2), v.Scale())
}

func TestNewPanicsOnZeroScale(t *testing.T) {
	assert.Panics(t, func() { New(1, 0) })
}

func TestOverflowPanicsInsteadOfWrapping(t *testing.T) {
	huge := New(1<<62, 1)
	assert.Panics(t, func() { huge.Add(huge) })
}

func TestParseDecimal(t *testing.T) {
	cases := map[string]Time{
		"12":         FromSeconds(12),
		"0.5":        New(1, 2),
		"-1.25":      New(-5, 4),
		"1.033367":   New(1033367, 1000000),
		"1001/30000": New(1001, 30000),
		".5":         New(1, 2),
	}
	for input, want := range cases {
		got, err := ParseDecimal(input)
		require.NoError(t, err, input)
		assert.True(t, got.Equal(want), "ParseDecimal(%q) = %s want %s", input, got.Rational(), want.Rational())
	}

	for _, bad := range []string{"", "-", "1.2.3", "abc", "1/0"} {
		_, err := ParseDecimal(bad)
		assert.ErrorIs(t, err, ErrInvalidTime, bad)
	}
}

func TestParseDecimalFractionDigits(t *testing.T) {
	got, err := ParseDecimal("1.123456789")
	require.NoError(t, err)
	assert.True(t, got.Equal(New(1123456789, 1000000000)))

	got, err = ParseDecimal("2.50000000000000")
	require.NoError(t, err, "trailing zeros are not significant")
	assert.True(t, got.Equal(New(5, 2)))

	got, err = ParseDecimal("-.0")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	for _, bad := range []string{"1.1234567891", "0.000000000000000001", "3.14159265358979323"} {
		_, err := ParseDecimal(bad)
		assert.ErrorIs(t, err, ErrInvalidTime, bad)
	}
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock("1:02.5")
	require.NoError(t, err)
	assert.True(t, got.Equal(New(125, 2)))

	got, err = ParseClock("1:00:01")
	require.NoError(t, err)
	assert.True(t, got.Equal(FromSeconds(3601)))

	got, err = ParseClock("7")
	require.NoError(t, err)
	assert.True(t, got.Equal(FromSeconds(7)))

	_, err = ParseClock("1:75")
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestDecimalFormatting(t *testing.T) {
	assert.Equal(t, "5.5", New(11, 2).Decimal(3))
	assert.Equal(t, "0.333", New(1, 3).Decimal(3))
	assert.Equal(t, "0.667", New(2, 3).Decimal(3))
	assert.Equal(t, "-0.5", New(-1, 2).Decimal(3))
	assert.Equal(t, "2", FromSeconds(2).Decimal(6))
	assert.Equal(t, "5.5s", New(11, 2).String())
}

func TestDurationConversion(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, New(3, 2).Duration())
	assert.True(t, FromDuration(250*time.Millisecond).Equal(New(1, 4)))
}

func TestTextRoundTripKeepsExactValue(t *testing.T) {
	orig := New(1001, 30000)
	text, err := orig.MarshalText()
	require.NoError(t, err)

	var decoded Time
	require.NoError(t, decoded.UnmarshalText(text))
	assert.True(t, decoded.Equal(orig))
}
