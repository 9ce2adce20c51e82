// Package timecode implements exact rational presentation time.
//
// A Time is value/scale seconds. Values are kept reduced and all arithmetic is
// carried out on a common scale (the least common multiple of the operands),
// so repeated additions never drift the way float64 seconds do. Seconds() is
// provided for display only; cut decisions must use Cmp and friends.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTime is returned when parsing a malformed time literal.
var ErrInvalidTime = errors.New("invalid time")

// Time is a point (or length) on a presentation timeline measured in seconds
// as the rational value/scale. The zero value is 0 seconds.
type Time struct {
	value int64
	scale int64
}

// Zero is time 0.
var Zero = Time{value: 0, scale: 1}

// New returns value/scale seconds. It panics if scale is zero.
func New(value, scale int64) Time {
	if scale == 0 {
		panic("timecode: zero scale")
	}
	if scale < 0 {
		value, scale = -value, -scale
	}
	return reduce(value, scale)
}

// FromSeconds returns a whole number of seconds.
func FromSeconds(seconds int64) Time {
	return Time{value: seconds, scale: 1}
}

// FromMillis returns ms milliseconds.
func FromMillis(ms int64) Time {
	return New(ms, 1000)
}

// FromDuration converts a wall-clock duration exactly (nanosecond scale).
func FromDuration(d time.Duration) Time {
	return New(int64(d), int64(time.Second))
}

// Value is the reduced numerator.
func (t Time) Value() int64 { return t.value }

// Scale is the reduced denominator, always > 0.
func (t Time) Scale() int64 {
	if t.scale == 0 {
		return 1
	}
	return t.scale
}

// Add returns t + o.
func (t Time) Add(o Time) Time {
	ts, os := t.Scale(), o.Scale()
	if ts == os {
		return reduce(checkedAdd(t.value, o.value), ts)
	}
	l := lcm(ts, os)
	a := checkedMul(t.value, l/ts)
	b := checkedMul(o.value, l/os)
	return reduce(checkedAdd(a, b), l)
}

// Sub returns t - o.
func (t Time) Sub(o Time) Time {
	return t.Add(o.Neg())
}

// Neg returns -t.
func (t Time) Neg() Time {
	if t.value == math.MinInt64 {
		panic("timecode: overflow")
	}
	return Time{value: -t.value, scale: t.Scale()}
}

// Abs returns |t|.
func (t Time) Abs() Time {
	if t.value < 0 {
		return t.Neg()
	}
	return Time{value: t.value, scale: t.Scale()}
}

// Mul scales t by the rational factor num/den.
func (t Time) Mul(num, den int64) Time {
	if den == 0 {
		panic("timecode: zero scale factor denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	v, s := t.value, t.Scale()
	// Cross-reduce before multiplying to keep intermediates small.
	if g := gcd(abs(v), den); g > 1 {
		v, den = v/g, den/g
	}
	if g := gcd(abs(num), s); g > 1 {
		num, s = num/g, s/g
	}
	return reduce(checkedMul(v, num), checkedMul(s, den))
}

// Sign returns -1, 0 or +1.
func (t Time) Sign() int {
	switch {
	case t.value < 0:
		return -1
	case t.value > 0:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether t is exactly zero.
func (t Time) IsZero() bool { return t.value == 0 }

// IsNegative reports whether t < 0.
func (t Time) IsNegative() bool { return t.value < 0 }

// Cmp compares t and o and returns -1, 0 or +1.
func (t Time) Cmp(o Time) int {
	if t.Scale() == o.Scale() {
		switch {
		case t.value < o.value:
			return -1
		case t.value > o.value:
			return 1
		default:
			return 0
		}
	}
	return t.Sub(o).Sign()
}

// Equal reports exact equality.
func (t Time) Equal(o Time) bool { return t.Cmp(o) == 0 }

// Less reports t < o.
func (t Time) Less(o Time) bool { return t.Cmp(o) < 0 }

// LessEq reports t <= o.
func (t Time) LessEq(o Time) bool { return t.Cmp(o) <= 0 }

// Min returns the smaller of a and b.
func Min(a, b Time) Time {
	if b.Less(a) {
		return b
	}
	return a
}

// Max returns the larger of a and b.
func Max(a, b Time) Time {
	if a.Less(b) {
		return b
	}
	return a
}

// Seconds converts to float64 seconds. Display and encoder arguments only.
func (t Time) Seconds() float64 {
	return float64(t.value) / float64(t.Scale())
}

// Duration converts to a time.Duration, truncating below a nanosecond.
func (t Time) Duration() time.Duration {
	return time.Duration(t.Mul(int64(time.Second), 1).Floor())
}

// Floor returns the largest integer <= t.
func (t Time) Floor() int64 {
	s := t.Scale()
	q := t.value / s
	if t.value%s != 0 && t.value < 0 {
		q--
	}
	return q
}

// Round returns t rounded to the nearest multiple of 1/scale, halves away
// from zero.
func (t Time) Round(scale int64) Time {
	if scale <= 0 {
		panic("timecode: non-positive rounding scale")
	}
	scaled := t.Mul(scale, 1)
	s := scaled.Scale()
	q, r := scaled.value/s, scaled.value%s
	if 2*abs(r) >= s {
		if scaled.value < 0 {
			q--
		} else {
			q++
		}
	}
	return New(q, scale)
}

// Decimal formats t in seconds with at most places fractional digits,
// rounding halves away from zero and trimming trailing zeros.
func (t Time) Decimal(places int) string {
	if places < 0 {
		places = 0
	}
	pow := int64(1)
	for i := 0; i < places; i++ {
		pow *= 10
	}
	r := t.Round(pow)
	v := r.Mul(pow, 1).value
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / pow
	frac := v % pow
	if places == 0 || frac == 0 {
		return sign + strconv.FormatInt(whole, 10)
	}
	fs := strconv.FormatInt(frac, 10)
	fs = strings.Repeat("0", places-len(fs)) + fs
	fs = strings.TrimRight(fs, "0")
	return sign + strconv.FormatInt(whole, 10) + "." + fs
}

// String renders seconds with microsecond precision.
func (t Time) String() string {
	return t.Decimal(6) + "s"
}

// Rational renders value/scale.
func (t Time) Rational() string {
	return strconv.FormatInt(t.value, 10) + "/" + strconv.FormatInt(t.Scale(), 10)
}

// MarshalText encodes t as value/scale.
func (t Time) MarshalText() ([]byte, error) {
	return []byte(t.Rational()), nil
}

// UnmarshalText accepts value/scale or a decimal seconds literal.
func (t *Time) UnmarshalText(text []byte) error {
	parsed, err := ParseDecimal(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MaxFractionDigits bounds the significant decimals ParseDecimal accepts.
const MaxFractionDigits = 9

// ParseDecimal parses "12", "-1.033367" or "1001/30000" exactly. Decimal
// literals resolve to at most nanoseconds; trailing zeros do not count.
func ParseDecimal(value string) (Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Time{}, fmt.Errorf("%w: empty", ErrInvalidTime)
	}
	if num, den, ok := strings.Cut(value, "/"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		if err != nil {
			return Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
		}
		d, err := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
		if err != nil || d == 0 {
			return Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
		}
		return New(n, d), nil
	}

	negative := false
	body := value
	switch body[0] {
	case '-':
		negative = true
		body = body[1:]
	case '+':
		body = body[1:]
	}
	whole, frac, _ := strings.Cut(body, ".")
	if whole == "" && frac == "" {
		return Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	if strings.TrimLeft(whole+frac, "0123456789") != "" {
		return Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	frac = strings.TrimRight(frac, "0")
	if len(frac) > MaxFractionDigits {
		return Time{}, fmt.Errorf("%w: %q is finer than nanoseconds", ErrInvalidTime, value)
	}
	digits := strings.TrimLeft(whole+frac, "0")
	var v int64
	if digits != "" {
		parsed, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return Time{}, fmt.Errorf("%w: %q out of range", ErrInvalidTime, value)
		}
		v = parsed
	}
	scale := int64(1)
	for range frac {
		scale *= 10
	}
	if negative {
		v = -v
	}
	return New(v, scale), nil
}

// ParseClock parses "ss[.fff]", "mm:ss[.fff]" or "hh:mm:ss[.fff]".
func ParseClock(value string) (Time, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) > 3 || value == "" {
		return Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	seconds, err := ParseDecimal(parts[len(parts)-1])
	if err != nil || seconds.IsNegative() {
		return Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	if len(parts) == 1 {
		return seconds, nil
	}
	if !seconds.Less(FromSeconds(60)) {
		return Time{}, fmt.Errorf("%w: %q seconds must be < 60", ErrInvalidTime, value)
	}
	total := seconds
	multipliers := []int64{60, 3600}
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := strconv.ParseInt(strings.TrimSpace(parts[i]), 10, 64)
		if err != nil || n < 0 {
			return Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
		}
		idx := len(parts) - 2 - i
		if idx == 0 && len(parts) == 3 && n >= 60 {
			return Time{}, fmt.Errorf("%w: %q minutes must be < 60", ErrInvalidTime, value)
		}
		total = total.Add(FromSeconds(n).Mul(multipliers[idx], 1))
	}
	return total, nil
}

func reduce(value, scale int64) Time {
	if value == 0 {
		return Time{value: 0, scale: 1}
	}
	if g := gcd(abs(value), scale); g > 1 {
		value /= g
		scale /= g
	}
	return Time{value: value, scale: scale}
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

func lcm(a, b int64) int64 {
	return checkedMul(a/gcd(a, b), b)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func checkedMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	neg := (a < 0) != (b < 0)
	hi, lo := bits.Mul64(uint64(abs(a)), uint64(abs(b)))
	if hi != 0 || lo > math.MaxInt64 {
		panic("timecode: overflow")
	}
	if neg {
		return -int64(lo)
	}
	return int64(lo)
}

func checkedAdd(a, b int64) int64 {
	s := a + b
	if (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0) {
		panic("timecode: overflow")
	}
	return s
}
