package timerange

import (
	"errors"
	"fmt"
)

const (
	MinutesPerDay = 1440
	SlotMinutes   = 30

	// EndOfDay is the literal end-time for "until midnight of this day". It parses to exactly
	// MinutesPerDay and never rolls into the next day's 00:00.
	EndOfDay = "24:00"
)

var ErrInvalidTime = errors.New("invalid time (expected HH:MM)")

// ParseClock converts "HH:MM" to minutes since midnight. "24:00" maps to 1440 and is not wrapped.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, ok1 := twoDigits(s[0], s[1])
	m, ok2 := twoDigits(s[3], s[4])
	if !ok1 || !ok2 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	if h == 24 && m == 0 {
		return MinutesPerDay, nil
	}
	if h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes as "HH:MM", wrapping modulo one day (1440 -> "00:00", -60 -> "23:00").
func FormatClock(minutes int) string {
	m := mod(minutes, MinutesPerDay)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}

func floorDiv(a, n int) int {
	q := a / n
	if a%n != 0 && (a < 0) != (n < 0) {
		q--
	}
	return q
}
