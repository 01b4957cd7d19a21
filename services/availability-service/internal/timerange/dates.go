package timerange

import (
	"errors"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date (expected YYYY-MM-DD)")

// ParseDate parses a civil YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// DaysBetween returns to - from in whole calendar days.
func DaysBetween(from, to string) (int, error) {
	a, err := ParseDate(from)
	if err != nil {
		return 0, err
	}
	b, err := ParseDate(to)
	if err != nil {
		return 0, err
	}
	return int(b.Sub(a).Hours() / 24), nil
}

// Weekday returns 0 (Sunday) through 6 (Saturday).
func Weekday(date string) (int, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return int(t.Weekday()), nil
}

// DateRange is an inclusive span of civil dates.
type DateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Dates lists every date in the range. An inverted range yields no dates.
func (r DateRange) Dates() ([]string, error) {
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		return nil, err
	}
	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(DateLayout))
	}
	return out, nil
}

// Days returns the inclusive length of the range, or 0 when inverted.
func (r DateRange) Days() (int, error) {
	n, err := DaysBetween(r.StartDate, r.EndDate)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, nil
	}
	return n + 1, nil
}
