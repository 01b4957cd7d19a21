// Package tzconv converts availability between a participant's civil time and the UTC form rules are
// stored in. Weekly patterns are pinned to a fixed reference week so that the conversion has a real
// date to resolve offsets against; only the resulting day-of-week shift is kept.
package tzconv

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/timerange"
)

const (
	UTC         = "UTC"
	clockLayout = "15:04"
)

var (
	ErrUnknownTimezone  = errors.New("unknown timezone")
	ErrInvalidDayOfWeek = errors.New("day of week must be 0-6")
)

var locations sync.Map

// LoadLocation resolves an IANA zone name. Empty names and "Local" are rejected rather than
// silently treated as UTC or the host zone.
func LoadLocation(tz string) (*time.Location, error) {
	if v, ok := locations.Load(tz); ok {
		return v.(*time.Location), nil
	}
	name := strings.TrimSpace(tz)
	if name == "" || name == "Local" || name != tz {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimezone, tz)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownTimezone, tz, err)
	}
	locations.Store(tz, loc)
	return loc, nil
}

// DateTime is a civil date plus an HH:MM clock.
type DateTime struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// LocalToUTC converts a civil time in tz to UTC. "24:00" is read as 00:00 of the next date.
// For tz "UTC" the input comes back unchanged.
func LocalToUTC(clock, date, tz string) (DateTime, error) {
	return convert(clock, date, tz, true)
}

// UTCToLocal is the inverse of LocalToUTC.
func UTCToLocal(clock, date, tz string) (DateTime, error) {
	return convert(clock, date, tz, false)
}

func convert(clock, date, tz string, toUTC bool) (DateTime, error) {
	if _, err := timerange.ParseClock(clock); err != nil {
		return DateTime{}, err
	}
	if _, err := timerange.ParseDate(date); err != nil {
		return DateTime{}, err
	}
	if tz == UTC {
		return DateTime{Date: date, Time: clock}, nil
	}
	loc, err := LoadLocation(tz)
	if err != nil {
		return DateTime{}, err
	}
	if toUTC {
		t, err := civilInstant(date, clock, loc)
		if err != nil {
			return DateTime{}, err
		}
		return dateTimeOf(t.UTC()), nil
	}
	t, err := civilInstant(date, clock, time.UTC)
	if err != nil {
		return DateTime{}, err
	}
	return dateTimeOf(t.In(loc)), nil
}

// civilInstant pins a wall clock on date in loc. Clock values past 23:59 (only "24:00") roll forward.
func civilInstant(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := timerange.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	m, err := timerange.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, m, 0, 0, loc), nil
}

func dateTimeOf(t time.Time) DateTime {
	return DateTime{Date: t.Format(timerange.DateLayout), Time: t.Format(clockLayout)}
}

// referenceSunday anchors day-of-week arithmetic. Mid-January keeps the week clear of DST changes.
const referenceSunday = "2024-01-07"

func referenceDate(day int) (string, error) {
	if day < 0 || day > 6 {
		return "", fmt.Errorf("%w: %d", ErrInvalidDayOfWeek, day)
	}
	return timerange.AddDays(referenceSunday, day)
}

func weekdayShift(day int, fromDate, toDate string) (int, error) {
	n, err := timerange.DaysBetween(fromDate, toDate)
	if err != nil {
		return 0, err
	}
	return ((day+n)%7 + 7) % 7, nil
}
