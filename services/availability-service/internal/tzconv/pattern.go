package tzconv

import (
	"time"

	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/timerange"
)

// Pattern is a weekly window on one day of the week. CrossesMidnight travels with the times and is
// what timerange.Create needs to rebuild the right duration. EndOfDay is set on the stored form when
// the local end was entered as "24:00", which UTC clocks alone cannot tell apart from "00:00".
type Pattern struct {
	DayOfWeek       int    `json:"day_of_week"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	CrossesMidnight bool   `json:"crosses_midnight"`
	EndOfDay        bool   `json:"end_of_day,omitempty"`
}

// ConvertPatternToUTC converts a local weekly window to its stored UTC form.
//
// Overnight intent is read from the local input before anything is converted. The flag is then only
// ever raised, never cleared: if the two UTC endpoints land on different dates the stored range spans
// midnight regardless of how the user framed it, and a local 00:00-24:00 whose UTC clocks come out
// equal is a full day.
func ConvertPatternToUTC(day int, start, end, tz string) (Pattern, error) {
	crosses, err := timerange.IsOvernight(start, end)
	if err != nil {
		return Pattern{}, err
	}
	ref, err := referenceDate(day)
	if err != nil {
		return Pattern{}, err
	}

	s, e, err := convertEndpoints(ref, start, end, crosses, tz)
	if err != nil {
		return Pattern{}, err
	}

	utcDay, err := weekdayShift(day, ref, s.Date)
	if err != nil {
		return Pattern{}, err
	}

	if s.Date != e.Date {
		crosses = true
	}
	if isFullDay(start, end) && sameClock(s.Time, e.Time) {
		crosses = true
	}
	return Pattern{DayOfWeek: utcDay, StartTime: s.Time, EndTime: e.Time, CrossesMidnight: crosses, EndOfDay: end == timerange.EndOfDay}, nil
}

// ConvertPatternFromUTC converts a stored UTC window back to tz for display.
//
// The stored start is placed on the reference week and the end is derived from the stored duration,
// so the result depends only on what timerange.Create makes of the stored triple. A window ending
// exactly at local midnight of the following date is shown as "24:00" on its own day only when it was
// entered that way or covers the whole day; otherwise it ends at "00:00" and still crosses midnight.
func ConvertPatternFromUTC(utc Pattern, tz string) (Pattern, error) {
	ref, err := referenceDate(utc.DayOfWeek)
	if err != nil {
		return Pattern{}, err
	}
	s, e, err := localizeWindow(ref, utc.StartTime, utc.EndTime, utc.CrossesMidnight, tz)
	if err != nil {
		return Pattern{}, err
	}
	localDay, err := weekdayShift(utc.DayOfWeek, ref, s.Date)
	if err != nil {
		return Pattern{}, err
	}
	endClock, crosses, err := displayEnd(s, e, utc.EndOfDay)
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{DayOfWeek: localDay, StartTime: s.Time, EndTime: endClock, CrossesMidnight: crosses}, nil
}

// convertEndpoints runs both ends of a local window through LocalToUTC. An overnight end is read
// against the following date.
func convertEndpoints(date, start, end string, crosses bool, tz string) (DateTime, DateTime, error) {
	s, err := LocalToUTC(start, date, tz)
	if err != nil {
		return DateTime{}, DateTime{}, err
	}
	endDate := date
	if crosses {
		endDate, err = timerange.AddDays(date, 1)
		if err != nil {
			return DateTime{}, DateTime{}, err
		}
	}
	e, err := LocalToUTC(end, endDate, tz)
	if err != nil {
		return DateTime{}, DateTime{}, err
	}
	return s, e, nil
}

// localizeWindow places a stored UTC window on date and returns its local start and end.
func localizeWindow(date, start, end string, crosses bool, tz string) (DateTime, DateTime, error) {
	r, err := timerange.Create(start, end, crosses)
	if err != nil {
		return DateTime{}, DateTime{}, err
	}
	loc, err := LoadLocation(tz)
	if err != nil {
		return DateTime{}, DateTime{}, err
	}
	startInstant, err := civilInstant(date, start, time.UTC)
	if err != nil {
		return DateTime{}, DateTime{}, err
	}
	endInstant := startInstant.Add(time.Duration(r.End-r.Start) * time.Minute)
	return dateTimeOf(startInstant.In(loc)), dateTimeOf(endInstant.In(loc)), nil
}

// displayEnd renders the end clock of a localized window and reports whether it still crosses
// midnight. "24:00" is substituted for the next date's 00:00 when endOfDay is set or the window is a
// full day (both ends at 00:00 on consecutive dates).
func displayEnd(s, e DateTime, endOfDay bool) (string, bool, error) {
	if s.Date == e.Date {
		return e.Time, false, nil
	}
	next, err := timerange.AddDays(s.Date, 1)
	if err != nil {
		return "", false, err
	}
	if e.Time == "00:00" && e.Date == next && (endOfDay || s.Time == "00:00") {
		return timerange.EndOfDay, false, nil
	}
	return e.Time, true, nil
}

func isFullDay(start, end string) bool {
	return start == "00:00" && end == timerange.EndOfDay
}

func sameClock(a, b string) bool {
	am, err := timerange.ParseClock(a)
	if err != nil {
		return false
	}
	bm, err := timerange.ParseClock(b)
	if err != nil {
		return false
	}
	return am == bm
}
