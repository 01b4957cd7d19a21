package tzconv

import "github.com/md-rashed-zaman/meetsync/services/availability-service/internal/timerange"

// Override is a one-off window on a concrete date.
type Override struct {
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	CrossesMidnight bool   `json:"crosses_midnight"`
	EndOfDay        bool   `json:"end_of_day,omitempty"`
}

// ConvertOverrideToUTC is ConvertPatternToUTC on a real date: the stored date is the UTC date of the
// start, and the overnight flag follows the same capture-then-raise rules.
func ConvertOverrideToUTC(date, start, end, tz string) (Override, error) {
	crosses, err := timerange.IsOvernight(start, end)
	if err != nil {
		return Override{}, err
	}
	s, e, err := convertEndpoints(date, start, end, crosses, tz)
	if err != nil {
		return Override{}, err
	}
	if s.Date != e.Date {
		crosses = true
	}
	if isFullDay(start, end) && sameClock(s.Time, e.Time) {
		crosses = true
	}
	return Override{Date: s.Date, StartTime: s.Time, EndTime: e.Time, CrossesMidnight: crosses, EndOfDay: end == timerange.EndOfDay}, nil
}

// ConvertOverrideFromUTC converts a stored override back to tz. Unlike patterns, the real date is used,
// so offsets on either side of a DST change come out right.
func ConvertOverrideFromUTC(utc Override, tz string) (Override, error) {
	s, e, err := localizeWindow(utc.Date, utc.StartTime, utc.EndTime, utc.CrossesMidnight, tz)
	if err != nil {
		return Override{}, err
	}
	endClock, crosses, err := displayEnd(s, e, utc.EndOfDay)
	if err != nil {
		return Override{}, err
	}
	return Override{Date: s.Date, StartTime: s.Time, EndTime: endClock, CrossesMidnight: crosses}, nil
}
