// Package timerange holds the minute-offset range algebra the availability engine is built on.
//
// A Range is half-open [Start, End) in minutes from the midnight of some reference date. End may run
// past 1440 for ranges that continue into the next day; nothing here wraps. Ranges whose End is not
// after Start are legal values (timezone conversion can produce them) and count as empty everywhere.
package timerange

type Range struct {
	Start int `json:"start_minutes"`
	End   int `json:"end_minutes"`
}

func (r Range) Duration() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

func (r Range) Empty() bool {
	return r.End <= r.Start
}

// Create builds a range from two clock strings using the explicit overnight flag.
//
// With crossesMidnight set, an end at or before the start lands on the next day, so equal clocks
// (including 00:00/00:00) mean a full 24 hours. Without it, 1440 is never added and the result may be
// zero or negative. An end of "24:00" is always exactly 1440.
func Create(start, end string, crossesMidnight bool) (Range, error) {
	s, e, err := parsePair(start, end)
	if err != nil {
		return Range{}, err
	}
	if end == EndOfDay {
		return Range{Start: s, End: MinutesPerDay}, nil
	}
	if crossesMidnight && e <= s {
		e += MinutesPerDay
	}
	return Range{Start: s, End: e}, nil
}

// CreateInferred is the path for rows that predate the overnight flag: an end before the start is
// overnight, 00:00/00:00 is a full day, any other equal pair is empty.
func CreateInferred(start, end string) (Range, error) {
	s, e, err := parsePair(start, end)
	if err != nil {
		return Range{}, err
	}
	if end == EndOfDay {
		return Range{Start: s, End: MinutesPerDay}, nil
	}
	switch {
	case e < s:
		e += MinutesPerDay
	case s == 0 && e == 0:
		e = MinutesPerDay
	}
	return Range{Start: s, End: e}, nil
}

// IsOvernight reports whether an end clock earlier than the start clock means
// the user's range runs past midnight. This is the intent captured at input time.
func IsOvernight(start, end string) (bool, error) {
	s, e, err := parsePair(start, end)
	if err != nil {
		return false, err
	}
	return e < s, nil
}

func parsePair(start, end string) (int, int, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, 0, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, 0, err
	}
	return s, e, nil
}
