package tzconv

import (
	"sort"

	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/timerange"
)

// ConvertPatternBetweenTimezones re-expresses a pattern entered in fromTZ as seen from toTZ, going
// through UTC once per day. Days that come out identical are reported once.
//
// A literal 00:00-24:00 window means "all day" and is returned unchanged on the same days. Converting
// it arithmetically would split it across two partial days, which the editing model cannot hold.
func ConvertPatternBetweenTimezones(days []int, start, end, fromTZ, toTZ string) ([]Pattern, error) {
	if _, err := LoadLocation(fromTZ); err != nil {
		return nil, err
	}
	if _, err := LoadLocation(toTZ); err != nil {
		return nil, err
	}

	if isFullDay(start, end) {
		seen := map[int]bool{}
		var out []Pattern
		for _, day := range days {
			if _, err := referenceDate(day); err != nil {
				return nil, err
			}
			if seen[day] {
				continue
			}
			seen[day] = true
			out = append(out, Pattern{DayOfWeek: day, StartTime: start, EndTime: timerange.EndOfDay})
		}
		sortPatterns(out)
		return out, nil
	}

	seen := map[Pattern]bool{}
	var out []Pattern
	for _, day := range days {
		utc, err := ConvertPatternToUTC(day, start, end, fromTZ)
		if err != nil {
			return nil, err
		}
		p, err := ConvertPatternFromUTC(utc, toTZ)
		if err != nil {
			return nil, err
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sortPatterns(out)
	return out, nil
}

func sortPatterns(ps []Pattern) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].DayOfWeek != ps[j].DayOfWeek {
			return ps[i].DayOfWeek < ps[j].DayOfWeek
		}
		return ps[i].StartTime < ps[j].StartTime
	})
}
