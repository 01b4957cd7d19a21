// Package availability computes one participant's net availability per UTC date from stored rules.
package availability

import (
	"fmt"

	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/timerange"
)

// DayAvailability is the effective result for one UTC date. Ranges are minute offsets from that
// date's midnight and may run past 1440.
type DayAvailability struct {
	Date      string            `json:"date"`
	Available []timerange.Range `json:"available_ranges"`
	Blocked   []timerange.Range `json:"blocked_ranges"`
}

// ComputeDay applies the rules to one date:
//
//	available patterns for the weekday, plus available overrides for the date,
//	minus blocked patterns and blocked overrides.
//
// Blocked rules always win. Rows whose shape doesn't match their type are skipped.
func ComputeDay(rules []model.Rule, date string) (DayAvailability, error) {
	weekday, err := timerange.Weekday(date)
	if err != nil {
		return DayAvailability{}, err
	}

	var base, overrides, blocked []timerange.Range
	for _, rule := range rules {
		if !appliesTo(rule, weekday, date) {
			continue
		}
		r, err := timerange.Create(rule.StartTime, rule.EndTime, rule.CrossesMidnight)
		if err != nil {
			return DayAvailability{}, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		switch rule.RuleType {
		case model.AvailablePattern:
			base = append(base, r)
		case model.AvailableOverride:
			overrides = append(overrides, r)
		case model.BlockedPattern, model.BlockedOverride:
			blocked = append(blocked, r)
		}
	}

	blockedMerged := timerange.Merge(blocked)
	available := timerange.Add(timerange.Merge(base), overrides)
	return DayAvailability{
		Date:      date,
		Available: timerange.Subtract(available, blockedMerged),
		Blocked:   blockedMerged,
	}, nil
}

func appliesTo(rule model.Rule, weekday int, date string) bool {
	switch {
	case rule.IsPatternShaped():
		return *rule.DayOfWeek == weekday
	case rule.IsOverrideShaped():
		return rule.SpecificDate == date
	default:
		return false
	}
}

// ComputeRange runs ComputeDay over every date in dr. Every date gets an entry, empty or not.
func ComputeRange(rules []model.Rule, dr timerange.DateRange) (map[string]DayAvailability, error) {
	dates, err := dr.Dates()
	if err != nil {
		return nil, err
	}
	out := make(map[string]DayAvailability, len(dates))
	for _, date := range dates {
		day, err := ComputeDay(rules, date)
		if err != nil {
			return nil, err
		}
		out[date] = day
	}
	return out, nil
}

// IsSlotAvailable reports whether the minute at clock on date falls inside an effective range.
func IsSlotAvailable(rules []model.Rule, date, clock string) (bool, error) {
	minute, err := timerange.ParseClock(clock)
	if err != nil {
		return false, err
	}
	day, err := ComputeDay(rules, date)
	if err != nil {
		return false, err
	}
	return timerange.ContainsMinute(day.Available, minute), nil
}
