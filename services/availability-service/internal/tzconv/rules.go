package tzconv

import (
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/model"
)

var (
	ErrInvalidRuleType  = errors.New("invalid rule type")
	ErrInconsistentRule = errors.New("rule shape does not match its type")
)

// PrepareRuleForStorage turns a local descriptor into the UTC rule that gets stored. The overnight
// flag is computed here, from the user's own times, and nowhere else.
func PrepareRuleForStorage(in model.RuleInput, tz string) (model.Rule, error) {
	if !in.RuleType.Valid() {
		return model.Rule{}, fmt.Errorf("%w: %q", ErrInvalidRuleType, in.RuleType)
	}
	rule := model.Rule{
		RuleType:         in.RuleType,
		OriginalTimezone: tz,
		Reason:           in.Reason,
		Source:           in.Source,
	}

	if in.RuleType.IsPattern() {
		if in.DayOfWeek == nil || in.Date != "" {
			return model.Rule{}, fmt.Errorf("%w: pattern needs day_of_week only", ErrInconsistentRule)
		}
		p, err := ConvertPatternToUTC(*in.DayOfWeek, in.StartTime, in.EndTime, tz)
		if err != nil {
			return model.Rule{}, err
		}
		rule.DayOfWeek = model.IntPtr(p.DayOfWeek)
		rule.OriginalDayOfWeek = model.IntPtr(*in.DayOfWeek)
		rule.StartTime = p.StartTime
		rule.EndTime = p.EndTime
		rule.CrossesMidnight = p.CrossesMidnight
		rule.EndOfDay = p.EndOfDay
		return rule, nil
	}

	if in.Date == "" || in.DayOfWeek != nil {
		return model.Rule{}, fmt.Errorf("%w: override needs date only", ErrInconsistentRule)
	}
	o, err := ConvertOverrideToUTC(in.Date, in.StartTime, in.EndTime, tz)
	if err != nil {
		return model.Rule{}, err
	}
	rule.SpecificDate = o.Date
	rule.OriginalDate = in.Date
	rule.StartTime = o.StartTime
	rule.EndTime = o.EndTime
	rule.CrossesMidnight = o.CrossesMidnight
	rule.EndOfDay = o.EndOfDay
	return rule, nil
}

// DisplayRule is a stored rule as seen from a viewer's timezone.
type DisplayRule struct {
	Rule            model.Rule
	Timezone        string
	DayOfWeek       *int
	Date            string
	StartTime       string
	EndTime         string
	CrossesMidnight bool
}

// ConvertRuleForDisplay converts a stored UTC rule into tz.
func ConvertRuleForDisplay(rule model.Rule, tz string) (DisplayRule, error) {
	out := DisplayRule{Rule: rule, Timezone: tz}
	switch {
	case rule.IsPatternShaped():
		p, err := ConvertPatternFromUTC(Pattern{
			DayOfWeek:       *rule.DayOfWeek,
			StartTime:       rule.StartTime,
			EndTime:         rule.EndTime,
			CrossesMidnight: rule.CrossesMidnight,
			EndOfDay:        rule.EndOfDay,
		}, tz)
		if err != nil {
			return DisplayRule{}, err
		}
		out.DayOfWeek = model.IntPtr(p.DayOfWeek)
		out.StartTime = p.StartTime
		out.EndTime = p.EndTime
		out.CrossesMidnight = p.CrossesMidnight
	case rule.IsOverrideShaped():
		o, err := ConvertOverrideFromUTC(Override{
			Date:            rule.SpecificDate,
			StartTime:       rule.StartTime,
			EndTime:         rule.EndTime,
			CrossesMidnight: rule.CrossesMidnight,
			EndOfDay:        rule.EndOfDay,
		}, tz)
		if err != nil {
			return DisplayRule{}, err
		}
		out.Date = o.Date
		out.StartTime = o.StartTime
		out.EndTime = o.EndTime
		out.CrossesMidnight = o.CrossesMidnight
	default:
		return DisplayRule{}, fmt.Errorf("%w: rule %s", ErrInconsistentRule, rule.ID)
	}
	return out, nil
}
