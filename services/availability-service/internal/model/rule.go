package model

import "time"

type RuleType string

const (
	AvailablePattern  RuleType = "available_pattern"
	AvailableOverride RuleType = "available_override"
	BlockedPattern    RuleType = "blocked_pattern"
	BlockedOverride   RuleType = "blocked_override"
)

func (t RuleType) Valid() bool {
	switch t {
	case AvailablePattern, AvailableOverride, BlockedPattern, BlockedOverride:
		return true
	}
	return false
}

func (t RuleType) IsPattern() bool {
	return t == AvailablePattern || t == BlockedPattern
}

func (t RuleType) IsOverride() bool {
	return t == AvailableOverride || t == BlockedOverride
}

func (t RuleType) IsBlocked() bool {
	return t == BlockedPattern || t == BlockedOverride
}

// Rule is one stored unit of availability intent. DayOfWeek, SpecificDate, StartTime and EndTime are
// in UTC. Exactly one of DayOfWeek (patterns) and SpecificDate (overrides) is set.
//
// CrossesMidnight is decided once when the rule is created from user input and carried verbatim from
// then on. EndOfDay records that the local end was entered as "24:00" rather than "00:00". The
// Original* fields record what the participant typed and are used for display and for replacing
// overrides by the local date they were entered for.
type Rule struct {
	ID                string    `json:"id,omitempty"`
	EventID           string    `json:"event_id,omitempty"`
	ParticipantID     string    `json:"participant_id,omitempty"`
	RuleType          RuleType  `json:"rule_type"`
	DayOfWeek         *int      `json:"day_of_week,omitempty"`
	SpecificDate      string    `json:"specific_date,omitempty"`
	StartTime         string    `json:"start_time"`
	EndTime           string    `json:"end_time"`
	OriginalTimezone  string    `json:"original_timezone,omitempty"`
	OriginalDayOfWeek *int      `json:"original_day_of_week,omitempty"`
	OriginalDate      string    `json:"original_date,omitempty"`
	CrossesMidnight   bool      `json:"crosses_midnight"`
	EndOfDay          bool      `json:"end_of_day,omitempty"`
	Reason            string    `json:"reason,omitempty"`
	Source            string    `json:"source,omitempty"`
	CreatedAt         time.Time `json:"created_at,omitzero"`
}

// IsPatternShaped reports whether the row is a well-formed pattern rule.
func (r Rule) IsPatternShaped() bool {
	return r.RuleType.IsPattern() && r.DayOfWeek != nil && r.SpecificDate == ""
}

// IsOverrideShaped reports whether the row is a well-formed override rule.
func (r Rule) IsOverrideShaped() bool {
	return r.RuleType.IsOverride() && r.DayOfWeek == nil && r.SpecificDate != ""
}

// RuleInput is a descriptor in the participant's local timezone, as produced by the editing UI or
// the natural-language parser.
type RuleInput struct {
	RuleType  RuleType
	DayOfWeek *int
	Date      string
	StartTime string
	EndTime   string
	Reason    string
	Source    string
}

// Mode tells the storage layer whether submitted rules replace or extend the existing ones.
type Mode string

const (
	ModeReplace Mode = "replace"
	ModeAdjust  Mode = "adjust"
)

func (m Mode) Valid() bool {
	return m == ModeReplace || m == ModeAdjust
}

func IntPtr(v int) *int {
	return &v
}
