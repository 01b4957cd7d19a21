package overlap

import (
	"errors"
	"reflect"
	"testing"

	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/timerange"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/tzconv"
)

var week = timerange.DateRange{StartDate: "2024-01-07", EndDate: "2024-01-13"}

func localPattern(t *testing.T, day int, start, end, tz string) model.Rule {
	t.Helper()
	rule, err := tzconv.PrepareRuleForStorage(model.RuleInput{
		RuleType:  model.AvailablePattern,
		DayOfWeek: model.IntPtr(day),
		StartTime: start,
		EndTime:   end,
	}, tz)
	if err != nil {
		t.Fatalf("PrepareRuleForStorage(%s) error = %v", tz, err)
	}
	return rule
}

func utcPattern(day int, start, end string) model.Rule {
	return model.Rule{RuleType: model.AvailablePattern, DayOfWeek: model.IntPtr(day), StartTime: start, EndTime: end}
}

func TestFindOverlappingSlots_ThreeZonesSameUTCWindow(t *testing.T) {
	participants := map[string][]model.Rule{
		"la":     {localPattern(t, 1, "17:00", "21:00", "America/Los_Angeles")},
		"london": {localPattern(t, 2, "01:00", "05:00", "Europe/London")},
		"tokyo":  {localPattern(t, 2, "10:00", "14:00", "Asia/Tokyo")},
	}
	got, err := FindOverlappingSlots(participants, week, 0)
	if err != nil {
		t.Fatalf("FindOverlappingSlots() error = %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("expected 8 slots, got %d: %+v", len(got), got)
	}
	wantIDs := []string{"la", "london", "tokyo"}
	for i, s := range got {
		if s.Date != "2024-01-09" {
			t.Errorf("slot %d dated %s, want the UTC Tuesday 2024-01-09", i, s.Date)
		}
		if want := timerange.FormatClock(60 + i*30); s.Time != want {
			t.Errorf("slot %d time = %s, want %s", i, s.Time, want)
		}
		if !reflect.DeepEqual(s.ParticipantIDs, wantIDs) {
			t.Errorf("slot %d participants = %v", i, s.ParticipantIDs)
		}
	}
}

func TestFindOverlappingSlots_Threshold(t *testing.T) {
	participants := map[string][]model.Rule{
		"a": {utcPattern(1, "09:00", "11:00")},
		"b": {utcPattern(1, "10:00", "12:00")},
		"c": {utcPattern(3, "10:00", "12:00")},
	}
	all, err := FindOverlappingSlots(participants, week, 0)
	if err != nil {
		t.Fatalf("FindOverlappingSlots() error = %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no slot with everyone, got %+v", all)
	}

	two, err := FindOverlappingSlots(participants, week, 2)
	if err != nil {
		t.Fatalf("FindOverlappingSlots() error = %v", err)
	}
	want := []SlotParticipants{
		{Date: "2024-01-08", Time: "10:00", ParticipantIDs: []string{"a", "b"}},
		{Date: "2024-01-08", Time: "10:30", ParticipantIDs: []string{"a", "b"}},
	}
	if !reflect.DeepEqual(two, want) {
		t.Fatalf("FindOverlappingSlots(min=2) = %+v, want %+v", two, want)
	}
}

func TestComputeHeatmap_OvernightLandsOnNextDate(t *testing.T) {
	participants := map[string][]model.Rule{
		"manila": {localPattern(t, 1, "07:00", "09:00", "Asia/Manila")},
	}
	h, err := ComputeHeatmap(participants, timerange.DateRange{StartDate: "2024-01-07", EndDate: "2024-01-07"})
	if err != nil {
		t.Fatalf("ComputeHeatmap() error = %v", err)
	}
	want := []string{"2024-01-07|23:00", "2024-01-07|23:30", "2024-01-08|00:00", "2024-01-08|00:30"}
	var got []string
	for _, s := range h.Slots() {
		got = append(got, s.Key())
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("heatmap keys = %v, want %v", got, want)
	}
}

func TestComputeHeatmap_ParticipantCountedOncePerSlot(t *testing.T) {
	participants := map[string][]model.Rule{
		"p": {
			{RuleType: model.AvailablePattern, DayOfWeek: model.IntPtr(0), StartTime: "23:00", EndTime: "01:00", CrossesMidnight: true},
			{RuleType: model.AvailableOverride, SpecificDate: "2024-01-08", StartTime: "00:00", EndTime: "01:00"},
		},
	}
	h, err := ComputeHeatmap(participants, timerange.DateRange{StartDate: "2024-01-07", EndDate: "2024-01-08"})
	if err != nil {
		t.Fatalf("ComputeHeatmap() error = %v", err)
	}
	c := h["2024-01-08|00:00"]
	if c.Count != 1 || !reflect.DeepEqual(c.ParticipantIDs, []string{"p"}) {
		t.Fatalf("cell = %+v, want one participant", c)
	}
}

func TestComputeHeatmap_FullDayHasNoGapsOrDuplicates(t *testing.T) {
	for _, tz := range []string{"America/Los_Angeles", "Asia/Kolkata", "Pacific/Kiritimati"} {
		participants := map[string][]model.Rule{"p": {localPattern(t, 3, "00:00", "24:00", tz)}}
		h, err := ComputeHeatmap(participants, week)
		if err != nil {
			t.Fatalf("%s: ComputeHeatmap() error = %v", tz, err)
		}
		if len(h) != 48 {
			t.Errorf("%s: full day covers %d slots, want 48", tz, len(h))
		}
	}
}

func TestComputeHeatmap_EmptyInputs(t *testing.T) {
	h, err := ComputeHeatmap(nil, week)
	if err != nil {
		t.Fatalf("ComputeHeatmap() error = %v", err)
	}
	if len(h) != 0 {
		t.Fatalf("expected empty heatmap, got %v", h)
	}
	h, err = ComputeHeatmap(map[string][]model.Rule{"a": {utcPattern(1, "09:00", "10:00")}},
		timerange.DateRange{StartDate: "2024-01-10", EndDate: "2024-01-09"})
	if err != nil {
		t.Fatalf("ComputeHeatmap() error = %v", err)
	}
	if len(h) != 0 {
		t.Fatalf("expected empty heatmap for inverted range, got %v", h)
	}
}

func TestComputeHeatmap_PropagatesErrors(t *testing.T) {
	participants := map[string][]model.Rule{"bad": {utcPattern(1, "9am", "10:00")}}
	if _, err := ComputeHeatmap(participants, week); !errors.Is(err, timerange.ErrInvalidTime) {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
	participants["good"] = []model.Rule{utcPattern(1, "09:00", "10:00")}
	if _, err := ComputeHeatmap(participants, timerange.DateRange{StartDate: "2024-13-01", EndDate: "2024-13-02"}); !errors.Is(err, timerange.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestFindSessionSlots_TwoHoursInThreeHourWindow(t *testing.T) {
	participants := map[string][]model.Rule{
		"a": {utcPattern(1, "09:00", "12:00")},
		"b": {utcPattern(1, "09:00", "12:00")},
	}
	got, err := FindSessionSlots(participants, week, 120, 0)
	if err != nil {
		t.Fatalf("FindSessionSlots() error = %v", err)
	}
	want := []Session{
		{Date: "2024-01-08", StartTime: "09:00", EndDate: "2024-01-08", EndTime: "11:00", ParticipantIDs: []string{"a", "b"}},
		{Date: "2024-01-08", StartTime: "09:30", EndDate: "2024-01-08", EndTime: "11:30", ParticipantIDs: []string{"a", "b"}},
		{Date: "2024-01-08", StartTime: "10:00", EndDate: "2024-01-08", EndTime: "12:00", ParticipantIDs: []string{"a", "b"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FindSessionSlots() = %+v, want %+v", got, want)
	}
}

func TestFindSessionSlots_PartialParticipantExcluded(t *testing.T) {
	participants := map[string][]model.Rule{
		"a": {utcPattern(1, "09:00", "12:00")},
		"b": {utcPattern(1, "09:00", "10:30")},
		"c": {utcPattern(1, "09:00", "12:00")},
	}
	got, err := FindSessionSlots(participants, week, 120, 2)
	if err != nil {
		t.Fatalf("FindSessionSlots() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 sessions, got %+v", got)
	}
	for _, s := range got {
		if !reflect.DeepEqual(s.ParticipantIDs, []string{"a", "c"}) {
			t.Errorf("session %s participants = %v, want [a c]", s.StartTime, s.ParticipantIDs)
		}
	}

	everyone, err := FindSessionSlots(participants, week, 120, 0)
	if err != nil {
		t.Fatalf("FindSessionSlots() error = %v", err)
	}
	if len(everyone) != 0 {
		t.Fatalf("expected no session with everyone, got %+v", everyone)
	}
}

func TestFindSessionSlots_GapBreaksRun(t *testing.T) {
	participants := map[string][]model.Rule{
		"a": {utcPattern(1, "09:00", "10:00"), utcPattern(1, "10:30", "11:30")},
	}
	got, err := FindSessionSlots(participants, week, 90, 0)
	if err != nil {
		t.Fatalf("FindSessionSlots() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no 90-minute session across a gap, got %+v", got)
	}
}

func TestFindSessionSlots_AcrossMidnight(t *testing.T) {
	participants := map[string][]model.Rule{
		"manila": {localPattern(t, 1, "07:00", "09:00", "Asia/Manila")},
	}
	got, err := FindSessionSlots(participants, timerange.DateRange{StartDate: "2024-01-07", EndDate: "2024-01-07"}, 45, 1)
	if err != nil {
		t.Fatalf("FindSessionSlots() error = %v", err)
	}
	want := []Session{
		{Date: "2024-01-07", StartTime: "23:00", EndDate: "2024-01-07", EndTime: "23:45", ParticipantIDs: []string{"manila"}},
		{Date: "2024-01-07", StartTime: "23:30", EndDate: "2024-01-08", EndTime: "00:15", ParticipantIDs: []string{"manila"}},
		{Date: "2024-01-08", StartTime: "00:00", EndDate: "2024-01-08", EndTime: "00:45", ParticipantIDs: []string{"manila"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FindSessionSlots() = %+v, want %+v", got, want)
	}
}

func TestFindSessionSlots_InvalidLength(t *testing.T) {
	if _, err := FindSessionSlots(nil, week, 0, 0); !errors.Is(err, ErrInvalidSessionLength) {
		t.Fatalf("expected ErrInvalidSessionLength, got %v", err)
	}
}

func TestFromHeatmap_MatchesDirectSearch(t *testing.T) {
	participants := map[string][]model.Rule{
		"a": {utcPattern(1, "09:00", "12:00")},
		"b": {utcPattern(1, "10:00", "11:00")},
	}
	h, err := ComputeHeatmap(participants, week)
	if err != nil {
		t.Fatalf("ComputeHeatmap() error = %v", err)
	}
	direct, err := FindOverlappingSlots(participants, week, 0)
	if err != nil {
		t.Fatalf("FindOverlappingSlots() error = %v", err)
	}
	if got := OverlappingFromHeatmap(h, len(participants), 0); !reflect.DeepEqual(got, direct) {
		t.Fatalf("OverlappingFromHeatmap() = %+v, want %+v", got, direct)
	}

	sessions, err := SessionsFromHeatmap(h, len(participants), 60, 0)
	if err != nil {
		t.Fatalf("SessionsFromHeatmap() error = %v", err)
	}
	want := []Session{{Date: "2024-01-08", StartTime: "10:00", EndDate: "2024-01-08", EndTime: "11:00", ParticipantIDs: []string{"a", "b"}}}
	if !reflect.DeepEqual(sessions, want) {
		t.Fatalf("SessionsFromHeatmap() = %+v, want %+v", sessions, want)
	}
	if _, err := SessionsFromHeatmap(h, len(participants), -30, 0); !errors.Is(err, ErrInvalidSessionLength) {
		t.Fatalf("expected ErrInvalidSessionLength, got %v", err)
	}
}
