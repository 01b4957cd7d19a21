package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/overlap"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/storage"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/timerange"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/tzconv"
)

type fakeStore struct {
	byParticipant map[string][]model.Rule
	saved         []model.Rule
	savedMode     model.Mode
	deleted       []string
	deleteErr     error
	listErr       error
	listByEvent   int
	afterList     func()
}

func (s *fakeStore) ListRules(_ context.Context, _, participantID string) ([]model.Rule, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.byParticipant[participantID], nil
}

func (s *fakeStore) ListRulesByEvent(context.Context, string) (map[string][]model.Rule, error) {
	s.listByEvent++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := s.byParticipant
	if s.afterList != nil {
		s.afterList()
	}
	return out, nil
}

func (s *fakeStore) SaveRules(_ context.Context, _, _ string, mode model.Mode, rules []model.Rule) ([]string, error) {
	s.saved = append(s.saved, rules...)
	s.savedMode = mode
	ids := make([]string, len(rules))
	for i := range rules {
		ids[i] = "rule-" + string(rune('a'+i))
	}
	return ids, nil
}

func (s *fakeStore) DeleteRule(_ context.Context, _, ruleID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, ruleID)
	return nil
}

type fakeCache struct {
	data        map[string]overlap.Heatmap
	versions    map[string]int64
	gets, sets  int
	invalidated []string
}

func (c *fakeCache) key(eventID string, version int64, dr timerange.DateRange) string {
	return fmt.Sprintf("%s|v%d|%s|%s", eventID, version, dr.StartDate, dr.EndDate)
}

func (c *fakeCache) Version(_ context.Context, eventID string) (int64, error) {
	return c.versions[eventID], nil
}

func (c *fakeCache) Get(_ context.Context, eventID string, version int64, dr timerange.DateRange) (overlap.Heatmap, bool, error) {
	c.gets++
	h, ok := c.data[c.key(eventID, version, dr)]
	return h, ok, nil
}

func (c *fakeCache) Set(_ context.Context, eventID string, version int64, dr timerange.DateRange, h overlap.Heatmap) error {
	c.sets++
	if c.data == nil {
		c.data = map[string]overlap.Heatmap{}
	}
	c.data[c.key(eventID, version, dr)] = h
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, eventID string) error {
	c.invalidated = append(c.invalidated, eventID)
	if c.versions == nil {
		c.versions = map[string]int64{}
	}
	c.versions[eventID]++
	return nil
}

func newTestHandler(store *fakeStore, c *fakeCache) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := http.NewServeMux()
	NewAvailabilityHandler(store, c, logger, 31).Register(mux)
	return mux
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func localRule(t *testing.T, day int, start, end, tz string) model.Rule {
	t.Helper()
	rule, err := tzconv.PrepareRuleForStorage(model.RuleInput{
		RuleType:  model.AvailablePattern,
		DayOfWeek: model.IntPtr(day),
		StartTime: start,
		EndTime:   end,
	}, tz)
	if err != nil {
		t.Fatalf("PrepareRuleForStorage() error = %v", err)
	}
	return rule
}

func TestSaveRules_ConvertsToUTC(t *testing.T) {
	store := &fakeStore{}
	c := &fakeCache{}
	h := newTestHandler(store, c)

	rec := do(t, h, http.MethodPost, "/api/v1/availability/rules", `{
		"event_id":       "evt-1",
		"participant_id": "p-1",
		"timezone":       "Asia/Manila",
		"rules": [
			{"rule_type": "available_pattern", "day_of_week": 1, "start_time": "07:00", "end_time": "09:00"},
			{"rule_type": "blocked_override", "date": "2024-03-05", "start_time": "12:00", "end_time": "13:00", "reason": "dentist"}
		]
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp saveRulesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.RuleIDs) != 2 {
		t.Fatalf("expected 2 rule ids, got %v", resp.RuleIDs)
	}
	if store.savedMode != model.ModeAdjust {
		t.Fatalf("expected default mode adjust, got %q", store.savedMode)
	}

	p := store.saved[0]
	if *p.DayOfWeek != 0 || p.StartTime != "23:00" || p.EndTime != "01:00" || !p.CrossesMidnight {
		t.Fatalf("pattern stored as %+v, want Sunday 23:00-01:00 overnight", p)
	}
	if p.OriginalTimezone != "Asia/Manila" || *p.OriginalDayOfWeek != 1 {
		t.Fatalf("original fields = %q/%d", p.OriginalTimezone, *p.OriginalDayOfWeek)
	}
	o := store.saved[1]
	if o.SpecificDate != "2024-03-05" || o.StartTime != "04:00" || o.EndTime != "05:00" || o.Reason != "dentist" {
		t.Fatalf("override stored as %+v", o)
	}
	if !reflect.DeepEqual(c.invalidated, []string{"evt-1"}) {
		t.Fatalf("expected cache invalidation for evt-1, got %v", c.invalidated)
	}
}

func TestSaveRules_RejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown timezone":  `{"event_id":"e","participant_id":"p","timezone":"Mars/Base","rules":[{"rule_type":"available_pattern","day_of_week":1,"start_time":"09:00","end_time":"10:00"}]}`,
		"bad clock":         `{"event_id":"e","participant_id":"p","timezone":"UTC","rules":[{"rule_type":"available_pattern","day_of_week":1,"start_time":"9am","end_time":"10:00"}]}`,
		"bad day":           `{"event_id":"e","participant_id":"p","timezone":"UTC","rules":[{"rule_type":"available_pattern","day_of_week":7,"start_time":"09:00","end_time":"10:00"}]}`,
		"pattern with date": `{"event_id":"e","participant_id":"p","timezone":"UTC","rules":[{"rule_type":"available_pattern","day_of_week":1,"date":"2024-01-08","start_time":"09:00","end_time":"10:00"}]}`,
		"unknown type":      `{"event_id":"e","participant_id":"p","timezone":"UTC","rules":[{"rule_type":"sometimes","day_of_week":1,"start_time":"09:00","end_time":"10:00"}]}`,
		"bad mode":          `{"event_id":"e","participant_id":"p","timezone":"UTC","mode":"merge","rules":[{"rule_type":"available_pattern","day_of_week":1,"start_time":"09:00","end_time":"10:00"}]}`,
		"no rules":          `{"event_id":"e","participant_id":"p","timezone":"UTC","rules":[]}`,
		"unknown field":     `{"event_id":"e","participant_id":"p","timezone":"UTC","extra":1,"rules":[{"rule_type":"available_pattern","day_of_week":1,"start_time":"09:00","end_time":"10:00"}]}`,
		"missing event":     `{"participant_id":"p","timezone":"UTC","rules":[{"rule_type":"available_pattern","day_of_week":1,"start_time":"09:00","end_time":"10:00"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			store := &fakeStore{}
			rec := do(t, newTestHandler(store, &fakeCache{}), http.MethodPost, "/api/v1/availability/rules", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if len(store.saved) != 0 {
				t.Fatalf("nothing should be saved, got %+v", store.saved)
			}
		})
	}
}

func TestListRules_DisplaysInViewerTimezone(t *testing.T) {
	stored := localRule(t, 1, "07:00", "09:00", "Asia/Manila")
	stored.ID = "r1"
	malformed := model.Rule{ID: "r2", RuleType: model.AvailablePattern, StartTime: "09:00", EndTime: "10:00"}
	store := &fakeStore{byParticipant: map[string][]model.Rule{"p-1": {stored, malformed}}}
	h := newTestHandler(store, &fakeCache{})

	rec := do(t, h, http.MethodGet, "/api/v1/availability/rules?event_id=evt-1&participant_id=p-1&timezone=Asia/Manila", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp listRulesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Rules) != 1 {
		t.Fatalf("expected the malformed row to be skipped, got %+v", resp.Rules)
	}
	got := resp.Rules[0]
	if got.ID != "r1" || *got.DayOfWeek != 1 || got.StartTime != "07:00" || got.EndTime != "09:00" || got.CrossesMidnight {
		t.Fatalf("display rule = %+v, want Monday 07:00-09:00", got)
	}
	if got.Stored.StartTime != "23:00" || !got.Stored.CrossesMidnight {
		t.Fatalf("stored rule = %+v", got.Stored)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/availability/rules?event_id=evt-1&participant_id=p-1&timezone=Nowhere", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown timezone, got %d", rec.Code)
	}
}

func TestDeleteRule(t *testing.T) {
	store := &fakeStore{}
	c := &fakeCache{}
	h := newTestHandler(store, c)

	rec := do(t, h, http.MethodDelete, "/api/v1/availability/rules?event_id=evt-1&rule_id=r1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !reflect.DeepEqual(store.deleted, []string{"r1"}) || !reflect.DeepEqual(c.invalidated, []string{"evt-1"}) {
		t.Fatalf("deleted=%v invalidated=%v", store.deleted, c.invalidated)
	}

	store.deleteErr = storage.ErrNotFound
	rec = do(t, h, http.MethodDelete, "/api/v1/availability/rules?event_id=evt-1&rule_id=missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	store.deleteErr = errors.New("connection reset")
	rec = do(t, h, http.MethodDelete, "/api/v1/availability/rules?event_id=evt-1&rule_id=r1", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}

func TestRules_MethodNotAllowed(t *testing.T) {
	rec := do(t, newTestHandler(&fakeStore{}, &fakeCache{}), http.MethodPut, "/api/v1/availability/rules", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestEffective_SortedDays(t *testing.T) {
	store := &fakeStore{byParticipant: map[string][]model.Rule{
		"p-1": {{ID: "r", RuleType: model.AvailablePattern, DayOfWeek: model.IntPtr(1), StartTime: "09:00", EndTime: "17:00"}},
	}}
	rec := do(t, newTestHandler(store, &fakeCache{}), http.MethodGet,
		"/api/v1/availability/effective?event_id=evt-1&participant_id=p-1&start_date=2024-01-07&end_date=2024-01-09", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Days []struct {
			Date      string            `json:"date"`
			Available []timerange.Range `json:"available_ranges"`
		} `json:"days"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	var dates []string
	for _, d := range resp.Days {
		dates = append(dates, d.Date)
	}
	if !reflect.DeepEqual(dates, []string{"2024-01-07", "2024-01-08", "2024-01-09"}) {
		t.Fatalf("dates = %v", dates)
	}
	if !reflect.DeepEqual(resp.Days[1].Available, []timerange.Range{{Start: 540, End: 1020}}) {
		t.Fatalf("Monday available = %+v", resp.Days[1].Available)
	}
	if len(resp.Days[0].Available) != 0 {
		t.Fatalf("Sunday should be empty, got %+v", resp.Days[0].Available)
	}
}

func TestHeatmap_ComputesOnceThenServesFromCache(t *testing.T) {
	store := &fakeStore{byParticipant: map[string][]model.Rule{
		"la":     {localRule(t, 1, "17:00", "21:00", "America/Los_Angeles")},
		"london": {localRule(t, 2, "01:00", "05:00", "Europe/London")},
		"tokyo":  {localRule(t, 2, "10:00", "14:00", "Asia/Tokyo")},
	}}
	c := &fakeCache{}
	h := newTestHandler(store, c)
	target := "/api/v1/availability/heatmap?event_id=evt-1&start_date=2024-01-07&end_date=2024-01-13"

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodGet, target, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp heatmapResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ParticipantCount != 3 {
			t.Fatalf("participant_count = %d", resp.ParticipantCount)
		}
		full := 0
		for _, s := range resp.Slots {
			if s.Count == 3 {
				full++
			}
		}
		if full != 8 {
			t.Fatalf("expected 8 slots with everyone, got %d", full)
		}
	}
	if c.sets != 1 || c.gets != 2 {
		t.Fatalf("expected one cache write and two reads, got sets=%d gets=%d", c.sets, c.gets)
	}
}

func TestHeatmap_RuleChangeDuringComputeIsNotCached(t *testing.T) {
	before := map[string][]model.Rule{
		"a": {{RuleType: model.AvailablePattern, DayOfWeek: model.IntPtr(1), StartTime: "09:00", EndTime: "10:00"}},
	}
	after := map[string][]model.Rule{
		"a": {{RuleType: model.AvailablePattern, DayOfWeek: model.IntPtr(1), StartTime: "14:00", EndTime: "15:00"}},
	}
	store := &fakeStore{byParticipant: before}
	c := &fakeCache{}
	store.afterList = func() {
		store.afterList = nil
		store.byParticipant = after
		_ = c.Invalidate(context.Background(), "evt-1")
	}
	h := newTestHandler(store, c)
	target := "/api/v1/availability/heatmap?event_id=evt-1&start_date=2024-01-08&end_date=2024-01-08"

	firstSlots := func() string {
		t.Helper()
		rec := do(t, h, http.MethodGet, target, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp heatmapResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(resp.Slots) == 0 {
			t.Fatalf("no slots in %+v", resp)
		}
		return resp.Slots[0].Time
	}

	if got := firstSlots(); got != "09:00" {
		t.Fatalf("first request slot = %s, want 09:00 from the rules it read", got)
	}
	if got := firstSlots(); got != "14:00" {
		t.Fatalf("second request slot = %s, want 14:00 after the rule change", got)
	}
	if c.sets != 2 {
		t.Fatalf("sets = %d, want 2", c.sets)
	}
}

func TestOverlapsAndSessions(t *testing.T) {
	store := &fakeStore{byParticipant: map[string][]model.Rule{
		"a": {{RuleType: model.AvailablePattern, DayOfWeek: model.IntPtr(1), StartTime: "09:00", EndTime: "12:00"}},
		"b": {{RuleType: model.AvailablePattern, DayOfWeek: model.IntPtr(1), StartTime: "09:00", EndTime: "10:30"}},
	}}
	h := newTestHandler(store, &fakeCache{})
	base := "event_id=evt-1&start_date=2024-01-08&end_date=2024-01-08"

	rec := do(t, h, http.MethodGet, "/api/v1/availability/overlaps?"+base, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var overlaps overlapsResponse
	if err := json.NewDecoder(rec.Body).Decode(&overlaps); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(overlaps.Slots) != 3 {
		t.Fatalf("expected 3 common slots, got %+v", overlaps.Slots)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/availability/sessions?"+base+"&session_minutes=60&min_participants=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var sessions sessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&sessions); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(sessions.Sessions) != 5 {
		t.Fatalf("expected 5 one-hour sessions, got %+v", sessions.Sessions)
	}
	first := sessions.Sessions[0]
	if first.StartTime != "09:00" || first.EndTime != "10:00" || !reflect.DeepEqual(first.ParticipantIDs, []string{"a", "b"}) {
		t.Fatalf("first session = %+v", first)
	}
}

func TestAggregates_RejectBadQueries(t *testing.T) {
	h := newTestHandler(&fakeStore{}, &fakeCache{})
	cases := map[string]string{
		"missing event":       "/api/v1/availability/heatmap?start_date=2024-01-01&end_date=2024-01-02",
		"bad date":            "/api/v1/availability/heatmap?event_id=e&start_date=2024-02-30&end_date=2024-03-01",
		"inverted":            "/api/v1/availability/heatmap?event_id=e&start_date=2024-01-05&end_date=2024-01-01",
		"too long":            "/api/v1/availability/overlaps?event_id=e&start_date=2024-01-01&end_date=2024-03-01",
		"negative min":        "/api/v1/availability/overlaps?event_id=e&start_date=2024-01-01&end_date=2024-01-02&min_participants=-1",
		"zero session":        "/api/v1/availability/sessions?event_id=e&start_date=2024-01-01&end_date=2024-01-02&session_minutes=0",
		"non-numeric":         "/api/v1/availability/sessions?event_id=e&start_date=2024-01-01&end_date=2024-01-02&session_minutes=hour",
		"missing participant": "/api/v1/availability/effective?event_id=e&start_date=2024-01-01&end_date=2024-01-02",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, target, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHeatmap_StoreFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("db down")}
	rec := do(t, newTestHandler(store, &fakeCache{}), http.MethodGet,
		"/api/v1/availability/heatmap?event_id=e&start_date=2024-01-01&end_date=2024-01-02", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestConvert(t *testing.T) {
	h := newTestHandler(&fakeStore{}, &fakeCache{})
	rec := do(t, h, http.MethodPost, "/api/v1/availability/convert",
		`{"days":[1],"start_time":"07:00","end_time":"09:00","from_timezone":"Asia/Manila","to_timezone":"America/New_York"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp convertResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := []tzconv.Pattern{{DayOfWeek: 0, StartTime: "18:00", EndTime: "20:00"}}
	if !reflect.DeepEqual(resp.Patterns, want) {
		t.Fatalf("patterns = %+v, want %+v", resp.Patterns, want)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/availability/convert",
		`{"days":[9],"start_time":"07:00","end_time":"09:00","from_timezone":"UTC","to_timezone":"UTC"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for day 9, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/availability/convert", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestValidatorCustomTags(t *testing.T) {
	v, err := newValidator()
	if err != nil {
		t.Fatalf("newValidator() error = %v", err)
	}
	cases := []struct {
		tag, good, bad string
	}{
		{"clock", "24:00", "9:00"},
		{"iana_tz", "Asia/Kathmandu", "Mars/Olympus"},
		{"date", "2024-02-29", "2023-02-29"},
	}
	for _, tc := range cases {
		if err := v.Var(tc.good, tc.tag); err != nil {
			t.Errorf("%s rejected %q: %v", tc.tag, tc.good, err)
		}
		if err := v.Var(tc.bad, tc.tag); err == nil {
			t.Errorf("%s accepted %q", tc.tag, tc.bad)
		}
	}
}
