package handlers

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/meetsync/libs/httpx"
	otelx "github.com/md-rashed-zaman/meetsync/libs/otel"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/overlap"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/timerange"
)

var tracer = otelx.Tracer("availability-handlers")

type effectiveQuery struct {
	rangeQuery
	ParticipantID string `json:"participant_id" validate:"required,max=128"`
}

type effectiveResponse struct {
	EventID       string                         `json:"event_id"`
	ParticipantID string                         `json:"participant_id"`
	Days          []availability.DayAvailability `json:"days"`
}

type heatmapSlot struct {
	Date           string   `json:"date"`
	Time           string   `json:"time"`
	Count          int      `json:"count"`
	ParticipantIDs []string `json:"participant_ids"`
}

type heatmapResponse struct {
	EventID          string        `json:"event_id"`
	ParticipantCount int           `json:"participant_count"`
	Slots            []heatmapSlot `json:"slots"`
}

type overlapsQuery struct {
	rangeQuery
	MinParticipants int `json:"min_participants" validate:"min=0"`
}

type overlapsResponse struct {
	EventID          string                     `json:"event_id"`
	ParticipantCount int                        `json:"participant_count"`
	Slots            []overlap.SlotParticipants `json:"slots"`
}

type sessionsQuery struct {
	rangeQuery
	SessionMinutes  int `json:"session_minutes" validate:"required,min=1,max=1440"`
	MinParticipants int `json:"min_participants" validate:"min=0"`
}

type sessionsResponse struct {
	EventID          string            `json:"event_id"`
	ParticipantCount int               `json:"participant_count"`
	SessionMinutes   int               `json:"session_minutes"`
	Sessions         []overlap.Session `json:"sessions"`
}

func (h *AvailabilityHandler) Effective(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	req := effectiveQuery{
		rangeQuery:    rangeQueryFrom(q),
		ParticipantID: strings.TrimSpace(q.Get("participant_id")),
	}
	if !h.validRange(w, req, req.dateRange()) {
		return
	}

	rules, err := h.store.ListRules(r.Context(), req.EventID, req.ParticipantID)
	if err != nil {
		h.writeError(w, r, "failed to load rules", err)
		return
	}
	byDate, err := availability.ComputeRange(rules, req.dateRange())
	if err != nil {
		h.writeError(w, r, "failed to compute availability", err)
		return
	}
	days := make([]availability.DayAvailability, 0, len(byDate))
	for _, day := range byDate {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	httpx.WriteJSON(w, http.StatusOK, effectiveResponse{
		EventID:       req.EventID,
		ParticipantID: req.ParticipantID,
		Days:          days,
	})
}

func (h *AvailabilityHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := rangeQueryFrom(r.URL.Query())
	if !h.validRange(w, req, req.dateRange()) {
		return
	}

	hm, total, err := h.loadHeatmap(r.Context(), req.EventID, req.dateRange())
	if err != nil {
		h.writeError(w, r, "failed to compute heatmap", err)
		return
	}
	slots := make([]heatmapSlot, 0, len(hm))
	for _, s := range hm.Slots() {
		c := hm[s.Key()]
		slots = append(slots, heatmapSlot{Date: s.Date, Time: s.Time, Count: c.Count, ParticipantIDs: c.ParticipantIDs})
	}
	httpx.WriteJSON(w, http.StatusOK, heatmapResponse{EventID: req.EventID, ParticipantCount: total, Slots: slots})
}

func (h *AvailabilityHandler) Overlaps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	minParticipants, err := queryInt(q, "min_participants", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := overlapsQuery{rangeQuery: rangeQueryFrom(q), MinParticipants: minParticipants}
	if !h.validRange(w, req, req.dateRange()) {
		return
	}

	hm, total, err := h.loadHeatmap(r.Context(), req.EventID, req.dateRange())
	if err != nil {
		h.writeError(w, r, "failed to compute overlaps", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, overlapsResponse{
		EventID:          req.EventID,
		ParticipantCount: total,
		Slots:            overlap.OverlappingFromHeatmap(hm, total, req.MinParticipants),
	})
}

func (h *AvailabilityHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	sessionMinutes, err := queryInt(q, "session_minutes", 60)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	minParticipants, err := queryInt(q, "min_participants", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := sessionsQuery{rangeQuery: rangeQueryFrom(q), SessionMinutes: sessionMinutes, MinParticipants: minParticipants}
	if !h.validRange(w, req, req.dateRange()) {
		return
	}

	ctx := r.Context()
	hm, total, err := h.loadHeatmap(ctx, req.EventID, req.dateRange())
	if err != nil {
		h.writeError(w, r, "failed to compute sessions", err)
		return
	}
	sessions, err := overlap.SessionsFromHeatmap(hm, total, req.SessionMinutes, req.MinParticipants)
	if err != nil {
		h.writeError(w, r, "failed to compute sessions", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessionsResponse{
		EventID:          req.EventID,
		ParticipantCount: total,
		SessionMinutes:   req.SessionMinutes,
		Sessions:         sessions,
	})
}

// validRange validates req and the range bounds, writing a 400 when either fails.
func (h *AvailabilityHandler) validRange(w http.ResponseWriter, req any, dr timerange.DateRange) bool {
	if err := validate.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	if err := h.checkRange(dr); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// loadHeatmap returns the event's heatmap for dr and how many participants have rules. The cache
// version is read before the rules so a concurrent rule change can only land a stale heatmap under a
// superseded key. Cache errors fall through to computation.
func (h *AvailabilityHandler) loadHeatmap(ctx context.Context, eventID string, dr timerange.DateRange) (overlap.Heatmap, int, error) {
	ctx, span := tracer.Start(ctx, "availability.heatmap", trace.WithAttributes(
		attribute.String("event_id", eventID),
		attribute.String("start_date", dr.StartDate),
		attribute.String("end_date", dr.EndDate),
	))
	defer span.End()

	version, err := h.cache.Version(ctx, eventID)
	cacheable := err == nil
	if err != nil {
		h.logger.WarnContext(ctx, "heatmap cache version read failed", "err", err, "event_id", eventID)
	}

	participants, err := h.store.ListRulesByEvent(ctx, eventID)
	if err != nil {
		return nil, 0, otelx.FailSpan(span, err, "list rules")
	}
	span.SetAttributes(attribute.Int("participants", len(participants)))

	if cacheable {
		cached, ok, err := h.cache.Get(ctx, eventID, version, dr)
		if err != nil {
			h.logger.WarnContext(ctx, "heatmap cache read failed", "err", err, "event_id", eventID)
		}
		span.SetAttributes(attribute.Bool("cache_hit", ok))
		if ok {
			return cached, len(participants), nil
		}
	}

	hm, err := overlap.ComputeHeatmap(participants, dr)
	if err != nil {
		return nil, 0, otelx.FailSpan(span, err, "compute heatmap")
	}
	if cacheable {
		if err := h.cache.Set(ctx, eventID, version, dr, hm); err != nil {
			h.logger.WarnContext(ctx, "heatmap cache write failed", "err", err, "event_id", eventID)
		}
	}
	return hm, len(participants), nil
}
