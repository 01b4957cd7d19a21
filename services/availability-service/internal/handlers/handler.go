// Package handlers exposes rule editing and availability queries over HTTP.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/cache"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/overlap"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/storage"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/timerange"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/tzconv"
)

type RuleStore interface {
	ListRules(ctx context.Context, eventID, participantID string) ([]model.Rule, error)
	ListRulesByEvent(ctx context.Context, eventID string) (map[string][]model.Rule, error)
	SaveRules(ctx context.Context, eventID, participantID string, mode model.Mode, rules []model.Rule) ([]string, error)
	DeleteRule(ctx context.Context, eventID, ruleID string) error
}

type AvailabilityHandler struct {
	store        RuleStore
	cache        cache.HeatmapCache
	logger       *slog.Logger
	maxRangeDays int
}

func NewAvailabilityHandler(store RuleStore, heatmaps cache.HeatmapCache, logger *slog.Logger, maxRangeDays int) *AvailabilityHandler {
	if heatmaps == nil {
		heatmaps = cache.Nop{}
	}
	if maxRangeDays <= 0 {
		maxRangeDays = 62
	}
	return &AvailabilityHandler{store: store, cache: heatmaps, logger: logger, maxRangeDays: maxRangeDays}
}

func (h *AvailabilityHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/availability/rules", h.Rules)
	mux.HandleFunc("/api/v1/availability/effective", h.Effective)
	mux.HandleFunc("/api/v1/availability/heatmap", h.Heatmap)
	mux.HandleFunc("/api/v1/availability/overlaps", h.Overlaps)
	mux.HandleFunc("/api/v1/availability/sessions", h.Sessions)
	mux.HandleFunc("/api/v1/availability/convert", h.Convert)
}

type rangeQuery struct {
	EventID   string `json:"event_id" validate:"required,max=128"`
	StartDate string `json:"start_date" validate:"required,date"`
	EndDate   string `json:"end_date" validate:"required,date"`
}

func (q rangeQuery) dateRange() timerange.DateRange {
	return timerange.DateRange{StartDate: q.StartDate, EndDate: q.EndDate}
}

func rangeQueryFrom(v url.Values) rangeQuery {
	return rangeQuery{
		EventID:   v.Get("event_id"),
		StartDate: v.Get("start_date"),
		EndDate:   v.Get("end_date"),
	}
}

// checkRange rejects inverted ranges and ranges longer than the configured limit.
func (h *AvailabilityHandler) checkRange(dr timerange.DateRange) error {
	n, err := timerange.DaysBetween(dr.StartDate, dr.EndDate)
	if err != nil {
		return err
	}
	if n < 0 {
		return errors.New("start_date must not be after end_date")
	}
	if n+1 > h.maxRangeDays {
		return fmt.Errorf("date range exceeds %d days", h.maxRangeDays)
	}
	return nil
}

// queryInt reads an optional integer query parameter.
func queryInt(v url.Values, key string, fallback int) (int, error) {
	raw := v.Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func isInputError(err error) bool {
	for _, target := range []error{
		timerange.ErrInvalidTime,
		timerange.ErrInvalidDate,
		tzconv.ErrUnknownTimezone,
		tzconv.ErrInvalidDayOfWeek,
		tzconv.ErrInvalidRuleType,
		tzconv.ErrInconsistentRule,
		overlap.ErrInvalidSessionLength,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeError maps domain errors onto status codes. Unexpected errors are logged and hidden.
func (h *AvailabilityHandler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case isInputError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.ErrorContext(r.Context(), msg, "err", err, "path", r.URL.Path)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}
