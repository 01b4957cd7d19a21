package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/meetsync/libs/httpx"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/tzconv"
)

type ruleInput struct {
	RuleType  string `json:"rule_type" validate:"required,oneof=available_pattern available_override blocked_pattern blocked_override"`
	DayOfWeek *int   `json:"day_of_week" validate:"omitempty,min=0,max=6"`
	Date      string `json:"date" validate:"omitempty,date"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
	Reason    string `json:"reason" validate:"max=500"`
	Source    string `json:"source" validate:"max=64"`
}

type saveRulesRequest struct {
	EventID       string      `json:"event_id" validate:"required,max=128"`
	ParticipantID string      `json:"participant_id" validate:"required,max=128"`
	Timezone      string      `json:"timezone" validate:"required,iana_tz"`
	Mode          string      `json:"mode" validate:"omitempty,oneof=replace adjust"`
	Rules         []ruleInput `json:"rules" validate:"required,min=1,max=200,dive"`
}

type saveRulesResponse struct {
	RuleIDs []string `json:"rule_ids"`
}

type listRulesQuery struct {
	EventID       string `json:"event_id" validate:"required,max=128"`
	ParticipantID string `json:"participant_id" validate:"required,max=128"`
	Timezone      string `json:"timezone" validate:"required,iana_tz"`
}

type deleteRuleQuery struct {
	EventID string `json:"event_id" validate:"required,max=128"`
	RuleID  string `json:"rule_id" validate:"required,max=64"`
}

// ruleItem is a stored rule shown in the viewer's timezone, with the UTC row alongside.
type ruleItem struct {
	ID              string     `json:"id"`
	RuleType        string     `json:"rule_type"`
	Timezone        string     `json:"timezone"`
	DayOfWeek       *int       `json:"day_of_week,omitempty"`
	Date            string     `json:"date,omitempty"`
	StartTime       string     `json:"start_time"`
	EndTime         string     `json:"end_time"`
	CrossesMidnight bool       `json:"crosses_midnight"`
	Reason          string     `json:"reason,omitempty"`
	Source          string     `json:"source,omitempty"`
	Stored          model.Rule `json:"stored"`
}

type listRulesResponse struct {
	Rules []ruleItem `json:"rules"`
}

func (h *AvailabilityHandler) Rules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.saveRules(w, r)
	case http.MethodGet:
		h.listRules(w, r)
	case http.MethodDelete:
		h.deleteRule(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AvailabilityHandler) saveRules(w http.ResponseWriter, r *http.Request) {
	var req saveRulesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.EventID = strings.TrimSpace(req.EventID)
	req.ParticipantID = strings.TrimSpace(req.ParticipantID)
	if err := validate.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	mode := model.Mode(req.Mode)
	if mode == "" {
		mode = model.ModeAdjust
	}

	rules := make([]model.Rule, 0, len(req.Rules))
	for i, in := range req.Rules {
		rule, err := tzconv.PrepareRuleForStorage(model.RuleInput{
			RuleType:  model.RuleType(in.RuleType),
			DayOfWeek: in.DayOfWeek,
			Date:      in.Date,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
			Reason:    strings.TrimSpace(in.Reason),
			Source:    strings.TrimSpace(in.Source),
		}, req.Timezone)
		if err != nil {
			http.Error(w, fmt.Sprintf("rules[%d]: %v", i, err), http.StatusBadRequest)
			return
		}
		rules = append(rules, rule)
	}

	ctx := r.Context()
	ids, err := h.store.SaveRules(ctx, req.EventID, req.ParticipantID, mode, rules)
	if err != nil {
		h.writeError(w, r, "failed to save rules", err)
		return
	}
	h.invalidate(r, req.EventID)
	httpx.WriteJSON(w, http.StatusCreated, saveRulesResponse{RuleIDs: ids})
}

func (h *AvailabilityHandler) listRules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := listRulesQuery{
		EventID:       strings.TrimSpace(q.Get("event_id")),
		ParticipantID: strings.TrimSpace(q.Get("participant_id")),
		Timezone:      q.Get("timezone"),
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	stored, err := h.store.ListRules(ctx, req.EventID, req.ParticipantID)
	if err != nil {
		h.writeError(w, r, "failed to list rules", err)
		return
	}

	items := make([]ruleItem, 0, len(stored))
	for _, rule := range stored {
		d, err := tzconv.ConvertRuleForDisplay(rule, req.Timezone)
		if errors.Is(err, tzconv.ErrInconsistentRule) {
			h.logger.WarnContext(ctx, "skipping malformed rule", "rule_id", rule.ID, "event_id", req.EventID)
			continue
		}
		if err != nil {
			h.writeError(w, r, "failed to convert rules", err)
			return
		}
		items = append(items, ruleItem{
			ID:              rule.ID,
			RuleType:        string(rule.RuleType),
			Timezone:        d.Timezone,
			DayOfWeek:       d.DayOfWeek,
			Date:            d.Date,
			StartTime:       d.StartTime,
			EndTime:         d.EndTime,
			CrossesMidnight: d.CrossesMidnight,
			Reason:          rule.Reason,
			Source:          rule.Source,
			Stored:          rule,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, listRulesResponse{Rules: items})
}

func (h *AvailabilityHandler) deleteRule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := deleteRuleQuery{
		EventID: strings.TrimSpace(q.Get("event_id")),
		RuleID:  strings.TrimSpace(q.Get("rule_id")),
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}
	if err := h.store.DeleteRule(r.Context(), req.EventID, req.RuleID); err != nil {
		h.writeError(w, r, "failed to delete rule", err)
		return
	}
	h.invalidate(r, req.EventID)
	w.WriteHeader(http.StatusNoContent)
}

// invalidate drops cached heatmaps for the event. A failure only delays freshness until the TTL.
func (h *AvailabilityHandler) invalidate(r *http.Request, eventID string) {
	if err := h.cache.Invalidate(r.Context(), eventID); err != nil {
		h.logger.WarnContext(r.Context(), "heatmap cache invalidation failed", "err", err, "event_id", eventID)
	}
}
