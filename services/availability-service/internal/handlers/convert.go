package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/meetsync/libs/httpx"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/tzconv"
)

type convertRequest struct {
	Days         []int  `json:"days" validate:"required,min=1,max=7,dive,min=0,max=6"`
	StartTime    string `json:"start_time" validate:"required,clock"`
	EndTime      string `json:"end_time" validate:"required,clock"`
	FromTimezone string `json:"from_timezone" validate:"required,iana_tz"`
	ToTimezone   string `json:"to_timezone" validate:"required,iana_tz"`
}

type convertResponse struct {
	Timezone string           `json:"timezone"`
	Patterns []tzconv.Pattern `json:"patterns"`
}

// Convert re-expresses a weekly pattern from one timezone in another, for showing a participant's
// hours to someone elsewhere.
func (h *AvailabilityHandler) Convert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req convertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	patterns, err := tzconv.ConvertPatternBetweenTimezones(req.Days, req.StartTime, req.EndTime, req.FromTimezone, req.ToTimezone)
	if err != nil {
		h.writeError(w, r, "failed to convert pattern", err)
		return
	}
	if patterns == nil {
		patterns = []tzconv.Pattern{}
	}
	httpx.WriteJSON(w, http.StatusOK, convertResponse{Timezone: req.ToTimezone, Patterns: patterns})
}
