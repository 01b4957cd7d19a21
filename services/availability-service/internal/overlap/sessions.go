package overlap

import (
	"errors"

	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/timerange"
)

var ErrInvalidSessionLength = errors.New("session length must be positive")

// SlotParticipants is one common slot and who is available in it.
type SlotParticipants struct {
	Date           string   `json:"date"`
	Time           string   `json:"time"`
	ParticipantIDs []string `json:"participant_ids"`
}

// Session is a candidate meeting start. EndDate/EndTime are the start plus the requested length.
type Session struct {
	Date           string   `json:"date"`
	StartTime      string   `json:"start_time"`
	EndDate        string   `json:"end_date"`
	EndTime        string   `json:"end_time"`
	ParticipantIDs []string `json:"participant_ids"`
}

// threshold resolves minParticipants; zero or negative means everyone.
func threshold(minParticipants, total int) int {
	if minParticipants <= 0 {
		return total
	}
	return minParticipants
}

// FindOverlappingSlots returns the slots where at least minParticipants are available, sorted by date
// then time.
func FindOverlappingSlots(participants map[string][]model.Rule, dr timerange.DateRange, minParticipants int) ([]SlotParticipants, error) {
	h, err := ComputeHeatmap(participants, dr)
	if err != nil {
		return nil, err
	}
	return OverlappingFromHeatmap(h, len(participants), minParticipants), nil
}

// OverlappingFromHeatmap filters an already computed heatmap of total participants.
func OverlappingFromHeatmap(h Heatmap, total, minParticipants int) []SlotParticipants {
	return overlapping(h, threshold(minParticipants, total))
}

func overlapping(h Heatmap, atLeast int) []SlotParticipants {
	out := []SlotParticipants{}
	for _, s := range h.Slots() {
		c := h[s.Key()]
		if c.Count >= atLeast {
			out = append(out, SlotParticipants{Date: s.Date, Time: s.Time, ParticipantIDs: c.ParticipantIDs})
		}
	}
	return out
}

// FindSessionSlots slides a window of ceil(sessionMinutes/30) consecutive common slots one slot at a
// time. A window is kept when the participants present in every one of its slots still meet the
// threshold. Overlapping windows are all returned.
func FindSessionSlots(participants map[string][]model.Rule, dr timerange.DateRange, sessionMinutes, minParticipants int) ([]Session, error) {
	if sessionMinutes <= 0 {
		return nil, ErrInvalidSessionLength
	}
	h, err := ComputeHeatmap(participants, dr)
	if err != nil {
		return nil, err
	}
	return SessionsFromHeatmap(h, len(participants), sessionMinutes, minParticipants)
}

// SessionsFromHeatmap runs the session search over an already computed heatmap of total participants.
func SessionsFromHeatmap(h Heatmap, total, sessionMinutes, minParticipants int) ([]Session, error) {
	if sessionMinutes <= 0 {
		return nil, ErrInvalidSessionLength
	}
	atLeast := threshold(minParticipants, total)
	common := overlapping(h, atLeast)

	byMinute := make(map[int]SlotParticipants, len(common))
	starts := make([]int, 0, len(common))
	for _, s := range common {
		m, err := timerange.AbsoluteMinute(timerange.Slot{Date: s.Date, Time: s.Time})
		if err != nil {
			return nil, err
		}
		byMinute[m] = s
		starts = append(starts, m)
	}

	window := (sessionMinutes + timerange.SlotMinutes - 1) / timerange.SlotMinutes
	out := []Session{}
	for _, start := range starts {
		ids := byMinute[start].ParticipantIDs
		for k := 1; k < window && len(ids) > 0; k++ {
			next, found := byMinute[start+k*timerange.SlotMinutes]
			if !found {
				ids = nil
				break
			}
			ids = intersect(ids, next.ParticipantIDs)
		}
		if len(ids) == 0 || len(ids) < atLeast {
			continue
		}
		out = append(out, newSession(byMinute[start], start, sessionMinutes, ids))
	}
	return out, nil
}

func newSession(first SlotParticipants, startMinute, sessionMinutes int, ids []string) Session {
	end := timerange.SlotAtMinute(startMinute + sessionMinutes)
	return Session{
		Date:           first.Date,
		StartTime:      first.Time,
		EndDate:        end.Date,
		EndTime:        end.Time,
		ParticipantIDs: ids,
	}
}

// intersect keeps the IDs present in both sorted lists.
func intersect(a, b []string) []string {
	out := make([]string, 0, len(a))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}
