// Package overlap aggregates effective availability across participants into slot counts, common
// slots and candidate sessions. Everything is in UTC.
package overlap

import (
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/timerange"
)

// Cell is one heatmap entry.
type Cell struct {
	Count          int      `json:"count"`
	ParticipantIDs []string `json:"participant_ids"`
}

// Heatmap is keyed by "date|time" slot keys. Only slots with at least one participant are present.
type Heatmap map[string]Cell

// Slots returns the heatmap's slots sorted by date then time.
func (h Heatmap) Slots() []timerange.Slot {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]timerange.Slot, 0, len(keys))
	for _, k := range keys {
		if s, ok := timerange.ParseSlotKey(k); ok {
			out = append(out, s)
		}
	}
	return out
}

// ComputeHeatmap counts, per 30-minute UTC slot, how many participants are available. Ranges that run
// past midnight land on the following date's slots, which may lie after dr.EndDate.
func ComputeHeatmap(participants map[string][]model.Rule, dr timerange.DateRange) (Heatmap, error) {
	ids := sortedIDs(participants)
	perParticipant := make([]map[string]struct{}, len(ids))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			keys, err := participantSlots(participants[id], dr)
			if err != nil {
				return fmt.Errorf("participant %s: %w", id, err)
			}
			perParticipant[i] = keys
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := Heatmap{}
	for i, keys := range perParticipant {
		out.add(ids[i], keys)
	}
	return out, nil
}

// participantSlots returns the set of slot keys one participant covers. A slot reached from two
// adjacent dates counts once.
func participantSlots(rules []model.Rule, dr timerange.DateRange) (map[string]struct{}, error) {
	days, err := availability.ComputeRange(rules, dr)
	if err != nil {
		return nil, err
	}
	keys := map[string]struct{}{}
	for date, day := range days {
		slots, err := timerange.ToSlots(day.Available, date)
		if err != nil {
			return nil, err
		}
		for _, s := range slots {
			keys[s.Key()] = struct{}{}
		}
	}
	return keys, nil
}

// add folds one participant's slots into h. Participants are folded in ID order, so the ID lists stay sorted.
func (h Heatmap) add(id string, keys map[string]struct{}) {
	for k := range keys {
		c := h[k]
		c.Count++
		c.ParticipantIDs = append(c.ParticipantIDs, id)
		h[k] = c
	}
}

func sortedIDs(participants map[string][]model.Rule) []string {
	ids := make([]string, 0, len(participants))
	for id := range participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
