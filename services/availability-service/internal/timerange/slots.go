package timerange

import (
	"sort"
	"strings"
	"time"
)

// Slot marks the start of one 30-minute cell on a civil date.
type Slot struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (s Slot) Key() string {
	return s.Date + "|" + s.Time
}

// ParseSlotKey splits a "date|time" key.
func ParseSlotKey(key string) (Slot, bool) {
	date, clock, ok := strings.Cut(key, "|")
	if !ok {
		return Slot{}, false
	}
	return Slot{Date: date, Time: clock}, true
}

// ToSlots expands ranges anchored at date into 30-minute slot markers. Minutes past 1440 land on the
// following date(s). The slot starting at End is excluded; empty ranges emit nothing.
func ToSlots(ranges []Range, date string) ([]Slot, error) {
	base, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	var out []Slot
	dates := map[int]string{0: date}
	for _, r := range ranges {
		for m := r.Start; m < r.End; m += SlotMinutes {
			offset := floorDiv(m, MinutesPerDay)
			d, ok := dates[offset]
			if !ok {
				d = base.AddDate(0, 0, offset).Format(DateLayout)
				dates[offset] = d
			}
			out = append(out, Slot{Date: d, Time: FormatClock(m)})
		}
	}
	return out, nil
}

// FromSlots groups slots per date and folds runs of consecutive 30-minute slots into ranges. A
// missing slot ends the run.
func FromSlots(slots []Slot) (map[string][]Range, error) {
	perDate := map[string][]int{}
	for _, s := range slots {
		m, err := ParseClock(s.Time)
		if err != nil {
			return nil, err
		}
		perDate[s.Date] = append(perDate[s.Date], m)
	}

	out := make(map[string][]Range, len(perDate))
	for date, minutes := range perDate {
		sort.Ints(minutes)
		var ranges []Range
		runStart, prev := minutes[0], minutes[0]
		for _, m := range minutes[1:] {
			if m == prev {
				continue
			}
			if m != prev+SlotMinutes {
				ranges = append(ranges, Range{Start: runStart, End: prev + SlotMinutes})
				runStart = m
			}
			prev = m
		}
		ranges = append(ranges, Range{Start: runStart, End: prev + SlotMinutes})
		out[date] = Merge(ranges)
	}
	return out, nil
}

// AbsoluteMinute places a slot on a single timeline so consecutive slots across midnight are 30 apart.
func AbsoluteMinute(s Slot) (int, error) {
	t, err := ParseDate(s.Date)
	if err != nil {
		return 0, err
	}
	m, err := ParseClock(s.Time)
	if err != nil {
		return 0, err
	}
	return int(t.Unix()/60) + m, nil
}

// SlotAtMinute is the inverse of AbsoluteMinute. Minutes that are not on a slot boundary keep their
// exact clock.
func SlotAtMinute(m int) Slot {
	day := time.Unix(int64(floorDiv(m, MinutesPerDay))*86400, 0).UTC()
	return Slot{Date: day.Format(DateLayout), Time: FormatClock(m)}
}
