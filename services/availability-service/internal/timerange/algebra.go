package timerange

import "sort"

// Overlaps uses half-open semantics: ranges that only touch do not overlap.
func Overlaps(a, b Range) bool {
	return a.Start < b.End && b.Start < a.End
}

func Adjacent(a, b Range) bool {
	return a.End == b.Start || b.End == a.Start
}

// MergeTwo returns the union of a and b when they overlap or touch.
func MergeTwo(a, b Range) (Range, bool) {
	if !Overlaps(a, b) && !Adjacent(a, b) {
		return Range{}, false
	}
	return Range{Start: min(a.Start, b.Start), End: max(a.End, b.End)}, true
}

// Merge returns the minimal sorted set of non-overlapping, non-touching ranges covering the input.
// Empty ranges are dropped. The input is not modified.
func Merge(ranges []Range) []Range {
	sorted := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if !r.Empty() {
			sorted = append(sorted, r)
		}
	}
	if len(sorted) == 0 {
		return []Range{}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	out := []Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if merged, ok := MergeTwo(*last, r); ok {
			*last = merged
			continue
		}
		out = append(out, r)
	}
	return out
}

// SubtractOne removes b's coverage from a, leaving zero, one or two pieces.
func SubtractOne(a, b Range) []Range {
	if a.Empty() {
		return nil
	}
	if b.Empty() || !Overlaps(a, b) {
		return []Range{a}
	}
	var out []Range
	if a.Start < b.Start {
		out = append(out, Range{Start: a.Start, End: b.Start})
	}
	if b.End < a.End {
		out = append(out, Range{Start: b.End, End: a.End})
	}
	return out
}

// Subtract removes every range in toSubtract from every range in base. Gaps between base ranges are
// left alone; the result only ever shrinks.
func Subtract(base, toSubtract []Range) []Range {
	current := Merge(base)
	for _, b := range toSubtract {
		if b.Empty() {
			continue
		}
		next := make([]Range, 0, len(current)+1)
		for _, a := range current {
			next = append(next, SubtractOne(a, b)...)
		}
		current = next
	}
	return Merge(current)
}

func Add(a, b []Range) []Range {
	all := make([]Range, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	return Merge(all)
}

func IntersectTwo(a, b Range) (Range, bool) {
	if !Overlaps(a, b) {
		return Range{}, false
	}
	return Range{Start: max(a.Start, b.Start), End: min(a.End, b.End)}, true
}

// Intersect returns every pairwise intersection between the two lists.
func Intersect(a, b []Range) []Range {
	var out []Range
	for _, x := range a {
		for _, y := range b {
			if r, ok := IntersectTwo(x, y); ok {
				out = append(out, r)
			}
		}
	}
	return out
}

// TotalMinutes sums merged coverage so overlapping input is counted once.
func TotalMinutes(ranges []Range) int {
	total := 0
	for _, r := range Merge(ranges) {
		total += r.Duration()
	}
	return total
}

func ContainsMinute(ranges []Range, minute int) bool {
	for _, r := range ranges {
		if minute >= r.Start && minute < r.End {
			return true
		}
	}
	return false
}

// ClampToWindow clips every range to window, dropping what falls outside it.
func ClampToWindow(ranges []Range, window Range) []Range {
	var out []Range
	for _, r := range ranges {
		if c, ok := IntersectTwo(r, window); ok {
			out = append(out, c)
		}
	}
	return out
}
