package engine

import (
	"fmt"
	"sort"
	"time"
)

// AggregateGroup is one slice of a grouped summary.
type AggregateGroup struct {
	ID                string  `json:"id"`
	Label             string  `json:"label"`
	TotalSeconds      int64   `json:"total_seconds"`
	PercentageOfTotal float64 `json:"percentage_of_total"`
	Color             string  `json:"color"`
	EntryCount        int     `json:"entry_count"`
}

// GroupOptions configures Group. Now is required whenever running entries
// may be present.
type GroupOptions struct {
	Now             time.Time
	Calendar        Calendar
	Names           Directory
	UnassignedLabel string
	Palette         Palette
	// ColorByHash colors groups by id alone so a group keeps its color when
	// the ranking shifts between renders.
	ColorByHash   bool
	ClampNegative bool
}

// Group partitions entries along dim. Groups are ordered by total seconds
// descending, ties keeping first-encountered order. Every entry lands in
// exactly one group.
func Group(entries []TimeEntry, dim Dimension, opts GroupOptions) ([]AggregateGroup, error) {
	keyOf, ok := keyFuncs[dim]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
	}
	spans, err := Normalize(entries, opts.Now, NormalizeOptions{ClampNegative: opts.ClampNegative})
	if err != nil {
		return nil, err
	}

	env := keyEnv{cal: opts.Calendar, names: opts.Names, unassigned: opts.UnassignedLabel}
	if env.unassigned == "" {
		env.unassigned = defaultUnassignedLabel
	}

	groups := make([]AggregateGroup, 0)
	index := make(map[string]int)
	var total int64
	for _, s := range spans {
		k := keyOf(s.Entry, env)
		i, seen := index[k.id]
		if !seen {
			i = len(groups)
			index[k.id] = i
			groups = append(groups, AggregateGroup{ID: k.id, Label: k.label})
		}
		groups[i].TotalSeconds += s.Seconds
		groups[i].EntryCount++
		total += s.Seconds
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].TotalSeconds > groups[b].TotalSeconds
	})

	for i := range groups {
		groups[i].PercentageOfTotal = Percentage(groups[i].TotalSeconds, total)
		slot := i
		if opts.ColorByHash {
			slot = -1
		}
		groups[i].Color = opts.Palette.Color(groups[i].ID, slot)
	}
	return groups, nil
}

// Percentage returns part/total*100, or 0 when total is 0.
func Percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// Total sums the seconds of all groups.
func Total(groups []AggregateGroup) int64 {
	var total int64
	for _, g := range groups {
		total += g.TotalSeconds
	}
	return total
}
