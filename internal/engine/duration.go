package engine

import "time"

// TimeEntry is one recorded interval of work as handed to the engine.
// A nil EndTime means the entry is still running.
type TimeEntry struct {
	ID          int64      `json:"id"`
	UserID      *int64     `json:"user_id,omitempty"`
	ProjectID   *int64     `json:"project_id,omitempty"`
	TeamID      *int64     `json:"team_id,omitempty"`
	TaskID      *int64     `json:"task_id,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Running reports whether the entry has no end time yet.
func (e TimeEntry) Running() bool { return e.EndTime == nil }

// Span pairs an entry with its normalized duration.
type Span struct {
	Entry   TimeEntry
	Seconds int64
}

// NormalizeOptions controls batch normalization.
type NormalizeOptions struct {
	// ClampNegative turns an end-before-start entry into a zero duration
	// instead of failing the whole batch.
	ClampNegative bool
}

// DurationSeconds returns the whole seconds covered by e. Running entries
// are measured against now.
func DurationSeconds(e TimeEntry, now time.Time) (int64, error) {
	end := now
	if e.EndTime != nil {
		end = *e.EndTime
	}
	d := end.Sub(e.StartTime)
	if d < 0 {
		return 0, &InvalidRangeError{
			EntryID: e.ID,
			Start:   e.StartTime,
			End:     end,
			Running: e.EndTime == nil,
		}
	}
	return int64(d / time.Second), nil
}

// Normalize computes durations for every entry in order. Without
// ClampNegative the first invalid entry aborts and no spans are returned.
func Normalize(entries []TimeEntry, now time.Time, opts NormalizeOptions) ([]Span, error) {
	spans := make([]Span, 0, len(entries))
	for _, e := range entries {
		secs, err := DurationSeconds(e, now)
		if err != nil {
			if !opts.ClampNegative {
				return nil, err
			}
			secs = 0
		}
		spans = append(spans, Span{Entry: e, Seconds: secs})
	}
	return spans, nil
}

// TotalSeconds sums the spans.
func TotalSeconds(spans []Span) int64 {
	var total int64
	for _, s := range spans {
		total += s.Seconds
	}
	return total
}
