package engine

import "time"

var base = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC) // a Monday

func id(v int64) *int64 { return &v }

func at(t time.Time) *time.Time { return &t }

// closed builds a finished entry starting offset after base.
func closed(entryID int64, project *int64, offset, dur time.Duration) TimeEntry {
	start := base.Add(offset)
	return TimeEntry{ID: entryID, ProjectID: project, StartTime: start, EndTime: at(start.Add(dur))}
}
