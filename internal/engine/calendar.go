package engine

import (
	"fmt"
	"time"
)

// BucketUnit is the width of one sub-interval of a date range.
type BucketUnit string

const (
	UnitDay   BucketUnit = "day"
	UnitWeek  BucketUnit = "week"
	UnitMonth BucketUnit = "month"
)

// ParseBucketUnit validates s at the call boundary.
func ParseBucketUnit(s string) (BucketUnit, error) {
	u := BucketUnit(s)
	if !u.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownBucketUnit, s)
	}
	return u, nil
}

func (u BucketUnit) Valid() bool {
	switch u {
	case UnitDay, UnitWeek, UnitMonth:
		return true
	}
	return false
}

// Calendar decides where bucket boundaries fall. The zero value buckets in
// UTC with weeks starting on Monday.
type Calendar struct {
	Location    *time.Location
	SundayFirst bool
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Calendar) firstWeekday() time.Weekday {
	if c.SundayFirst {
		return time.Sunday
	}
	return time.Monday
}

// Floor returns the start of the bucket containing t.
func (c Calendar) Floor(t time.Time, u BucketUnit) time.Time {
	t = t.In(c.location())
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch u {
	case UnitWeek:
		back := (int(day.Weekday()) - int(c.firstWeekday()) + 7) % 7
		return day.AddDate(0, 0, -back)
	case UnitMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}

// Next returns the start of the bucket after the one starting at start.
func (c Calendar) Next(start time.Time, u BucketUnit) time.Time {
	switch u {
	case UnitWeek:
		return start.AddDate(0, 0, 7)
	case UnitMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// BucketKey renders a bucket start as its stable key: 2006-01-02 for days
// and weeks (the week-start date), 2006-01 for months.
func BucketKey(start time.Time, u BucketUnit) string {
	if u == UnitMonth {
		return start.Format("2006-01")
	}
	return start.Format("2006-01-02")
}

// BucketLabel renders a bucket start for people.
func BucketLabel(start time.Time, u BucketUnit) string {
	switch u {
	case UnitWeek:
		return "Week of " + start.Format("Jan 02, 2006")
	case UnitMonth:
		return start.Format("January 2006")
	default:
		return start.Format("Mon, Jan 02 2006")
	}
}
