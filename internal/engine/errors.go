package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidRange      = errors.New("invalid range: end before start")
	ErrMissingRate       = errors.New("missing billing rate")
	ErrDivisionUndefined = errors.New("percent change undefined: previous total is zero")

	ErrUnknownDimension  = errors.New("unknown grouping dimension")
	ErrUnknownBucketUnit = errors.New("unknown bucket unit")
	ErrAveragePolicy     = errors.New("average policy must be set")
	ErrEmptyRange        = errors.New("date range end must be after start")
	ErrNegativeRate      = errors.New("rate must not be negative")
)

// InvalidRangeError reports the entry whose end (or the supplied now, for a
// running entry) lies before its start.
type InvalidRangeError struct {
	EntryID int64
	Start   time.Time
	End     time.Time
	Running bool
}

func (e *InvalidRangeError) Error() string {
	kind := "end"
	if e.Running {
		kind = "now"
	}
	return fmt.Sprintf("entry %d: %s %s is before start %s", e.EntryID, kind,
		e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

func (e *InvalidRangeError) Is(target error) bool { return target == ErrInvalidRange }

// MissingRateError names the group that has no configured rate.
type MissingRateError struct {
	GroupID string
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("missing billing rate for group %q", e.GroupID)
}

func (e *MissingRateError) Is(target error) bool { return target == ErrMissingRate }
