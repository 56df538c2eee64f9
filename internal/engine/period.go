package engine

import (
	"fmt"
	"time"
)

// DateRange is the half-open interval [Start, End).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r DateRange) Length() time.Duration { return r.End.Sub(r.Start) }

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// PreviousRange returns the range of identical length ending where r starts.
func PreviousRange(r DateRange) DateRange {
	return DateRange{Start: r.Start.Add(-r.Length()), End: r.Start}
}

// AveragePolicy selects the divisor for bucket averages.
type AveragePolicy string

const (
	// AverageNonEmpty divides by the buckets that received any time.
	AverageNonEmpty AveragePolicy = "non_empty"
	// AverageCalendar divides by every calendar bucket the range touches.
	// A partial bucket at either edge counts as a whole one, so a seven-day
	// range from a Wednesday averages over two weeks.
	AverageCalendar AveragePolicy = "calendar"
)

func ParseAveragePolicy(s string) (AveragePolicy, error) {
	p := AveragePolicy(s)
	if p != AverageNonEmpty && p != AverageCalendar {
		return "", fmt.Errorf("%w: %q", ErrAveragePolicy, s)
	}
	return p, nil
}

// PeriodBucket is the total for one sub-interval of a range.
type PeriodBucket struct {
	Key          string    `json:"key"`
	Start        time.Time `json:"start"`
	TotalSeconds int64     `json:"total_seconds"`
}

// BucketDelta pairs the i-th bucket of both ranges.
type BucketDelta struct {
	Index           int    `json:"index"`
	CurrentKey      string `json:"current_key,omitempty"`
	PreviousKey     string `json:"previous_key,omitempty"`
	CurrentSeconds  int64  `json:"current_seconds"`
	PreviousSeconds int64  `json:"previous_seconds"`
	DeltaSeconds    int64  `json:"delta_seconds"`
}

// PeriodComparison is the result of Compare. PercentChange is nil when the
// previous total is zero; use Change to get the reason.
type PeriodComparison struct {
	Unit            BucketUnit     `json:"unit"`
	Policy          AveragePolicy  `json:"average_policy"`
	Current         DateRange      `json:"current"`
	Previous        DateRange      `json:"previous"`
	CurrentBuckets  []PeriodBucket `json:"current_buckets"`
	PreviousBuckets []PeriodBucket `json:"previous_buckets"`
	CurrentTotal    int64          `json:"current_total"`
	PreviousTotal   int64          `json:"previous_total"`
	CurrentAverage  float64        `json:"current_average"`
	PreviousAverage float64        `json:"previous_average"`
	DeltaSeconds    int64          `json:"delta_seconds"`
	Deltas          []BucketDelta  `json:"deltas"`
	PercentChange   *float64       `json:"percent_change"`
}

// Change returns the percent change of the totals.
func (c PeriodComparison) Change() (float64, error) {
	return PercentChange(c.CurrentTotal, c.PreviousTotal)
}

// PercentChange returns (current-previous)/previous*100. A zero baseline
// yields ErrDivisionUndefined.
func PercentChange(current, previous int64) (float64, error) {
	if previous == 0 {
		return 0, ErrDivisionUndefined
	}
	return float64(current-previous) / float64(previous) * 100, nil
}

// CompareOptions configures Compare. Policy has no default.
type CompareOptions struct {
	Now           time.Time
	Calendar      Calendar
	Policy        AveragePolicy
	ClampNegative bool
}

// Compare buckets the entries starting inside rng and inside the preceding
// range of equal length. An entry counts toward the bucket holding its start
// only, even when it runs past the bucket boundary. Buckets are aligned to
// the calendar, not to rng.Start, so a range that starts mid-bucket gets a
// partial first and last bucket.
func Compare(entries []TimeEntry, rng DateRange, unit BucketUnit, opts CompareOptions) (PeriodComparison, error) {
	if !unit.Valid() {
		return PeriodComparison{}, fmt.Errorf("%w: %q", ErrUnknownBucketUnit, unit)
	}
	if opts.Policy != AverageNonEmpty && opts.Policy != AverageCalendar {
		return PeriodComparison{}, fmt.Errorf("%w: %q", ErrAveragePolicy, opts.Policy)
	}
	if !rng.End.After(rng.Start) {
		return PeriodComparison{}, ErrEmptyRange
	}

	prev := PreviousRange(rng)
	cur := newSeries(opts.Calendar, rng, unit)
	old := newSeries(opts.Calendar, prev, unit)

	for _, e := range entries {
		var target *series
		switch {
		case rng.Contains(e.StartTime):
			target = cur
		case prev.Contains(e.StartTime):
			target = old
		default:
			continue
		}
		secs, err := DurationSeconds(e, opts.Now)
		if err != nil {
			if !opts.ClampNegative {
				return PeriodComparison{}, err
			}
			secs = 0
		}
		target.add(e.StartTime, secs)
	}

	c := PeriodComparison{
		Unit:            unit,
		Policy:          opts.Policy,
		Current:         rng,
		Previous:        prev,
		CurrentBuckets:  cur.buckets,
		PreviousBuckets: old.buckets,
		CurrentTotal:    cur.total(),
		PreviousTotal:   old.total(),
		CurrentAverage:  cur.average(opts.Policy),
		PreviousAverage: old.average(opts.Policy),
	}
	c.DeltaSeconds = c.CurrentTotal - c.PreviousTotal
	c.Deltas = pairBuckets(cur.buckets, old.buckets)
	if pct, err := c.Change(); err == nil {
		c.PercentChange = &pct
	}
	return c, nil
}

// Buckets returns the zero-filled calendar buckets of rng.
func Buckets(cal Calendar, rng DateRange, unit BucketUnit) []PeriodBucket {
	return newSeries(cal, rng, unit).buckets
}

type series struct {
	cal     Calendar
	unit    BucketUnit
	buckets []PeriodBucket
	index   map[string]int
}

func newSeries(cal Calendar, rng DateRange, unit BucketUnit) *series {
	s := &series{cal: cal, unit: unit, index: make(map[string]int)}
	for b := cal.Floor(rng.Start, unit); b.Before(rng.End); b = cal.Next(b, unit) {
		key := BucketKey(b, unit)
		s.index[key] = len(s.buckets)
		s.buckets = append(s.buckets, PeriodBucket{Key: key, Start: b})
	}
	return s
}

func (s *series) add(t time.Time, secs int64) {
	key := BucketKey(s.cal.Floor(t, s.unit), s.unit)
	if i, ok := s.index[key]; ok {
		s.buckets[i].TotalSeconds += secs
	}
}

func (s *series) total() int64 {
	var total int64
	for _, b := range s.buckets {
		total += b.TotalSeconds
	}
	return total
}

func (s *series) average(p AveragePolicy) float64 {
	n := len(s.buckets)
	if p == AverageNonEmpty {
		n = 0
		for _, b := range s.buckets {
			if b.TotalSeconds > 0 {
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return float64(s.total()) / float64(n)
}

func pairBuckets(cur, prev []PeriodBucket) []BucketDelta {
	n := max(len(cur), len(prev))
	deltas := make([]BucketDelta, n)
	for i := range deltas {
		d := BucketDelta{Index: i}
		if i < len(cur) {
			d.CurrentKey = cur[i].Key
			d.CurrentSeconds = cur[i].TotalSeconds
		}
		if i < len(prev) {
			d.PreviousKey = prev[i].Key
			d.PreviousSeconds = prev[i].TotalSeconds
		}
		d.DeltaSeconds = d.CurrentSeconds - d.PreviousSeconds
		deltas[i] = d
	}
	return deltas
}
