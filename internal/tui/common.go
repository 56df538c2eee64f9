package tui

import (
	"fmt"
	"time"

	"github.com/sadopc/timeledger/internal/engine"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTracker viewState = iota
	viewProjects
	viewSummary
	viewCompare
	viewInvoice
)

var viewNames = []string{"Tracker", "Projects", "Summary", "Compare", "Invoice"}

// --- Messages ---

type entryStartedMsg struct {
	entry *engine.TimeEntry
}

type entryStoppedMsg struct {
	entry *engine.TimeEntry
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

func errStatus(err error) statusMsg {
	return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
}

// --- Period selection ---

// periodSelector picks the day, week or month that is offset periods
// before the current one.
type periodSelector struct {
	unit   engine.BucketUnit
	offset int
}

func (p periodSelector) dateRange(cal engine.Calendar, now time.Time) engine.DateRange {
	start := cal.Floor(now, p.unit)
	for i := 0; i < p.offset; i++ {
		start = cal.Floor(start.Add(-time.Second), p.unit)
	}
	return engine.DateRange{Start: start, End: cal.Next(start, p.unit)}
}

func (p *periodSelector) older() { p.offset++ }

func (p *periodSelector) newer() {
	if p.offset > 0 {
		p.offset--
	}
}

// cycleUnit steps day -> week -> month -> day and resets the offset.
func (p *periodSelector) cycleUnit() {
	switch p.unit {
	case engine.UnitDay:
		p.unit = engine.UnitWeek
	case engine.UnitWeek:
		p.unit = engine.UnitMonth
	default:
		p.unit = engine.UnitDay
	}
	p.offset = 0
}

func (p periodSelector) label(cal engine.Calendar, now time.Time) string {
	r := p.dateRange(cal, now)
	last := r.End.Add(-time.Second)
	switch p.unit {
	case engine.UnitDay:
		return r.Start.Format("Mon, Jan 02 2006")
	case engine.UnitMonth:
		return r.Start.Format("January 2006")
	}
	return fmt.Sprintf("%s to %s", r.Start.Format("Jan 02"), last.Format("Jan 02, 2006"))
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

func formatHours(secs int64) string {
	h := float64(secs) / 3600
	return fmt.Sprintf("%.1fh", h)
}

func formatDelta(secs int64) string {
	if secs < 0 {
		return "-" + formatSeconds(-secs)
	}
	return "+" + formatSeconds(secs)
}
