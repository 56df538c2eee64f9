package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sadopc/timeledger/internal/engine"
)

// EntriesCSV writes one row per entry. Running entries are measured up to now.
func EntriesCSV(w io.Writer, entries []engine.TimeEntry, dir engine.Directory, now time.Time) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"ID", "Project", "Team", "User", "Start", "End", "Duration (s)", "Duration", "Description"}); err != nil {
		return err
	}

	for _, e := range entries {
		secs, err := engine.DurationSeconds(e, now)
		if err != nil {
			return err
		}
		endStr := ""
		if e.EndTime != nil {
			endStr = e.EndTime.Local().Format(time.RFC3339)
		}

		row := []string{
			strconv.FormatInt(e.ID, 10),
			lookup(dir.Projects, e.ProjectID),
			lookup(dir.Teams, e.TeamID),
			lookup(dir.Users, e.UserID),
			e.StartTime.Local().Format(time.RFC3339),
			endStr,
			strconv.FormatInt(secs, 10),
			formatDuration(secs),
			e.Description,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// GroupsCSV writes a grouped summary, largest group first.
func GroupsCSV(w io.Writer, groups []engine.AggregateGroup) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Group", "Label", "Entries", "Duration (s)", "Duration", "Share (%)", "Color"}); err != nil {
		return err
	}
	for _, g := range groups {
		row := []string{
			g.ID,
			g.Label,
			strconv.Itoa(g.EntryCount),
			strconv.FormatInt(g.TotalSeconds, 10),
			formatDuration(g.TotalSeconds),
			strconv.FormatFloat(g.PercentageOfTotal, 'f', 2, 64),
			g.Color,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ComparisonCSV writes the paired buckets followed by a totals row.
func ComparisonCSV(w io.Writer, cmp engine.PeriodComparison) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Index", "Current", "Previous", "Current (s)", "Previous (s)", "Delta (s)"}); err != nil {
		return err
	}
	for _, d := range cmp.Deltas {
		row := []string{
			strconv.Itoa(d.Index),
			d.CurrentKey,
			d.PreviousKey,
			strconv.FormatInt(d.CurrentSeconds, 10),
			strconv.FormatInt(d.PreviousSeconds, 10),
			strconv.FormatInt(d.DeltaSeconds, 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	change := ""
	if cmp.PercentChange != nil {
		change = strconv.FormatFloat(*cmp.PercentChange, 'f', 2, 64)
	}
	total := []string{
		"total",
		"",
		change,
		strconv.FormatInt(cmp.CurrentTotal, 10),
		strconv.FormatInt(cmp.PreviousTotal, 10),
		strconv.FormatInt(cmp.DeltaSeconds, 10),
	}
	if err := cw.Write(total); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// InvoiceCSV writes the invoice lines followed by subtotal, tax and total rows.
func InvoiceCSV(w io.Writer, doc InvoiceDocument) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Invoice", doc.Number, doc.Currency}); err != nil {
		return err
	}
	if err := cw.Write([]string{"Group", "Label", "Hours", "Rate", "Amount"}); err != nil {
		return err
	}
	for _, l := range doc.Invoice.Lines {
		row := []string{
			l.GroupID,
			l.Label,
			l.Hours.StringFixed(2),
			l.Rate.String(),
			strconv.FormatInt(l.Amount, 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	inv := doc.Invoice
	footer := [][]string{
		{"subtotal", "", "", "", strconv.FormatInt(inv.Subtotal, 10)},
		{"tax", "", "", inv.TaxRate.String(), strconv.FormatInt(inv.Tax, 10)},
		{"total", "", "", "", strconv.FormatInt(inv.Total, 10)},
	}
	if err := cw.WriteAll(footer); err != nil {
		return err
	}
	return cw.Error()
}

func lookup(names map[int64]string, id *int64) string {
	if id == nil {
		return ""
	}
	if n, ok := names[*id]; ok {
		return n
	}
	return "Unknown"
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
