package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/sadopc/timeledger/internal/engine"
	"github.com/sadopc/timeledger/internal/export"
	"github.com/sadopc/timeledger/internal/report"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#414868"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func printSummary(w io.Writer, sum *report.Summary) error {
	q := sum.Query
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Time by %s, %s", q.Dimension, formatRange(q.Range))))
	if len(sum.Groups) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No entries in range."))
		return nil
	}

	t := newTable("", strings.ToUpper(string(q.Dimension)[:1])+string(q.Dimension)[1:], "Duration", "Share", "Entries")
	for _, g := range sum.Groups {
		t.Row(
			lipgloss.NewStyle().Foreground(lipgloss.Color(g.Color)).Render("■"),
			g.Label,
			formatSeconds(g.TotalSeconds),
			fmt.Sprintf("%.1f%%", g.PercentageOfTotal),
			strconv.Itoa(g.EntryCount),
		)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "Total %s across %d entries\n", formatSeconds(sum.TotalSeconds), sum.Entries)
	return nil
}

func printComparison(w io.Writer, cmp engine.PeriodComparison) error {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s vs %s, by %s",
		formatRange(cmp.Current), formatRange(cmp.Previous), cmp.Unit)))

	t := newTable("Current", "Time", "Previous", "Time", "Change")
	for _, d := range cmp.Deltas {
		t.Row(d.CurrentKey, formatSeconds(d.CurrentSeconds), d.PreviousKey, formatSeconds(d.PreviousSeconds), formatDelta(d.DeltaSeconds))
	}
	fmt.Fprintln(w, t.Render())

	fmt.Fprintf(w, "Total    %s vs %s (%s)\n", formatSeconds(cmp.CurrentTotal), formatSeconds(cmp.PreviousTotal), formatDelta(cmp.DeltaSeconds))
	fmt.Fprintf(w, "Average  %s vs %s per %s (%s)\n",
		formatSeconds(int64(cmp.CurrentAverage)), formatSeconds(int64(cmp.PreviousAverage)), cmp.Unit, cmp.Policy)
	if cmp.PercentChange != nil {
		fmt.Fprintf(w, "Change   %+.1f%%\n", *cmp.PercentChange)
	} else {
		fmt.Fprintln(w, "Change   "+mutedStyle.Render("n/a, no time in the previous period"))
	}
	return nil
}

func printInvoice(w io.Writer, doc export.InvoiceDocument, defaulted []string) error {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Invoice by %s, %s", doc.Dimension, formatRange(doc.Period))))
	inv := doc.Invoice
	if len(inv.Lines) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No billable time in range."))
		return nil
	}

	isDefault := make(map[string]bool, len(defaulted))
	for _, id := range defaulted {
		isDefault[id] = true
	}
	t := newTable("Item", "Hours", "Rate", "Amount")
	for _, l := range inv.Lines {
		rate := l.Rate.String()
		if isDefault[l.GroupID] {
			rate += "*"
		}
		t.Row(l.Label, l.Hours.StringFixed(2), rate, formatAmount(l.Amount))
	}
	fmt.Fprintln(w, t.Render())

	fmt.Fprintf(w, "Subtotal  %s %s\n", doc.Currency, formatAmount(inv.Subtotal))
	fmt.Fprintf(w, "Tax %s%%  %s %s\n", inv.TaxRate.Shift(2).String(), doc.Currency, formatAmount(inv.Tax))
	fmt.Fprintf(w, "Total     %s %s\n", doc.Currency, formatAmount(inv.Total))
	if len(defaulted) > 0 {
		fmt.Fprintln(w, mutedStyle.Render("* billed at the default rate"))
	}
	return nil
}

func formatRange(r engine.DateRange) string {
	last := r.End.AddDate(0, 0, -1)
	if last.Format(dateLayout) == r.Start.Format(dateLayout) {
		return r.Start.Format(dateLayout)
	}
	return r.Start.Format(dateLayout) + " to " + last.Format(dateLayout)
}

func formatSeconds(secs int64) string {
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

func formatDelta(secs int64) string {
	if secs < 0 {
		return "-" + formatSeconds(-secs)
	}
	return "+" + formatSeconds(secs)
}

// formatAmount groups thousands: 1234567 -> 1,234,567.
func formatAmount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
