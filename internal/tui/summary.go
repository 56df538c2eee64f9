package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/timeledger/internal/engine"
	"github.com/sadopc/timeledger/internal/report"
)

// maxBars caps the chart; smaller groups still show in the table.
const maxBars = 12

type summaryModel struct {
	reports *report.Service
	now     func() time.Time
	width   int
	height  int

	dim     engine.Dimension
	period  periodSelector
	summary *report.Summary
	err     error

	chart barchart.Model
}

func newSummaryModel(r *report.Service) summaryModel {
	return summaryModel{
		reports: r,
		now:     time.Now,
		dim:     engine.DimProject,
		period:  periodSelector{unit: engine.UnitWeek},
		chart:   barchart.New(60, 12),
	}
}

func (r *summaryModel) setSize(w, h int) {
	r.width = w
	r.height = h
	r.buildChart()
}

type summaryDataMsg struct {
	summary *report.Summary
	err     error
}

func (r summaryModel) dateRange() engine.DateRange {
	return r.period.dateRange(r.reports.Options().Calendar, r.now())
}

func (r summaryModel) refresh() tea.Cmd {
	q := report.Query{Range: r.dateRange(), Dimension: r.dim, Now: r.now()}
	return func() tea.Msg {
		sum, err := r.reports.Summary(context.Background(), q)
		return summaryDataMsg{summary: sum, err: err}
	}
}

func (r summaryModel) update(msg tea.Msg) (summaryModel, tea.Cmd) {
	switch msg := msg.(type) {
	case summaryDataMsg:
		r.summary, r.err = msg.summary, msg.err
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.period.older()
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			r.period.newer()
			return r, r.refresh()
		case key.Matches(msg, keys.Unit):
			r.period.cycleUnit()
			return r, r.refresh()
		case key.Matches(msg, keys.Dimension):
			r.dim = nextDimension(r.dim)
			return r, r.refresh()
		}
	}
	return r, nil
}

func nextDimension(d engine.Dimension) engine.Dimension {
	for i, dim := range engine.Dimensions {
		if dim == d {
			return engine.Dimensions[(i+1)%len(engine.Dimensions)]
		}
	}
	return engine.DimProject
}

func (r *summaryModel) buildChart() {
	chartWidth := max(r.width-8, 20)
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}
	r.chart = barchart.New(chartWidth, chartHeight)

	if r.summary == nil || len(r.summary.Groups) == 0 {
		r.chart.Draw()
		return
	}

	var bars []barchart.BarData
	for i, g := range r.summary.Groups {
		if i == maxBars {
			break
		}
		bars = append(bars, barchart.BarData{
			Label: shorten(g.Label, 10),
			Values: []barchart.BarValue{{
				Name:  g.Label,
				Value: float64(g.TotalSeconds) / 3600,
				Style: lipgloss.NewStyle().Foreground(lipgloss.Color(g.Color)),
			}},
		})
	}
	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r summaryModel) view() string {
	w := r.width - 4

	var dimTabs []string
	for _, d := range engine.Dimensions {
		if d == r.dim {
			dimTabs = append(dimTabs, activeTabStyle.Render(string(d)))
		} else {
			dimTabs = append(dimTabs, inactiveTabStyle.Render(string(d)))
		}
	}
	dateLabel := mutedStyle.Render(r.period.label(r.reports.Options().Calendar, r.now()))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Summary"), "  ", lipgloss.JoinHorizontal(lipgloss.Bottom, dimTabs...), "  ", dateLabel,
	)

	nav := mutedStyle.Render("  ←/→: navigate  g: group by  u: day/week/month  ctrl+e: export")

	if r.err != nil {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			header, "", errorStyle.Render("  "+r.err.Error()), "", nav))
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", r.renderTable(w), "", nav,
		),
	)
}

func (r summaryModel) renderTable(w int) string {
	if r.summary == nil || len(r.summary.Groups) == 0 {
		return mutedStyle.Render("  No data for this period")
	}

	rows := []string{
		mutedStyle.Render(fmt.Sprintf("  %-24s %10s %7s %8s", "Group", "Duration", "Share", "Entries")),
		mutedStyle.Render("  " + strings.Repeat("─", min(w-6, 54))),
	}
	for _, g := range r.summary.Groups {
		rows = append(rows, fmt.Sprintf("  %s %-22s %10s %6.1f%% %8d",
			swatch(g.Color), shorten(g.Label, 22), formatSeconds(g.TotalSeconds), g.PercentageOfTotal, g.EntryCount,
		))
	}
	rows = append(rows, fmt.Sprintf("  %-24s %10s", "Total", highlightStyle.Render(formatSeconds(r.summary.TotalSeconds))))
	return strings.Join(rows, "\n")
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
