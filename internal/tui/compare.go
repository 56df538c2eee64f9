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
	"github.com/sadopc/timeledger/internal/store"
)

// compareModel shows the selected period against the one before it, one
// bar pair per bucket.
type compareModel struct {
	reports *report.Service
	now     func() time.Time
	width   int
	height  int

	period periodSelector
	unit   engine.BucketUnit
	cmp    *engine.PeriodComparison
	err    error

	chart barchart.Model
}

func newCompareModel(r *report.Service) compareModel {
	return compareModel{
		reports: r,
		now:     time.Now,
		period:  periodSelector{unit: engine.UnitWeek},
		unit:    engine.UnitDay,
		chart:   barchart.New(60, 12),
	}
}

func (c *compareModel) setSize(w, h int) {
	c.width = w
	c.height = h
	c.buildChart()
}

type compareDataMsg struct {
	cmp engine.PeriodComparison
	err error
}

// bucketUnitFor picks the finest bucket that keeps the chart readable.
func bucketUnitFor(period engine.BucketUnit) engine.BucketUnit {
	if period == engine.UnitMonth {
		return engine.UnitWeek
	}
	return engine.UnitDay
}

func (c compareModel) refresh() tea.Cmd {
	rng := c.period.dateRange(c.reports.Options().Calendar, c.now())
	unit, now := c.unit, c.now()
	return func() tea.Msg {
		cmp, err := c.reports.Comparison(context.Background(), rng, unit, store.EntryFilter{}, now)
		return compareDataMsg{cmp: cmp, err: err}
	}
}

func (c compareModel) update(msg tea.Msg) (compareModel, tea.Cmd) {
	switch msg := msg.(type) {
	case compareDataMsg:
		c.err = msg.err
		c.cmp = nil
		if msg.err == nil {
			cmp := msg.cmp
			c.cmp = &cmp
		}
		c.buildChart()
		return c, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			c.period.older()
			return c, c.refresh()
		case key.Matches(msg, keys.Right):
			c.period.newer()
			return c, c.refresh()
		case key.Matches(msg, keys.Unit):
			c.period.cycleUnit()
			c.unit = bucketUnitFor(c.period.unit)
			return c, c.refresh()
		}
	}
	return c, nil
}

func (c *compareModel) buildChart() {
	chartWidth := max(c.width-8, 20)
	chartHeight := 12
	if c.height > 30 {
		chartHeight = 16
	}
	c.chart = barchart.New(chartWidth, chartHeight)
	if c.cmp == nil {
		c.chart.Draw()
		return
	}

	var bars []barchart.BarData
	for _, d := range c.cmp.Deltas {
		bars = append(bars,
			barchart.BarData{
				Label: "",
				Values: []barchart.BarValue{{
					Name:  "previous",
					Value: float64(d.PreviousSeconds) / 3600,
					Style: previousBarStyle,
				}},
			},
			barchart.BarData{
				Label: bucketLabel(c.cmp.Unit, d.CurrentKey),
				Values: []barchart.BarValue{{
					Name:  "current",
					Value: float64(d.CurrentSeconds) / 3600,
					Style: currentBarStyle,
				}},
			},
		)
	}
	c.chart.PushAll(bars)
	c.chart.Draw()
}

// bucketLabel shortens a bucket key for the chart axis.
func bucketLabel(unit engine.BucketUnit, key string) string {
	switch unit {
	case engine.UnitDay:
		if t, err := time.Parse("2006-01-02", key); err == nil {
			return t.Format("Mon")
		}
	case engine.UnitWeek:
		if t, err := time.Parse("2006-01-02", key); err == nil {
			return t.Format("Jan02")
		}
	case engine.UnitMonth:
		if t, err := time.Parse("2006-01", key); err == nil {
			return t.Format("Jan")
		}
	}
	return key
}

func (c compareModel) view() string {
	w := c.width - 4
	cal := c.reports.Options().Calendar
	now := c.now()

	prev := periodSelector{unit: c.period.unit, offset: c.period.offset + 1}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Compare"), "  ",
		currentBarStyle.Render("■ "+c.period.label(cal, now)), "  vs  ",
		previousBarStyle.Render("■ "+prev.label(cal, now)),
	)
	nav := mutedStyle.Render(fmt.Sprintf("  ←/→: navigate  u: day/week/month  by %s  ctrl+e: export", c.unit))

	if c.err != nil {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			header, "", errorStyle.Render("  "+c.err.Error()), "", nav))
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", c.chart.View(), "", c.renderStats(), "", nav,
		),
	)
}

func (c compareModel) renderStats() string {
	if c.cmp == nil {
		return mutedStyle.Render("  Loading...")
	}
	cmp := c.cmp

	change := mutedStyle.Render("n/a (nothing tracked in the previous period)")
	if cmp.PercentChange != nil {
		change = trendStyle(cmp.DeltaSeconds).Render(fmt.Sprintf("%+.1f%%", *cmp.PercentChange))
	}

	rows := []string{
		fmt.Sprintf("  %-10s %12s %12s %13s", "", "Current", "Previous", "Change"),
		mutedStyle.Render("  " + strings.Repeat("─", 50)),
		fmt.Sprintf("  %-10s %12s %12s %13s", "Total",
			formatSeconds(cmp.CurrentTotal), formatSeconds(cmp.PreviousTotal),
			trendStyle(cmp.DeltaSeconds).Render(formatDelta(cmp.DeltaSeconds))),
		fmt.Sprintf("  %-10s %12s %12s", "Avg/"+string(cmp.Unit),
			formatSeconds(int64(cmp.CurrentAverage)), formatSeconds(int64(cmp.PreviousAverage))),
		"",
		"  Change  " + change,
	}
	return strings.Join(rows, "\n")
}
