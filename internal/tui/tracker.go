package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/timeledger/internal/engine"
	"github.com/sadopc/timeledger/internal/report"
	"github.com/sadopc/timeledger/internal/store"
)

const recentLimit = 5

type trackerModel struct {
	store   *store.Store
	reports *report.Service
	timer   timerModel
	width   int
	height  int

	today    *report.Summary
	recent   []engine.TimeEntry
	projects []store.Project
	names    engine.Directory

	// Project picker state
	picking      bool
	pickerCursor int
}

func newTrackerModel(s *store.Store, r *report.Service) trackerModel {
	return trackerModel{
		store:   s,
		reports: r,
		timer:   newTimerModel(s),
	}
}

func (d trackerModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *trackerModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d trackerModel) isRunning() bool { return d.timer.running() }

type trackerDataMsg struct {
	running  *engine.TimeEntry
	today    *report.Summary
	recent   []engine.TimeEntry
	projects []store.Project
	names    engine.Directory
	err      error
}

func (d trackerModel) loadData() tea.Cmd {
	now := d.timer.now()
	return func() tea.Msg {
		day := periodSelector{unit: engine.UnitDay}.dateRange(d.reports.Options().Calendar, now)
		today, err := d.reports.Summary(context.Background(), report.Query{
			Range:     day,
			Dimension: engine.DimProject,
			Now:       now,
		})
		if err != nil {
			return trackerDataMsg{err: err}
		}

		running, err := d.store.GetRunningEntry(nil)
		if err != nil {
			return trackerDataMsg{err: err}
		}
		entries, _ := d.store.ListEntries(store.EntryFilter{From: &day.Start, To: &day.End})
		if len(entries) > recentLimit {
			entries = entries[len(entries)-recentLimit:]
		}
		projects, _ := d.store.ListProjects(false)
		names, _ := d.store.Directory()

		return trackerDataMsg{
			running:  running,
			today:    today,
			recent:   entries,
			projects: projects,
			names:    names,
		}
	}
}

func (d trackerModel) update(msg tea.Msg) (trackerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case trackerDataMsg:
		if msg.err != nil {
			return d, func() tea.Msg { return errStatus(msg.err) }
		}
		d.today = msg.today
		d.recent = msg.recent
		d.projects = msg.projects
		d.names = msg.names
		if msg.running != nil && !d.timer.running() {
			d.timer.attach(msg.running, d.projectName(msg.running.ProjectID))
		}
		return d, nil

	case tea.KeyMsg:
		if d.picking {
			return d.updatePicker(msg)
		}

		switch {
		case key.Matches(msg, keys.Start):
			if d.timer.running() {
				return d, nil
			}
			if len(d.projects) == 0 {
				return d.startTimer(0, "No project")
			}
			if len(d.projects) == 1 {
				return d.startTimer(d.projects[0].ID, d.projects[0].Name)
			}
			d.picking = true
			d.pickerCursor = 0
			return d, nil

		case key.Matches(msg, keys.Stop):
			return d.stopTimer()
		}
	}
	return d, nil
}

func (d trackerModel) updatePicker(msg tea.KeyMsg) (trackerModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if d.pickerCursor > 0 {
			d.pickerCursor--
		}
	case key.Matches(msg, keys.Down):
		if d.pickerCursor < len(d.projects)-1 {
			d.pickerCursor++
		}
	case key.Matches(msg, keys.Enter):
		p := d.projects[d.pickerCursor]
		d.picking = false
		return d.startTimer(p.ID, p.Name)
	case key.Matches(msg, keys.Back):
		d.picking = false
	}
	return d, nil
}

func (d trackerModel) startTimer(projectID int64, projectName string) (trackerModel, tea.Cmd) {
	if err := d.timer.start(projectID, projectName); err != nil {
		return d, func() tea.Msg { return errStatus(err) }
	}
	entry := d.timer.entry
	return d, tea.Batch(
		d.loadData(),
		func() tea.Msg { return entryStartedMsg{entry: entry} },
	)
}

func (d trackerModel) stopTimer() (trackerModel, tea.Cmd) {
	entry, err := d.timer.stop()
	if err != nil {
		return d, func() tea.Msg { return errStatus(err) }
	}
	if entry == nil {
		return d, nil
	}
	return d, tea.Batch(
		d.loadData(),
		func() tea.Msg { return entryStoppedMsg{entry: entry} },
	)
}

func (d trackerModel) projectName(id *int64) string {
	if id == nil {
		return "No project"
	}
	if n, ok := d.names.Projects[*id]; ok {
		return n
	}
	return fmt.Sprintf("Project %d", *id)
}

func (d trackerModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4

	timerPanel := d.renderTimerPanel(contentWidth)
	summaryPanel := d.renderTodayPanel(contentWidth)

	var bottomPanel string
	if d.picking {
		bottomPanel = d.renderProjectPicker(contentWidth)
	} else {
		bottomPanel = d.renderRecentPanel(contentWidth)
	}

	return lipgloss.JoinVertical(lipgloss.Left, timerPanel, summaryPanel, bottomPanel)
}

func (d trackerModel) renderTimerPanel(w int) string {
	if d.timer.running() {
		content := lipgloss.JoinVertical(lipgloss.Center,
			timerRunningStyle.Width(w-6).Render(formatDuration(d.timer.elapsed())),
			successStyle.Render("●  RUNNING"),
			highlightStyle.Render(d.timer.projectName),
		)
		return activePanelStyle.Width(w).Render(content)
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		timerStyle.Width(w-6).Render("00:00:00"),
		mutedStyle.Render("■  STOPPED"),
		mutedStyle.Render("Press s to start tracking"),
	)
	return panelStyle.Width(w).Render(content)
}

func (d trackerModel) renderTodayPanel(w int) string {
	var total int64
	if d.today != nil {
		total = d.today.TotalSeconds
	}
	header := fmt.Sprintf("%s  %s %s", titleStyle.Render("Today"), highlightStyle.Render(formatSeconds(total)), mutedStyle.Render("("+formatHours(total)+")"))

	if d.today == nil || len(d.today.Groups) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			header,
			mutedStyle.Render("No entries today"),
		)
		return panelStyle.Width(w).Render(content)
	}

	rows := []string{header}
	for _, g := range d.today.Groups {
		rows = append(rows, fmt.Sprintf("  %s %-20s %s  %5.1f%%  (%d entries)",
			swatch(g.Color), g.Label, formatSeconds(g.TotalSeconds), g.PercentageOfTotal, g.EntryCount,
		))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d trackerModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Recent Entries")
	if len(d.recent) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No entries yet"),
		)
		return panelStyle.Width(w).Render(content)
	}

	rows := []string{title}
	now := d.timer.now()
	for i := len(d.recent) - 1; i >= 0; i-- {
		e := d.recent[i]
		status, dur := "✓", "invalid"
		if secs, err := engine.DurationSeconds(e, now); err == nil {
			dur = formatSeconds(secs)
		}
		if e.Running() {
			status = "●"
			dur = "running"
		}
		rows = append(rows, fmt.Sprintf("  %s %s  %-16s %s",
			status, e.StartTime.Local().Format("15:04"), d.projectName(e.ProjectID), dur))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d trackerModel) renderProjectPicker(w int) string {
	rows := []string{titleStyle.Render("Select Project")}
	for i, p := range d.projects {
		cursor := "  "
		style := normalItemStyle
		if i == d.pickerCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %s", cursor, swatch(p.Color), p.Name)))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: select  esc: cancel"))

	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
