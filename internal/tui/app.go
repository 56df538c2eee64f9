package tui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/timeledger/internal/engine"
	"github.com/sadopc/timeledger/internal/export"
	"github.com/sadopc/timeledger/internal/log"
	"github.com/sadopc/timeledger/internal/report"
	"github.com/sadopc/timeledger/internal/store"
)

// Deps are the services the UI runs against.
type Deps struct {
	Store    *store.Store
	Reports  *report.Service
	Currency string
	Logger   *log.Logger
	// ExportDir receives exported files. Empty means the home directory.
	ExportDir string
}

// App is the root Bubble Tea model.
type App struct {
	store     *store.Store
	reports   *report.Service
	currency  string
	logger    *log.Logger
	exportDir string
	width     int
	height    int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	tracker  trackerModel
	projects projectsModel
	summary  summaryModel
	compare  compareModel
	invoice  invoiceModel

	help   help.Model
	status string
}

func NewApp(d Deps) App {
	h := help.New()
	h.ShowAll = false

	logger := d.Logger
	if logger == nil {
		logger = log.Discard()
	}

	return App{
		store:      d.Store,
		reports:    d.Reports,
		currency:   d.Currency,
		logger:     logger.WithComponent(log.ComponentTUI),
		exportDir:  d.ExportDir,
		activeView: viewTracker,
		tracker:    newTrackerModel(d.Store, d.Reports),
		projects:   newProjectsModel(d.Store),
		summary:    newSummaryModel(d.Reports),
		compare:    newCompareModel(d.Reports),
		invoice:    newInvoiceModel(d.Store, d.Reports, d.Currency),
		help:       h,
	}
}

// Run starts the UI on the alternate screen and blocks until it quits.
func Run(d Deps) error {
	_, err := tea.NewProgram(NewApp(d), tea.WithAltScreen()).Run()
	return err
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.tracker.Init(),
		a.projects.refresh(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.tracker.setSize(a.width, contentHeight)
		a.projects.setSize(a.width, contentHeight)
		a.summary.setSize(a.width, contentHeight)
		a.compare.setSize(a.width, contentHeight)
		a.invoice.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// A child view with an open form gets every key.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchTo(viewTracker)
		case key.Matches(msg, keys.Tab2):
			return a.switchTo(viewProjects)
		case key.Matches(msg, keys.Tab3):
			return a.switchTo(viewSummary)
		case key.Matches(msg, keys.Tab4):
			return a.switchTo(viewCompare)
		case key.Matches(msg, keys.Tab5):
			return a.switchTo(viewInvoice)
		case key.Matches(msg, keys.Tab):
			return a.switchTo((a.activeView + 1) % viewState(len(viewNames)))
		}

	case tickMsg:
		// The tracker clock reads the store's running entry, so a tick
		// only needs to schedule the next redraw.
		return a, tickCmd()

	case statusMsg:
		a.status = msg.text
		if msg.isError {
			a.logger.Warn("ui error", log.FieldView, viewNames[a.activeView], log.FieldError, msg.text)
		}
		return a, nil

	case entryStartedMsg:
		a.status = "Timer started"
		return a, nil

	case entryStoppedMsg:
		a.status = "Timer stopped"
		if secs, err := engine.DurationSeconds(*msg.entry, time.Time{}); err == nil {
			a.status = "Timer stopped after " + formatSeconds(secs)
		}
		return a, a.refreshCurrentView()

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.exportPicking = false
		return a, nil

	case trackerDataMsg:
		var cmd tea.Cmd
		a.tracker, cmd = a.tracker.update(msg)
		return a, cmd
	case projectsDataMsg, tasksDataMsg:
		var cmd tea.Cmd
		a.projects, cmd = a.projects.update(msg)
		return a, cmd
	case summaryDataMsg:
		var cmd tea.Cmd
		a.summary, cmd = a.summary.update(msg)
		return a, cmd
	case compareDataMsg:
		var cmd tea.Cmd
		a.compare, cmd = a.compare.update(msg)
		return a, cmd
	case invoiceDataMsg:
		var cmd tea.Cmd
		a.invoice, cmd = a.invoice.update(msg)
		return a, cmd
	}

	return a.updateActiveView(msg)
}

func (a App) switchTo(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshCurrentView()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTracker:
		a.tracker, cmd = a.tracker.update(msg)
	case viewProjects:
		a.projects, cmd = a.projects.update(msg)
	case viewSummary:
		a.summary, cmd = a.summary.update(msg)
	case viewCompare:
		a.compare, cmd = a.compare.update(msg)
	case viewInvoice:
		a.invoice, cmd = a.invoice.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTracker:
		return a.tracker.picking
	case viewProjects:
		return a.projects.formActive
	case viewInvoice:
		return a.invoice.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewTracker:
		return a.tracker.loadData()
	case viewProjects:
		return a.projects.refresh()
	case viewSummary:
		return a.summary.refresh()
	case viewCompare:
		return a.compare.refresh()
	case viewInvoice:
		return a.invoice.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTracker:
		content = a.tracker.view()
	case viewProjects:
		content = a.projects.view()
	case viewSummary:
		content = a.summary.view()
	case viewCompare:
		content = a.compare.view()
	case viewInvoice:
		content = a.invoice.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(a.height-headerHeight-footerHeight, 1)

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("timeledger")
	gap := max(a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		status = mutedStyle.Render(" " + a.status)
	}

	timerInfo := ""
	if a.tracker.isRunning() {
		timerInfo = successStyle.Render(" ● " + formatDuration(a.tracker.timer.elapsed()))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []export.Format{export.FormatCSV, export.FormatJSON}

func (a App) renderExportPicker() string {
	rows := []string{
		titleStyle.Render("Export " + viewNames[a.activeView]),
		"",
	}
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+strings.ToUpper(string(f))))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(exportFormats[a.exportCursor])
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// exportPath names the file for the active view, e.g.
// ~/timeledger-summary-2024-01-15.csv.
func (a App) exportPath(f export.Format, now time.Time) (string, error) {
	dir := a.exportDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locate home directory: %w", err)
		}
		dir = home
	}
	name := fmt.Sprintf("timeledger-%s-%s.%s",
		strings.ToLower(viewNames[a.activeView]), now.Format("2006-01-02"), f)
	return filepath.Join(dir, name), nil
}

// exportWriter returns the writer for what the active view shows.
func (a App) exportWriter(f export.Format, now time.Time) (func(io.Writer) error, error) {
	csv := f == export.FormatCSV

	switch a.activeView {
	case viewSummary:
		sum := a.summary.summary
		if sum == nil {
			return nil, errNothingToExport
		}
		if csv {
			return func(w io.Writer) error { return export.GroupsCSV(w, sum.Groups) }, nil
		}
		return func(w io.Writer) error {
			return export.SummaryJSON(w, sum.Query.Dimension, sum.Query.Range, sum.Groups)
		}, nil

	case viewCompare:
		cmp := a.compare.cmp
		if cmp == nil {
			return nil, errNothingToExport
		}
		if csv {
			return func(w io.Writer) error { return export.ComparisonCSV(w, *cmp) }, nil
		}
		return func(w io.Writer) error { return export.ComparisonJSON(w, *cmp) }, nil

	case viewInvoice:
		res := a.invoice.result
		if res == nil || a.invoice.err != nil {
			return nil, errNothingToExport
		}
		doc := export.NewInvoiceDocument(res.Invoice, a.currency, res.Summary.Query.Dimension, res.Summary.Query.Range, now)
		if csv {
			return func(w io.Writer) error { return export.InvoiceCSV(w, doc) }, nil
		}
		return func(w io.Writer) error { return export.InvoiceJSON(w, doc) }, nil
	}

	// Tracker and Projects export the raw entries of the summary period.
	rng := a.summary.dateRange()
	entries, err := a.store.ListEntries(store.EntryFilter{From: &rng.Start, To: &rng.End})
	if err != nil {
		return nil, err
	}
	dir, err := a.store.Directory()
	if err != nil {
		return nil, err
	}
	if csv {
		return func(w io.Writer) error { return export.EntriesCSV(w, entries, dir, now) }, nil
	}
	return func(w io.Writer) error { return export.EntriesJSON(w, entries, dir, now) }, nil
}

func (a App) doExport(f export.Format) tea.Cmd {
	return func() tea.Msg {
		now := time.Now()
		write, err := a.exportWriter(f, now)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		path, err := a.exportPath(f, now)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		if err := export.ToFile(path, write); err != nil {
			return statusMsg{text: fmt.Sprintf("%s error: %v", strings.ToUpper(string(f)), err), isError: true}
		}
		a.logger.Info("exported",
			log.FieldOperation, log.OpExport,
			log.FieldView, viewNames[a.activeView],
			log.FieldPath, path,
		)
		return exportDoneMsg{path: path}
	}
}

var errNothingToExport = errors.New("nothing to export in this view")
