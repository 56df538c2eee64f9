package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/sadopc/timeledger/internal/engine"
	"github.com/sadopc/timeledger/internal/store"
)

type projectForm int

const (
	formNone projectForm = iota
	formNewProject
	formEditProject
	formRate
	formNewTask
)

type projectsModel struct {
	store  *store.Store
	width  int
	height int

	projects     []store.Project
	teams        []store.Team
	rates        map[int64]decimal.Decimal
	tasks        []store.Task
	cursor       int
	taskCursor   int
	viewingTasks bool

	formActive bool
	form       *huh.Form
	formType   projectForm

	// Form field pointers (survive value copies)
	formName  *string
	formColor *string
	formTeam  *int64
	formRate  *string

	editingID int64
}

func newProjectsModel(s *store.Store) projectsModel {
	name, color, rate := "", engine.DefaultPalette[0], ""
	var team int64
	return projectsModel{
		store:     s,
		formName:  &name,
		formColor: &color,
		formTeam:  &team,
		formRate:  &rate,
	}
}

func (p *projectsModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

type projectsDataMsg struct {
	projects []store.Project
	teams    []store.Team
	rates    map[int64]decimal.Decimal
}

type tasksDataMsg struct {
	tasks []store.Task
}

func (p projectsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		projects, _ := p.store.ListProjects(false)
		teams, _ := p.store.ListTeams()
		rates := make(map[int64]decimal.Decimal)
		all, _ := p.store.ListRates()
		for _, r := range all {
			if r.ProjectID != nil && r.UserID == nil {
				rates[*r.ProjectID] = r.HourlyRate
			}
		}
		return projectsDataMsg{projects: projects, teams: teams, rates: rates}
	}
}

func (p projectsModel) refreshTasks() tea.Cmd {
	if p.cursor >= len(p.projects) {
		return nil
	}
	pid := p.projects[p.cursor].ID
	return func() tea.Msg {
		tasks, _ := p.store.ListTasks(pid, false)
		return tasksDataMsg{tasks: tasks}
	}
}

func (p projectsModel) update(msg tea.Msg) (projectsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case projectsDataMsg:
		p.projects = msg.projects
		p.teams = msg.teams
		p.rates = msg.rates
		if p.cursor >= len(p.projects) {
			p.cursor = max(0, len(p.projects)-1)
		}
		return p, nil

	case tasksDataMsg:
		p.tasks = msg.tasks
		if p.taskCursor >= len(p.tasks) {
			p.taskCursor = max(0, len(p.tasks)-1)
		}
		return p, nil
	}

	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		if p.viewingTasks {
			return p.updateTaskView(msg)
		}
		return p.updateProjectList(msg)
	}
	return p, nil
}

func (p projectsModel) updateProjectList(msg tea.KeyMsg) (projectsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, keys.Down):
		if p.cursor < len(p.projects)-1 {
			p.cursor++
		}
	case key.Matches(msg, keys.Enter):
		if len(p.projects) > 0 {
			p.viewingTasks = true
			p.taskCursor = 0
			return p, p.refreshTasks()
		}
	case key.Matches(msg, keys.New):
		return p.showProjectForm(nil)
	case key.Matches(msg, keys.Edit):
		if len(p.projects) > 0 {
			return p.showProjectForm(&p.projects[p.cursor])
		}
	case key.Matches(msg, keys.Rate):
		if len(p.projects) > 0 {
			return p.showRateForm()
		}
	case key.Matches(msg, keys.Delete):
		if len(p.projects) > 0 {
			err := p.store.ArchiveProject(p.projects[p.cursor].ID)
			return p, tea.Batch(p.refresh(), statusCmd(err, "Project archived"))
		}
	}
	return p, nil
}

func (p projectsModel) updateTaskView(msg tea.KeyMsg) (projectsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		p.viewingTasks = false
		return p, nil
	case key.Matches(msg, keys.Up):
		if p.taskCursor > 0 {
			p.taskCursor--
		}
	case key.Matches(msg, keys.Down):
		if p.taskCursor < len(p.tasks)-1 {
			p.taskCursor++
		}
	case key.Matches(msg, keys.New):
		return p.showTaskForm()
	case key.Matches(msg, keys.Delete):
		if len(p.tasks) > 0 {
			err := p.store.ArchiveTask(p.tasks[p.taskCursor].ID)
			return p, tea.Batch(p.refreshTasks(), statusCmd(err, "Task archived"))
		}
	}
	return p, nil
}

// showProjectForm opens the create form, or the edit form when proj is set.
func (p projectsModel) showProjectForm(proj *store.Project) (projectsModel, tea.Cmd) {
	*p.formName = ""
	*p.formColor = engine.DefaultPalette[0]
	*p.formTeam = 0
	p.formType = formNewProject
	if proj != nil {
		*p.formName = proj.Name
		*p.formColor = proj.Color
		if proj.TeamID != nil {
			*p.formTeam = *proj.TeamID
		}
		p.formType = formEditProject
		p.editingID = proj.ID
	}

	colorOptions := make([]huh.Option[string], len(engine.DefaultPalette))
	for i, c := range engine.DefaultPalette {
		colorOptions[i] = huh.NewOption(fmt.Sprintf("%s %s", swatch(c), c), c)
	}
	teamOptions := []huh.Option[int64]{huh.NewOption("No team", int64(0))}
	for _, t := range p.teams {
		teamOptions = append(teamOptions, huh.NewOption(t.Name, t.ID))
	}

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Project Name").Value(p.formName).Validate(required),
			huh.NewSelect[string]().Title("Color").Options(colorOptions...).Value(p.formColor),
			huh.NewSelect[int64]().Title("Team").Options(teamOptions...).Value(p.formTeam),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p projectsModel) showRateForm() (projectsModel, tea.Cmd) {
	proj := p.projects[p.cursor]
	*p.formRate = ""
	if r, ok := p.rates[proj.ID]; ok {
		*p.formRate = r.String()
	}
	p.formType = formRate
	p.editingID = proj.ID

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Hourly rate for %s", proj.Name)).
				Value(p.formRate).
				Validate(validateRate),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p projectsModel) showTaskForm() (projectsModel, tea.Cmd) {
	*p.formName = ""
	p.formType = formNewTask

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Task Name").Value(p.formName).Validate(required),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p projectsModel) updateForm(msg tea.Msg) (projectsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		p.formActive = false
		p.form = nil
		return p, nil
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}
	if p.form.State != huh.StateCompleted {
		return p, cmd
	}

	p.formActive = false
	var team *int64
	if *p.formTeam != 0 {
		t := *p.formTeam
		team = &t
	}

	var err error
	switch p.formType {
	case formNewProject:
		_, err = p.store.CreateProject(*p.formName, *p.formColor, team)
	case formEditProject:
		if err = p.store.UpdateProject(p.editingID, *p.formName, *p.formColor); err == nil {
			err = p.store.SetProjectTeam(p.editingID, team)
		}
	case formRate:
		pid := p.editingID
		err = p.store.SetRate(&pid, nil, decimal.RequireFromString(strings.TrimSpace(*p.formRate)))
	case formNewTask:
		if p.cursor < len(p.projects) {
			_, err = p.store.CreateTask(p.projects[p.cursor].ID, *p.formName)
		}
		return p, tea.Batch(p.refreshTasks(), statusCmd(err, "Task created"))
	}
	return p, tea.Batch(p.refresh(), statusCmd(err, "Saved"))
}

func statusCmd(err error, ok string) tea.Cmd {
	return func() tea.Msg {
		if err != nil {
			return errStatus(err)
		}
		return statusMsg{text: ok}
	}
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func validateRate(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return errors.New("enter a number, e.g. 3000 or 45.50")
	}
	if d.IsNegative() {
		return engine.ErrNegativeRate
	}
	return nil
}

func (p projectsModel) view() string {
	if p.formActive && p.form != nil {
		var title string
		switch p.formType {
		case formEditProject:
			title = "Edit Project"
		case formRate:
			title = "Billing Rate"
		case formNewTask:
			title = "New Task"
		default:
			title = "New Project"
		}
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", p.form.View())
		return panelStyle.Width(p.width - 4).Render(content)
	}

	if p.viewingTasks {
		return p.renderTaskView()
	}
	return p.renderProjectList()
}

func (p projectsModel) teamName(id *int64) string {
	if id == nil {
		return "-"
	}
	for _, t := range p.teams {
		if t.ID == *id {
			return t.Name
		}
	}
	return strconv.FormatInt(*id, 10)
}

func (p projectsModel) renderProjectList() string {
	w := p.width - 4
	title := titleStyle.Render("Projects")

	if len(p.projects) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No projects yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	rows := []string{title, ""}
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-3s %-24s %-16s %10s", "", "Name", "Team", "Rate/h")))

	for i, proj := range p.projects {
		cursor := "  "
		style := normalItemStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rate := "-"
		if r, ok := p.rates[proj.ID]; ok {
			rate = r.String()
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %-24s %-16s %10s",
			cursor, swatch(proj.Color), proj.Name, p.teamName(proj.TeamID), rate)))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  r: rate  d: archive  enter: tasks"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (p projectsModel) renderTaskView() string {
	w := p.width - 4
	proj := p.projects[p.cursor]
	title := titleStyle.Render(fmt.Sprintf("%s %s / Tasks", swatch(proj.Color), proj.Name))

	if len(p.tasks) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No tasks. Press n to add one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	rows := []string{title, ""}
	for i, task := range p.tasks {
		cursor := "  "
		style := normalItemStyle
		if i == p.taskCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+task.Name))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new task  d: archive  esc: back"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
