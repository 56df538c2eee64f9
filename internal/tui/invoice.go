package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/sadopc/timeledger/internal/engine"
	"github.com/sadopc/timeledger/internal/report"
	"github.com/sadopc/timeledger/internal/store"
)

type invoiceModel struct {
	store    *store.Store
	reports  *report.Service
	currency string
	now      func() time.Time
	width    int
	height   int

	dim        engine.Dimension
	period     periodSelector
	tax        decimal.Decimal
	useDefault bool
	result     *report.InvoiceResult
	err        error

	formActive     bool
	form           *huh.Form
	formTax        *string
	formUseDefault *bool
}

func newInvoiceModel(s *store.Store, r *report.Service, currency string) invoiceModel {
	tax, useDefault := "", false
	return invoiceModel{
		store:          s,
		reports:        r,
		currency:       currency,
		now:            time.Now,
		dim:            engine.DimProject,
		period:         periodSelector{unit: engine.UnitMonth},
		tax:            r.Options().TaxRate,
		formTax:        &tax,
		formUseDefault: &useDefault,
	}
}

func (m *invoiceModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type invoiceDataMsg struct {
	dim        engine.Dimension
	tax        decimal.Decimal
	useDefault bool
	result     *report.InvoiceResult
	err        error
}

// loadSettings reads the invoice settings saved from this view.
func (m invoiceModel) loadSettings() (engine.Dimension, decimal.Decimal, bool) {
	dim := engine.Dimension(m.store.SettingOr(store.SettingDimension, string(m.dim)))
	if !dim.Valid() {
		dim = engine.DimProject
	}
	tax := m.reports.Options().TaxRate
	if v, err := decimal.NewFromString(m.store.SettingOr(store.SettingTaxRate, "")); err == nil && !v.IsNegative() {
		tax = v
	}
	useDefault := m.store.SettingOr(store.SettingUseDefaultRate, "false") == "true"
	return dim, tax, useDefault
}

func (m invoiceModel) dateRange() engine.DateRange {
	return m.period.dateRange(m.reports.Options().Calendar, m.now())
}

func (m invoiceModel) refresh() tea.Cmd {
	rng, now := m.dateRange(), m.now()
	return func() tea.Msg {
		dim, tax, useDefault := m.loadSettings()
		res, err := m.reports.Invoice(context.Background(), report.InvoiceRequest{
			Query:          report.Query{Range: rng, Dimension: dim, Now: now},
			TaxRate:        &tax,
			UseDefaultRate: useDefault,
		})
		return invoiceDataMsg{dim: dim, tax: tax, useDefault: useDefault, result: res, err: err}
	}
}

func (m invoiceModel) update(msg tea.Msg) (invoiceModel, tea.Cmd) {
	if msg, ok := msg.(invoiceDataMsg); ok {
		m.dim, m.tax, m.useDefault = msg.dim, msg.tax, msg.useDefault
		m.result, m.err = msg.result, msg.err
		return m, nil
	}
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			m.period.older()
			return m, m.refresh()
		case key.Matches(msg, keys.Right):
			m.period.newer()
			return m, m.refresh()
		case key.Matches(msg, keys.Unit):
			m.period.cycleUnit()
			return m, m.refresh()
		case key.Matches(msg, keys.Dimension):
			m.dim = nextDimension(m.dim)
			if err := m.store.SetSetting(store.SettingDimension, string(m.dim)); err != nil {
				return m, statusCmd(err, "")
			}
			return m, m.refresh()
		case key.Matches(msg, keys.Enter):
			return m.showSettingsForm()
		}
	}
	return m, nil
}

func (m invoiceModel) showSettingsForm() (invoiceModel, tea.Cmd) {
	*m.formTax = m.tax.String()
	*m.formUseDefault = m.useDefault

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Tax rate").
				Description("Fraction of the subtotal, e.g. 0.1 for 10%").
				Value(m.formTax).
				Validate(validateTax),
			huh.NewConfirm().
				Title("Bill unrated groups at the default rate?").
				Value(m.formUseDefault),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m invoiceModel) updateForm(msg tea.Msg) (invoiceModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		m.formActive = false
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.formActive = false
	tax := decimal.RequireFromString(strings.TrimSpace(*m.formTax))
	err := m.store.SetSetting(store.SettingTaxRate, tax.String())
	if err == nil {
		err = m.store.SetSetting(store.SettingUseDefaultRate, strconv.FormatBool(*m.formUseDefault))
	}
	return m, tea.Batch(m.refresh(), statusCmd(err, "Invoice settings saved"))
}

func validateTax(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return errors.New("enter a fraction, e.g. 0.1")
	}
	if d.IsNegative() {
		return engine.ErrNegativeRate
	}
	return nil
}

func (m invoiceModel) view() string {
	w := m.width - 4

	dateLabel := mutedStyle.Render(m.period.label(m.reports.Options().Calendar, m.now()))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Invoice"), "  ", highlightStyle.Render("by "+string(m.dim)), "  ", dateLabel,
	)
	nav := mutedStyle.Render("  ←/→: navigate  g: group by  u: day/week/month  enter: settings  ctrl+e: export")

	if m.formActive && m.form != nil {
		return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Invoice Settings"), "", m.form.View()))
	}

	var body string
	if m.err != nil {
		body = m.renderError()
	} else {
		body = m.renderLines()
	}
	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", m.renderSettings(), "", nav),
	)
}

func (m invoiceModel) renderError() string {
	var missing *engine.MissingRateError
	if errors.As(m.err, &missing) {
		hint := "set a rate in Projects (r)"
		if m.reports.Options().DefaultRate != nil && !m.useDefault {
			hint += " or enable the default rate (enter)"
		}
		return lipgloss.JoinVertical(lipgloss.Left,
			errorStyle.Render(fmt.Sprintf("  No hourly rate for %s %q", m.dim, missing.GroupID)),
			mutedStyle.Render("  "+hint),
		)
	}
	var conflict *store.ConflictingRatesError
	if errors.As(m.err, &conflict) {
		return lipgloss.JoinVertical(lipgloss.Left,
			errorStyle.Render(fmt.Sprintf("  Entries of %s %q bill at different rates", m.dim, conflict.GroupID)),
			mutedStyle.Render("  group by a finer dimension (g)"),
		)
	}
	return errorStyle.Render("  " + m.err.Error())
}

func (m invoiceModel) renderLines() string {
	if m.result == nil {
		return mutedStyle.Render("  Loading...")
	}
	inv := m.result.Invoice
	if len(inv.Lines) == 0 {
		return mutedStyle.Render("  Nothing to bill for this period")
	}

	defaulted := make(map[string]bool, len(m.result.Defaulted))
	for _, id := range m.result.Defaulted {
		defaulted[id] = true
	}

	rows := []string{
		mutedStyle.Render(fmt.Sprintf("  %-24s %8s %10s %12s", "Item", "Hours", "Rate", "Amount")),
		mutedStyle.Render("  " + strings.Repeat("─", 58)),
	}
	for _, l := range inv.Lines {
		rate := l.Rate.String()
		if defaulted[l.GroupID] {
			rate += "*"
		}
		rows = append(rows, fmt.Sprintf("  %-24s %8s %10s %12s",
			shorten(l.Label, 24), l.Hours.StringFixed(2), rate, m.money(l.Amount)))
	}
	rows = append(rows,
		mutedStyle.Render("  "+strings.Repeat("─", 58)),
		fmt.Sprintf("  %-45s %12s", "Subtotal", m.money(inv.Subtotal)),
		fmt.Sprintf("  %-45s %12s", "Tax ("+inv.TaxRate.String()+")", m.money(inv.Tax)),
		fmt.Sprintf("  %-45s %12s", "Total", highlightStyle.Render(m.money(inv.Total))),
	)
	if len(defaulted) > 0 {
		rows = append(rows, "", mutedStyle.Render("  * billed at the default rate"))
	}
	return strings.Join(rows, "\n")
}

func (m invoiceModel) renderSettings() string {
	useDefault := "off"
	if m.useDefault {
		useDefault = "on"
	}
	return mutedStyle.Render(fmt.Sprintf("  Tax rate: %s   Default rate: %s", m.tax.String(), useDefault))
}

func (m invoiceModel) money(amount int64) string {
	return fmt.Sprintf("%s %d", m.currency, amount)
}
