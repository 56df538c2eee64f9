package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sadopc/timeledger/internal/engine"
	"github.com/sadopc/timeledger/internal/export"
	"github.com/sadopc/timeledger/internal/report"
	"github.com/sadopc/timeledger/internal/store"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		by  string
		rng rangeFlags
		flt filterFlags
		out outputFlags
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize time grouped by project, team, user, day, week or month",
		Example: `  timeledger report --by team --period month
  timeledger report --by day --from 2024-01-01 --to 2024-01-31 -f csv -o january.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dim, err := engine.ParseDimension(by)
			if err != nil {
				return err
			}
			now := a.now()
			period, err := rng.resolve(a.reports.Options().Calendar, now)
			if err != nil {
				return err
			}
			sum, err := a.reports.Summary(cmd.Context(), report.Query{
				Range:     period,
				Dimension: dim,
				Filter:    flt.filter(),
				Now:       now,
			})
			if err != nil {
				return err
			}
			return out.write(cmd,
				func(w io.Writer) error { return printSummary(w, sum) },
				func(w io.Writer) error { return export.GroupsCSV(w, sum.Groups) },
				func(w io.Writer) error { return export.SummaryJSON(w, dim, period, sum.Groups) },
			)
		},
	}
	cmd.Flags().StringVar(&by, "by", string(engine.DimProject), "project, team, user, day, week or month")
	rng.register(cmd)
	flt.register(cmd)
	out.register(cmd)
	return cmd
}

func newCompareCmd(a *app) *cobra.Command {
	var (
		unit string
		rng  rangeFlags
		flt  filterFlags
		out  outputFlags
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare a period with the period of equal length before it",
		Example: `  timeledger compare                      # this week vs last week, by day
  timeledger compare --period month --unit week`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := engine.ParseBucketUnit(unit)
			if err != nil {
				return err
			}
			now := a.now()
			period, err := rng.resolve(a.reports.Options().Calendar, now)
			if err != nil {
				return err
			}
			cmp, err := a.reports.Comparison(cmd.Context(), period, u, flt.filter(), now)
			if err != nil {
				return err
			}
			return out.write(cmd,
				func(w io.Writer) error { return printComparison(w, cmp) },
				func(w io.Writer) error { return export.ComparisonCSV(w, cmp) },
				func(w io.Writer) error { return export.ComparisonJSON(w, cmp) },
			)
		},
	}
	cmd.Flags().StringVar(&unit, "unit", string(engine.UnitDay), "bucket size: day, week or month")
	rng.register(cmd)
	flt.register(cmd)
	out.register(cmd)
	return cmd
}

func newInvoiceCmd(a *app) *cobra.Command {
	var (
		by         string
		tax        string
		useDefault bool
		rng        rangeFlags
		flt        filterFlags
		out        outputFlags
	)
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Bill grouped time at the stored hourly rates",
		Long: `Bill grouped time at the stored hourly rates.

Every group needs a rate (see 'timeledger rate set'). Pass --use-default-rate
to bill unrated groups at the default_rate from the config file.`,
		Example: `  timeledger invoice --period month
  timeledger invoice --by user --tax 0.08 -f json -o invoice.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dim, err := engine.ParseDimension(by)
			if err != nil {
				return err
			}
			now := a.now()
			period, err := rng.resolve(a.reports.Options().Calendar, now)
			if err != nil {
				return err
			}

			req := report.InvoiceRequest{
				Query: report.Query{
					Range:     period,
					Dimension: dim,
					Filter:    flt.filter(),
					Now:       now,
				},
				UseDefaultRate: useDefault,
			}
			if !cmd.Flags().Changed("use-default-rate") {
				req.UseDefaultRate = a.store.SettingOr(store.SettingUseDefaultRate, "false") == "true"
			}
			if tax != "" {
				d, err := decimal.NewFromString(tax)
				if err != nil {
					return fmt.Errorf("invalid --tax %q: %w", tax, err)
				}
				req.TaxRate = &d
			}

			res, err := a.reports.Invoice(cmd.Context(), req)
			if errors.Is(err, engine.ErrMissingRate) {
				return fmt.Errorf("%w\nset one with 'timeledger rate set' or pass --use-default-rate", err)
			}
			if errors.Is(err, store.ErrConflictingRates) {
				return fmt.Errorf("%w\nbill by a finer dimension or align the pair rates", err)
			}
			if err != nil {
				return err
			}

			doc := export.NewInvoiceDocument(res.Invoice, a.cfg.Currency, dim, period, now)
			return out.write(cmd,
				func(w io.Writer) error { return printInvoice(w, doc, res.Defaulted) },
				func(w io.Writer) error { return export.InvoiceCSV(w, doc) },
				func(w io.Writer) error { return export.InvoiceJSON(w, doc) },
			)
		},
	}
	cmd.Flags().StringVar(&by, "by", string(engine.DimProject), "project, team, user, day, week or month")
	cmd.Flags().StringVar(&tax, "tax", "", "tax rate as a fraction, e.g. 0.10 (default from settings/config)")
	cmd.Flags().BoolVar(&useDefault, "use-default-rate", false, "bill groups without a rate at the configured default rate")
	rng.register(cmd)
	flt.register(cmd)
	out.register(cmd)
	return cmd
}
