package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sadopc/timeledger/internal/config"
	"github.com/sadopc/timeledger/internal/log"
	"github.com/sadopc/timeledger/internal/report"
	"github.com/sadopc/timeledger/internal/store"
)

// app holds what every command needs once the root pre-run has opened it.
type app struct {
	configPath string
	dbPath     string
	logLevel   string

	cfg     *config.Config
	store   *store.Store
	reports *report.Service
	logger  *log.Logger
	now     func() time.Time
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	root, a := newRoot()
	defer a.close()
	return root.ExecuteContext(ctx)
}

func newRoot() (*cobra.Command, *app) {
	a := &app{now: time.Now}

	root := &cobra.Command{
		Use:   "timeledger",
		Short: "Time tracking with grouped reports, period comparison and invoices",
		Long: `timeledger records time entries and turns them into grouped summaries,
period-over-period comparisons and invoices.

Run without a subcommand to open the reports browser.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is the user config dir)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database path (overrides config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	root.AddCommand(
		newReportCmd(a),
		newCompareCmd(a),
		newInvoiceCmd(a),
		newEntryCmd(a),
		newProjectCmd(a),
		newTeamCmd(a),
		newUserCmd(a),
		newRateCmd(a),
		newTUICmd(a),
	)
	return root, a
}

func (a *app) open(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("locate config: %w", err)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DatabasePath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	a.logger = log.New(log.Config{Level: level, Component: log.ComponentCLI, Output: cmd.ErrOrStderr()})
	log.SetDefault(a.logger)

	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.store = st
	a.cfg = cfg

	opts, err := report.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	// A tax rate saved from the reports browser wins over the config file.
	if v, err := st.GetSetting(store.SettingTaxRate); err == nil {
		tax, err := decimal.NewFromString(v)
		if err != nil || tax.IsNegative() {
			a.logger.Warn("ignoring stored tax rate", "value", v)
		} else {
			opts.TaxRate = tax
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	a.reports = report.NewService(st, opts, a.logger)

	a.logger.Debug("opened",
		log.FieldOperation, log.OpStartup,
		log.FieldPath, cfg.DatabasePath,
	)
	return nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil && a.logger != nil {
		a.logger.Error("close database", log.FieldError, err)
	}
	a.store = nil
}
