package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sadopc/timeledger/internal/log"
	"github.com/sadopc/timeledger/internal/report"
	"github.com/sadopc/timeledger/internal/tui"
)

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive tracker and reports browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}
}

// runTUI takes over the terminal, so logs go to a file beside the database
// instead of stderr.
func (a *app) runTUI(cmd *cobra.Command) error {
	path := filepath.Join(filepath.Dir(a.cfg.DatabasePath), "timeledger.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	level, _ := log.ParseLevel(a.cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Component: log.ComponentTUI, Output: f})

	logger.Info("ui started", log.FieldOperation, log.OpStartup, log.FieldPath, a.cfg.DatabasePath)
	err = tui.Run(tui.Deps{
		Store:    a.store,
		Reports:  report.NewService(a.store, a.reports.Options(), logger),
		Currency: a.cfg.Currency,
		Logger:   logger,
	})
	logger.Info("ui stopped", log.FieldOperation, log.OpShutdown)
	return err
}
