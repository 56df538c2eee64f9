package report

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sadopc/timeledger/internal/config"
	"github.com/sadopc/timeledger/internal/engine"
)

// Options are the engine settings shared by every report.
type Options struct {
	Calendar        engine.Calendar
	Palette         engine.Palette
	ColorByHash     bool
	UnassignedLabel string
	Policy          engine.AveragePolicy
	ClampNegative   bool
	TaxRate         decimal.Decimal
	// DefaultRate fills groups without a stored rate, but only for invoice
	// requests that opt in. Nil when unconfigured.
	DefaultRate *decimal.Decimal
}

// OptionsFromConfig resolves report options from a validated config.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	cal, err := cfg.Calendar()
	if err != nil {
		return Options{}, err
	}
	tax, err := cfg.Tax()
	if err != nil {
		return Options{}, fmt.Errorf("tax rate: %w", err)
	}
	opts := Options{
		Calendar:        cal,
		Palette:         cfg.ChartPalette(),
		ColorByHash:     cfg.ColorByHash,
		UnassignedLabel: cfg.UnassignedLabel,
		Policy:          cfg.Policy(),
		TaxRate:         tax,
	}
	rate, ok, err := cfg.FallbackRate()
	if err != nil {
		return Options{}, fmt.Errorf("default rate: %w", err)
	}
	if ok {
		opts.DefaultRate = &rate
	}
	return opts, nil
}
