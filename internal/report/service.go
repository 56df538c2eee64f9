package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/timeledger/internal/engine"
	"github.com/sadopc/timeledger/internal/log"
	"github.com/sadopc/timeledger/internal/store"
)

// Query selects the entries a report covers. Entries are attributed to the
// range holding their start time. Filter narrows by project, user or team;
// its time bounds and limit are ignored.
type Query struct {
	Range     engine.DateRange
	Dimension engine.Dimension
	Filter    store.EntryFilter
	// Now closes running entries. Zero means the wall clock.
	Now time.Time
}

// Summary is a grouped report over one range.
type Summary struct {
	Query        Query
	Groups       []engine.AggregateGroup
	TotalSeconds int64
	Entries      int
}

// InvoiceRequest bills a summary. A nil TaxRate uses the configured one.
type InvoiceRequest struct {
	Query
	TaxRate        *decimal.Decimal
	UseDefaultRate bool
}

// InvoiceResult carries the invoice and the summary it was computed from.
// Defaulted lists groups billed at the configured default rate.
type InvoiceResult struct {
	Summary   *Summary
	Invoice   engine.Invoice
	Defaulted []string
}

// Service runs reports against the store.
type Service struct {
	store  *store.Store
	opts   Options
	logger *log.Logger
}

func NewService(st *store.Store, opts Options, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		store:  st,
		opts:   opts,
		logger: logger.WithComponent(log.ComponentReport),
	}
}

func (s *Service) Options() Options {
	return s.opts
}

// Summary groups the entries in q.Range along q.Dimension.
func (s *Service) Summary(ctx context.Context, q Query) (*Summary, error) {
	sum, _, err := s.summarize(ctx, q, false)
	return sum, err
}

func (s *Service) summarize(ctx context.Context, q Query, withRates bool) (*Summary, loaded, error) {
	started := time.Now()
	if !q.Dimension.Valid() {
		return nil, loaded{}, fmt.Errorf("%w: %q", engine.ErrUnknownDimension, q.Dimension)
	}
	q.Now = s.now(q.Now)

	l, err := s.load(ctx, q.Filter, q.Range, withRates)
	if err != nil {
		return nil, loaded{}, err
	}
	entries := l.entries

	groups, err := engine.Group(entries, q.Dimension, engine.GroupOptions{
		Now:             q.Now,
		Calendar:        s.opts.Calendar,
		Names:           l.dir,
		UnassignedLabel: s.opts.UnassignedLabel,
		Palette:         s.opts.Palette,
		ColorByHash:     s.opts.ColorByHash,
		ClampNegative:   s.opts.ClampNegative,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "group entries failed",
			log.NewFields().WithOperation(log.OpSummary).WithError(err).ToSlice()...)
		return nil, loaded{}, fmt.Errorf("group entries: %w", err)
	}

	sum := &Summary{
		Query:        q,
		Groups:       groups,
		TotalSeconds: engine.Total(groups),
		Entries:      len(entries),
	}
	s.logger.DebugContext(ctx, "summary built",
		log.FieldOperation, log.OpSummary,
		log.FieldDimension, string(q.Dimension),
		log.FieldEntries, len(entries),
		log.FieldGroups, len(groups),
		log.FieldSeconds, sum.TotalSeconds,
		log.FieldDuration, time.Since(started).Milliseconds(),
	)
	return sum, l, nil
}

// Comparison compares rng against the preceding range of equal length.
func (s *Service) Comparison(ctx context.Context, rng engine.DateRange, unit engine.BucketUnit, filter store.EntryFilter, now time.Time) (engine.PeriodComparison, error) {
	if !rng.End.After(rng.Start) {
		return engine.PeriodComparison{}, engine.ErrEmptyRange
	}
	prev := engine.PreviousRange(rng)
	entries, err := s.entries(ctx, filter, engine.DateRange{Start: prev.Start, End: rng.End})
	if err != nil {
		return engine.PeriodComparison{}, err
	}

	cmp, err := engine.Compare(entries, rng, unit, engine.CompareOptions{
		Now:           s.now(now),
		Calendar:      s.opts.Calendar,
		Policy:        s.opts.Policy,
		ClampNegative: s.opts.ClampNegative,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "compare periods failed",
			log.NewFields().WithOperation(log.OpCompare).WithError(err).ToSlice()...)
		return engine.PeriodComparison{}, fmt.Errorf("compare periods: %w", err)
	}
	s.logger.DebugContext(ctx, "comparison built",
		log.FieldOperation, log.OpCompare,
		log.FieldUnit, string(unit),
		log.FieldFrom, rng.Start.Format(time.RFC3339),
		log.FieldTo, rng.End.Format(time.RFC3339),
		log.FieldEntries, len(entries),
	)
	return cmp, nil
}

// Invoice bills the summary of req. Groups without a rate fail with
// engine.ErrMissingRate unless the request opts into the default rate.
func (s *Service) Invoice(ctx context.Context, req InvoiceRequest) (*InvoiceResult, error) {
	sum, l, err := s.summarize(ctx, req.Query, true)
	if err != nil {
		return nil, err
	}

	rates, err := l.rates.RatesFor(req.Dimension, l.entries)
	if err != nil {
		s.logger.WarnContext(ctx, "invoice rates conflict",
			log.NewFields().WithOperation(log.OpInvoice).WithError(err).ToSlice()...)
		return nil, fmt.Errorf("resolve rates: %w", err)
	}

	ids := make([]string, len(sum.Groups))
	for i, g := range sum.Groups {
		ids[i] = g.ID
	}

	var defaulted []string
	if req.UseDefaultRate && s.opts.DefaultRate != nil {
		for _, id := range ids {
			if _, ok := rates[id]; !ok {
				rates[id] = *s.opts.DefaultRate
				defaulted = append(defaulted, id)
			}
		}
	}

	tax := s.opts.TaxRate
	if req.TaxRate != nil {
		tax = *req.TaxRate
	}
	inv, err := engine.ComputeInvoice(sum.Groups, rates, tax)
	if err != nil {
		var missing *engine.MissingRateError
		if errors.As(err, &missing) {
			s.logger.WarnContext(ctx, "invoice has unrated group", "group", missing.GroupID,
				log.FieldOperation, log.OpInvoice)
		}
		return nil, fmt.Errorf("compute invoice: %w", err)
	}

	s.logger.InfoContext(ctx, "invoice computed",
		log.FieldOperation, log.OpInvoice,
		log.FieldDimension, string(req.Dimension),
		log.FieldGroups, len(inv.Lines),
		log.FieldTotal, inv.Total,
	)
	return &InvoiceResult{Summary: sum, Invoice: inv, Defaulted: defaulted}, nil
}

type loaded struct {
	entries []engine.TimeEntry
	dir     engine.Directory
	rates   store.RateBook
}

// load fetches entries, the name directory and, for invoices, the rate
// book concurrently.
func (s *Service) load(ctx context.Context, filter store.EntryFilter, rng engine.DateRange, withRates bool) (loaded, error) {
	var l loaded
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		l.entries, err = s.entries(gctx, filter, rng)
		return err
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		var err error
		l.dir, err = s.store.Directory()
		if err != nil {
			return fmt.Errorf("load directory: %w", err)
		}
		return nil
	})
	if withRates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var err error
			l.rates, err = s.store.RateBook()
			if err != nil {
				return fmt.Errorf("load rates: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return loaded{}, err
	}
	return l, nil
}

func (s *Service) entries(ctx context.Context, filter store.EntryFilter, rng engine.DateRange) ([]engine.TimeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !rng.End.After(rng.Start) {
		return nil, engine.ErrEmptyRange
	}
	filter.From = &rng.Start
	filter.To = &rng.End
	filter.Limit = 0
	entries, err := s.store.ListEntries(filter)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	return entries, nil
}

func (s *Service) now(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
