package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/timeledger/internal/engine"
	"github.com/sadopc/timeledger/internal/export"
	"github.com/sadopc/timeledger/internal/store"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
	clockLayout    = "15:04"
)

// rangeFlags selects a date range: the current day, week or month by
// default, or explicit inclusive --from/--to dates.
type rangeFlags struct {
	period string
	from   string
	to     string
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.period, "period", "week", "current day, week or month")
	cmd.Flags().StringVar(&f.from, "from", "", "first day (YYYY-MM-DD), overrides --period")
	cmd.Flags().StringVar(&f.to, "to", "", "last day, inclusive (YYYY-MM-DD)")
}

func (f rangeFlags) resolve(cal engine.Calendar, now time.Time) (engine.DateRange, error) {
	loc := location(cal)
	if f.from == "" && f.to == "" {
		unit, err := engine.ParseBucketUnit(f.period)
		if err != nil {
			return engine.DateRange{}, err
		}
		start := cal.Floor(now, unit)
		return engine.DateRange{Start: start, End: cal.Next(start, unit)}, nil
	}

	today := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc)
	start, end := today, today.AddDate(0, 0, 1)
	if f.from != "" {
		d, err := time.ParseInLocation(dateLayout, f.from, loc)
		if err != nil {
			return engine.DateRange{}, fmt.Errorf("invalid --from %q: expected YYYY-MM-DD", f.from)
		}
		start = d
	}
	if f.to != "" {
		d, err := time.ParseInLocation(dateLayout, f.to, loc)
		if err != nil {
			return engine.DateRange{}, fmt.Errorf("invalid --to %q: expected YYYY-MM-DD", f.to)
		}
		end = d.AddDate(0, 0, 1)
	}
	if !end.After(start) {
		return engine.DateRange{}, fmt.Errorf("--to is before --from: %w", engine.ErrEmptyRange)
	}
	return engine.DateRange{Start: start, End: end}, nil
}

// filterFlags narrows entries by association. Zero means unset.
type filterFlags struct {
	project int64
	user    int64
	team    int64
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.project, "project", 0, "only entries of this project id")
	cmd.Flags().Int64Var(&f.user, "user", 0, "only entries of this user id")
	cmd.Flags().Int64Var(&f.team, "team", 0, "only entries of this team id")
}

func (f filterFlags) filter() store.EntryFilter {
	var ef store.EntryFilter
	if f.project != 0 {
		ef.ProjectID = &f.project
	}
	if f.user != 0 {
		ef.UserID = &f.user
	}
	if f.team != 0 {
		ef.TeamID = &f.team
	}
	return ef
}

// outputFlags picks between a terminal table and a csv/json export.
type outputFlags struct {
	format string
	out    string
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "table", "table, csv or json")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write to file instead of stdout")
}

// write renders to stdout or --out. table is used for the table format.
func (f outputFlags) write(cmd *cobra.Command, table func(io.Writer) error, csv, json func(io.Writer) error) error {
	render := table
	if !strings.EqualFold(f.format, "table") {
		format, err := export.ParseFormat(f.format)
		if err != nil {
			return err
		}
		render = csv
		if format == export.FormatJSON {
			render = json
		}
	}
	if f.out == "" {
		return render(cmd.OutOrStdout())
	}
	if err := export.ToFile(f.out, render); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", f.out)
	return nil
}

// parseClock accepts "YYYY-MM-DD HH:MM", "HH:MM" (today) or RFC3339.
func parseClock(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if t, err := time.ParseInLocation(dateTimeLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(clockLayout, s, loc); err == nil {
		n := now.In(loc)
		return time.Date(n.Year(), n.Month(), n.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: expected \"YYYY-MM-DD HH:MM\", \"HH:MM\" or RFC3339", s)
}

func location(cal engine.Calendar) *time.Location {
	if cal.Location == nil {
		return time.UTC
	}
	return cal.Location
}

func optionalID(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
