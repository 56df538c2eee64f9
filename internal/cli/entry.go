package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/timeledger/internal/engine"
	"github.com/sadopc/timeledger/internal/export"
	"github.com/sadopc/timeledger/internal/store"
)

func newEntryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Record and list time entries",
	}
	cmd.AddCommand(
		newEntryAddCmd(a),
		newEntryStartCmd(a),
		newEntryStopCmd(a),
		newEntryListCmd(a),
	)
	return cmd
}

// entryFlags are the associations shared by add and start.
type entryFlags struct {
	project int64
	user    int64
	task    int64
	desc    string
}

func (f *entryFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64VarP(&f.project, "project", "p", 0, "project id")
	cmd.Flags().Int64VarP(&f.user, "user", "u", 0, "user id")
	cmd.Flags().Int64Var(&f.task, "task", 0, "task id")
	cmd.Flags().StringVarP(&f.desc, "desc", "d", "", "description")
}

func newEntryAddCmd(a *app) *cobra.Command {
	var (
		ef       entryFlags
		start    string
		end      string
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a finished entry",
		Example: `  timeledger entry add -p 1 --start "2024-01-15 09:00" --end "2024-01-15 10:30"
  timeledger entry add -p 1 --start 14:00 --duration 45m -d "code review"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := a.now()
			loc := location(a.reports.Options().Calendar)
			s, err := parseClock(start, loc, now)
			if err != nil {
				return err
			}
			var e time.Time
			switch {
			case end != "" && duration != 0:
				return fmt.Errorf("use either --end or --duration")
			case end != "":
				if e, err = parseClock(end, loc, now); err != nil {
					return err
				}
			case duration != 0:
				e = s.Add(duration)
			default:
				return fmt.Errorf("--end or --duration is required")
			}
			if e.Before(s) {
				return fmt.Errorf("end %s is before start %s: %w", e.Format(dateTimeLayout), s.Format(dateTimeLayout), engine.ErrInvalidRange)
			}

			entry, err := a.store.AddEntry(store.NewEntry{
				UserID:      optionalID(ef.user),
				ProjectID:   optionalID(ef.project),
				TaskID:      optionalID(ef.task),
				Start:       s,
				End:         &e,
				Description: ef.desc,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added entry %d (%s)\n", entry.ID, formatSeconds(int64(e.Sub(s).Seconds())))
			return nil
		},
	}
	ef.register(cmd)
	cmd.Flags().StringVar(&start, "start", "", `start time ("YYYY-MM-DD HH:MM" or "HH:MM")`)
	cmd.Flags().StringVar(&end, "end", "", "end time")
	cmd.Flags().DurationVar(&duration, "duration", 0, "length instead of --end, e.g. 1h30m")
	cmd.MarkFlagRequired("start")
	return cmd
}

func newEntryStartCmd(a *app) *cobra.Command {
	var ef entryFlags
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a running entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := a.store.StartEntry(optionalID(ef.user), optionalID(ef.project), optionalID(ef.task), ef.desc, a.now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started entry %d at %s\n", entry.ID, entry.StartTime.In(location(a.reports.Options().Calendar)).Format(clockLayout))
			return nil
		},
	}
	ef.register(cmd)
	return cmd
}

func newEntryStopCmd(a *app) *cobra.Command {
	var user int64
	cmd := &cobra.Command{
		Use:   "stop [entry-id]",
		Short: "Stop the running entry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if len(args) == 1 {
				n, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid entry id %q", args[0])
				}
				id = n
			} else {
				running, err := a.store.GetRunningEntry(optionalID(user))
				if err != nil {
					return err
				}
				if running == nil {
					return store.ErrNotRunning
				}
				id = running.ID
			}

			entry, err := a.store.StopEntry(id, a.now())
			if err != nil {
				return err
			}
			secs, err := engine.DurationSeconds(*entry, time.Time{})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped entry %d after %s\n", entry.ID, formatSeconds(secs))
			return nil
		},
	}
	cmd.Flags().Int64VarP(&user, "user", "u", 0, "stop this user's running entry")
	return cmd
}

func newEntryListCmd(a *app) *cobra.Command {
	var (
		rng   rangeFlags
		flt   filterFlags
		out   outputFlags
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := a.now()
			cal := a.reports.Options().Calendar
			period, err := rng.resolve(cal, now)
			if err != nil {
				return err
			}
			f := flt.filter()
			f.From, f.To, f.Limit = &period.Start, &period.End, limit
			entries, err := a.store.ListEntries(f)
			if err != nil {
				return err
			}
			dir, err := a.store.Directory()
			if err != nil {
				return err
			}
			return out.write(cmd,
				func(w io.Writer) error { return printEntries(w, entries, dir, location(cal), now) },
				func(w io.Writer) error { return export.EntriesCSV(w, entries, dir, now) },
				func(w io.Writer) error { return export.EntriesJSON(w, entries, dir, now) },
			)
		},
	}
	rng.register(cmd)
	flt.register(cmd)
	out.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of entries")
	return cmd
}

func printEntries(w io.Writer, entries []engine.TimeEntry, dir engine.Directory, loc *time.Location, now time.Time) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No entries in range."))
		return nil
	}
	t := newTable("ID", "Start", "End", "Duration", "Project", "User", "Description")
	for _, e := range entries {
		secs, err := engine.DurationSeconds(e, now)
		if err != nil {
			return err
		}
		end := "running"
		if e.EndTime != nil {
			end = e.EndTime.In(loc).Format(dateTimeLayout)
		}
		t.Row(
			strconv.FormatInt(e.ID, 10),
			e.StartTime.In(loc).Format(dateTimeLayout),
			end,
			formatSeconds(secs),
			name(dir.Projects, e.ProjectID),
			name(dir.Users, e.UserID),
			e.Description,
		)
	}
	fmt.Fprintln(w, t.Render())
	return nil
}

func name(names map[int64]string, id *int64) string {
	if id == nil {
		return "-"
	}
	if n, ok := names[*id]; ok {
		return n
	}
	return strconv.FormatInt(*id, 10)
}
