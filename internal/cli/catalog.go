package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sadopc/timeledger/internal/engine"
)

func newProjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	var (
		color string
		team  int64
	)
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.store.CreateProject(args[0], color, optionalID(team))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %d %q\n", p.ID, p.Name)
			return nil
		},
	}
	add.Flags().StringVar(&color, "color", "#6C63FF", "hex color")
	add.Flags().Int64Var(&team, "team", 0, "owning team id")

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.store.ListProjects(all)
			if err != nil {
				return err
			}
			dir, err := a.store.Directory()
			if err != nil {
				return err
			}
			t := newTable("ID", "", "Name", "Team", "Archived")
			for _, p := range projects {
				archived := ""
				if p.Archived {
					archived = "yes"
				}
				t.Row(
					strconv.FormatInt(p.ID, 10),
					lipgloss.NewStyle().Foreground(lipgloss.Color(p.Color)).Render("■"),
					p.Name,
					name(dir.Teams, p.TeamID),
					archived,
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include archived projects")

	var setTeam int64
	assign := &cobra.Command{
		Use:   "assign PROJECT-ID",
		Short: "Move a project to a team (--team 0 clears it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			return a.store.SetProjectTeam(id, optionalID(setTeam))
		},
	}
	assign.Flags().Int64Var(&setTeam, "team", 0, "team id")

	archive := &cobra.Command{
		Use:   "archive PROJECT-ID",
		Short: "Archive a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			return a.store.ArchiveProject(id)
		},
	}

	cmd.AddCommand(add, list, assign, archive)
	return cmd
}

func newTeamCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Manage teams",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add NAME",
			Short: "Create a team",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				team, err := a.store.CreateTeam(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created team %d %q\n", team.ID, team.Name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List teams",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				teams, err := a.store.ListTeams()
				if err != nil {
					return err
				}
				t := newTable("ID", "Name")
				for _, team := range teams {
					t.Row(strconv.FormatInt(team.ID, 10), team.Name)
				}
				fmt.Fprintln(cmd.OutOrStdout(), t.Render())
				return nil
			},
		},
	)
	return cmd
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var email string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.store.CreateUser(args[0], email)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %d %q\n", u.ID, u.Name)
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "email address")

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.store.ListUsers()
			if err != nil {
				return err
			}
			t := newTable("ID", "Name", "Email")
			for _, u := range users {
				t.Row(strconv.FormatInt(u.ID, 10), u.Name, u.Email)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newRateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Manage hourly billing rates",
	}

	var project, user int64
	set := &cobra.Command{
		Use:   "set RATE",
		Short: "Set the hourly rate of a project, a user, or a project and user pair",
		Example: `  timeledger rate set 3000 --project 1
  timeledger rate set 4500.50 --project 1 --user 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid rate %q: %w", args[0], err)
			}
			if rate.IsNegative() {
				return engine.ErrNegativeRate
			}
			if err := a.store.SetRate(optionalID(project), optionalID(user), rate); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rate set to %s/h\n", rate)
			return nil
		},
	}
	set.Flags().Int64Var(&project, "project", 0, "project id")
	set.Flags().Int64Var(&user, "user", 0, "user id")

	list := &cobra.Command{
		Use:   "list",
		Short: "List hourly rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rates, err := a.store.ListRates()
			if err != nil {
				return err
			}
			dir, err := a.store.Directory()
			if err != nil {
				return err
			}
			t := newTable("Project", "User", "Rate", "Updated")
			for _, r := range rates {
				t.Row(name(dir.Projects, r.ProjectID), name(dir.Users, r.UserID), r.HourlyRate.String(), r.UpdatedAt.Format(dateLayout))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	cmd.AddCommand(set, list)
	return cmd
}
