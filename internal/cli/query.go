package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rmatrack/internal/rma"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Status string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records in insertion order",
		Long: `List every RMA in the table, oldest first.

Examples:
  rmatrack list
  rmatrack list --status Inspected --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "only records in this status (Submitted|Inspected|Completed)")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	var status *rma.Status
	if opts.Status != "" {
		s, err := rma.ParseStatus(opts.Status)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --status", err)
		}
		status = &s
	}

	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	records, err := a.engine.List(cmd.Context(), opts.Identity, status)
	if err != nil {
		return a.fail(err)
	}
	return a.out.Emit(records, func(w io.Writer) { writeTable(w, records) })
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <rma-id>",
		Short:         "Show one record with its history",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			rec, err := a.engine.Get(cmd.Context(), rootOpts.Identity, args[0])
			if err != nil {
				return a.fail(err)
			}
			return a.out.Emit(rec, func(w io.Writer) { writeRecord(w, rec) })
		},
	}
}

// worklistView is the JSON payload of the worklist command.
type worklistView struct {
	Role    rma.Role     `json:"role"`
	Stage   string       `json:"stage"`
	Records []rma.Record `json:"records"`
}

// NewWorklistCommand creates the worklist command.
func NewWorklistCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worklist",
		Short: "Show the records waiting on you",
		Long: `Show the queue for your primary role: Submitted records for an
Inspector, Inspected records for a Reviewer and your own submissions for a
Creator.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			role, records, err := a.engine.Worklist(cmd.Context(), rootOpts.Identity)
			if err != nil {
				return a.fail(err)
			}
			view := worklistView{Role: role, Stage: role.StageLabel(), Records: records}
			return a.out.Emit(view, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%s): %d records\n", view.Stage, role, len(records))
				if len(records) > 0 {
					writeTable(w, records)
				}
			})
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "whoami",
		Short:         "Show the roles of the current identity",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			me, err := a.engine.Whoami(rootOpts.Identity)
			if err != nil {
				return a.fail(err)
			}
			return a.out.Emit(me, func(w io.Writer) {
				roles := make([]string, len(me.Roles))
				for i, r := range me.Roles {
					roles[i] = string(r)
				}
				fmt.Fprintf(w, "%s\n  Primary role: %s (%s)\n  Roles: %s\n",
					me.Identity, me.Primary, me.Primary.StageLabel(), strings.Join(roles, ", "))
			})
		},
	}
}
