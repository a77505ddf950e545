package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rmatrack/internal/lifecycle"
	"github.com/roach88/rmatrack/internal/rma"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	DateReceived    string
	CauseNote       string
	Outcome         string
	CAPARequired    bool
	CAPAID          string
	ExpectedVersion int64
	Document        string
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <rma-id>",
		Short: "Record inspection and disposition (Inspector)",
		Long: `Record the inspection of a Submitted RMA and move it to Inspected.

The date received defaults to today. An optional inspection document is
stored as <rma-id>_insp_<file name>.

Example:
  rmatrack inspect RMA-2403K7Q --as inspector@example.com \
    --outcome Repaired --cause "cracked seal" --capa-required --capa-id CAPA-12`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.DateReceived, "date-received", "", "date the unit arrived (YYYY-MM-DD, default today)")
	f.StringVar(&opts.CauseNote, "cause", "", "cause note")
	f.StringVar(&opts.Outcome, "outcome", "", "Disposition|Repaired|Replaced|Rejected")
	f.BoolVar(&opts.CAPARequired, "capa-required", false, "a CAPA is required")
	f.StringVar(&opts.CAPAID, "capa-id", "", "CAPA identifier")
	f.Int64Var(&opts.ExpectedVersion, "expected-version", 0, "reject if the record version differs (0 disables)")
	f.StringVar(&opts.Document, "document", "", "inspection document to attach")

	return cmd
}

func runInspect(opts *InspectOptions, id string, cmd *cobra.Command) error {
	received, err := rma.ParseTime(opts.DateReceived, rma.DateReceivedLayout)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid --date-received %q", opts.DateReceived), err)
	}
	outcome, err := rma.ParseOutcome(opts.Outcome)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --outcome", err)
	}

	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	doc, err := readAttachment(opts.Document)
	if err != nil {
		return err
	}

	rec, err := a.engine.Inspect(cmd.Context(), opts.Identity, id, lifecycle.InspectRequest{
		DateReceived:    received,
		CauseNote:       opts.CauseNote,
		Outcome:         outcome,
		CAPARequired:    opts.CAPARequired,
		CAPAID:          opts.CAPAID,
		ExpectedVersion: opts.ExpectedVersion,
		Document:        doc,
	})
	if err != nil {
		return a.fail(err)
	}
	return a.out.Emit(rec, transitionText(rec, opts.Verbose))
}
