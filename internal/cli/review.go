package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/rmatrack/internal/lifecycle"
)

// ReviewOptions holds flags for the review command.
type ReviewOptions struct {
	*RootOptions
	Request lifecycle.ReviewRequest
}

// NewReviewCommand creates the review command.
func NewReviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReviewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "review <rma-id>",
		Short: "Record the final QA review (Reviewer)",
		Long: `Record the QA review of an Inspected RMA.

Without --complete the record stays Inspected and can be reviewed again.
With --complete it moves to Completed, which is final.

Example:
  rmatrack review RMA-2403K7Q --as reviewer@example.com --qa-certified --complete`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(opts, args[0], cmd)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.Request.QACertified, "qa-certified", false, "QA certifies the unit")
	f.BoolVar(&opts.Request.MarkComplete, "complete", false, "mark the RMA Completed")
	f.Int64Var(&opts.Request.ExpectedVersion, "expected-version", 0, "reject if the record version differs (0 disables)")

	return cmd
}

func runReview(opts *ReviewOptions, id string, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	rec, err := a.engine.Review(cmd.Context(), opts.Identity, id, opts.Request)
	if err != nil {
		return a.fail(err)
	}
	return a.out.Emit(rec, transitionText(rec, opts.Verbose))
}
