package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rmatrack/internal/lifecycle"
	"github.com/roach88/rmatrack/internal/rma"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Request    lifecycle.SubmitRequest
	Attachment string
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Create a return request (Creator)",
		Long: `Create a new RMA in status Submitted.

Customer, product and reason codes are required. An optional attachment is
copied into the uploads directory as <rma-id>_<file name>.

Example:
  rmatrack submit --as creator@example.com \
    --customer Acme --product Pump-7 --reason-codes leak --attach photo.png`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Request.Customer, "customer", "", "customer name (required)")
	f.StringVar(&opts.Request.Product, "product", "", "product (required)")
	f.StringVar(&opts.Request.SerialNumber, "serial", "", "serial number")
	f.StringVar(&opts.Request.PONumber, "po", "", "purchase order number")
	f.StringVar(&opts.Request.SONumber, "so", "", "sales order number")
	f.BoolVar(&opts.Request.HazardousLocation, "hazardous", false, "unit was used in a hazardous location")
	f.StringVar(&opts.Request.ReasonCodes, "reason-codes", "", "reason codes (required)")
	f.StringVar(&opts.Request.Notes, "notes", "", "free-form notes")
	f.StringVar(&opts.Attachment, "attach", "", "file to attach")

	return cmd
}

func runSubmit(opts *SubmitOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	req := opts.Request
	if req.Attachment, err = readAttachment(opts.Attachment); err != nil {
		return err
	}

	rec, err := a.engine.Submit(cmd.Context(), opts.Identity, req)
	if err != nil {
		return a.fail(err)
	}

	return a.out.Emit(rec, func(w io.Writer) {
		fmt.Fprintf(w, "RMA %s submitted successfully.\n", rec.ID)
		if opts.Verbose {
			writeRecord(w, rec)
		}
	})
}

// transitionText is the confirmation line for inspect and review.
func transitionText(rec rma.Record, verbose bool) func(w io.Writer) {
	return func(w io.Writer) {
		fmt.Fprintf(w, "RMA %s is now %s (version %d).\n", rec.ID, rec.Status, rec.Version)
		if verbose {
			writeRecord(w, rec)
		}
	}
}
