package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/rmatrack/internal/store"
)

// exportView is the JSON payload of the export command.
type exportView struct {
	Path    string `json:"path"`
	Records int    `json:"records"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path.xlsx>",
		Short: "Write the table to an Excel workbook",
		Long: `Write every record to an Excel workbook, one row per RMA, with the
same columns as the CSV table.

Example:
  rmatrack export --as reviewer@example.com ./rma_log.xlsx`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			records, err := a.engine.List(cmd.Context(), rootOpts.Identity, nil)
			if err != nil {
				return a.fail(err)
			}

			exporter := store.NewExcelExporter(args[0])
			if err := exporter.Export(cmd.Context(), records); err != nil {
				return WrapExitError(ExitCommandError, "export failed", err)
			}
			a.logger.Info("table exported", zap.String("path", exporter.Path()), zap.Int("records", len(records)))

			view := exportView{Path: exporter.Path(), Records: len(records)}
			return a.out.Emit(view, func(w io.Writer) {
				fmt.Fprintf(w, "Exported %d records to %s\n", view.Records, view.Path)
			})
		},
	}
}
