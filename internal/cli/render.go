package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/roach88/rmatrack/internal/rma"
)

// writeRecord renders one record in full.
func writeRecord(w io.Writer, r rma.Record) {
	fmt.Fprintf(w, "%s\n", r.Label())
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(tw, "  %s:\t%s\n", k, v)
		}
	}
	row("Status", string(r.Status))
	row("Version", fmt.Sprint(r.Version))
	row("Date Created", rma.FormatTime(r.CreatedAt, rma.CreatedAtLayout))
	row("Created By", r.CreatedBy)
	row("Serial Number", r.SerialNumber)
	row("PO Number", r.PONumber)
	row("SO Number", r.SONumber)
	row("Hazardous Location", rma.FormatYesNo(r.HazardousLocation))
	row("Reason Codes", r.ReasonCodes)
	row("Notes", r.Notes)
	row("Attached Document", r.AttachedDocumentPath)
	if r.Status != rma.StatusSubmitted {
		row("Inspected By", r.InspectedBy)
		row("Date Received", rma.FormatTime(r.DateReceived, rma.DateReceivedLayout))
		row("Inspection Outcome", string(r.InspectionOutcome))
		row("Cause Note", r.CauseNote)
		row("CAPA Required", rma.FormatYesNo(r.CAPARequired))
		row("CAPA ID", r.CAPAID)
		row("Inspection Document", r.InspectionDocumentPath)
	}
	if r.ReviewedBy != "" {
		row("Reviewed By", r.ReviewedBy)
		row("QA Certified", rma.FormatYesNo(r.QACertified))
	}
	_ = tw.Flush()

	if len(r.ChangeLog) > 0 {
		fmt.Fprintln(w, "  History:")
		for _, e := range r.ChangeLog {
			line := fmt.Sprintf("    %s  %-9s %s", e.At.Format("2006-01-02 15:04:05"), e.Action, e.By)
			if e.Detail != "" {
				line += " (" + e.Detail + ")"
			}
			fmt.Fprintln(w, line)
		}
	}
}

// writeTable renders records one per line.
func writeTable(w io.Writer, records []rma.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RMA ID\tSTATUS\tCUSTOMER\tPRODUCT\tCREATED\tCREATED BY")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Status, r.Customer, r.Product,
			rma.FormatTime(r.CreatedAt, rma.CreatedAtLayout), r.CreatedBy)
	}
	_ = tw.Flush()
}
