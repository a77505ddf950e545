package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/rmatrack/internal/rma"
)

// Column headers of the persisted table, in order.
const (
	ColID                 = "RMA ID"
	ColDateCreated        = "Date Created"
	ColCustomer           = "Customer"
	ColProduct            = "Product"
	ColSerialNumber       = "Serial Number"
	ColPONumber           = "PO Number"
	ColSONumber           = "SO Number"
	ColHazardous          = "Hazardous Location"
	ColReasonCodes        = "Reason Codes"
	ColNotes              = "Notes"
	ColStatus             = "Status"
	ColCreatedBy          = "Created By"
	ColInspectedBy        = "Inspected By"
	ColReviewedBy         = "Reviewed By"
	ColAttachedDocument   = "Attached Document"
	ColDateReceived       = "Date Received"
	ColInspectionDocument = "Inspection Document"
	ColCauseNote          = "Cause Note"
	ColInspectionOutcome  = "Inspection Outcome"
	ColQACertified        = "QA Certified"
	ColCAPARequired       = "CAPA Required"
	ColCAPAID             = "CAPA ID"
	ColChangeLog          = "Change Log"
	ColVersion            = "Version"
)

// Columns is the header row written by every backend.
var Columns = []string{
	ColID, ColDateCreated, ColCustomer, ColProduct, ColSerialNumber,
	ColPONumber, ColSONumber, ColHazardous, ColReasonCodes, ColNotes,
	ColStatus, ColCreatedBy, ColInspectedBy, ColReviewedBy, ColAttachedDocument,
	ColDateReceived, ColInspectionDocument, ColCauseNote, ColInspectionOutcome,
	ColQACertified, ColCAPARequired, ColCAPAID, ColChangeLog, ColVersion,
}

// marshalRow renders r as string cells in Columns order.
func marshalRow(r rma.Record) ([]string, error) {
	changeLog, err := marshalChangeLog(r.ChangeLog)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return []string{
		r.ID,
		rma.FormatTime(r.CreatedAt, rma.CreatedAtLayout),
		r.Customer,
		r.Product,
		r.SerialNumber,
		r.PONumber,
		r.SONumber,
		rma.FormatYesNo(r.HazardousLocation),
		r.ReasonCodes,
		r.Notes,
		string(r.Status),
		r.CreatedBy,
		r.InspectedBy,
		r.ReviewedBy,
		r.AttachedDocumentPath,
		rma.FormatTime(r.DateReceived, rma.DateReceivedLayout),
		r.InspectionDocumentPath,
		r.CauseNote,
		string(r.InspectionOutcome),
		rma.FormatYesNo(r.QACertified),
		rma.FormatYesNo(r.CAPARequired),
		r.CAPAID,
		changeLog,
		strconv.FormatInt(r.Version, 10),
	}, nil
}

// unmarshalRow builds a record from cells addressed by header name.
// Missing optional columns read as empty; a missing Version reads as 1 so
// tables written before versioning still load.
func unmarshalRow(get func(col string) string) (rma.Record, error) {
	var r rma.Record
	var err error

	r.ID = get(ColID)
	if r.ID == "" {
		return r, fmt.Errorf("missing %s", ColID)
	}
	fail := func(col string, err error) (rma.Record, error) {
		return rma.Record{}, fmt.Errorf("record %s: column %q: %w", r.ID, col, err)
	}

	if r.CreatedAt, err = rma.ParseTime(get(ColDateCreated), rma.CreatedAtLayout); err != nil {
		return fail(ColDateCreated, err)
	}
	r.Customer = get(ColCustomer)
	r.Product = get(ColProduct)
	r.SerialNumber = get(ColSerialNumber)
	r.PONumber = get(ColPONumber)
	r.SONumber = get(ColSONumber)
	if r.HazardousLocation, err = rma.ParseYesNo(get(ColHazardous)); err != nil {
		return fail(ColHazardous, err)
	}
	r.ReasonCodes = get(ColReasonCodes)
	r.Notes = get(ColNotes)
	if r.Status, err = rma.ParseStatus(get(ColStatus)); err != nil {
		return fail(ColStatus, err)
	}
	r.CreatedBy = get(ColCreatedBy)
	r.InspectedBy = get(ColInspectedBy)
	r.ReviewedBy = get(ColReviewedBy)
	r.AttachedDocumentPath = get(ColAttachedDocument)
	if r.DateReceived, err = rma.ParseTime(get(ColDateReceived), rma.DateReceivedLayout); err != nil {
		return fail(ColDateReceived, err)
	}
	r.InspectionDocumentPath = get(ColInspectionDocument)
	r.CauseNote = get(ColCauseNote)
	if r.InspectionOutcome, err = rma.ParseOutcome(get(ColInspectionOutcome)); err != nil {
		return fail(ColInspectionOutcome, err)
	}
	if r.QACertified, err = rma.ParseYesNo(get(ColQACertified)); err != nil {
		return fail(ColQACertified, err)
	}
	if r.CAPARequired, err = rma.ParseYesNo(get(ColCAPARequired)); err != nil {
		return fail(ColCAPARequired, err)
	}
	r.CAPAID = get(ColCAPAID)
	if r.ChangeLog, err = unmarshalChangeLog(get(ColChangeLog)); err != nil {
		return fail(ColChangeLog, err)
	}

	r.Version = 1
	if v := strings.TrimSpace(get(ColVersion)); v != "" {
		if r.Version, err = strconv.ParseInt(v, 10, 64); err != nil {
			return fail(ColVersion, err)
		}
	}
	return r, nil
}

// marshalChangeLog converts entries to a JSON array TEXT.
// HTML escaping is disabled so identities and notes stay readable in the
// exported sheet.
func marshalChangeLog(entries []rma.ChangeLogEntry) (string, error) {
	if len(entries) == 0 {
		return "[]", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		return "", fmt.Errorf("marshal change log: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalChangeLog parses a JSON array TEXT. "" and "[]" yield nil.
func unmarshalChangeLog(data string) ([]rma.ChangeLogEntry, error) {
	data = strings.TrimSpace(data)
	if data == "" || data == "[]" {
		return nil, nil
	}
	var entries []rma.ChangeLogEntry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, fmt.Errorf("unmarshal change log: %w", err)
	}
	return entries, nil
}
