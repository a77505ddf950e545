package lifecycle

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/rmatrack/internal/rma"
)

// Attachment is an uploaded document.
type Attachment struct {
	Filename string
	Data     []byte
}

// SubmitRequest carries the submission form.
type SubmitRequest struct {
	Customer          string `json:"customer" validate:"required"`
	Product           string `json:"product" validate:"required"`
	SerialNumber      string `json:"serial_number"`
	PONumber          string `json:"po_number"`
	SONumber          string `json:"so_number"`
	HazardousLocation bool   `json:"hazardous_location"`
	ReasonCodes       string `json:"reason_codes" validate:"required"`
	Notes             string `json:"notes"`

	Attachment *Attachment `json:"-"`
}

func (r *SubmitRequest) trim() {
	r.Customer = strings.TrimSpace(r.Customer)
	r.Product = strings.TrimSpace(r.Product)
	r.SerialNumber = strings.TrimSpace(r.SerialNumber)
	r.PONumber = strings.TrimSpace(r.PONumber)
	r.SONumber = strings.TrimSpace(r.SONumber)
	r.ReasonCodes = strings.TrimSpace(r.ReasonCodes)
	r.Notes = strings.TrimSpace(r.Notes)
}

// InspectRequest carries the inspection form.
type InspectRequest struct {
	// DateReceived defaults to today when zero.
	DateReceived time.Time   `json:"date_received"`
	CauseNote    string      `json:"cause_note"`
	Outcome      rma.Outcome `json:"outcome" validate:"omitempty,oneof=Disposition Repaired Replaced Rejected"`
	CAPARequired bool        `json:"capa_required"`
	CAPAID       string      `json:"capa_id"`

	// ExpectedVersion, when non-zero, must equal the stored version.
	ExpectedVersion int64 `json:"expected_version"`

	Document *Attachment `json:"-"`
}

func (r *InspectRequest) trim() {
	r.CauseNote = strings.TrimSpace(r.CauseNote)
	r.CAPAID = strings.TrimSpace(r.CAPAID)
}

// ReviewRequest carries the final QA review form.
type ReviewRequest struct {
	QACertified  bool `json:"qa_certified"`
	MarkComplete bool `json:"mark_complete"`

	// ExpectedVersion, when non-zero, must equal the stored version.
	ExpectedVersion int64 `json:"expected_version"`
}

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// invalidFields lists the fields of a validator error, or nil when err is
// not a validation failure.
func invalidFields(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, fe.Field())
	}
	return fields
}
