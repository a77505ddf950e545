package rma

import (
	"fmt"
	"strings"
	"time"
)

// Layouts used by the persisted table.
const (
	CreatedAtLayout    = "2006-01-02 15:04"
	DateReceivedLayout = "2006-01-02"
)

// FormatYesNo renders a boolean the way the table stores it.
func FormatYesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// ParseYesNo reads a stored boolean. Empty means false.
func ParseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "y", "1":
		return true, nil
	case "no", "false", "n", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid yes/no value %q", s)
}

// FormatTime renders t in the local zone with layout, or "" for the zero
// time. The table carries no zone, and ParseTime reads it back as local.
func FormatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.In(time.Local).Format(layout)
}

// ParseTime reads a stored time in the local zone. "" parses to the zero time.
func ParseTime(s, layout string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(layout, s, time.Local)
}
