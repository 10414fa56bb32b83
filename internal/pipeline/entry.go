// Package pipeline turns raw access-log lines into typed, storage-ready
// entries. Each line is validated and normalized by an ordered chain of
// field validators; lines that fail any check become FailedLine values that
// are reported but never persisted.
package pipeline

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// MaxFieldLen is the maximum length (in runes) for free-text fields.
// Longer values are truncated, matching the access_log column widths.
const MaxFieldLen = 255

// MaxCountryLen is the maximum length for the country field.
const MaxCountryLen = 8

// DeviceType values derived from the user-agent string.
const (
	DeviceOther    = "other"
	DeviceMobile   = "mobile"
	DeviceUnknown  = "unknown"
	DeviceConsole  = "console"
	DeviceTablet   = "tablet"
	DeviceSmartTV  = "smarttv"
	DeviceWearable = "wearable"
	DeviceEmbedded = "embedded"
)

// Entry is the validated, normalized form of one access-log record.
//
// Optional fields use pgtype values with Valid=false for "no value",
// which maps directly to NULL at insert time. The upstream log writer
// uses "-" as its no-value sentinel; validators translate that here.
type Entry struct {
	Host         string      // IPv4 or IPv6 literal
	User         pgtype.Text // "-" maps to absent
	Time         time.Time
	Method       pgtype.Text // HTTP method whitelist; "-" maps to absent
	Path         pgtype.Text // URI-decoded; "-" maps to absent
	Query        pgtype.Text // URI-decoded; empty maps to absent
	Status       int32       // member of the status whitelist
	ResponseSize float64
	ProcessTime  float64
	Referer      string // never NULL, may be empty
	UserAgent    pgtype.Text
	Bot          bool
	Browser      pgtype.Text
	DeviceType   string
	OS           pgtype.Text
	Country      pgtype.Text // uppercased; "-" maps to absent
}

// FailedLine pairs a rejected input line (verbatim) with the reason it was
// rejected. Used only for reporting.
type FailedLine struct {
	Line   string
	Reason string
}

// ValidationError describes why a single field made a record invalid.
type ValidationError struct {
	Field   string // field name from the raw record
	Value   string // the offending value
	Message string // human-readable description
}

func (e ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %q", e.Message, e.Value)
	}
	return e.Message
}

// truncate limits s to max runes. Values at or under the limit are
// returned unchanged.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// absentText is the NULL text value.
func absentText() pgtype.Text {
	return pgtype.Text{}
}

// presentText wraps a string as a non-NULL text value.
func presentText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}
