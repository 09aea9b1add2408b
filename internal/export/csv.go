// Package export renders responses as a flat CSV document.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// Quoting selects how field values are written.
type Quoting string

const (
	// QuotingLegacy joins fields with commas and applies no escaping. Values
	// containing commas or newlines therefore shift columns.
	QuotingLegacy Quoting = "legacy"
	// QuotingRFC4180 quotes fields that need it.
	QuotingRFC4180 Quoting = "rfc4180"
)

// ParseQuoting validates a quoting mode name. The empty string selects legacy.
func ParseQuoting(value string) (Quoting, error) {
	switch Quoting(strings.ToLower(strings.TrimSpace(value))) {
	case "", QuotingLegacy:
		return QuotingLegacy, nil
	case QuotingRFC4180:
		return QuotingRFC4180, nil
	}
	return "", fmt.Errorf("unknown csv quoting %q", value)
}

// Header is the fixed first row of every export.
var Header = []string{"Event", "Full Name", "Email", "Phone", "Title", "Company", "Intents", "Submitted At"}

// IntentSeparator joins the intents of one response.
const IntentSeparator = "; "

// TimestampLayout is the ISO-8601 form used for Submitted At.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Row is one response projected for export.
type Row struct {
	Event       string
	FullName    string
	Email       string
	Phone       string
	Title       string
	Company     string
	Intents     []string
	SubmittedAt time.Time
}

func (r Row) fields() []string {
	return []string{
		r.Event,
		r.FullName,
		r.Email,
		r.Phone,
		r.Title,
		r.Company,
		strings.Join(r.Intents, IntentSeparator),
		r.SubmittedAt.UTC().Format(TimestampLayout),
	}
}

// Write renders the header and rows to w.
func Write(w io.Writer, rows []Row, quoting Quoting) error {
	if quoting == QuotingRFC4180 {
		return writeQuoted(w, rows)
	}
	return writeLegacy(w, rows)
}

func writeLegacy(w io.Writer, rows []Row) error {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(Header, ","))
	for _, row := range rows {
		lines = append(lines, strings.Join(row.fields(), ","))
	}
	if _, err := io.WriteString(w, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func writeQuoted(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row.fields()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// FileName returns responses_{YYYY-MM-DD}.csv for the export date.
func FileName(at time.Time) string {
	return "responses_" + at.UTC().Format("2006-01-02") + ".csv"
}
