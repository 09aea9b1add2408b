// Package ingest turns uploaded spreadsheets into normalized event records.
//
// Only the first worksheet of a workbook is read. Its first row supplies the
// column headers; every following row that carries at least one value becomes
// one Record. Column matching is best effort and case-sensitive.
package ingest

import (
	"math"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
)

// Kind identifies the native type of a spreadsheet cell.
type Kind int

const (
	// KindString is free text.
	KindString Kind = iota
	// KindNumber is a plain numeric value.
	KindNumber
	// KindDate is a value the workbook marks as a date.
	KindDate
	// KindBool is a TRUE/FALSE cell.
	KindBool
)

// Cell is a typed spreadsheet value.
type Cell struct {
	Kind   Kind
	Text   string
	Number float64
	Time   time.Time
	Bool   bool
}

// StringCell returns a text cell.
func StringCell(text string) Cell { return Cell{Kind: KindString, Text: text} }

// NumberCell returns a numeric cell.
func NumberCell(n float64) Cell { return Cell{Kind: KindNumber, Number: n} }

// DateCell returns a date cell.
func DateCell(t time.Time) Cell { return Cell{Kind: KindDate, Time: t} }

// BoolCell returns a boolean cell.
func BoolCell(b bool) Cell { return Cell{Kind: KindBool, Bool: b} }

// Present reports whether the cell counts as a value during column matching.
// Empty text, zero and FALSE fall through to the next candidate column.
func (c Cell) Present() bool {
	switch c.Kind {
	case KindString:
		return c.Text != ""
	case KindNumber:
		return c.Number != 0 && !math.IsNaN(c.Number)
	case KindDate:
		return !c.Time.IsZero()
	case KindBool:
		return c.Bool
	}
	return false
}

// String renders the cell as display text.
func (c Cell) String() string {
	switch c.Kind {
	case KindNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case KindDate:
		return c.Time.Format(DisplayDateLayout)
	case KindBool:
		return strconv.FormatBool(c.Bool)
	default:
		return c.Text
	}
}

// Row maps header names to the non-empty cells of one data row.
type Row map[string]Cell

// Date display constants.
const (
	DisplayDateLayout = "Jan 2, 2006"
	NotAvailable      = "N/A"
	// serialEpochOffset is the number of days between 1899-12-30 and 1970-01-01.
	serialEpochOffset = 25569
)

// FormatDate normalizes a date source into "Jan 2, 2006". Unparseable text is
// returned verbatim and a missing source yields "N/A".
func FormatDate(cell Cell, ok bool) string {
	if !ok || !cell.Present() {
		return NotAvailable
	}
	switch cell.Kind {
	case KindDate:
		return cell.Time.UTC().Format(DisplayDateLayout)
	case KindNumber:
		return SerialToTime(cell.Number).Format(DisplayDateLayout)
	case KindString:
		parsed, err := dateparse.ParseIn(cell.Text, time.UTC)
		if err != nil {
			return cell.Text
		}
		return parsed.Format(DisplayDateLayout)
	default:
		return cell.String()
	}
}

// SerialToTime converts a spreadsheet day serial into a UTC instant.
func SerialToTime(serial float64) time.Time {
	millis := math.Round((serial - serialEpochOffset) * 86400 * 1000)
	return time.UnixMilli(int64(millis)).UTC()
}
