package ingest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/extrame/xls"
)

// ReadXLS reads the first worksheet of a legacy BIFF (.xls) workbook. The
// decoder renders date formatted cells as RFC 3339 text, which is typed back
// into a date cell here.
func ReadXLS(r io.ReadSeeker) (rows []Row, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			rows, err = nil, fmt.Errorf("open legacy workbook: %v", recovered)
		}
	}()

	book, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open legacy workbook: %w", err)
	}
	if book == nil {
		return nil, fmt.Errorf("open legacy workbook: no workbook stream")
	}
	if book.NumSheets() == 0 {
		return nil, nil
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}

	header := sheet.Row(0)
	if header == nil {
		return nil, nil
	}
	headers := headerNames(xlsValues(header))

	for i := 1; i <= int(sheet.MaxRow); i++ {
		source := sheet.Row(i)
		if source == nil {
			continue
		}
		row := make(Row)
		for c, raw := range xlsValues(source) {
			if c >= len(headers) || headers[c] == "" || raw == "" {
				continue
			}
			row[headers[c]] = xlsCell(raw)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func xlsValues(row *xls.Row) []string {
	last := row.LastCol()
	if last < 0 {
		return nil
	}
	values := make([]string, last+1)
	for c := 0; c <= last; c++ {
		values[c] = row.Col(c)
	}
	return values
}

func xlsCell(raw string) Cell {
	if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw)); err == nil {
		return DateCell(parsed)
	}
	return csvCell(raw)
}
