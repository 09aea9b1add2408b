package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ReadCSV reads a comma separated sheet whose first record holds the headers.
// Numeric text is typed as a number the way spreadsheet importers do.
func ReadCSV(r io.Reader) ([]Row, error) {
	buffered := bufio.NewReader(r)
	if bom, err := buffered.Peek(3); err == nil && string(bom) == "\ufeff" {
		_, _ = buffered.Discard(3)
	}

	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	headers := headerNames(header)

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		row := make(Row)
		for c, raw := range record {
			if c >= len(headers) || headers[c] == "" || raw == "" {
				continue
			}
			row[headers[c]] = csvCell(raw)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func csvCell(raw string) Cell {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return BoolCell(true)
	case "FALSE":
		return BoolCell(false)
	}
	number, err := strconv.ParseFloat(trimmed, 64)
	if err == nil && !math.IsNaN(number) && !math.IsInf(number, 0) {
		return NumberCell(number)
	}
	return StringCell(raw)
}
