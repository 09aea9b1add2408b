package ingest

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads the first worksheet of an Office Open XML workbook.
func ReadXLSX(r io.Reader) ([]Row, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	sheet := sheets[0]

	grid, err := book.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(grid) == 0 {
		return nil, nil
	}

	reader := &sheetReader{book: book, sheet: sheet, dateStyles: make(map[int]bool)}
	headers := headerNames(grid[0])

	rows := make([]Row, 0, len(grid)-1)
	for r := 1; r < len(grid); r++ {
		row := make(Row)
		for c, raw := range grid[r] {
			if c >= len(headers) || headers[c] == "" || raw == "" {
				continue
			}
			cell, err := reader.cell(c, r, raw)
			if err != nil {
				return nil, err
			}
			row[headers[c]] = cell
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

type sheetReader struct {
	book       *excelize.File
	sheet      string
	dateStyles map[int]bool
}

func (s *sheetReader) cell(col, row int, raw string) (Cell, error) {
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return Cell{}, fmt.Errorf("cell coordinates: %w", err)
	}
	typ, err := s.book.GetCellType(s.sheet, axis)
	if err != nil {
		return Cell{}, fmt.Errorf("cell %s type: %w", axis, err)
	}

	switch typ {
	case excelize.CellTypeBool:
		return BoolCell(raw == "1" || strings.EqualFold(raw, "true")), nil
	case excelize.CellTypeDate:
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			return DateCell(parsed), nil
		}
		return StringCell(raw), nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return StringCell(raw), nil
	}

	number, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return StringCell(raw), nil
	}
	if s.isDateStyled(axis) {
		if converted, err := excelize.ExcelDateToTime(number, false); err == nil {
			return DateCell(converted), nil
		}
	}
	return NumberCell(number), nil
}

func (s *sheetReader) isDateStyled(axis string) bool {
	styleID, err := s.book.GetCellStyle(s.sheet, axis)
	if err != nil || styleID == 0 {
		return false
	}
	if cached, ok := s.dateStyles[styleID]; ok {
		return cached
	}
	style, err := s.book.GetStyle(styleID)
	isDate := err == nil && style != nil && isDateFormat(style.NumFmt, style.CustomNumFmt)
	s.dateStyles[styleID] = isDate
	return isDate
}

var (
	quotedLiteral  = regexp.MustCompile(`"[^"]*"`)
	bracketSection = regexp.MustCompile(`\[[^\]]*\]`)
)

// isDateFormat reports whether a number format renders a date or time.
func isDateFormat(numFmt int, custom *string) bool {
	if custom != nil && *custom != "" {
		code := strings.ToLower(*custom)
		code = quotedLiteral.ReplaceAllString(code, "")
		code = bracketSection.ReplaceAllString(code, "")
		code = strings.ReplaceAll(code, `\`, "")
		return strings.ContainsAny(code, "ydhs")
	}
	switch {
	case numFmt >= 14 && numFmt <= 22:
		return true
	case numFmt >= 27 && numFmt <= 36:
		return true
	case numFmt >= 45 && numFmt <= 47:
		return true
	case numFmt >= 50 && numFmt <= 58:
		return true
	}
	return false
}

// headerNames returns the column keys of a header row. Blank headers are
// skipped and repeated names receive a numeric suffix.
func headerNames(cells []string) []string {
	names := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, raw := range cells {
		name := raw
		if name == "" {
			continue
		}
		if n, dup := seen[raw]; dup {
			name = fmt.Sprintf("%s_%d", raw, n)
		}
		seen[raw]++
		names[i] = name
	}
	return names
}
