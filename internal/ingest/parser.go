package ingest

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedFormat indicates the upload is neither a workbook nor CSV text.
var ErrUnsupportedFormat = errors.New("ingest: unsupported spreadsheet format")

var (
	zipMagic = []byte("PK\x03\x04")
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// Format names a recognised upload encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

// Detect sniffs the upload encoding from its content, falling back to the
// file extension for text files.
func Detect(fileName string, data []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX, nil
	case bytes.HasPrefix(data, cfbMagic):
		return FormatXLS, nil
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == ".xlsx" || ext == ".xlsm" {
		return "", ErrUnsupportedFormat
	}
	if utf8.Valid(data) {
		return FormatCSV, nil
	}
	return "", ErrUnsupportedFormat
}

// Parser decodes uploads into records.
type Parser struct{}

// NewParser constructs a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse detects the upload format, reads its first sheet and normalizes each
// data row. A sheet without data rows yields an empty result.
func (p *Parser) Parse(ctx context.Context, fileName string, data []byte) ([]Record, error) {
	format, err := Detect(fileName, data)
	if err != nil {
		return nil, err
	}

	var rows []Row
	switch format {
	case FormatXLSX:
		rows, err = ReadXLSX(bytes.NewReader(data))
	case FormatXLS:
		rows, err = ReadXLS(bytes.NewReader(data))
	default:
		rows, err = ReadCSV(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Normalize(rows), nil
}
