package ingest

import "fmt"

// Record is one normalized event row, before identifiers are assigned.
type Record struct {
	Index     int
	Name      string
	StartDate string
	EndDate   string
	Location  string
}

// Column candidates in priority order.
var (
	NameColumns     = []string{"Conference / Event", "Event", "Name", "EventName"}
	StartColumns    = []string{"Start Date", "Date", "Start", "StartDate"}
	EndColumns      = []string{"End Date", "End", "EndDate"}
	LocationColumns = []string{"Location", "City", "Venue"}
)

// DefaultLocation is used when no location column carries a value.
const DefaultLocation = "Remote"

// Normalize resolves every row into a Record.
func Normalize(rows []Row) []Record {
	if len(rows) == 0 {
		return nil
	}
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		records = append(records, NormalizeRow(i, row))
	}
	return records
}

// NormalizeRow resolves the columns of the row at index.
func NormalizeRow(index int, row Row) Record {
	name := fmt.Sprintf("Unnamed Event %d", index+1)
	if cell, ok := resolve(row, NameColumns); ok {
		name = cell.String()
	}

	start, hasStart := resolve(row, StartColumns)
	end, hasEnd := resolve(row, EndColumns)
	if !hasEnd {
		end, hasEnd = start, hasStart
	}

	location := DefaultLocation
	if cell, ok := resolve(row, LocationColumns); ok {
		location = cell.String()
	}

	return Record{
		Index:     index,
		Name:      name,
		StartDate: FormatDate(start, hasStart),
		EndDate:   FormatDate(end, hasEnd),
		Location:  location,
	}
}

func resolve(row Row, columns []string) (Cell, bool) {
	for _, column := range columns {
		cell, ok := row[column]
		if ok && cell.Present() {
			return cell, true
		}
	}
	return Cell{}, false
}
