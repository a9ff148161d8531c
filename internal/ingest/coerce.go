package ingest

import (
	"strconv"
	"strings"
	"time"

	"voyagemail/internal/config"
)

// Field is one coerced cell, carrying the table column name and the typed
// value. Fields keep the order the columns were configured in.
type Field struct {
	Name  string
	Value any
}

// CoerceRow maps one CSV record onto typed fields following the column
// specs. Columns absent from the record, columns with no configured type and
// datetime columns with no format contribute nothing. A cell that cannot be
// converted aborts the row with a ParseError.
func CoerceRow(record map[string]string, cols []config.ColumnSpec) ([]Field, error) {
	fields := make([]Field, 0, len(cols))
	for i := range cols {
		col := &cols[i]
		raw, ok := record[col.CSVName]
		if !ok {
			continue
		}
		var value any
		switch col.Kind() {
		case config.KindNone:
			continue
		case config.KindDateTime:
			layout := col.TimeLayout()
			if layout == "" {
				continue
			}
			t, err := time.Parse(layout, raw)
			if err != nil {
				return nil, &ParseError{Column: col.CSVName, Value: raw, Err: err}
			}
			value = t
		case config.KindInteger:
			n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return nil, &ParseError{Column: col.CSVName, Value: raw, Err: err}
			}
			value = n
		case config.KindFloat:
			f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, &ParseError{Column: col.CSVName, Value: raw, Err: err}
			}
			value = f
		default:
			value = raw
		}
		fields = setField(fields, col.FieldName(), value)
	}
	return fields, nil
}

// setField appends a field or, when the name was already written by an
// earlier column, replaces that value in place so the first position wins.
func setField(fields []Field, name string, value any) []Field {
	for i := range fields {
		if fields[i].Name == name {
			fields[i].Value = value
			return fields
		}
	}
	return append(fields, Field{Name: name, Value: value})
}
