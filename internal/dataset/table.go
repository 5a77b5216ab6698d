// Package dataset holds the in-memory shapes of the loaded datasets: tabular
// records parsed from comma-separated text and an opaque geographic document.
package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Record is one row of a tabular dataset keyed by column name. Cell values are
// kept exactly as read; no numeric conversion happens here.
type Record map[string]string

// Table is an ordered sequence of records plus the header column order.
type Table struct {
	Columns []string
	Rows    []Record
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Empty reports whether the table holds no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a header row followed by data rows. Rows shorter than the
// header get empty strings for the missing cells; surplus cells are dropped.
// Blank lines are skipped. A bare quote inside an unquoted cell is kept as a
// literal character, but an unterminated quoted cell is a parse error.
func ParseCSV(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	table, err := parseTable(data, false)
	if errors.Is(err, csv.ErrBareQuote) {
		return parseTable(data, true)
	}
	return table, err
}

func parseTable(data []byte, lazyQuotes bool) (Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = lazyQuotes

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Table{Columns: []string{}, Rows: []Record{}}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("parse csv header: %w", err)
	}

	table := Table{Columns: uniqueColumns(header), Rows: []Record{}}
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("parse csv: %w", err)
		}
		rec := make(Record, len(table.Columns))
		for i, name := range header {
			if i < len(fields) {
				rec[name] = fields[i]
			} else {
				rec[name] = ""
			}
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

func uniqueColumns(header []string) []string {
	seen := make(map[string]struct{}, len(header))
	out := make([]string, 0, len(header))
	for _, name := range header {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// WriteCSV writes the header and every row in column order.
func (t Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return err
	}
	row := make([]string, len(t.Columns))
	for _, rec := range t.Rows {
		for i, name := range t.Columns {
			row[i] = rec[name]
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

type tableJSON struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// MarshalJSON encodes the table as {"columns": [...], "rows": [...]}.
func (t Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{Columns: t.Columns, Rows: t.Rows}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	if out.Rows == nil {
		out.Rows = []Record{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the MarshalJSON form.
func (t *Table) UnmarshalJSON(b []byte) error {
	var in tableJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	t.Columns = in.Columns
	t.Rows = in.Rows
	return nil
}
