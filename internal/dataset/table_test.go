package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseCSVSingleRecord(t *testing.T) {
	table, err := ParseCSV(strings.NewReader("\ufeffF2006,Country\n 0.50 ,\"Côte d'Ivoire\"\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if table.Columns[0] != "F2006" {
		t.Fatalf("bom not stripped: %q", table.Columns[0])
	}
	if table.Rows[0]["F2006"] != " 0.50 " {
		t.Fatalf("cell value altered: %q", table.Rows[0]["F2006"])
	}
}

func TestParseCSVEmptyInput(t *testing.T) {
	table, err := ParseCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !table.Empty() || table.Columns == nil || table.Rows == nil {
		t.Fatalf("expected empty non-nil table, got %#v", table)
	}
}

func TestParseCSVMalformedQuote(t *testing.T) {
	if _, err := ParseCSV(strings.NewReader("a,b\n\"unterminated,1\n")); err == nil {
		t.Fatalf("expected parse error")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestParseCSVReadError(t *testing.T) {
	if _, err := ParseCSV(failingReader{}); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := ParseGeoJSON(failingReader{}); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestTableWriteCSVColumnOrder(t *testing.T) {
	table := Table{
		Columns: []string{"z", "a"},
		Rows:    []Record{{"a": "1", "z": "2"}, {"z": "3"}},
	}
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "z,a\n2,1\n3,\n" {
		t.Fatalf("unexpected csv: %q", got)
	}
}

func TestTableJSON(t *testing.T) {
	b, err := json.Marshal(Table{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"columns":[],"rows":[]}` {
		t.Fatalf("unexpected empty json: %s", b)
	}
	var decoded Table
	if err := json.Unmarshal([]byte(`{"columns":["a"],"rows":[{"a":"1"}]}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Len() != 1 || decoded.Rows[0]["a"] != "1" {
		t.Fatalf("unexpected decoded table: %#v", decoded)
	}
}

func TestParseCSVRowShapes(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		columns []string
		rows    []Record
	}{
		{
			name:    "short row fills missing cells",
			input:   "country,carbon,area\nBR\n",
			columns: []string{"country", "carbon", "area"},
			rows:    []Record{{"country": "BR", "carbon": "", "area": ""}},
		},
		{
			name:    "surplus cells are dropped",
			input:   "country,carbon\nBR,7,extra,more\n",
			columns: []string{"country", "carbon"},
			rows:    []Record{{"country": "BR", "carbon": "7"}},
		},
		{
			name:    "duplicate header keeps first column and last cell",
			input:   "a,b,a\n1\n1,2,3,4\n",
			columns: []string{"a", "b"},
			rows:    []Record{{"a": "", "b": ""}, {"a": "3", "b": "2"}},
		},
		{
			name:    "blank lines are skipped",
			input:   "a,b\n1,2\n\n3,4\n",
			columns: []string{"a", "b"},
			rows:    []Record{{"a": "1", "b": "2"}, {"a": "3", "b": "4"}},
		},
		{
			name:    "bare quote stays literal",
			input:   "name,height\nTower 5\" wide,10\nB,\"quoted, cell\"\n",
			columns: []string{"name", "height"},
			rows:    []Record{{"name": "Tower 5\" wide", "height": "10"}, {"name": "B", "height": "quoted, cell"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			table, err := ParseCSV(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if strings.Join(table.Columns, ",") != strings.Join(tc.columns, ",") {
				t.Fatalf("unexpected columns %q", table.Columns)
			}
			if len(table.Rows) != len(tc.rows) {
				t.Fatalf("expected %d rows, got %d: %v", len(tc.rows), len(table.Rows), table.Rows)
			}
			for i, want := range tc.rows {
				got := table.Rows[i]
				if len(got) != len(want) {
					t.Fatalf("row %d: expected %v, got %v", i, want, got)
				}
				for k, v := range want {
					if cell, ok := got[k]; !ok || cell != v {
						t.Fatalf("row %d: cell %q = %q, want %q", i, k, cell, v)
					}
				}
			}
		})
	}
}
