package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidJSON is returned when a geographic document is not valid JSON.
var ErrInvalidJSON = errors.New("dataset: invalid json document")

// GeoDocument is a parsed geographic boundary document. Its content is kept
// verbatim; only the top-level type and feature count are extracted for
// diagnostics.
type GeoDocument struct {
	raw          json.RawMessage
	Type         string
	FeatureCount int
}

// ParseGeoJSON reads a JSON document. Any valid JSON value is accepted.
func ParseGeoJSON(r io.Reader) (GeoDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return GeoDocument{}, fmt.Errorf("read geojson: %w", err)
	}
	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(data) == 0 || !json.Valid(data) {
		return GeoDocument{}, ErrInvalidJSON
	}
	doc := GeoDocument{raw: json.RawMessage(data)}

	var header struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	// non-object documents are still valid, they just carry no header
	if data[0] == '{' && json.Unmarshal(data, &header) == nil {
		doc.Type = header.Type
		doc.FeatureCount = len(header.Features)
	}
	return doc, nil
}

// Empty reports whether no document has been loaded.
func (g GeoDocument) Empty() bool { return len(g.raw) == 0 }

// Bytes returns the document exactly as it was read.
func (g GeoDocument) Bytes() []byte {
	if g.Empty() {
		return []byte("{}")
	}
	return g.raw
}

// MarshalJSON re-emits the original document.
func (g GeoDocument) MarshalJSON() ([]byte, error) {
	return g.Bytes(), nil
}
