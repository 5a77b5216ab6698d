// Package core defines the audit trail contract shared by every load recorder
// driver.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"carbonatlas/internal/state"
)

// Driver identifies an audit backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Entry is one recorded LoadData call, newest entries carry the highest ID.
type Entry struct {
	ID     int64            `json:"id"`
	OK     bool             `json:"ok"`
	Report state.LoadReport `json:"report"`
}

// Recorder persists load reports and lists them back.
type Recorder interface {
	Record(ctx context.Context, report state.LoadReport) error
	// History returns up to limit entries, newest first. A limit of zero or
	// less returns every entry.
	History(ctx context.Context, limit int) ([]Entry, error)
	Driver() Driver
	Close() error
}

// EncodeReport serializes a report for storage.
func EncodeReport(report state.LoadReport) ([]byte, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}

// DecodeReport restores a stored report. Outcome durations are rebuilt from
// their millisecond form; error values are not, only their text survives.
func DecodeReport(data []byte) (state.LoadReport, error) {
	var report state.LoadReport
	if err := json.Unmarshal(data, &report); err != nil {
		return state.LoadReport{}, fmt.Errorf("decode report: %w", err)
	}
	for i := range report.Outcomes {
		o := &report.Outcomes[i]
		o.Duration = time.Duration(o.DurationMS * float64(time.Millisecond))
	}
	return report, nil
}
