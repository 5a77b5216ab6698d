// Package assets re-exports the asset source abstractions and selects a
// driver from configuration.
package assets

import (
	"carbonatlas/internal/assets/core"
)

type (
	// Driver identifies an asset backend driver.
	Driver = core.Driver
	// Info describes stored asset metadata.
	Info = core.Info
	// PutOptions configures an asset write.
	PutOptions = core.PutOptions
	// Source is the read-only asset interface consumed by the loader.
	Source = core.Source
	// Store is a writable Source.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
	DriverHTTP       = core.DriverHTTP
	DriverBucket     = core.DriverBucket
)

var (
	// ErrNotFound is wrapped by every driver for missing keys.
	ErrNotFound = core.ErrNotFound
	// ErrUnsupported indicates an operation isn't supported by a driver.
	ErrUnsupported = core.ErrUnsupported
)
