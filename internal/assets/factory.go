package assets

import (
	"context"
	"fmt"

	"carbonatlas/internal/infra/assets/bucket"
	"carbonatlas/internal/infra/assets/fs"
	"carbonatlas/internal/infra/assets/httpsrc"
	"carbonatlas/internal/infra/assets/memory"
	"carbonatlas/internal/infra/assets/s3"
)

// Config selects and configures an asset driver.
type Config struct {
	Driver  string
	Root    string // fs: directory holding the asset files
	BaseURL string // http: base URL the keys are resolved against
	URL     string // bucket: gocloud bucket URL
	S3      s3.Config
}

// Open returns the Source selected by cfg.Driver (default fs).
func Open(ctx context.Context, cfg Config) (Source, error) {
	var (
		src Source
		err error
	)
	switch Driver(cfg.Driver) {
	case "", DriverFilesystem:
		src, err = fs.New(cfg.Root)
	case DriverS3:
		src, err = s3.New(ctx, cfg.S3)
	case DriverMemory:
		src = memory.New()
	case DriverHTTP:
		src, err = httpsrc.New(cfg.BaseURL, nil)
	case DriverBucket:
		src, err = bucket.Open(ctx, cfg.URL)
	default:
		err = fmt.Errorf("unknown asset driver %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

// OpenStore is Open restricted to writable drivers.
func OpenStore(ctx context.Context, cfg Config) (Store, error) {
	src, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, ok := src.(Store)
	if !ok {
		return nil, fmt.Errorf("asset driver %s is read-only: %w", src.Driver(), ErrUnsupported)
	}
	return store, nil
}
