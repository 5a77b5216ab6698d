// Package config reads carbonatlas settings from CARBONATLAS_* environment
// variables on top of built-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/clarafu/envstruct"

	"carbonatlas/internal/assets"
	"carbonatlas/internal/audit"
	"carbonatlas/internal/infra/assets/s3"
	"carbonatlas/internal/logging"
	"carbonatlas/internal/state"
)

// Config is the full process configuration.
type Config struct {
	HTTP    HTTPConfig    `env:"HTTP"`
	Log     LogConfig     `env:"LOG"`
	Assets  AssetsConfig  `env:"ASSETS"`
	Files   FilesConfig   `env:"FILES"`
	Audit   AuditConfig   `env:"AUDIT"`
	Load    LoadConfig    `env:"LOAD"`
	Metrics MetricsConfig `env:"METRICS"`
}

type HTTPConfig struct {
	Addr string `env:"ADDR"`
}

type LogConfig struct {
	Level  string `env:"LEVEL"`
	Format string `env:"FORMAT"`
}

// AssetsConfig selects where the three resources are fetched from.
type AssetsConfig struct {
	Driver  string   `env:"DRIVER"`
	Root    string   `env:"ROOT"`
	URL     string   `env:"URL"`
	BaseURL string   `env:"BASE_URL"`
	S3      S3Config `env:"S3"`
}

type S3Config struct {
	Bucket    string `env:"BUCKET"`
	Region    string `env:"REGION"`
	Endpoint  string `env:"ENDPOINT"`
	Prefix    string `env:"PREFIX"`
	PathStyle bool   `env:"PATH_STYLE"`
}

// FilesConfig overrides the key of each resource within the asset source.
type FilesConfig struct {
	ForestCarbon    string `env:"FOREST_CARBON"`
	ClimateDisaster string `env:"CLIMATE_DISASTER"`
	Geo             string `env:"GEO"`
}

type AuditConfig struct {
	Driver   string `env:"DRIVER"`
	DSN      string `env:"DSN"`
	Capacity int    `env:"CAPACITY"`
}

type LoadConfig struct {
	Concurrency int `env:"CONCURRENCY"`
}

type MetricsConfig struct {
	Enabled bool `env:"ENABLED"`
}

// Default returns the built-in configuration: assets from the working
// directory, no audit trail, metrics on.
func Default() Config {
	locs := state.DefaultLocations()
	return Config{
		HTTP:   HTTPConfig{Addr: "0.0.0.0:8080"},
		Log:    LogConfig{Level: "info", Format: string(logging.FormatJSON)},
		Assets: AssetsConfig{Driver: string(assets.DriverFilesystem), Root: "."},
		Files: FilesConfig{
			ForestCarbon:    locs.ForestCarbon,
			ClimateDisaster: locs.ClimateDisaster,
			Geo:             locs.Geo,
		},
		Audit:   AuditConfig{Driver: string(audit.DriverNone)},
		Load:    LoadConfig{Concurrency: len(state.Resources)},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// envRoot anchors every variable under the CARBONATLAS_ prefix.
type envRoot struct {
	Config Config `env:"CARBONATLAS"`
}

// FromEnv returns Default overlaid with any CARBONATLAS_* variables that are set.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := Overlay(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Overlay overwrites fields of cfg whose environment variables are set.
func Overlay(cfg *Config) error {
	root := envRoot{Config: *cfg}
	err := envstruct.Envstruct{
		TagName: "env",
		Parser: envstruct.Parser{
			Delimiter: ",",
			Unmarshaler: func(p []byte, dest interface{}) error {
				switch x := dest.(type) {
				case *string:
					*x = string(p)
					return nil
				case *bool:
					v, err := strconv.ParseBool(string(p))
					if err != nil {
						return err
					}
					*x = v
					return nil
				case *int, *int32, *int64, *uint, *uint32, *uint64:
					return json.Unmarshal(p, dest)
				default:
					return fmt.Errorf("cannot decode env value into %T", dest)
				}
			},
		},
	}.FetchEnv(&root)
	if err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	*cfg = root.Config
	return nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch assets.Driver(c.Assets.Driver) {
	case "", assets.DriverFilesystem, assets.DriverMemory:
	case assets.DriverS3:
		if c.Assets.S3.Bucket == "" {
			return fmt.Errorf("assets driver s3 requires CARBONATLAS_ASSETS_S3_BUCKET")
		}
	case assets.DriverHTTP:
		if c.Assets.BaseURL == "" {
			return fmt.Errorf("assets driver http requires CARBONATLAS_ASSETS_BASE_URL")
		}
	case assets.DriverBucket:
		if c.Assets.URL == "" {
			return fmt.Errorf("assets driver bucket requires CARBONATLAS_ASSETS_URL")
		}
	default:
		return fmt.Errorf("unknown assets driver %q", c.Assets.Driver)
	}
	switch audit.Driver(c.Audit.Driver) {
	case "", audit.DriverNone, audit.DriverMemory, audit.DriverSQLite, audit.DriverPostgres:
	default:
		return fmt.Errorf("unknown audit driver %q", c.Audit.Driver)
	}
	switch logging.Format(c.Log.Format) {
	case "", logging.FormatJSON, logging.FormatConsole:
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Load.Concurrency < 0 {
		return fmt.Errorf("load concurrency must not be negative, got %d", c.Load.Concurrency)
	}
	return nil
}

// AssetSource converts the assets section for assets.Open.
func (c Config) AssetSource() assets.Config {
	return assets.Config{
		Driver:  c.Assets.Driver,
		Root:    c.Assets.Root,
		URL:     c.Assets.URL,
		BaseURL: c.Assets.BaseURL,
		S3: s3.Config{
			Bucket:    c.Assets.S3.Bucket,
			Region:    c.Assets.S3.Region,
			Endpoint:  c.Assets.S3.Endpoint,
			Prefix:    c.Assets.S3.Prefix,
			PathStyle: c.Assets.S3.PathStyle,
		},
	}
}

// AuditRecorder converts the audit section for audit.Open.
func (c Config) AuditRecorder() audit.Config {
	return audit.Config{Driver: c.Audit.Driver, DSN: c.Audit.DSN, Capacity: c.Audit.Capacity}
}

// Locations returns the resource keys, falling back to the defaults for
// any left empty.
func (c Config) Locations() state.Locations {
	locs := state.DefaultLocations()
	if c.Files.ForestCarbon != "" {
		locs.ForestCarbon = c.Files.ForestCarbon
	}
	if c.Files.ClimateDisaster != "" {
		locs.ClimateDisaster = c.Files.ClimateDisaster
	}
	if c.Files.Geo != "" {
		locs.Geo = c.Files.Geo
	}
	return locs
}
