// Command carbonatlas loads the forest-carbon, climate-disaster and country
// boundary datasets and serves them alongside the year selection.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"carbonatlas/internal/config"
	"carbonatlas/internal/logging"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

// usageError marks failures caused by how the command was invoked.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	root := newRootCmd(&cfg, stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		var usage usageError
		if errors.As(err, &usage) {
			return exitUsage
		}
		return exitFailure
	}
	return exitOK
}

func newRootCmd(cfg *config.Config, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "carbonatlas",
		Short:         "Load and serve the forest carbon and climate disaster datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          noSubcommand,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return usageError{err}
			}
			logger, err := logging.New(stderr, cfg.Log.Level, logging.Format(cfg.Log.Format))
			if err != nil {
				return usageError{err}
			}
			cmd.SetContext(logging.ToContext(cmd.Context(), logger))
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	bindFlags(root.PersistentFlags(), cfg)
	root.AddCommand(newServeCmd(cfg), newLoadCmd(cfg, stdout), newSeedCmd(cfg, stdout), newAssetsCmd(cfg, stdout))
	return root
}

// bindFlags registers flags whose defaults are the values already read from
// the environment, so an explicit flag wins over env which wins over defaults.
func bindFlags(flags *pflag.FlagSet, cfg *config.Config) {
	flags.SortFlags = false
	flags.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level (debug, info, warn, error)")
	flags.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log encoding (json, console)")
	flags.StringVar(&cfg.Assets.Driver, "assets-driver", cfg.Assets.Driver, "asset source driver (fs, s3, http, bucket, memory)")
	flags.StringVar(&cfg.Assets.Root, "assets-root", cfg.Assets.Root, "directory holding the asset files (fs driver)")
	flags.StringVar(&cfg.Assets.BaseURL, "assets-base-url", cfg.Assets.BaseURL, "base URL the asset keys resolve against (http driver)")
	flags.StringVar(&cfg.Assets.URL, "assets-url", cfg.Assets.URL, "gocloud bucket URL, e.g. file:///data or mem:// (bucket driver)")
	flags.StringVar(&cfg.Assets.S3.Bucket, "s3-bucket", cfg.Assets.S3.Bucket, "S3 bucket name")
	flags.StringVar(&cfg.Assets.S3.Region, "s3-region", cfg.Assets.S3.Region, "S3 region")
	flags.StringVar(&cfg.Assets.S3.Endpoint, "s3-endpoint", cfg.Assets.S3.Endpoint, "custom S3 endpoint, e.g. MinIO")
	flags.StringVar(&cfg.Assets.S3.Prefix, "s3-prefix", cfg.Assets.S3.Prefix, "key prefix inside the bucket")
	flags.BoolVar(&cfg.Assets.S3.PathStyle, "s3-path-style", cfg.Assets.S3.PathStyle, "use path-style S3 addressing")
	flags.StringVar(&cfg.Files.ForestCarbon, "forest-carbon", cfg.Files.ForestCarbon, "key of the forest and carbon CSV")
	flags.StringVar(&cfg.Files.ClimateDisaster, "climate-disaster", cfg.Files.ClimateDisaster, "key of the climate-related disasters CSV")
	flags.StringVar(&cfg.Files.Geo, "geo", cfg.Files.Geo, "key of the country boundaries GeoJSON")
	flags.StringVar(&cfg.Audit.Driver, "audit-driver", cfg.Audit.Driver, "load history driver (none, memory, sqlite, postgres)")
	flags.StringVar(&cfg.Audit.DSN, "audit-dsn", cfg.Audit.DSN, "sqlite path or postgres connection string")
	flags.IntVar(&cfg.Load.Concurrency, "concurrency", cfg.Load.Concurrency, "datasets fetched at once (1 loads them in order)")
}

// noSubcommand rejects positional arguments that did not resolve to a
// subcommand.
func noSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError{fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())}
	}
	return nil
}

// exactArgs reports argument count mistakes as usage errors.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
