package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"carbonatlas/internal/assets"
	"carbonatlas/internal/config"
	"carbonatlas/internal/infra/assets/fs"
	"carbonatlas/internal/state"
)

func newSeedCmd(cfg *config.Config, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <dir>",
		Short: "Copy the three dataset files from a local directory into the configured asset store",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return seed(cmd.Context(), *cfg, args[0], stdout)
		},
	}
}

func seed(ctx context.Context, cfg config.Config, dir string, stdout io.Writer) error {
	local, err := fs.New(dir)
	if err != nil {
		return usageError{fmt.Errorf("seed directory: %w", err)}
	}
	dst, err := assets.OpenStore(ctx, cfg.AssetSource())
	if err != nil {
		return fmt.Errorf("open asset store: %w", err)
	}
	if c, ok := dst.(interface{ Close() error }); ok {
		defer func() { _ = c.Close() }()
	}

	locs := cfg.Locations()
	for _, res := range state.Resources {
		key := locs.For(res)
		if err := copyAsset(ctx, local, dst, key); err != nil {
			return fmt.Errorf("seed %s: %w", res, err)
		}
		fmt.Fprintf(stdout, "seeded %s -> %s\n", key, dst.Driver())
	}
	return nil
}

func copyAsset(ctx context.Context, src assets.Source, dst assets.Store, key string) error {
	info, rc, err := src.Get(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	_, err = dst.Put(ctx, key, rc, assets.PutOptions{ContentType: info.ContentType})
	return err
}
