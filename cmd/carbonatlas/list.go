package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"carbonatlas/internal/assets"
	"carbonatlas/internal/config"
	"carbonatlas/internal/state"
)

// assetListing is the JSON document printed by the assets command.
type assetListing struct {
	Driver  assets.Driver `json:"driver"`
	Assets  []assets.Info `json:"assets"`
	Missing []string      `json:"missing,omitempty"`
}

func newAssetsCmd(cfg *config.Config, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "assets [prefix]",
		Short: "List the files in the configured asset source and flag missing dataset files",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			ctx := cmd.Context()
			src, err := assets.Open(ctx, cfg.AssetSource())
			if err != nil {
				return fmt.Errorf("open assets: %w", err)
			}
			if c, ok := src.(interface{ Close() error }); ok {
				defer func() { _ = c.Close() }()
			}

			listing, err := listAssets(ctx, src, cfg.Locations(), prefix)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(listing)
		},
	}
}

// listAssets enumerates the source under prefix. Drivers that cannot
// enumerate are probed key by key for the configured dataset files.
func listAssets(ctx context.Context, src assets.Source, locs state.Locations, prefix string) (assetListing, error) {
	listing := assetListing{Driver: src.Driver(), Assets: []assets.Info{}}

	var wanted []string
	for _, res := range state.Resources {
		if key := locs.For(res); strings.HasPrefix(key, prefix) {
			wanted = append(wanted, key)
		}
	}

	infos, err := src.List(ctx, prefix)
	switch {
	case err == nil:
		listing.Assets = append(listing.Assets, infos...)
		present := make(map[string]struct{}, len(infos))
		for _, info := range infos {
			present[info.Key] = struct{}{}
		}
		for _, key := range wanted {
			if _, ok := present[key]; !ok {
				listing.Missing = append(listing.Missing, key)
			}
		}
	case errors.Is(err, assets.ErrUnsupported):
		for _, key := range wanted {
			info, err := src.Head(ctx, key)
			if errors.Is(err, assets.ErrNotFound) {
				listing.Missing = append(listing.Missing, key)
				continue
			}
			if err != nil {
				return assetListing{}, fmt.Errorf("head %s: %w", key, err)
			}
			listing.Assets = append(listing.Assets, info)
		}
	default:
		return assetListing{}, fmt.Errorf("list assets: %w", err)
	}
	return listing, nil
}
