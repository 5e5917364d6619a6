package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"reelsmith/internal/assets"
	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/scenes"
)

func newScenesCommand(ctx *commandContext) *cobra.Command {
	var source string
	var limit int

	cmd := &cobra.Command{
		Use:   "scenes",
		Short: "List the scenes extracted from the scene document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.Scenes.Source
			if cmd.Flags().Changed("source") {
				if path, err = config.ExpandPath(source); err != nil {
					return fmt.Errorf("resolve scene source: %w", err)
				}
			}
			if !cmd.Flags().Changed("limit") {
				limit = cfg.Scenes.Limit
			}

			list, err := scenes.LoadFile(path, scenes.ExtractOptions{Denylist: cfg.Scenes.Denylist})
			if err != nil {
				return err
			}
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintf(out, "No scenes found in %s\n", path)
				return nil
			}

			rows := make([][]string, 0, len(list))
			for i, scene := range list {
				name := assets.AssetName(i+1, scene.Title)
				exists, _ := fileutil.Exists(filepath.Join(cfg.Paths.AssetsDir, name))
				rows = append(rows, []string{strconv.Itoa(i + 1), scene.Title, scene.Caption, name, yesNo(exists)})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Title", "Caption", "Asset", "Cached"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			if dups := scenes.DuplicateTitles(list); len(dups) > 0 {
				fmt.Fprintf(out, "Duplicate titles: %v\n", dups)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Scene document (defaults to scenes.source)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Only list the first N scenes")
	return cmd
}
