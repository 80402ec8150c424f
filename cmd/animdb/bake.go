package main

import (
	"fmt"

	"github.com/milk9111/animdb/bake"
	"github.com/milk9111/animdb/config"
	"github.com/spf13/cobra"
)

func (a *app) bakeCmd() *cobra.Command {
	var flags config.Flags
	var watch bool

	cmd := &cobra.Command{
		Use:   "bake",
		Short: "Flatten every controller asset into the database",
		Example: `
# Bake with animdb.yaml in the current directory
animdb bake

# Bake a directory and keep re-baking on changes
animdb bake --source assets --output build/controllers.db.json --watch
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Resolve(flags)

			res, err := bake.Run(cmd.Context(), cfg, a.logger)
			if err != nil {
				return err
			}
			printResult(cmd, res)

			if !watch {
				return nil
			}
			return bake.Watch(cmd.Context(), cfg, a.logger, func(res bake.Result) {
				printResult(cmd, res)
			})
		},
	}

	cmd.Flags().StringVar(&flags.SourceDir, "source", "", "directory to discover controller assets under")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "database file to write (.yaml or .json)")
	cmd.Flags().StringVar(&flags.Hash, "hash", "", "name hash: xxh3 or crc32")
	cmd.Flags().BoolVar(&flags.LegacyVector, "legacy-vector", false, "accept legacy vector parameters instead of triggers")
	cmd.Flags().IntVarP(&flags.Workers, "workers", "j", 0, "assets flattened in parallel")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-bake when controller assets change")
	return cmd
}

func printResult(cmd *cobra.Command, res bake.Result) {
	status := "unchanged"
	if res.Written {
		status = "written"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d controllers (%s)\n", res.Output, res.Controllers, status)
	for _, p := range res.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "  skipped %s\n", p)
	}
}
