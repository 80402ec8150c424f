package main

import (
	"fmt"
	"os"

	"github.com/milk9111/animdb/script"
	"github.com/spf13/cobra"
)

func (a *app) runCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "run <script.tengo>",
		Short: "Run a tengo script with the animdb module bound to the database",
		Example: `
# scripts/check.tengo:
#   animdb := import("animdb")
#   fmt := import("fmt")
#   for s in animdb.states(id) { fmt.println(s.unique_name) }
animdb run scripts/check.tengo --id characters/player
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read script %s: %w", args[0], err)
			}
			tbl, hash, err := a.openTable(cmd)
			if err != nil {
				return err
			}
			_, err = script.Run(cmd.Context(), src, tbl, hash, map[string]any{"id": id})
			return err
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "controller id exposed to the script as `id`")
	return cmd
}
