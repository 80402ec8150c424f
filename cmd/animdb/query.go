package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/milk9111/animdb/controller"
	"github.com/spf13/cobra"
)

func (a *app) queryCmd(use, short string, fn func(w io.Writer, id controller.ID, cmd *cobra.Command) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <controller>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fn(cmd.OutOrStdout(), controller.ID(args[0]), cmd)
		},
	}
	cmd.Flags().BoolVarP(&a.asJSON, "json", "j", false, "output as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List controllers in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, _, err := a.openTable(cmd)
			if err != nil {
				return err
			}
			ids, err := tbl.IDs()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func (a *app) statesCmd() *cobra.Command {
	return a.queryCmd("states", "List every state of a controller", func(w io.Writer, id controller.ID, cmd *cobra.Command) error {
		tbl, _, err := a.openTable(cmd)
		if err != nil {
			return err
		}
		states, err := tbl.GetStates(id)
		if err != nil {
			return err
		}
		if a.asJSON {
			return writeJSON(w, states)
		}
		for _, s := range states {
			fmt.Fprintf(w, "%-24s %-32s %d\n", s.Name, s.UniqueName, s.UniqueNameHash)
		}
		return nil
	})
}

func (a *app) parametersCmd() *cobra.Command {
	return a.queryCmd("parameters", "List the parameters of a controller", func(w io.Writer, id controller.ID, cmd *cobra.Command) error {
		tbl, _, err := a.openTable(cmd)
		if err != nil {
			return err
		}
		params, err := tbl.GetParameters(id)
		if err != nil {
			return err
		}
		if a.asJSON {
			return writeJSON(w, params)
		}
		for _, p := range params {
			fmt.Fprintf(w, "%-24s %s\n", p.Name, p.Type)
		}
		return nil
	})
}

func (a *app) layersCmd() *cobra.Command {
	return a.queryCmd("layers", "Print the layer and state machine tree of a controller", func(w io.Writer, id controller.ID, cmd *cobra.Command) error {
		tbl, _, err := a.openTable(cmd)
		if err != nil {
			return err
		}
		layers, err := tbl.GetLayers(id)
		if err != nil {
			return err
		}
		if a.asJSON {
			return writeJSON(w, layers)
		}
		for _, l := range layers {
			fmt.Fprintf(w, "%s (%d)\n", l.Name, l.Hash)
			printMachine(w, l.StateMachine, 1)
		}
		return nil
	})
}

func printMachine(w io.Writer, m controller.StateMachine, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s[%s]\n", indent, m.Name)
	for _, s := range m.States {
		fmt.Fprintf(w, "%s  %s\n", indent, s.Name)
	}
	for _, sub := range m.SubStateMachines {
		printMachine(w, sub, depth+1)
	}
}

func (a *app) countCmd() *cobra.Command {
	return a.queryCmd("count", "Print the number of layers of a controller", func(w io.Writer, id controller.ID, cmd *cobra.Command) error {
		tbl, _, err := a.openTable(cmd)
		if err != nil {
			return err
		}
		n, err := tbl.GetLayerCount(id)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, n)
		return nil
	})
}

func (a *app) hashCmd() *cobra.Command {
	var hashName string
	cmd := &cobra.Command{
		Use:   "hash <name>...",
		Short: "Print the name hash of state, machine or layer names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if hashName == "" {
				cfg, err := a.loadConfig(cmd)
				if err != nil {
					return err
				}
				hashName = cfg.Hash
			}
			hash, err := controller.HashByName(hashName)
			if err != nil {
				return err
			}
			for _, name := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", hash(name), name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&hashName, "hash", "", "name hash: xxh3 or crc32 (defaults to the configured hash)")
	return cmd
}
