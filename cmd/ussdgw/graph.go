package main

import (
	"fmt"

	"github.com/aretw0/ussdgw"
	"github.com/aretw0/ussdgw/internal/presentation/graph"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [path]",
		Short: "Export the automaton as a Mermaid diagram",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := automatonArg(cmd, args)
			if err != nil {
				return err
			}
			opts := []ussdgw.Option{ussdgw.WithStrictValidation(false)}
			if path != "" {
				opts = append(opts, ussdgw.WithAutomatonFile(path))
			}
			gw, err := ussdgw.New(opts...)
			if err != nil {
				return err
			}

			var overlay *graph.Overlay
			if current, _ := cmd.Flags().GetString("current"); current != "" {
				overlay = &graph.Overlay{CurrentState: current}
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(gw.Graph(), overlay))
			return nil
		},
	}
	cmd.Flags().String("current", "", "Highlight this state")
	return cmd
}
