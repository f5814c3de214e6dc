package main

import (
	"fmt"

	"github.com/aretw0/ussdgw"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Check an automaton for consistency",
		Long: `Loads the automaton the way serve does and reports every problem at once:
dangling states, unreachable states, malformed guards and actions, unknown
validation tags and hooks.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := automatonArg(cmd, args)
			if err != nil {
				return err
			}
			strict, _ := cmd.Flags().GetBool("strict")

			opts := []ussdgw.Option{ussdgw.WithStrictValidation(strict)}
			if path != "" {
				opts = append(opts, ussdgw.WithAutomatonFile(path))
			}
			gw, err := ussdgw.New(opts...)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			st := gw.Graph().Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Automaton %s %s is valid ✅\n", st.AutomatonID, st.Version)
			fmt.Fprintf(out, "  states: %d (menus %d, validated %d)\n", st.TotalStates, st.MenuStates, st.ValidationStates)
			fmt.Fprintf(out, "  transitions: %d\n", st.TotalTransitions)
			fmt.Fprintf(out, "  initial: %s, final: %v\n", st.InitialState, st.FinalStates)
			return nil
		},
	}
	cmd.Flags().Bool("strict", true, "Treat unknown validation tags and hooks as errors")
	return cmd
}
