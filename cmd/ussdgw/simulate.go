package main

import (
	"fmt"
	"os"

	"github.com/aretw0/ussdgw/internal/cli"
	"github.com/spf13/cobra"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate [path]",
		Short: "Play a handset against the automaton in your terminal",
		Long: `Runs an interactive dialog against in-memory sessions, users and shipments.
Type what the handset would send; ":state", ":graph", ":new" and ":quit" are
simulator commands.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := automatonArg(cmd, args)
			if err != nil {
				return err
			}
			phone, _ := cmd.Flags().GetString("phone")
			debug, _ := cmd.Flags().GetBool("debug")
			watch, _ := cmd.Flags().GetBool("watch")
			plain, _ := cmd.Flags().GetBool("plain")

			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()

			err = cli.Simulate(sigCtx, cli.SimulateOptions{
				AutomatonPath: path,
				Phone:         phone,
				Debug:         debug,
				Watch:         watch,
				Styled:        !plain && cli.IsTerminal(os.Stdout),
			}, os.Stdin, os.Stdout)
			if sig := sigCtx.Signal(); sig != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nreceived %s, hanging up\n", sig)
			}
			return err
		},
	}
	cmd.Flags().String("phone", "+237600000000", "Caller phone number")
	cmd.Flags().Bool("debug", false, "Log dialog events to stderr")
	cmd.Flags().Bool("watch", false, "Reload the automaton file when it changes")
	cmd.Flags().Bool("plain", false, "Print raw CON/END directives")
	return cmd
}
