package main

import (
	"github.com/aretw0/ussdgw/internal/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ussdgw",
		Short: "USSD session gateway",
		Long: `ussdgw answers telecom aggregator callbacks by walking a declarative
dialog automaton, one session per handset conversation.

Configuration is read from the environment (and a .env file when present);
flags override it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("automaton", "", "Automaton JSON/YAML file (default: embedded delivery automaton)")

	root.AddCommand(
		newServeCmd(),
		newValidateCmd(),
		newGraphCmd(),
		newSimulateCmd(),
		newSessionCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the environment and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("automaton") {
		cfg.AutomatonPath, _ = cmd.Flags().GetString("automaton")
	}
	return cfg, nil
}

// automatonArg prefers a positional path over --automaton and the environment.
func automatonArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.AutomatonPath, nil
}
