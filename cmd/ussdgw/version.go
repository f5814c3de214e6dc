package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/ussdgw"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of ussdgw",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ussdgw version %s\n", strings.TrimSpace(ussdgw.Version))
		},
	}
}
