package main

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/ussdgw"
	"github.com/aretw0/ussdgw/internal/adapters/mcp"
	"github.com/aretw0/ussdgw/internal/logging"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes the dialog to AI agents as MCP tools (send_ussd, get_automaton) and
the ussd://automaton resource. Sessions, users and shipments are in memory.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := automatonArg(cmd, args)
			if err != nil {
				return err
			}
			transport, _ := cmd.Flags().GetString("transport")
			port, _ := cmd.Flags().GetInt("port")

			// Logs go to stderr so they never corrupt JSON-RPC on stdout.
			logger := logging.New(slog.LevelInfo)

			opts := []ussdgw.Option{ussdgw.WithLogger(logger)}
			if path != "" {
				opts = append(opts, ussdgw.WithAutomatonFile(path))
			}
			gw, err := ussdgw.New(opts...)
			if err != nil {
				return err
			}
			srv := mcp.New(gw, ussdgw.Version, logger)

			switch transport {
			case "stdio":
				logger.Info("starting mcp server", "transport", "stdio")
				return srv.ServeStdio()
			case "sse":
				return srv.ServeSSE(cmd.Context(), port)
			default:
				return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
			}
		},
		Args: cobra.MaximumNArgs(1),
	}
	cmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	cmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
	return cmd
}
