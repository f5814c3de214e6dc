package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/ussdgw/internal/cli"
	redisstore "github.com/aretw0/ussdgw/pkg/adapters/redis"
	"github.com/aretw0/ussdgw/pkg/persistence/middleware"
	"github.com/aretw0/ussdgw/pkg/ports"
	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and remove sessions stored in Redis",
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, timeout, closeStore, err := openSessionStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore()
			return cli.ListSessions(cmd.Context(), store, cmd.OutOrStdout(), time.Now(), timeout)
		},
	}

	inspect := &cobra.Command{
		Use:   "inspect <session-id>",
		Short: "Print a session as JSON",
		Long:  "Prints a stored session. Passwords, PINs and secrets are masked unless --reveal is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, closeStore, err := openSessionStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore()
			if reveal, _ := cmd.Flags().GetBool("reveal"); !reveal {
				store = middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)(store)
			}
			return cli.InspectSession(cmd.Context(), store, args[0], cmd.OutOrStdout())
		},
	}
	inspect.Flags().Bool("reveal", false, "Show sensitive answers in clear")

	rm := &cobra.Command{
		Use:   "rm <session-id>...",
		Short: "Remove one or more sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, closeStore, err := openSessionStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			var errs []error
			for _, id := range args {
				if err := cli.RemoveSession(cmd.Context(), store, id); err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", id)
			}
			return errors.Join(errs...)
		},
	}

	cmd.AddCommand(ls, inspect, rm)
	return cmd
}

func openSessionStore(cmd *cobra.Command) (ports.SessionStore, time.Duration, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, 0, nil, err
	}
	if cfg.RedisURL == "" {
		return nil, 0, nil, errors.New("REDIS_URL is not set; in-memory sessions only live inside the serving process")
	}
	raw, err := redisstore.NewFromURL(cfg.RedisURL, redisstore.WithPrefix(cfg.RedisPrefix))
	if err != nil {
		return nil, 0, nil, err
	}
	closeStore := func() { _ = raw.Close() }

	store, err := sealSessions(cfg, raw)
	if err != nil {
		closeStore()
		return nil, 0, nil, err
	}
	return store, cfg.SessionTimeout, closeStore, nil
}
