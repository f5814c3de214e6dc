package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/ussdgw"
	ussdhttp "github.com/aretw0/ussdgw/internal/adapters/http"
	"github.com/aretw0/ussdgw/internal/config"
	"github.com/aretw0/ussdgw/internal/logging"
	"github.com/aretw0/ussdgw/internal/metrics"
	"github.com/aretw0/ussdgw/internal/storage/postgres"
	"github.com/aretw0/ussdgw/internal/storage/postgres/migrations"
	"github.com/aretw0/ussdgw/internal/storage/sqlite"
	"github.com/aretw0/ussdgw/internal/telemetry"
	redisstore "github.com/aretw0/ussdgw/pkg/adapters/redis"
	"github.com/aretw0/ussdgw/pkg/automaton"
	"github.com/aretw0/ussdgw/pkg/persistence/middleware"
	"github.com/aretw0/ussdgw/pkg/ports"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the aggregator HTTP server",
		Long: `Serves POST /ussd/callback for the telecom aggregator, together with health,
automaton and Prometheus endpoints. Sessions live in Redis when REDIS_URL is
set; users and shipments live in the database selected by DATABASE_URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("watch") {
				cfg.Watch, _ = cmd.Flags().GetBool("watch")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().Bool("watch", false, "Reload the automaton file when it changes")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := logging.NewFormat(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)
	logger.Info("ussdgw starting", "version", ussdgw.Version, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, ussdgw.Version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	m := metrics.New()
	opts := []ussdgw.Option{
		ussdgw.WithLogger(logger),
		ussdgw.WithSessionTimeout(cfg.SessionTimeout),
		ussdgw.WithMaxRetries(cfg.MaxRetries),
		ussdgw.WithStrictValidation(cfg.StrictValidation),
		ussdgw.WithLifecycleHooks(m.Hooks()),
	}
	if cfg.AutomatonPath != "" {
		opts = append(opts, ussdgw.WithAutomatonFile(cfg.AutomatonPath))
	}

	if cfg.RedisURL != "" {
		store, err := redisstore.NewFromURL(cfg.RedisURL,
			redisstore.WithPrefix(cfg.RedisPrefix),
			redisstore.WithTTL(2*cfg.SessionTimeout),
		)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		sessionStore, err := sealSessions(cfg, store)
		if err != nil {
			return err
		}
		opts = append(opts,
			ussdgw.WithSessionStore(sessionStore),
			ussdgw.WithLocker(redisstore.NewLocker(store.Client(), cfg.RedisPrefix), cfg.LockTTL),
		)
		logger.Info("sessions stored in redis", "prefix", cfg.RedisPrefix)
	}

	repoOpt, closeRepos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepos()
	if repoOpt != nil {
		opts = append(opts, repoOpt)
	}

	gw, err := ussdgw.New(opts...)
	if err != nil {
		return err
	}
	stats := gw.Graph().Stats()
	logger.Info("automaton loaded", "id", stats.AutomatonID, "version", stats.Version, "states", stats.TotalStates)

	handler, err := ussdhttp.NewHandler(ctx, gw,
		ussdhttp.WithLogger(logger),
		ussdhttp.WithVersion(ussdgw.Version),
		ussdhttp.WithMetricsHandler(m.Handler()),
		ussdhttp.WithReloadObserver(m.ObserveReload),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return gw.Sessions().RunSweeper(gctx, cfg.SweepInterval)
	})
	if cfg.Watch {
		g.Go(func() error {
			logger.Info("watching automaton", "path", cfg.AutomatonPath)
			return gw.Watch(gctx, automaton.OnReload(func(_ *automaton.Graph, err error) {
				m.ObserveReload(err)
			}))
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("ussdgw stopped")
	return nil
}

// sealSessions wraps store with at-rest encryption when a session key is set.
func sealSessions(cfg config.Config, store ports.SessionStore) (ports.SessionStore, error) {
	active, previous, err := cfg.SessionKeys()
	if err != nil || active == nil {
		return store, err
	}
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: previous,
	})
	if err != nil {
		return nil, err
	}
	return enc(store), nil
}

// openRepositories returns nil for the in-memory default.
func openRepositories(ctx context.Context, cfg config.Config, logger *slog.Logger) (ussdgw.Option, func(), error) {
	driver, err := cfg.DatabaseDriver()
	if err != nil {
		return nil, nil, err
	}

	switch driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(ctx, migrations.FS); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("repositories stored in postgres")
		return ussdgw.WithRepositories(db, db), db.Close, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath(), logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("repositories stored in sqlite", "path", cfg.SQLitePath())
		return ussdgw.WithRepositories(db, db), func() { _ = db.Close() }, nil
	}

	logger.Warn("repositories kept in memory; users and shipments are lost on restart")
	return nil, func() {}, nil
}
