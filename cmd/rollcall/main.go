package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	migrationsfs "github.com/rollcallhq/rollcall/db"
	"github.com/rollcallhq/rollcall/internal/config"
	"github.com/rollcallhq/rollcall/internal/db"
	"github.com/rollcallhq/rollcall/internal/directory"
	"github.com/rollcallhq/rollcall/internal/gateway"
	"github.com/rollcallhq/rollcall/internal/handlers"
	"github.com/rollcallhq/rollcall/internal/logger"
	"github.com/rollcallhq/rollcall/internal/match"
	"github.com/rollcallhq/rollcall/internal/reconcile"
	"github.com/rollcallhq/rollcall/internal/schedule"
	"github.com/rollcallhq/rollcall/internal/server"
	"github.com/rollcallhq/rollcall/internal/telemetry"
	"github.com/rollcallhq/rollcall/internal/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,

			provideTelemetryStore,
			telemetry.NewService,
			provideGateway,
			directory.NewService,
			provideReconcileService,
			provideScheduler,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideReconcileHandler),
			provideServerHandler(provideActivityHandler),
			provideServerHandler(handlers.NewMembersHandler),

			provideServer,
		),
		fx.Invoke(
			startGateway,
			startScheduler,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func runMigrate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: rollcall migrate up|down|version|force N")
	}
	cfg, err := provideConfig()
	if err != nil {
		return err
	}
	log := provideLogger(cfg)
	sub, err := fs.Sub(migrationsfs.MigrationsFS, "migrations")
	if err != nil {
		return err
	}
	return db.RunMigrate(log, cfg.Postgres, sub, args[0], args[1:])
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideTelemetryStore(conn *pgxpool.Pool) telemetry.Store {
	return telemetry.NewPGStore(conn)
}

func provideGateway(log *slog.Logger, cfg config.Config, sink *telemetry.Service) (*gateway.Gateway, error) {
	return gateway.New(log, cfg.Discord, sink)
}

func provideReconcileService(log *slog.Logger, gw *gateway.Gateway, dir *directory.Service, cfg config.Config) *reconcile.Service {
	return reconcile.NewService(log, gw, dir, match.Options{
		ScoreThreshold:   cfg.Reconcile.ScoreThreshold,
		ContainmentScore: cfg.Reconcile.ContainmentScore,
	})
}

func provideScheduler(log *slog.Logger, cfg config.Config, service *reconcile.Service) *schedule.Scheduler {
	return schedule.NewScheduler(log, cfg.Reconcile.CronSpec, service)
}

func provideReconcileHandler(log *slog.Logger, service *reconcile.Service) *handlers.ReconcileHandler {
	return handlers.NewReconcileHandler(log, service)
}

func provideActivityHandler(log *slog.Logger, store telemetry.Store) *handlers.ActivityHandler {
	return handlers.NewActivityHandler(log, store)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

type serverParams struct {
	fx.In

	Logger   *slog.Logger
	Config   config.Config
	Handlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Handlers...)
}

func startGateway(lc fx.Lifecycle, logger *slog.Logger, gw *gateway.Gateway, sink *telemetry.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// An authentication failure against the gateway is the one
			// process-fatal error in this service.
			return gw.Start()
		},
		OnStop: func(ctx context.Context) error {
			if err := gw.Stop(); err != nil {
				logger.Warn("gateway close failed", slog.Any("error", err))
			}
			// Drain queued telemetry events; open voice sessions are
			// intentionally discarded without records.
			sink.Close()
			return nil
		},
	})
}

func startScheduler(lc fx.Lifecycle, scheduler *schedule.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return scheduler.Start()
		},
		OnStop: func(ctx context.Context) error {
			return scheduler.Stop(ctx)
		},
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting Rollcall %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
