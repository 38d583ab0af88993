// Package bootstrap is the start-up sequence shared by the api, cron-worker
// and outbox-publisher binaries: environment, config, logger, connections and
// an ordered shutdown.
package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/fulfillment-backend/pkg/config"
	"github.com/angelmondragon/fulfillment-backend/pkg/db"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/migrate"
	"github.com/angelmondragon/fulfillment-backend/pkg/redis"
)

// Runtime owns the process-wide config, logger and every connection opened
// through it.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger

	closers []closer
	exit    func(int)
}

type closer struct {
	name  string
	close func() error
}

// Init loads .env and the config, then builds the configured logger. It
// exits the process when the config is unusable.
func Init(kind string) *Runtime {
	rt := &Runtime{
		Logger: logger.New(logger.Options{ServiceName: kind}),
		exit:   os.Exit,
	}
	if err := godotenv.Load(); err != nil {
		rt.Logger.Warn(context.Background(), "bootstrap.dotenv_missing")
	}

	cfg, err := config.Load()
	if err != nil {
		rt.Fatal(context.Background(), "bootstrap.config_invalid", err)
	}
	cfg.Service.Kind = kind
	rt.Config = cfg
	rt.Logger = logger.New(logger.Options{
		ServiceName: kind,
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	return rt
}

// Fatal logs err, closes what was opened so far and exits non-zero.
func (rt *Runtime) Fatal(ctx context.Context, msg string, err error) {
	rt.Logger.Error(ctx, msg, err)
	rt.Close(ctx)
	rt.exit(1)
}

// OnClose registers fn to run at shutdown. Closers run in reverse order.
func (rt *Runtime) OnClose(name string, fn func() error) {
	rt.closers = append(rt.closers, closer{name: name, close: fn})
}

// Close runs every registered closer once, newest first, and logs the
// combined failure if any.
func (rt *Runtime) Close(ctx context.Context) {
	var errs error
	for _, c := range slices.Backward(rt.closers) {
		if err := c.close(); err != nil {
			errs = multierr.Append(errs, err)
			rt.Logger.Warn(rt.Logger.WithField(ctx, "resource", c.name), "bootstrap.close_failed")
		}
	}
	rt.closers = nil
	if errs != nil {
		rt.Logger.Error(ctx, "bootstrap.shutdown_incomplete", errs)
	}
}

// Database connects to Postgres and, in dev, applies pending migrations.
func (rt *Runtime) Database(ctx context.Context) *db.Client {
	client, err := db.New(ctx, rt.Config.DB, rt.Logger)
	if err != nil {
		rt.Fatal(ctx, "bootstrap.database_unavailable", err)
		return nil
	}
	rt.OnClose("database", client.Close)

	if err := migrate.MaybeRunDev(ctx, rt.Config, rt.Logger, client); err != nil {
		rt.Fatal(ctx, "bootstrap.migrations_failed", err)
		return nil
	}
	return client
}

func (rt *Runtime) Redis(ctx context.Context) *redis.Client {
	client, err := redis.New(ctx, rt.Config.Redis, rt.Logger)
	if err != nil {
		rt.Fatal(ctx, "bootstrap.redis_unavailable", err)
		return nil
	}
	rt.OnClose("redis", client.Close)
	return client
}

// SignalContext is cancelled on SIGINT or SIGTERM and carries the process
// log fields.
func (rt *Runtime) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = rt.Logger.WithFields(ctx, map[string]any{
		"env":          rt.Config.App.Env,
		"service_kind": rt.Config.Service.Kind,
	})
	return ctx, stop
}
