package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/alchemorsel/client/internal/application/auth"
	dayplanapp "github.com/alchemorsel/client/internal/application/dayplan"
	recipeapp "github.com/alchemorsel/client/internal/application/recipe"
	userapp "github.com/alchemorsel/client/internal/application/user"
	"github.com/alchemorsel/client/internal/infrastructure/config"
	"github.com/alchemorsel/client/internal/infrastructure/http/gateway"
	"github.com/alchemorsel/client/internal/infrastructure/monitoring"
	"github.com/alchemorsel/client/internal/infrastructure/persistence"
	"github.com/alchemorsel/client/internal/infrastructure/session"
	"github.com/alchemorsel/client/internal/infrastructure/validation"
	"github.com/alchemorsel/client/internal/ports/inbound"
	"github.com/alchemorsel/client/internal/ports/outbound"
	apperrors "github.com/alchemorsel/client/pkg/errors"
	"github.com/alchemorsel/client/pkg/healthcheck"
	"github.com/alchemorsel/client/pkg/logger"
)

// SessionEndedNotice is printed when the API rejects the stored token
const SessionEndedNotice = "Your session has ended, please log in again"

// deps is everything a command can use
type deps struct {
	fx.In

	Config      *config.Config
	Logger      *zap.Logger
	Storage     *persistence.Storage
	Sessions    *session.Store
	Gateways    *gateway.Factory
	Users       inbound.UserService
	Recipes     inbound.RecipeService
	Plans       inbound.DayPlanService
	Coordinator *auth.Coordinator
	Health      *healthcheck.HealthCheck
	Metrics     *prometheus.Registry
}

// options builds the dependency graph. notices receives user-facing
// messages raised outside a command's own output.
func options(configPath string, notices io.Writer) fx.Option {
	return fx.Options(
		fx.NopLogger,

		// Configuration
		fx.Provide(func() (*config.Config, error) {
			return config.Load(configPath)
		}),

		// Logger
		fx.Provide(func(cfg *config.Config) (*zap.Logger, error) {
			return logger.New(logger.Config{
				Level:       cfg.App.LogLevel,
				Format:      cfg.App.LogFormat,
				Development: cfg.App.Debug,
			})
		}),

		// Storage
		fx.Provide(func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*persistence.Storage, error) {
			storage, err := persistence.Open(context.Background(), cfg.Storage, log)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return storage.Close()
				},
			})
			return storage, nil
		}),
		fx.Provide(func(s *persistence.Storage) outbound.KeyValueStore { return s }),
		fx.Provide(session.NewStore),

		// Monitoring
		fx.Provide(prometheus.NewRegistry),
		fx.Provide(func(reg *prometheus.Registry) *monitoring.GatewayMetrics {
			return monitoring.NewGatewayMetrics(reg)
		}),
		fx.Provide(func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
			tp, err := monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfig{
				ServiceName:    "alchemorsel-client",
				ServiceVersion: cfg.App.Version,
				Environment:    cfg.App.Environment,
				OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
				SamplingRate:   cfg.Monitoring.SamplingRate,
				Enabled:        cfg.Monitoring.EnableTracing,
			}, log)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{OnStop: tp.Shutdown})
			return tp, nil
		}),

		// API gateways
		fx.Provide(func(
			cfg *config.Config,
			sessions *session.Store,
			log *zap.Logger,
			metrics *monitoring.GatewayMetrics,
			tp *monitoring.TracingProvider,
		) (*gateway.Factory, error) {
			return gateway.NewFactory(cfg.API, sessions, log,
				gateway.WithMetrics(metrics),
				gateway.WithTracerProvider(tp.TracerProvider()),
			)
		}),

		// Services
		fx.Provide(validation.New),
		fx.Provide(recipeapp.NewGeneratedStore),
		fx.Provide(
			fx.Annotate(userapp.NewService, fx.As(new(inbound.UserService))),
			fx.Annotate(recipeapp.NewService, fx.As(new(inbound.RecipeService))),
			fx.Annotate(dayplanapp.NewService, fx.As(new(inbound.DayPlanService))),
		),
		fx.Provide(func(sessions *session.Store, users inbound.UserService, log *zap.Logger) *auth.Coordinator {
			return auth.NewCoordinator(sessions, users, log)
		}),

		// Health checks
		fx.Provide(newHealthCheck),

		fx.Invoke(func(lc fx.Lifecycle, d deps) {
			registerSessionHooks(lc, d, notices)
		}),
	)
}

func newHealthCheck(cfg *config.Config, gateways *gateway.Factory, storage *persistence.Storage, log *zap.Logger) *healthcheck.HealthCheck {
	hc := healthcheck.New(cfg.App.Version, log)
	hc.Register("api", healthcheck.NewChecker(healthcheck.StatusUnhealthy, func(ctx context.Context) error {
		return gateways.Public().Ping(ctx)
	}))
	hc.Register("storage", healthcheck.NewChecker(healthcheck.StatusUnhealthy, func(ctx context.Context) error {
		_, _, err := storage.Get(ctx, session.TokenKey)
		return err
	}))
	return hc
}

// registerSessionHooks connects session-ended events to the coordinator and
// watches the storage for changes made by other processes.
func registerSessionHooks(lc fx.Lifecycle, d deps, notices io.Writer) {
	var unsubscribe func()
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			unsubscribe = d.Sessions.Subscribe(func(event session.SessionEnded) {
				d.Coordinator.HandleSessionEnded(event)
				if event.Reason == session.ReasonUnauthorized {
					fmt.Fprintln(notices, SessionEndedNotice)
				}
			})
			if d.Config.Storage.Watch && d.Storage.Watcher != nil {
				if err := d.Storage.Watcher.Watch(d.Sessions.Invalidate); err != nil {
					d.Logger.Warn("Storage watch unavailable", zap.Error(err))
				}
			}
			return nil
		},
		OnStop: func(context.Context) error {
			if unsubscribe != nil {
				unsubscribe()
			}
			return nil
		},
	})
}

// run starts the graph, hands the dependencies to fn and stops the graph.
func run(ctx context.Context, configPath string, notices io.Writer, fn func(ctx context.Context, d deps) error) error {
	var d deps
	app := fx.New(
		options(configPath, notices),
		fx.Populate(&d.Config, &d.Logger, &d.Storage, &d.Sessions, &d.Gateways,
			&d.Users, &d.Recipes, &d.Plans, &d.Coordinator, &d.Health, &d.Metrics),
	)
	if err := app.Err(); err != nil {
		return unwrapStartError(err)
	}
	if err := app.Start(ctx); err != nil {
		return unwrapStartError(err)
	}
	defer func() {
		if err := app.Stop(context.WithoutCancel(ctx)); err != nil {
			d.Logger.Warn("Shutdown failed", zap.Error(err))
		}
	}()
	return fn(ctx, d)
}

// writeMetrics dumps the gateway metrics to path in the Prometheus text
// format, for node_exporter's textfile collector or a later push. The
// command's own error wins over a failed write.
func writeMetrics(d deps, path string, cmdErr error) error {
	if path == "" {
		return cmdErr
	}
	if err := prometheus.WriteToTextfile(path, d.Metrics); err != nil {
		if cmdErr != nil {
			d.Logger.Warn("Failed to write metrics file", zap.String("path", path), zap.Error(err))
			return cmdErr
		}
		return apperrors.NewStorageError("write metrics file", err)
	}
	return cmdErr
}

// unwrapStartError surfaces the AppError a constructor failed with
func unwrapStartError(err error) error {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	if appErr, ok := apperrors.As(dig.RootCause(err)); ok {
		return appErr
	}
	return err
}
