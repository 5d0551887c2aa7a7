// SPDX-License-Identifier: MIT

// Package daemon wires the reward engine, its adapters and the HTTP surfaces
// into a running process.
package daemon

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/playreward/internal/admin"
	"github.com/ManuGH/playreward/internal/cache"
	"github.com/ManuGH/playreward/internal/config"
	"github.com/ManuGH/playreward/internal/domain/reward/manager"
	"github.com/ManuGH/playreward/internal/domain/reward/store"
	"github.com/ManuGH/playreward/internal/health"
	"github.com/ManuGH/playreward/internal/i18n"
	"github.com/ManuGH/playreward/internal/log"
	"github.com/ManuGH/playreward/internal/telemetry"
	"github.com/ManuGH/playreward/internal/world"
)

// Options control Bootstrap.
type Options struct {
	ConfigPath string
	Version    string
	// LogOutput defaults to os.Stdout.
	LogOutput io.Writer
}

// Runtime is a fully wired daemon.
type Runtime struct {
	Config    config.AppConfig
	Holder    *config.ConfigHolder
	Store     store.Store
	Cache     cache.Cache
	World     *world.Client
	Texts     *i18n.Catalog
	Service   *manager.Service
	Health    *health.Manager
	Telemetry *telemetry.Provider
	Manager   Manager
	App       *App

	logger zerolog.Logger
}

// Bootstrap loads the configuration, configures logging and builds the runtime.
func Bootstrap(ctx context.Context, opts Options) (*Runtime, error) {
	loader := config.NewLoader(opts.ConfigPath, opts.Version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Output:  out,
		Service: cfg.LogService,
		Version: opts.Version,
	})

	if err := health.PerformStartupChecks(cfg); err != nil {
		return nil, err
	}
	return NewRuntime(ctx, cfg, config.NewConfigHolder(cfg, loader))
}

// NewRuntime opens every adapter for cfg and initialises the reward engine.
// On error, everything opened so far is closed again.
func NewRuntime(ctx context.Context, cfg config.AppConfig, holder *config.ConfigHolder) (rt *Runtime, err error) {
	logger := log.WithComponent("daemon")
	rt = &Runtime{Config: cfg, Holder: holder, logger: logger}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			rt = nil
		}
	}()

	rt.Telemetry, err = telemetry.NewProvider(ctx, telemetry.FromAppConfig(cfg.Tracing, cfg.LogService, cfg.Version))
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry initialization failed, continuing without tracing")
		rt.Telemetry, err = nil, nil
	} else {
		closers = append(closers, func() { _ = rt.Telemetry.Shutdown(context.Background()) })
	}

	rt.Store, err = store.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}
	closers = append(closers, func() { _ = rt.Store.Close() })

	rt.Cache, err = cache.New(cache.Config{RedisAddr: cfg.Cache.RedisAddr}, logger)
	if err != nil {
		return nil, fmt.Errorf("open lookup cache: %w", err)
	}
	closers = append(closers, func() { _ = rt.Cache.Close() })

	rt.World, err = world.New(world.Options{
		BaseURL:   cfg.World.BaseURL,
		Timeout:   cfg.World.Timeout,
		RateLimit: cfg.World.RateLimit,
		RateBurst: cfg.World.RateBurst,
		Cache:     rt.Cache,
		CacheTTL:  cfg.Cache.TTL,
	})
	if err != nil {
		return nil, err
	}

	rt.Texts, err = i18n.Load()
	if err != nil {
		return nil, fmt.Errorf("load texts: %w", err)
	}

	settings := SettingsFromConfig(cfg)
	rt.Service = manager.NewService(manager.Options{
		Store:    rt.Store,
		World:    rt.World,
		Texts:    rt.Texts,
		Settings: settings,
	})
	closers = append(closers, rt.Service.Close)
	if err = rt.Service.Init(ctx); err != nil {
		return nil, fmt.Errorf("init reward engine: %w", err)
	}

	rt.Health = rt.healthChecks(cfg)

	// rt.App is set before the admin server accepts requests.
	reload := func(ctx context.Context) error { return rt.App.Reload(ctx) }
	rt.Manager, err = NewManager(Deps{
		Logger:         logger,
		AdminHandler:   rt.adminServer(reload).Handler(),
		AdminAddr:      cfg.Admin.ListenAddr,
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    cfg.Metrics.ListenAddr,
	})
	if err != nil {
		return nil, err
	}
	rt.App = NewApp(logger, rt.Manager, holder, rt.Service, settings, cfg.Schedule.UpdateInterval)

	rt.registerHooks()
	logger.Info().
		Str("version", cfg.Version).
		Str("storage", cfg.Storage.Backend).
		Str(log.FieldBaseURL, cfg.World.BaseURL).
		Bool("enabled", rt.Service.Status().Enabled).
		Msg("reward daemon ready")
	return rt, nil
}

func (rt *Runtime) adminServer(reload admin.ReloadFunc) *admin.Server {
	cmds := admin.NewCommands(rt.Service, rt.Texts, reload)
	scfg := AdminServerConfig(rt.Config.Admin)
	scfg.Health = rt.Health
	return admin.NewServer(cmds, scfg)
}

// healthChecks registers the readiness probes: the store must answer, while
// an open world breaker or a stale tick only degrade.
func (rt *Runtime) healthChecks(cfg config.AppConfig) *health.Manager {
	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewFuncChecker("store", 2*time.Second, func(ctx context.Context) error {
		_, err := rt.Store.ListDefinitions(ctx)
		return err
	}))
	hm.RegisterChecker(health.Informational(health.NewFuncChecker("world", 0, func(context.Context) error {
		if rt.World.Breaker() == world.BreakerOpen {
			return world.ErrCircuitOpen
		}
		return nil
	})))
	hm.RegisterChecker(health.NewLastRunChecker(3*cfg.Schedule.Interval, func() (bool, time.Time) {
		st := rt.Service.Status()
		if st.LastRun == nil {
			return st.Enabled, time.Time{}
		}
		return st.Enabled, st.LastRun.Started
	}))
	return hm
}

func (rt *Runtime) registerHooks() {
	if rt.Telemetry != nil {
		rt.Manager.RegisterShutdownHook("telemetry", rt.Telemetry.Shutdown)
	}
	rt.Manager.RegisterShutdownHook("store", func(context.Context) error { return rt.Store.Close() })
	rt.Manager.RegisterShutdownHook("cache", func(context.Context) error { return rt.Cache.Close() })
	rt.Manager.RegisterShutdownHook("reward", func(context.Context) error {
		rt.Service.Close()
		return nil
	})
	if rt.Holder != nil {
		rt.Manager.RegisterShutdownHook("config-watcher", func(context.Context) error {
			rt.Holder.Stop()
			return nil
		})
	}
}

// Run blocks until ctx is cancelled, then shuts everything down.
func (rt *Runtime) Run(ctx context.Context) error {
	return rt.App.Run(ctx)
}

// SettingsFromConfig maps the daemon config onto engine settings.
func SettingsFromConfig(cfg config.AppConfig) manager.Settings {
	return manager.Settings{
		Enabled:            cfg.Reward.Enabled,
		PerOnline:          cfg.Reward.PerOnlineEnabled,
		PerTime:            cfg.Reward.PerTimeEnabled,
		ForceMail:          cfg.Reward.ForceMail,
		MaxSameOriginCount: cfg.Reward.MaxSameOriginCount,
		InitialDelay:       cfg.Schedule.InitialDelay,
		Interval:           cfg.Schedule.Interval,
		MailSenderID:       cfg.Mail.SenderID,
	}
}

// AdminServerConfig maps the admin section. Anonymous access is only
// allowed without a token on a loopback listener.
func AdminServerConfig(cfg config.AdminConfig) admin.ServerConfig {
	return admin.ServerConfig{
		Token:          cfg.Token,
		AllowAnonymous: cfg.Token == "" && isLoopback(cfg.ListenAddr),
		NextPerMinute:  cfg.NextPerMinute,
	}
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// WaitForShutdown returns a context cancelled on interrupt/termination signals.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
