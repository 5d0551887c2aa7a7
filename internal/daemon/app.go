// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/playreward/internal/config"
	"github.com/ManuGH/playreward/internal/domain/reward/manager"
	"github.com/ManuGH/playreward/internal/log"
)

// Engine is the part of the reward service driven by the daemon loop.
type Engine interface {
	Update(ctx context.Context, diff time.Duration) bool
	ApplyConfig(ctx context.Context, settings manager.Settings, reload bool) error
}

// App owns the long-lived runtime lifecycle (tick driver, watchers, reload
// wiring) and delegates server management to Manager.
type App struct {
	logger         zerolog.Logger
	manager        Manager
	cfgHolder      *config.ConfigHolder
	engine         Engine
	updateInterval time.Duration
	reloadSignal   os.Signal
	now            func() time.Time

	mu      sync.Mutex
	applied manager.Settings
}

// NewApp creates a new App orchestrator. applied is the settings the engine
// was initialised with.
func NewApp(logger zerolog.Logger, mgr Manager, cfgHolder *config.ConfigHolder, engine Engine, applied manager.Settings, updateInterval time.Duration) *App {
	if updateInterval <= 0 {
		updateInterval = config.DefaultUpdateInterval
	}
	return &App{
		logger:         logger,
		manager:        mgr,
		cfgHolder:      cfgHolder,
		engine:         engine,
		updateInterval: updateInterval,
		reloadSignal:   syscall.SIGHUP,
		now:            time.Now,
		applied:        applied,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.engine == nil {
		return ErrMissingEngine
	}

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					if err := a.apply(ctx, cfg, false); err != nil {
						a.logger.Error().Err(err).Str(log.FieldEvent, "reward.apply_failed").Msg("failed to apply reloaded configuration")
					}
				}
			}
		})
	}

	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(log.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str(log.FieldEvent, "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		a.drive(ctx)
		return nil
	})

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// drive feeds wall-clock deltas into the engine until ctx is done.
func (a *App) drive(ctx context.Context) {
	ticker := time.NewTicker(a.updateInterval)
	defer ticker.Stop()

	last := a.now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := a.now()
			diff := now.Sub(last)
			last = now
			if diff < 0 {
				diff = 0
			}
			a.engine.Update(ctx, diff)
		}
	}
}

// Reload re-reads the configuration and re-applies it to the engine even
// when the reward settings did not change, so the catalog is reloaded too.
func (a *App) Reload(ctx context.Context) error {
	if a.cfgHolder == nil {
		a.mu.Lock()
		settings := a.applied
		a.mu.Unlock()
		return a.engine.ApplyConfig(ctx, settings, true)
	}
	if err := a.cfgHolder.Reload(ctx); err != nil {
		return err
	}
	return a.apply(ctx, a.cfgHolder.Get(), true)
}

func (a *App) apply(ctx context.Context, cfg config.AppConfig, force bool) error {
	settings := SettingsFromConfig(cfg)

	a.mu.Lock()
	defer a.mu.Unlock()
	if !force && settings == a.applied {
		a.logger.Debug().Str(log.FieldEvent, "reward.apply_skipped").Msg("reward settings unchanged")
		return nil
	}
	if err := a.engine.ApplyConfig(ctx, settings, true); err != nil {
		return err
	}
	a.applied = settings
	a.logger.Info().
		Str(log.FieldEvent, "reward.config_applied").
		Bool("enabled", settings.Enabled).
		Dur("interval", settings.Interval).
		Msg("reward settings applied")
	return nil
}
