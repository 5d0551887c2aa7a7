// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/playreward/internal/config"
	"github.com/ManuGH/playreward/internal/log"
)

// PerformStartupChecks validates the environment before the daemon opens its
// stores: file backends need a writable parent directory.
func PerformStartupChecks(cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")

	if cfg.Storage.Backend == config.BackendMemory {
		logger.Warn().Msg("memory storage selected, reward history will not survive restarts")
		return nil
	}

	dir := filepath.Dir(cfg.Storage.Path)
	if cfg.Storage.Backend == config.BackendBadger {
		dir = cfg.Storage.Path
	}
	if err := checkWritableDir(dir); err != nil {
		return fmt.Errorf("storage directory check failed: %w", err)
	}

	logger.Info().Str(log.FieldPath, dir).Msg("startup checks passed")
	return nil
}

func checkWritableDir(path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	probe, err := os.CreateTemp(path, ".write-probe-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", path, err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
