// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/playreward/internal/config"
	"github.com/ManuGH/playreward/internal/daemon"
	xglog "github.com/ManuGH/playreward/internal/log"
	"github.com/ManuGH/playreward/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "playreward",
		Short:         "Online-time reward daemon",
		SilenceUsage:  true,
		SilenceErrors: false,
		Version:       version.String(),
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")

	root.AddCommand(
		newServeCmd(&configPath),
		newRewardCmd(),
		newStorageCmd(&configPath),
		newConfigCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reward daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Safe defaults until the config is loaded.
			xglog.Configure(xglog.Config{Level: "info", Service: "playreward", Version: version.Version})
			logger := xglog.WithComponent("daemon")

			path := resolveConfigPath(*configPath)
			source := "env+defaults"
			if path != "" {
				source = "file"
			}

			ctx, stop := daemon.WaitForShutdown()
			defer stop()

			rt, err := daemon.Bootstrap(ctx, daemon.Options{ConfigPath: path, Version: version.Version})
			if err != nil {
				logger.Error().
					Err(err).
					Str("event", "startup.failed").
					Str("config_path", path).
					Msg("failed to start reward daemon")
				return err
			}
			logger = xglog.WithComponent("daemon")
			logger.Info().
				Str("event", "config.loaded").
				Str("source", source).
				Str("path", path).
				Msg("configuration loaded")

			if err := rt.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("reward daemon stopped with error")
				return err
			}
			logger.Info().Msg("reward daemon stopped")
			return nil
		},
	}
}

// resolveConfigPath returns explicit when set, otherwise
// ${PLAYREWARD_DATA_DIR}/config.yaml when that file exists.
func resolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(config.ParseString(config.EnvPrefix+"DATA_DIR", config.DefaultDataDir))
	if dataDir == "" {
		return ""
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}
