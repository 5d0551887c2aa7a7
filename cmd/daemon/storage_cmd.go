// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/playreward/internal/config"
	"github.com/ManuGH/playreward/internal/domain/reward/store"
	"github.com/ManuGH/playreward/internal/persistence/sqlite"
	"github.com/ManuGH/playreward/internal/version"
)

var errCorrupt = errors.New("database corruption detected")

func newStorageCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Inspect the reward database",
	}
	cmd.AddCommand(newStorageVerifyCmd(configPath), newStorageMailCmd(configPath))
	return cmd
}

func newStorageVerifyCmd(configPath *string) *cobra.Command {
	var path, mode string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check SQLite database integrity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode = strings.ToLower(strings.TrimSpace(mode))
			if mode != "quick" && mode != "full" {
				return fmt.Errorf("invalid mode %q, use 'quick' or 'full'", mode)
			}
			if path == "" {
				cfg, err := loadConfig(*configPath)
				if err != nil {
					return err
				}
				if cfg.Storage.Backend != config.BackendSQLite {
					return fmt.Errorf("storage backend %q has no integrity check", cfg.Storage.Backend)
				}
				path = cfg.Storage.Path
			}
			return verifyDatabase(cmd, path, mode)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "path to the SQLite database (default: from config)")
	cmd.Flags().StringVar(&mode, "mode", "quick", "verification mode: quick or full")
	return cmd
}

func verifyDatabase(cmd *cobra.Command, path, mode string) error {
	errOut := cmd.ErrOrStderr()
	_, _ = fmt.Fprintf(errOut, "Verifying integrity of %s (mode: %s)...\n", path, mode)

	issues, err := sqlite.VerifyIntegrity(path, mode)
	if err != nil {
		return fmt.Errorf("verification interrupted: %w", err)
	}
	if issues != nil {
		for _, issue := range issues {
			_, _ = fmt.Fprintf(errOut, "  - %s\n", issue)
		}
		return errCorrupt
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Integrity verified: ok")
	return nil
}

func newStorageMailCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mail",
		Short: "List queued reward mail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Storage.Backend, cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
			}
			defer func() { _ = st.Close() }()

			mails, err := st.PendingMail(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(mails) == 0 {
				_, _ = fmt.Fprintln(out, "No queued mail")
				return nil
			}
			for _, m := range mails {
				_, _ = fmt.Fprintf(out, "%s\t%d x%d\t%s\n", m.Receiver, m.ItemID, m.Count, m.Subject)
			}
			return nil
		},
	}
}

func loadConfig(configPath string) (config.AppConfig, error) {
	path := resolveConfigPath(configPath)
	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		if path == "" {
			return cfg, fmt.Errorf("configuration error: %w", err)
		}
		return cfg, fmt.Errorf("configuration error in %s: %w", path, err)
	}
	return cfg, nil
}
