// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ManuGH/playreward/internal/admin"
	"github.com/ManuGH/playreward/internal/config"
)

var errCommandFailed = errors.New("command failed")

type adminFlags struct {
	addr  string
	token string
}

func newRewardCmd() *cobra.Command {
	flags := &adminFlags{}
	cmd := &cobra.Command{
		Use:   "reward",
		Short: "Manage online rewards on a running daemon",
	}
	cmd.PersistentFlags().StringVar(&flags.addr, "addr",
		config.ParseString(config.EnvPrefix+"ADMIN_ADDR", config.DefaultAdminListenAddr), "admin API address")
	cmd.PersistentFlags().StringVar(&flags.token, "token",
		config.ParseString(config.EnvPrefix+"ADMIN_TOKEN", ""), "admin API token")

	cmd.AddCommand(
		newRewardAddCmd(flags),
		simpleAdminCmd(flags, "delete <id>", "Delete a reward", admin.CmdDelete, cobra.ExactArgs(1), rewardIDArgs),
		simpleAdminCmd(flags, "list", "List rewards", admin.CmdList, cobra.NoArgs, nil),
		simpleAdminCmd(flags, "next <session-id>", "Show time left until the next rewards of a session", admin.CmdNext, cobra.ExactArgs(1), sessionIDArgs),
		simpleAdminCmd(flags, "reload", "Reload configuration and rewards", admin.CmdReload, cobra.NoArgs, nil),
		simpleAdminCmd(flags, "run", "Run a reward tick now", admin.CmdRun, cobra.NoArgs, nil),
		simpleAdminCmd(flags, "status", "Show engine status", admin.CmdStatus, cobra.NoArgs, nil),
	)
	return cmd
}

func newRewardAddCmd(flags *adminFlags) *cobra.Command {
	var a admin.AddArgs
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a reward",
		Example: `  playreward reward add --seconds 3600 --min-level 10 --items "6948:1 4540:5"
  playreward reward add --recurring --seconds 1800 --reputations "72:500"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAdmin(cmd, flags, admin.CmdAdd, a)
		},
	}
	cmd.Flags().Uint32Var(&a.ID, "id", 0, "reward id (0 picks the next free id)")
	cmd.Flags().BoolVar(&a.Recurring, "recurring", false, "grant every interval instead of once")
	cmd.Flags().Int64Var(&a.Seconds, "seconds", 0, "played-time threshold in seconds")
	cmd.Flags().IntVar(&a.MinLevel, "min-level", 0, "minimum session level")
	cmd.Flags().StringVar(&a.Items, "items", "", `items as "id:count" pairs separated by spaces`)
	cmd.Flags().StringVar(&a.Reputations, "reputations", "", `reputations as "faction:amount" pairs separated by spaces`)
	_ = cmd.MarkFlagRequired("seconds")
	return cmd
}

func simpleAdminCmd(flags *adminFlags, use, short, name string, args cobra.PositionalArgs, build func([]string) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, positional []string) error {
			var payload any
			if build != nil {
				var err error
				if payload, err = build(positional); err != nil {
					return err
				}
			}
			return runAdmin(cmd, flags, name, payload)
		},
	}
}

func rewardIDArgs(args []string) (any, error) {
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid reward id %q", args[0])
	}
	return admin.RewardArgs{ID: uint32(id)}, nil
}

func sessionIDArgs(args []string) (any, error) {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q", args[0])
	}
	return admin.SessionArgs{SessionID: id}, nil
}

func runAdmin(cmd *cobra.Command, flags *adminFlags, name string, args any) error {
	res, err := admin.NewClient(flags.addr, flags.token).Execute(cmd.Context(), name, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, line := range res.Lines {
		_, _ = fmt.Fprintln(out, line)
	}
	if !res.OK {
		return fmt.Errorf("%s: %w", name, errCommandFailed)
	}
	return nil
}
