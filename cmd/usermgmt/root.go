// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/usermgmt/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command. A nil deps uses the defaults.
func NewRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "usermgmt",
		Short: "Manage user credentials and session tokens",
		Long: `usermgmt creates and authenticates users, issues and expires
session tokens, and manages the backing user store (memory, PostgreSQL
or Redis).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewMigrateCmd(deps))
	cmd.AddCommand(NewUserAddCmd(deps))
	cmd.AddCommand(NewLoginCmd(deps))
	cmd.AddCommand(NewPasswdCmd(deps))
	cmd.AddCommand(NewResetCmd(deps))
	cmd.AddCommand(NewUserDelCmd(deps))
	cmd.AddCommand(NewUsersCmd(deps))
	cmd.AddCommand(NewTokenCmd(deps))
	cmd.AddCommand(NewExtrasCmd(deps))
	cmd.AddCommand(NewServeCmd(deps))

	return cmd
}
