// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/usermgmt/internal/auth"
)

// NewTokenCmd creates the token command group.
func NewTokenCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect and expire session tokens",
	}

	cmd.AddCommand(newTokenCheckCmd(deps))
	cmd.AddCommand(newTokenWhoamiCmd(deps))
	cmd.AddCommand(newTokenShowCmd(deps))
	cmd.AddCommand(newTokenExpireCmd(deps))
	return cmd
}

func newTokenCheckCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "check <token>",
		Short: "Exit successfully if a token is valid and unexpired",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, deps, func(ctx context.Context, a *app) error {
				valid, err := a.manager.IsTokenValid(ctx, args[0])
				if err != nil {
					return err
				}
				if !valid {
					return oops.Code(auth.CodeInvalidToken).Wrap(auth.ErrInvalidCredential)
				}
				return printResult(cmd, "valid")
			})
		},
	}
}

func newTokenWhoamiCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami <token>",
		Short: "Print the username holding a token",
		Long: `Print the username holding a token. Expiry is not checked; use
"token check" for that.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, deps, func(ctx context.Context, a *app) error {
				username, ok, err := a.manager.UsernameForToken(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return oops.Code(auth.CodeInvalidToken).Wrap(auth.ErrInvalidCredential)
				}
				return printResult(cmd, username)
			})
		},
	}
}

func newTokenShowCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <username>",
		Short: "Print the stored token of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, deps, func(ctx context.Context, a *app) error {
				token, ok, err := a.manager.TokenForUsername(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return oops.Code("TOKEN_NOT_FOUND").
						With("username", args[0]).
						Errorf("user has no session token")
				}
				return printResult(cmd, token)
			})
		},
	}
}

func newTokenExpireCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "expire <token>",
		Short: "Log out the user holding a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, deps, func(ctx context.Context, a *app) error {
				if err := a.manager.ExpireToken(ctx, args[0]); err != nil {
					return err
				}
				cmd.Println("token expired")
				return nil
			})
		},
	}
}
