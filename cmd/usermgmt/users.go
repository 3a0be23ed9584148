// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/usermgmt/internal/auth"
)

// NewUserAddCmd creates the useradd subcommand.
func NewUserAddCmd(deps *Deps) *cobra.Command {
	var extrasJSON string

	cmd := &cobra.Command{
		Use:   "useradd <username>",
		Short: "Create a user",
		Long: `Create a user with a password read from the terminal (or one line of
stdin when piped) and an optional JSON object of extras.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extras, err := parseExtras(extrasJSON)
			if err != nil {
				return err
			}
			password, err := newPrompter(cmd, deps).confirmedSecret("Password")
			if err != nil {
				return err
			}
			return withManager(cmd, deps, func(ctx context.Context, a *app) error {
				if err := a.manager.CreateUser(ctx, args[0], password, extras); err != nil {
					return err
				}
				cmd.Printf("user %s created\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&extrasJSON, "extras", "", "extras as a JSON object")
	return cmd
}

// NewLoginCmd creates the login subcommand.
func NewLoginCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Authenticate a user and print a new session token",
		Long: `Check the password of a user. On success a new session token is issued,
replacing any previous one, and printed to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := newPrompter(cmd, deps).secret("Password")
			if err != nil {
				return err
			}
			return withManager(cmd, deps, func(ctx context.Context, a *app) error {
				res, err := a.manager.AuthenticateUser(ctx, args[0], password)
				if err != nil {
					return err
				}
				if !res.UserExists {
					return oops.Code(auth.CodeUnknownUser).
						With("username", args[0]).
						Wrap(auth.ErrInvalidCredential)
				}
				if !res.PasswordsMatch {
					return oops.Code(auth.CodeWrongPassword).
						With("username", args[0]).
						Wrap(auth.ErrInvalidCredential)
				}
				return printResult(cmd, res.Token)
			})
		},
	}
}

// NewPasswdCmd creates the passwd subcommand.
func NewPasswdCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <token>",
		Short: "Change the password of the user holding a session token",
		Long: `Change a password by proving both the session token and the current
password. The change logs the user out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd, deps)
			oldPassword, err := p.secret("Current password")
			if err != nil {
				return err
			}
			newPassword, err := p.confirmedSecret("New password")
			if err != nil {
				return err
			}
			return withManager(cmd, deps, func(ctx context.Context, a *app) error {
				if err := a.manager.ChangePassword(ctx, args[0], oldPassword, newPassword); err != nil {
					return err
				}
				cmd.Println("password changed, session expired")
				return nil
			})
		},
	}
}

// NewResetCmd creates the reset subcommand.
func NewResetCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <username>",
		Short: "Replace a user's password with a generated one",
		Long: `Generate a random password for a user, store it and print it once.
The user's session is expired.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, deps, func(ctx context.Context, a *app) error {
				password, err := a.manager.ResetPassword(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, password)
			})
		},
	}
}

// NewUserDelCmd creates the userdel subcommand.
func NewUserDelCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "userdel <username>",
		Short: "Remove a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, deps, func(ctx context.Context, a *app) error {
				if err := a.manager.RemoveUser(ctx, args[0]); err != nil {
					return err
				}
				cmd.Printf("user %s removed\n", args[0])
				return nil
			})
		},
	}
}

// NewUsersCmd creates the users subcommand.
func NewUsersCmd(deps *Deps) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List usernames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return withManager(cmd, deps, func(ctx context.Context, a *app) error {
				names, err := a.manager.GetUserList(ctx)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, names, func(w io.Writer) error {
					for _, name := range names {
						if _, err := fmt.Fprintln(w, name); err != nil {
							return oops.Wrap(err)
						}
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format (text, json or yaml)")
	return cmd
}
