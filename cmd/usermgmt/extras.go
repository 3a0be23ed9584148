// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/usermgmt/internal/auth"
)

// parseExtras decodes a JSON object. An empty string is an empty bag.
func parseExtras(raw string) (auth.Extras, error) {
	extras := auth.Extras{}
	if raw == "" {
		return extras, nil
	}
	if err := json.Unmarshal([]byte(raw), &extras); err != nil {
		return nil, oops.Code("INVALID_EXTRAS").Errorf("extras must be a JSON object: %w", err)
	}
	if extras == nil {
		extras = auth.Extras{}
	}
	return extras, nil
}

// NewExtrasCmd creates the extras command group.
func NewExtrasCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extras",
		Short: "Read and replace the extras stored with a user",
		Long: `Read and replace the extras stored with a user. The user is named by
username, or by session token with --token.`,
	}

	cmd.AddCommand(newExtrasGetCmd(deps))
	cmd.AddCommand(newExtrasSetCmd(deps))
	return cmd
}

func newExtrasGetCmd(deps *Deps) *cobra.Command {
	var (
		byToken bool
		output  string
	)

	cmd := &cobra.Command{
		Use:   "get <username|token>",
		Short: "Print the extras of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return withManager(cmd, deps, func(ctx context.Context, a *app) error {
				var (
					extras auth.Extras
					ok     bool
					err    error
				)
				if byToken {
					extras, ok, err = a.manager.GetExtrasForToken(ctx, args[0])
				} else {
					extras, ok, err = a.manager.GetExtrasForUsername(ctx, args[0])
				}
				if err != nil {
					return err
				}
				if !ok {
					return oops.Code("USER_NOT_FOUND").Errorf("no user matches")
				}
				return writeOutput(cmd.OutOrStdout(), output, extras, func(w io.Writer) error {
					keys := make([]string, 0, len(extras))
					for k := range extras {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					for _, k := range keys {
						if _, err := fmt.Fprintf(w, "%s=%v\n", k, extras[k]); err != nil {
							return oops.Wrap(err)
						}
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().BoolVar(&byToken, "token", false, "treat the argument as a session token")
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "output format (text, json or yaml)")
	return cmd
}

func newExtrasSetCmd(deps *Deps) *cobra.Command {
	var byToken bool

	cmd := &cobra.Command{
		Use:   "set <username|token> <json-object>",
		Short: "Replace the extras of a user",
		Long: `Replace the extras of a user with a JSON object. Naming a user that
does not exist is not an error.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			extras, err := parseExtras(args[1])
			if err != nil {
				return err
			}
			return withManager(cmd, deps, func(ctx context.Context, a *app) error {
				if byToken {
					return a.manager.SetExtrasForToken(ctx, args[0], extras)
				}
				return a.manager.SetExtrasForUsername(ctx, args[0], extras)
			})
		},
	}

	cmd.Flags().BoolVar(&byToken, "token", false, "treat the first argument as a session token")
	return cmd
}
