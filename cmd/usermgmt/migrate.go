// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/usermgmt/internal/config"
	"github.com/holomush/usermgmt/internal/store"
	"github.com/holomush/usermgmt/pkg/errutil"
)

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL users schema",
		Long: `Apply, roll back and inspect the users table migrations. Requires
database_url (or DATABASE_URL) regardless of the configured backend.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, func(m Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("All migrations rolled back")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "steps <n>",
		Short: "Apply (n > 0) or roll back (n < 0) n migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseVersionArg(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				if err := m.Steps(n); err != nil {
					return err
				}
				cmd.Printf("Moved %d migration step(s)\n", n)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations",
		Long: `Set the recorded schema version and clear the dirty flag, without
running any migration. Use after repairing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseVersionArg(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				if err := m.Force(v); err != nil {
					return err
				}
				cmd.Printf("Forced schema version to %d\n", v)
				return nil
			})
		},
	})

	cmd.AddCommand(newMigrateStatusCmd(deps))
	return cmd
}

func newMigrateStatusCmd(deps *Deps) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the schema version and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				st, err := m.Status()
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, statusView(st), func(w io.Writer) error {
					return formatStatusText(w, st)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format (text, json or yaml)")
	return cmd
}

// migrationStatus is the serialized form of store.Status.
type migrationStatus struct {
	Version uint   `json:"version" yaml:"version"`
	Dirty   bool   `json:"dirty" yaml:"dirty"`
	Applied []uint `json:"applied" yaml:"applied"`
	Pending []uint `json:"pending" yaml:"pending"`
}

func statusView(st store.Status) migrationStatus {
	view := migrationStatus{
		Version: st.Version,
		Dirty:   st.Dirty,
		Applied: st.Applied,
		Pending: st.Pending,
	}
	if view.Applied == nil {
		view.Applied = []uint{}
	}
	if view.Pending == nil {
		view.Pending = []uint{}
	}
	return view
}

func formatStatusText(w io.Writer, st store.Status) error {
	var b strings.Builder
	fmt.Fprintf(&b, "version: %d", st.Version)
	if st.Dirty {
		b.WriteString(" (dirty)")
	}
	b.WriteString("\n")
	for _, v := range st.Applied {
		name, _ := store.MigrationName(v) //nolint:errcheck // listed versions come from the embedded set
		fmt.Fprintf(&b, "  applied  %s\n", name)
	}
	for _, v := range st.Pending {
		name, _ := store.MigrationName(v) //nolint:errcheck // listed versions come from the embedded set
		fmt.Fprintf(&b, "  pending  %s\n", name)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return oops.Wrap(err)
	}
	return nil
}

// parseVersionArg parses a signed migration version or step count.
func parseVersionArg(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("not an integer: %q", s)
	}
	return n, nil
}

// withMigrator opens a migrator against the configured database and closes it after fn.
func withMigrator(cmd *cobra.Command, deps *Deps, fn func(Migrator) error) (err error) {
	a, err := newApp(cmd, deps)
	if err != nil {
		return err
	}
	defer func() {
		a.recordCommand(cmd.CommandPath(), err)
		if err != nil {
			errutil.LogError(a.logger, "command failed", err)
		}
	}()

	if a.cfg.DatabaseURL == "" {
		return oops.Code(config.CodeInvalid).Errorf("database_url (or DATABASE_URL) is required")
	}

	cmd.Println("Connecting to database...")
	m, err := deps.MigratorFactory(a.cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			a.logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	return fn(m)
}
