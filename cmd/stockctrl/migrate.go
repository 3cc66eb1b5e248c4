// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

func newMigrateCmd(env *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, revert, or inspect the account and session schema migrations.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, env, func(m Migrator) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd, m, "Migrations complete")
			})
		},
	})

	var confirm bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert all migrations (destroys data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return oops.Code("MIGRATION_NOT_CONFIRMED").Errorf("down drops every table; pass --yes to confirm")
			}
			return withMigrator(cmd, env, func(m Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("All migrations reverted")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&confirm, "yes", false, "confirm dropping all tables")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "steps N",
		Short: "Apply N migrations, or revert -N",
		Long: `Steps applies N pending migrations when N is positive and reverts
-N migrations when it is negative. Separate a negative N from the flags
with "--", for example: stockctrl migrate steps -- -1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n == 0 {
				return oops.Code("INVALID_STEPS").With("input", args[0]).Errorf("steps must be a non-zero integer")
			}
			return withMigrator(cmd, env, func(m Migrator) error {
				if err := m.Steps(n); err != nil {
					return err
				}
				return printVersion(cmd, m, "Migrated")
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the recorded version without running migrations",
		Long: `Force records VERSION as applied and clears the dirty flag. Use it
to recover after a failed migration has been repaired by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, env, func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("Forced version %d\n", version)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, env, func(m Migrator) error {
				return printVersion(cmd, m, "Version")
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, env, func(m Migrator) error {
				st, err := m.Status()
				if err != nil {
					return err
				}
				cmd.Printf("Version: %d", st.Version)
				if st.Dirty {
					cmd.Print(" (dirty)")
				}
				cmd.Println()
				for _, mig := range st.Applied {
					cmd.Printf("  [x] %06d %s\n", mig.Version, mig.Name)
				}
				for _, mig := range st.Pending {
					cmd.Printf("  [ ] %06d %s\n", mig.Version, mig.Name)
				}
				cmd.Printf("%d applied, %d pending\n", len(st.Applied), len(st.Pending))
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(cmd *cobra.Command, env *cmdEnv, fn func(Migrator) error) error {
	cfg, logger, err := env.load(cmd)
	if err != nil {
		return err
	}

	m, err := env.deps.MigratorFactory(cfg.DatabaseURL, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	return fn(m)
}

func printVersion(cmd *cobra.Command, m Migrator, prefix string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		cmd.Printf("%s: %d (dirty)\n", prefix, version)
		return nil
	}
	cmd.Printf("%s: %d\n", prefix, version)
	return nil
}

func parseForceVersion(s string) (int, error) {
	version, err := strconv.Atoi(s)
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer")
	}
	if version < 0 {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be non-negative")
	}
	return version, nil
}
