// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/stockctrl/stockctrl/internal/auth"
	"github.com/stockctrl/stockctrl/internal/schema"
)

const defaultSeedTimeout = 30 * time.Second

func newSeedAdminsCmd(env *cmdEnv) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "seed-admins FILE",
		Short: "Create admin accounts from a YAML file",
		Long: `Creates the admin accounts listed in a YAML seed file.
This command is idempotent - accounts whose username already exists are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedAdmins(cmd, env, args[0], timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	return cmd
}

func runSeedAdmins(cmd *cobra.Command, env *cmdEnv, path string, timeout time.Duration) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied seed file
	if err != nil {
		return oops.Code("SEED_READ_FAILED").With("path", path).Wrap(err)
	}

	var seed schema.SeedFile
	if err := schema.NewValidator().ValidateYAML(schema.Seed, data, &seed); err != nil {
		return oops.With("path", path).Wrap(err)
	}

	cfg, logger, err := env.load(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	svc, err := env.openServices(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer svc.backend.Close()

	var created, skipped int
	for i, admin := range seed.Admins {
		account, createErr := svc.directory.CreateAccount(ctx, admin.Candidate())
		switch {
		case errors.Is(createErr, auth.ErrUsernameTaken):
			skipped++
			cmd.Printf("Skipped %s (already exists)\n", admin.Candidate().Username)
		case createErr != nil:
			return oops.Code("SEED_FAILED").
				With("path", path).
				With("index", i).
				Wrap(createErr)
		default:
			created++
			cmd.Printf("Created admin %s (%s)\n", account.Username, account.ID)
		}
	}

	logger.Info("admin seed complete", "path", path, "created", created, "skipped", skipped)
	cmd.Printf("%d created, %d skipped\n", created, skipped)
	return nil
}
