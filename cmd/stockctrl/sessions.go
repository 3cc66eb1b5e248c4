// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package main

import (
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/stockctrl/stockctrl/internal/auth"
)

func newSessionsCmd(env *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain session tokens",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete expired and revoked sessions past the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := env.load(cmd)
			if err != nil {
				return err
			}
			svc, err := env.openServices(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}
			defer svc.backend.Close()

			sweeper, err := auth.NewSweeper(svc.backend.Sessions, cfg.SweepSchedule, cfg.SweepRetention,
				auth.WithLogger(logger))
			if err != nil {
				return err
			}
			n, err := sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Deleted %d sessions\n", n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "revoke TOKEN",
		Short: "Revoke a single session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := env.load(cmd)
			if err != nil {
				return err
			}
			svc, err := env.openServices(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}
			defer svc.backend.Close()

			if err := svc.authn.Revoke(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Println("Session revoked")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "revoke-account ACCOUNT_ID",
		Short: "Revoke every live session of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := ulid.Parse(args[0])
			if err != nil {
				return oops.Code("INVALID_ACCOUNT_ID").With("input", args[0]).Wrap(err)
			}

			cfg, logger, err := env.load(cmd)
			if err != nil {
				return err
			}
			svc, err := env.openServices(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}
			defer svc.backend.Close()

			n, err := svc.authn.RevokeAll(cmd.Context(), accountID)
			if err != nil {
				return err
			}
			cmd.Printf("Revoked %d sessions\n", n)
			return nil
		},
	})

	return cmd
}
