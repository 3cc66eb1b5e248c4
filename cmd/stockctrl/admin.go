// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package main

import (
	"bufio"
	"encoding/json"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/stockctrl/stockctrl/internal/schema"
)

// adminPasswordEnv supplies the password for admin create without a prompt.
const adminPasswordEnv = "STOCKCTRL_ADMIN_PASSWORD"

type adminCreateFlags struct {
	username string
	email    string
	name     string
	phone    string
}

func newAdminCmd(env *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	flags := &adminCreateFlags{}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		Long: `Create an admin account. The password is read from the
` + adminPasswordEnv + ` environment variable, or from the first line of
standard input when the variable is unset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAdminCreate(cmd, env, flags)
		},
	}
	create.Flags().StringVar(&flags.username, "username", "", "admin username")
	create.Flags().StringVar(&flags.email, "email", "", "admin email address")
	create.Flags().StringVar(&flags.name, "name", "", "display name")
	create.Flags().StringVar(&flags.phone, "phone", "", "phone number (optional)")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("name")
	cmd.AddCommand(create)

	return cmd
}

func runAdminCreate(cmd *cobra.Command, env *cmdEnv, flags *adminCreateFlags) error {
	password := env.deps.Getenv(adminPasswordEnv)
	if password == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		password = strings.TrimRight(line, "\r\n")
		if password == "" {
			if err != nil {
				return oops.Code("ADMIN_PASSWORD_MISSING").Wrapf(err, "read password from stdin")
			}
			return oops.Code("ADMIN_PASSWORD_MISSING").Errorf("password is required (set %s or pipe it on stdin)", adminPasswordEnv)
		}
	}

	req := schema.AdminSignupRequest{
		Username: schema.Username(flags.username),
		Email:    flags.email,
		Password: password,
		Name:     flags.name,
	}
	if flags.phone != "" {
		req.PhoneNumber = &flags.phone
	}

	body, err := json.Marshal(req)
	if err != nil {
		return oops.Code("ADMIN_CREATE_FAILED").Wrap(err)
	}
	var validated schema.AdminSignupRequest
	if err := schema.NewValidator().ValidateJSON(schema.AdminSignup, body, &validated); err != nil {
		return err
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

	account, err := svc.directory.CreateAccount(cmd.Context(), validated.Candidate())
	if err != nil {
		return err
	}

	cmd.Printf("Created admin %s (%s)\n", account.Username, account.ID)
	return nil
}
