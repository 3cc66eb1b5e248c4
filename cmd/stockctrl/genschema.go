// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/stockctrl/stockctrl/internal/schema"
)

func newGenSchemaCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "gen-schema",
		Short: "Write the request JSON Schema files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(outDir, 0o750); err != nil {
				return oops.Code("SCHEMA_WRITE_FAILED").With("dir", outDir).Wrap(err)
			}
			for _, name := range schema.Names() {
				doc, err := schema.Generate(name)
				if err != nil {
					return err
				}
				outPath := filepath.Join(outDir, name+".schema.json")
				if err := os.WriteFile(outPath, doc, 0o600); err != nil {
					return oops.Code("SCHEMA_WRITE_FAILED").With("path", outPath).Wrap(err)
				}
				cmd.Printf("Generated %s\n", outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "schemas", "output directory")
	return cmd
}
