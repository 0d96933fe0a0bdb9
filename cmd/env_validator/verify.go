package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/env-validator/internal/schemas"
	"github.com/jonathan/env-validator/internal/types"
)

func newVerifyCommand() *cobra.Command {
	var schemaPath string

	cmd := &cobra.Command{
		Use:   "verify <export.json>",
		Short: "Check a JSON export file against the export schema",
		Long: `Checks that a JSON export file is an array of records with the fields
issue_type, item, language, element and message. Use --schema to check
against a different JSON Schema file instead of the built-in one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			if schemaPath != "" {
				if err := schemas.ValidateJSON(schemaPath, path); err != nil {
					return fmt.Errorf("%s does not match %s: %w", path, schemaPath, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
				return nil
			}

			if err := schemas.ValidateExportFile(path); err != nil {
				return fmt.Errorf("%s does not match the export schema: %w", path, err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			var records []types.ExportRecord
			if err := json.Unmarshal(data, &records); err != nil {
				return fmt.Errorf("failed to parse %s: %w", path, err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (%d records)\n", path, len(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "Path to a JSON Schema file to check against")

	return cmd
}
