package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/levelapp/levelgo/internal/validation"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <batch.yaml|batch.json>",
		Short: "Validate a batch definition file",
		Long: `Validate a batch definition file against the batch schema without
running anything. Prints one line per violation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			violations, err := validation.ValidateBatchFile(path)
			if err != nil {
				return err
			}
			if len(violations) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path) //nolint:errcheck
				return nil
			}

			for _, v := range violations {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", v) //nolint:errcheck
			}
			return fmt.Errorf("%s has %d schema violation(s)", path, len(violations))
		},
	}
	return cmd
}
