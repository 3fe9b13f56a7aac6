package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/levelapp/levelgo/internal/projectconfig"
	"github.com/levelapp/levelgo/internal/wizard"
)

func newNewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <batch-id>",
		Short: "Scaffold a new batch definition file",
		Long: `Scaffold a new batch definition file.

When running in a terminal (TTY), launches an interactive wizard to collect
the batch metadata and first interaction. In non-interactive environments
(CI, pipes), a minimal template is written with placeholder content.

The file is written to the project batches directory (from .levelapp.yaml),
or the current directory when no project config exists.`,
		Args: cobra.ExactArgs(1),
		RunE: newCommandE,
	}
	return cmd
}

func newCommandE(cmd *cobra.Command, args []string) error {
	batchID := args[0]

	if err := wizard.ValidateID(batchID); err != nil {
		return err
	}

	cfg, err := projectconfig.Load(".")
	if err != nil {
		return err
	}

	spec := &wizard.BatchSpec{
		ID:             batchID,
		Name:           batchID,
		Description:    "Describe what this batch tests",
		UserMessage:    "Hello, I need help.",
		ReferenceReply: "Hello! How can I help you today?",
	}

	// Check TTY from the command's input stream, not os.Stdin directly.
	inReader := cmd.InOrStdin()
	isTTY := false
	if f, ok := inReader.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	if isTTY {
		spec, err = wizard.RunBatchWizard(cmd.InOrStdin(), cmd.OutOrStdout(), batchID)
		if err != nil {
			return err
		}
		if spec.ID != batchID {
			return fmt.Errorf("wizard batch id %q does not match CLI argument %q", spec.ID, batchID)
		}
	}

	content, err := wizard.GenerateBatchYAML(spec)
	if err != nil {
		return err
	}

	dir := cfg.Paths.Batches
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	path := filepath.Join(dir, batchID+".yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path) //nolint:errcheck
	return nil
}
