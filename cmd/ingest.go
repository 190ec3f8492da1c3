package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/processor"
)

const SourceCLI = "cli"

var ingestFlags struct {
	carrierHint string
	client      string
	artifact    bool
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|->",
	Short: "Process a notification file (.txt, .eml) or raw text from stdin",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFlags.carrierHint, "carrier-hint", "", "carrier to assume when the text names none")
	ingestCmd.Flags().StringVar(&ingestFlags.client, "client", "", "customer the notice is addressed to")
	ingestCmd.Flags().BoolVar(&ingestFlags.artifact, "artifact", false, "write the customer notice for the task")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	client := a.client(ingestFlags.client)
	ctx = fernctx.SetSource(ctx, SourceCLI)
	ctx = fernctx.SetClient(ctx, client)

	var hint *string
	if ingestFlags.carrierHint != "" {
		hint = &ingestFlags.carrierHint
	}

	var result *models.ProcessResult
	if args[0] == "-" {
		text, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		result, err = a.processor.ProcessNotification(ctx, string(text), hint)
		if err != nil {
			return err
		}
	} else {
		body, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		result, err = a.processor.ProcessDocument(ctx, filepath.Base(args[0]), body, hint)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, processor.FormatSummary(result, a.processor.Location()))

	if !ingestFlags.artifact {
		return nil
	}
	detail, err := a.processor.TaskDetail(ctx, result.Task.ID)
	if err != nil {
		return err
	}
	written, err := a.artifacts.Generate(ctx, detail, client)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Aviso generado: %s\n", written.Path)
	return nil
}
