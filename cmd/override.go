package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	fernctx "github.com/Ramsey-B/fern/pkg/context"
)

var overrideCarrierCmd = &cobra.Command{
	Use:   "override-carrier <task-id> <carrier-name>",
	Short: "Assign a carrier to an existing task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := fernctx.SetSource(cmd.Context(), SourceCLI)
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		task, err := a.processor.OverrideCarrier(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tarea %s asignada al carrier %s\n", task.ID, args[1])
		return nil
	},
}
