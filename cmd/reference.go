package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/models"
)

// carrier and service reference data

var carrierCmd = &cobra.Command{
	Use:   "carrier",
	Short: "Manage known carriers",
}

var carrierAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a carrier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		created, err := a.carriers.Create(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", created.ID, created.Name)
		return nil
	},
}

var carrierListCmd = &cobra.Command{
	Use:   "list",
	Short: "List carriers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		carriers, err := a.carriers.List(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME")
		for _, c := range carriers {
			fmt.Fprintf(w, "%s\t%s\n", c.ID, c.Name)
		}
		return w.Flush()
	},
}

var serviceFlags struct {
	name    string
	carrier string
}

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage known services",
}

var serviceAddCmd = &cobra.Command{
	Use:   "add <carrier-side-id>",
	Short: "Register a service by the code carriers use for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		svc := models.Service{CarrierSideID: &args[0]}
		if serviceFlags.name != "" {
			svc.Name = &serviceFlags.name
		}
		if serviceFlags.carrier != "" {
			owner, err := a.resolver.Resolve(ctx, &serviceFlags.carrier)
			if err != nil {
				return err
			}
			if owner == nil {
				return fmt.Errorf("unknown carrier %q", serviceFlags.carrier)
			}
			svc.CarrierID = &owner.ID
		}

		created, err := a.services.Create(ctx, svc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", created.ID, created.DisplayID())
		return nil
	},
}

func init() {
	carrierCmd.AddCommand(carrierAddCmd, carrierListCmd)

	serviceAddCmd.Flags().StringVar(&serviceFlags.name, "name", "", "service description")
	serviceAddCmd.Flags().StringVar(&serviceFlags.carrier, "carrier", "", "owning carrier name")
	serviceCmd.AddCommand(serviceAddCmd)
}
