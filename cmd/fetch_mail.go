package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/mailbox"
)

var fetchMailFlags struct {
	carrierHint string
	limit       int
}

var fetchMailCmd = &cobra.Command{
	Use:   "fetch-mail",
	Short: "Process the unseen messages of the configured IMAP mailbox once",
	Args:  cobra.NoArgs,
	RunE:  runFetchMail,
}

func init() {
	fetchMailCmd.Flags().StringVar(&fetchMailFlags.carrierHint, "carrier-hint", "", "carrier to assume when a message names none")
	fetchMailCmd.Flags().IntVar(&fetchMailFlags.limit, "limit", 0, "maximum messages to handle, overrides imap_limit")
}

func runFetchMail(cmd *cobra.Command, _ []string) error {
	mailboxConfig := cfg.Mailbox()
	if mailboxConfig.Host == "" {
		return fmt.Errorf("imap_host is not configured")
	}
	if fetchMailFlags.limit > 0 {
		mailboxConfig.Limit = fetchMailFlags.limit
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	var hint *string
	if fetchMailFlags.carrierHint != "" {
		hint = &fetchMailFlags.carrierHint
	}

	report, err := mailbox.NewFetcher(mailboxConfig, nil, a.processor, logger).Run(ctx, hint)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
