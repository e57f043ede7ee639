package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the Airtable credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := airtableClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.AirtableTimeout)
		defer cancel()

		started := time.Now()
		if err := client.Ping(ctx, "Keywords"); err != nil {
			return fmt.Errorf("airtable ping failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok (%d ms)\n", time.Since(started).Milliseconds())
		return nil
	},
}
