package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/store"
)

var failedSince time.Duration

var failedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List approval writes that failed and may need reconciling",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("DATABASE_URL is not set")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		events, err := store.NewPostgresStore(db).FailedSince(ctx, time.Now().Add(-failedSince))
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No failed approval writes.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tITEM\tTYPE\tSTATUS\tUSER\tERROR")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.CreatedAt.Format(time.RFC3339), e.ItemID, e.ContentType, e.Status, e.UserID, e.Error)
		}
		return w.Flush()
	},
}

func init() {
	failedCmd.Flags().DurationVar(&failedSince, "since", 24*time.Hour, "look back this far")
}
