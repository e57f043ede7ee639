package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/approval"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/status"
)

var (
	approveID     string
	approveStatus string
	approveReason string
	approveDryRun bool
)

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Write one approval decision to the base",
	Long: `Write one approval decision, bypassing the portal.

Examples:
  portal-api approve --type articles --id recXXXX --status approved
  portal-api approve --type briefs --id recXXXX --status revisions_needed --reason "wrong angle" --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		canonical, ok := status.Parse(approveStatus)
		if !ok {
			return fmt.Errorf("unknown --status %q", approveStatus)
		}
		req := approval.Request{
			ContentType:    contentType,
			RecordID:       approveID,
			Status:         canonical,
			RevisionReason: approveReason,
		}
		kind, values, err := approval.Patch(req)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if approveDryRun {
			return enc.Encode(map[string]any{"table": kind.Table(), "id": approveID, "fields": values})
		}

		client, err := airtableClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.AirtableTimeout)
		defer cancel()
		record, err := approval.NewUpdater(client).Update(ctx, req)
		if err != nil {
			return err
		}
		return enc.Encode(record)
	},
}

func init() {
	approveCmd.Flags().StringVarP(&contentType, "type", "t", "keywords", "content type")
	approveCmd.Flags().StringVar(&approveID, "id", "", "record id (required)")
	approveCmd.Flags().StringVarP(&approveStatus, "status", "s", "", "canonical status, e.g. approved (required)")
	approveCmd.Flags().StringVarP(&approveReason, "reason", "r", "", "revision reason")
	approveCmd.Flags().BoolVarP(&approveDryRun, "dry-run", "n", false, "print the field patch without writing")
	_ = approveCmd.MarkFlagRequired("id")
	_ = approveCmd.MarkFlagRequired("status")
}
