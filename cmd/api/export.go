package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/app"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/query"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/viewmodel"
)

var (
	exportOut   string
	exportLimit int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump every mapped item of one content type as JSON",
	Long: `Dump view models for one content type, following pagination.

Examples:
  portal-api export --type briefs
  portal-api export --type articles --month "June 2025" --out articles.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKindFlag()
		if err != nil {
			return err
		}
		client, err := airtableClient()
		if err != nil {
			return err
		}

		records, err := query.ExecuteAll(context.Background(), client, kind.Table(), query.Params{
			Filter:     app.ListFormula(kind, month, ""),
			MaxRecords: exportLimit,
		})
		if err != nil {
			return fmt.Errorf("export %s: %w", kind, err)
		}
		items := viewmodel.FromRecords(kind, records)

		var out io.Writer = cmd.OutOrStdout()
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{kind.ResponseKey(): items}); err != nil {
			return err
		}
		log.Infow("export complete", "type", kind, "count", len(items))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&contentType, "type", "t", "keywords", "content type")
	exportCmd.Flags().StringVarP(&month, "month", "m", "", "only this month")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to file instead of stdout")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 10000, "maximum rows to read")
}
