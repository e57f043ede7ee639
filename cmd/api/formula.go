package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/app"
)

var formulaClient string

var formulaCmd = &cobra.Command{
	Use:   "formula",
	Short: "Print the filter formula a list request would send",
	Long: `Print the filterByFormula expression for a list request.

Examples:
  portal-api formula --type articles --month "May 2025"
  portal-api formula --type keywords --client recXXXXXXXXXXXXXX`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKindFlag()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), app.ListFormula(kind, month, formulaClient))
		return nil
	},
}

func init() {
	formulaCmd.Flags().StringVarP(&contentType, "type", "t", "keywords", "content type")
	formulaCmd.Flags().StringVarP(&month, "month", "m", "", `month label, e.g. "May 2025"`)
	formulaCmd.Flags().StringVarP(&formulaClient, "client", "c", "", "client record id")
}
