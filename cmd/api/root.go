package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/airtable"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/config"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/logging"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/viewmodel"
)

var (
	cfg    config.Config
	logger *zap.Logger
	log    *zap.SugaredLogger

	contentType string
	month       string
)

var rootCmd = &cobra.Command{
	Use:           "portal-api",
	Short:         "Client portal API",
	Long:          "Serves the client portal API over an Airtable base and provides maintenance commands.",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		l, err := logging.Init(logging.ConfigFromEnv())
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		log = l.Sugar()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(formulaCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(failedCmd)
}

func airtableClient() (*airtable.Client, error) {
	return airtable.New(airtable.Config{
		APIKey:    cfg.AirtableAPIKey,
		BaseID:    cfg.AirtableBaseID,
		BaseURL:   cfg.AirtableAPIURL,
		RateLimit: cfg.AirtableRateLimit,
	})
}

func parseKindFlag() (viewmodel.Kind, error) {
	kind, ok := viewmodel.ParseKind(contentType)
	if !ok {
		return "", fmt.Errorf("unknown --type %q (want keywords, briefs, articles or backlinks)", contentType)
	}
	return kind, nil
}
