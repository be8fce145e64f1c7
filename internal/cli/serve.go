package cli

import (
	"github.com/spf13/cobra"

	"NewsSummarizer/internal/app"
	"NewsSummarizer/internal/config"
	"NewsSummarizer/internal/logging"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP endpoint, the summarizer worker and the maintenance scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			logger.Info("starting news summarizer",
				"version", version,
				"provider", cfg.Summarizer.Provider,
				"model", cfg.Summarizer.Model,
				"database", cfg.Database.Driver)

			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Run(cmd.Context())
		},
	}
}
