// Package commands implements insightsctl, the operator CLI for the page store and cache.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"linkedin-insights/internal/app"
	"linkedin-insights/internal/config"
	"linkedin-insights/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "insightsctl",
	Short: "insightsctl manages stored LinkedIn pages, the page cache and admin tokens.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		logger.InitLogger(cfg)
		cmd.SetContext(withConfig(cmd.Context(), cfg))
		return nil
	},
	SilenceUsage: true,
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(cmd *cobra.Command) *config.Config {
	return cmd.Context().Value(configKey{}).(*config.Config)
}

// buildApp connects every backend. Callers must Close the result.
func buildApp(cmd *cobra.Command) (*app.App, error) {
	return app.Build(cmd.Context(), configFrom(cmd))
}
