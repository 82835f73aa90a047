package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"linkedin-insights/internal/config"
)

var (
	refreshOlderThan time.Duration
	refreshLimit     int
)

func init() {
	refreshStaleCmd.Flags().DurationVar(&refreshOlderThan, "older-than", 0, "refresh pages not updated within this window (default STALE_AFTER)")
	refreshStaleCmd.Flags().IntVar(&refreshLimit, "limit", 0, "maximum pages to refresh (default REFRESH_BATCH)")
	rootCmd.AddCommand(refreshStaleCmd)
}

var refreshStaleCmd = &cobra.Command{
	Use:   "refresh-stale",
	Short: "Re-scrapes stored pages older than the stale window, inline and without the worker.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, limit := staleWindow(configFrom(cmd), refreshOlderThan, refreshLimit)

		a, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		refreshed, failed, err := a.Pages.RefreshStale(cmd.Context(), time.Now().Add(-olderThan), limit)
		fmt.Fprintf(cmd.OutOrStdout(), "refreshed %d pages, %d failed\n", refreshed, failed)
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d stale pages failed to refresh", failed)
		}
		return nil
	},
}

// staleWindow falls back to the configured sweep settings for unset flags.
func staleWindow(cfg *config.Config, olderThan time.Duration, limit int) (time.Duration, int) {
	if olderThan <= 0 {
		olderThan = cfg.StaleAfter
	}
	if olderThan <= 0 {
		olderThan = 24 * time.Hour
	}
	if limit <= 0 {
		limit = cfg.RefreshBatch
	}
	if limit <= 0 {
		limit = 20
	}
	return olderThan, limit
}
