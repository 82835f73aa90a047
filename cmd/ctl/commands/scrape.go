package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"linkedin-insights/services"
)

var scrapeForce bool

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeForce, "force", false, "scrape even when the page is cached")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <page_id>...",
	Short: "Scrapes and stores the given company pages.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		t := newTable(cmd)
		t.AppendHeader(table.Row{"Page", "Name", "Followers", "Posts", "Employees", "Result"})

		failed := 0
		for _, id := range args {
			detail, err := a.Pages.GetPage(cmd.Context(), id, services.GetPageOptions{
				IncludePosts:     true,
				IncludeEmployees: true,
				ForceRescrape:    scrapeForce,
			})
			if err != nil {
				failed++
				t.AppendRow(table.Row{id, "", "", "", "", err.Error()})
				continue
			}
			t.AppendRow(table.Row{
				detail.PageID,
				detail.Name,
				formatCount(detail.FollowersCount),
				len(detail.Posts),
				len(detail.Employees),
				"ok",
			})
		}
		t.Render()

		if failed > 0 {
			return fmt.Errorf("%d of %d pages failed", failed, len(args))
		}
		return nil
	},
}
