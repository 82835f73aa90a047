package commands

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"linkedin-insights/models"
)

var pagesFlags struct {
	minFollowers int64
	maxFollowers int64
	industry     string
	name         string
	skip         int
	limit        int
}

func init() {
	f := pagesCmd.Flags()
	f.Int64Var(&pagesFlags.minFollowers, "min-followers", -1, "lower follower bound (inclusive)")
	f.Int64Var(&pagesFlags.maxFollowers, "max-followers", -1, "upper follower bound (inclusive)")
	f.StringVar(&pagesFlags.industry, "industry", "", "industry substring")
	f.StringVar(&pagesFlags.name, "name", "", "name substring")
	f.IntVar(&pagesFlags.skip, "skip", 0, "rows to skip")
	f.IntVar(&pagesFlags.limit, "limit", 10, "rows to return (1-100)")
	rootCmd.AddCommand(pagesCmd)
}

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Lists stored pages using the same filters as GET /api/v1/pages.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		filter := models.PageFilter{
			Pagination: models.Pagination{Skip: pagesFlags.skip, Limit: pagesFlags.limit},
			Industry:   pagesFlags.industry,
			NameSearch: pagesFlags.name,
		}
		if pagesFlags.minFollowers >= 0 {
			filter.MinFollowers = &pagesFlags.minFollowers
		}
		if pagesFlags.maxFollowers >= 0 {
			filter.MaxFollowers = &pagesFlags.maxFollowers
		}

		pages, err := a.Pages.ListPages(cmd.Context(), filter)
		if err != nil {
			return err
		}

		t := newTable(cmd)
		t.AppendHeader(table.Row{"Page", "Name", "Industry", "Followers", "Updated"})
		for _, p := range pages {
			industry := ""
			if p.Industry != nil {
				industry = *p.Industry
			}
			t.AppendRow(table.Row{p.PageID, p.Name, industry, formatCount(p.FollowersCount), p.UpdatedAt.Local().Format("2006-01-02 15:04")})
		}
		t.AppendFooter(table.Row{"", "", "", "Total", len(pages)})
		t.Render()
		return nil
	},
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	return t
}

func formatCount(n *int64) string {
	if n == nil {
		return "-"
	}
	return strconv.FormatInt(*n, 10)
}

