package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/hole-sync/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rankings",
		Short: "Show the mini rankings for the current language",
		Long:  "Fetch the mini rankings table for the hole, language and scoring metric. Views: top, me, following.",
		Run:   runRankings,
	}

	cmd.Flags().StringP("view", "v", model.ViewMe, "Rankings view: top, me, following")

	RootCmd.AddCommand(cmd)
}

type rankingRow struct {
	model.RankingRow
	Tooltip string `json:"tooltip,omitempty"`
}

func runRankings(cmd *cobra.Command, args []string) {
	view, _ := cmd.Flags().GetString("view")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess, err := openSession(cmd.Context(), s, nil)
	if err != nil {
		exitErr("open", err)
	}

	c, err := newClient()
	if err != nil {
		exitErr("client", err)
	}

	q := sess.RankingsQuery(view)
	rows, err := c.Rankings(cmd.Context(), q)
	if err != nil {
		exitErr("rankings", err)
	}

	out := make([]rankingRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, rankingRow{RankingRow: r, Tooltip: r.Tooltip(q.Metric)})
	}
	printJSON(struct {
		Query model.RankingsQuery `json:"query"`
		Rows  []rankingRow        `json:"rows"`
	}{q, out})
}
