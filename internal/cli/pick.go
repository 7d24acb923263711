package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/hole-sync/internal/metric"
)

func init() {
	pick := &cobra.Command{
		Use:   "pick <bytes|chars>",
		Short: "Switch the solution being edited",
		Args:  cobra.ExactArgs(1),
		Run:   runPick,
	}

	scoring := &cobra.Command{
		Use:   "scoring <bytes|chars>",
		Short: "Switch the rankings metric",
		Args:  cobra.ExactArgs(1),
		Run:   runScoring,
	}

	RootCmd.AddCommand(pick, scoring)
}

func runPick(cmd *cobra.Command, args []string) {
	m, err := metric.Parse(args[0])
	if err != nil {
		exitErr("pick", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess, err := openSession(cmd.Context(), s, nil)
	if err != nil {
		exitErr("open", err)
	}

	v, err := sess.SelectMetric(cmd.Context(), m)
	if err != nil {
		exitErr("pick", err)
	}
	printJSON(v)
}

func runScoring(cmd *cobra.Command, args []string) {
	m, err := metric.Parse(args[0])
	if err != nil {
		exitErr("scoring", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess, err := openSession(cmd.Context(), s, nil)
	if err != nil {
		exitErr("open", err)
	}

	printJSON(sess.SelectRankingMetric(cmd.Context(), m))
}
