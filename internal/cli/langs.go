package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/hole-sync/internal/metric"
)

func init() {
	cmd := &cobra.Command{
		Use:   "langs",
		Short: "List known languages",
		Run:   runLangs,
	}

	RootCmd.AddCommand(cmd)
}

type langInfo struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Metrics  []metric.Metric `json:"metrics"`
	Fallback bool            `json:"fallback,omitempty"`
}

func runLangs(cmd *cobra.Command, args []string) {
	reg, err := loadRegistry()
	if err != nil {
		exitErr("registry", err)
	}

	out := []langInfo{}
	for _, l := range reg.Sorted() {
		out = append(out, langInfo{ID: l.ID, Name: l.Name, Metrics: l.Metrics, Fallback: l.ID == reg.Fallback()})
	}
	printJSON(out)
}
