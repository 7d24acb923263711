package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a hole and show the editor state",
		Long: "Open a hole in the given (or last used) language and print what the editor shows: " +
			"the code, its strokes, the metric picker and the restore affordance.",
		Run: runOpen,
	}

	RootCmd.AddCommand(cmd)
}

func runOpen(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess, err := openSession(cmd.Context(), s, nil)
	if err != nil {
		exitErr("open", err)
	}

	printJSON(sess.View(cmd.Context()))
}
