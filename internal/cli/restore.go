package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/hole-sync/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Put the saved solution back into the editor",
		Run:   runRestore,
	}

	RootCmd.AddCommand(cmd)
}

func runRestore(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess, err := openSession(cmd.Context(), s, nil)
	if err != nil {
		exitErr("open", err)
	}

	v, ok := sess.Restore(cmd.Context())
	if ok {
		// The buffer only outlives this process through the draft cache.
		v = sess.Edit(cmd.Context(), v.Code)
	}
	printJSON(struct {
		Restored bool         `json:"restored"`
		View     session.View `json:"view"`
	}{ok, v})
}
