package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "signout",
		Short: "Forget that solutions are saved to an account",
		Long:  "Drop the remembered logged-in state. Drafts are kept for every edit again until a verdict reports a login.",
		Run:   runSignout,
	}

	RootCmd.AddCommand(cmd)
}

func runSignout(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess, err := openSession(cmd.Context(), s, nil)
	if err != nil {
		exitErr("open", err)
	}

	printJSON(sess.SignOut(cmd.Context()))
}
