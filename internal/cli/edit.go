package cli

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "edit [code]",
		Short: "Replace the code being edited",
		Long:  "Replace the edit buffer. Code can be a positional arg or piped via stdin. The draft for the active metric is updated.",
		Run:   runEdit,
	}

	RootCmd.AddCommand(cmd)
}

func runEdit(cmd *cobra.Command, args []string) {
	code, err := readCode(args)
	if err != nil {
		exitErr("read stdin", err)
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

	printJSON(sess.Edit(cmd.Context(), code))
}

// readCode takes code from the positional args, then from piped stdin.
// Code is kept verbatim since every byte counts.
func readCode(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return "", nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
