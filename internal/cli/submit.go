package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/hole-sync/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "submit [code]",
		Short: "Run the edited code on the server",
		Long: "Submit the edit buffer (or the given code) and wait for the verdict. A passing " +
			"verdict updates the stored solutions and drafts.",
		Run: runSubmit,
	}

	cmd.Flags().Duration("wait", 0, "Give up waiting for the verdict after this long (default: server timeout)")

	RootCmd.AddCommand(cmd)
}

func runSubmit(cmd *cobra.Command, args []string) {
	wait, _ := cmd.Flags().GetDuration("wait")

	code, err := readCode(args)
	if err != nil {
		exitErr("read stdin", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	c, err := newClient()
	if err != nil {
		exitErr("client", err)
	}

	ctx := cmd.Context()
	sess, err := openSession(ctx, s, c)
	if err != nil {
		exitErr("open", err)
	}
	if code != "" {
		sess.Edit(ctx, code)
	}

	if wait <= 0 {
		wait = cfg.Server.Timeout + 5*time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	out, err := sess.Submit(ctx).Wait(waitCtx)
	if err != nil {
		if errors.Is(err, session.ErrTransport) {
			exitErr("submit", err)
		}
		exitErr("wait", err)
	}

	if err := s.SaveSnapshot(ctx, holeFlag, sess.Snapshot()); err != nil {
		exitErr("save solutions", err)
	}
	printJSON(out)
}
