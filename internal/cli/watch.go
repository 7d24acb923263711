package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/hole-sync/internal/session"
	"github.com/rcliao/hole-sync/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Sync a source file with the editor state",
		Long: "Write the displayed code to <file>, then treat every save of it as an edit. " +
			"With --submit each save is also run on the server; only the latest run's verdict is merged.",
		Args: cobra.ExactArgs(1),
		Run:  runWatch,
	}

	cmd.Flags().Bool("submit", false, "Submit on every save")
	cmd.Flags().Bool("keep", false, "Do not overwrite an existing file on start")

	RootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	submit, _ := cmd.Flags().GetBool("submit")
	keep, _ := cmd.Flags().GetBool("keep")

	path, err := filepath.Abs(args[0])
	if err != nil {
		exitErr("watch", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var sub session.Submitter
	if submit {
		c, err := newClient()
		if err != nil {
			exitErr("client", err)
		}
		sub = c
	}

	sess, err := openSession(ctx, s, sub)
	if err != nil {
		exitErr("open", err)
	}

	w := &watcher{path: path, sess: sess, store: s, submit: submit}
	if err := w.start(ctx, keep); err != nil {
		exitErr("watch", err)
	}
	if err := w.run(ctx); err != nil {
		exitErr("watch", err)
	}
	w.wg.Wait()
}

type watcher struct {
	path   string
	sess   *session.Session
	store  *store.SQLiteStore
	submit bool

	mu   sync.Mutex // serializes output
	last string
	wg   sync.WaitGroup
}

func (w *watcher) start(ctx context.Context, keep bool) error {
	if b, err := os.ReadFile(w.path); err == nil && keep {
		w.edit(ctx, string(b))
		return nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	v := w.sess.View(ctx)
	w.last = v.Code
	if err := os.WriteFile(w.path, []byte(v.Code), 0644); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	w.print(v)
	return nil
}

func (w *watcher) run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Editors often save by renaming over the file, so watch its directory.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	logger.Info("watching", zap.String("file", w.path))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			b, err := os.ReadFile(w.path)
			if err != nil {
				logger.Warn("read failed", zap.String("file", w.path), zap.Error(err))
				continue
			}
			w.edit(ctx, string(b))
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *watcher) edit(ctx context.Context, code string) {
	if code == w.last {
		return
	}
	w.last = code
	w.print(w.sess.Edit(ctx, code))

	if !w.submit {
		return
	}
	submission := w.sess.Submit(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		out, err := submission.Wait(ctx)
		if err != nil && !errors.Is(err, session.ErrStale) {
			logger.Warn("submission failed", zap.String("id", submission.ID), zap.Error(err))
		}
		if out.State == session.Merged {
			if err := w.store.SaveSnapshot(ctx, holeFlag, w.sess.Snapshot()); err != nil {
				logger.Warn("save solutions", zap.Error(err))
			}
		}
		w.print(out)
	}()
}

func (w *watcher) print(v any) {
	b, _ := json.Marshal(v)
	w.mu.Lock()
	fmt.Println(string(b))
	w.mu.Unlock()
}
