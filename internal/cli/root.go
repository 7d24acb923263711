// Package cli implements the hole-sync CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/hole-sync/internal/client"
	"github.com/rcliao/hole-sync/internal/config"
	"github.com/rcliao/hole-sync/internal/logging"
	"github.com/rcliao/hole-sync/internal/model"
	"github.com/rcliao/hole-sync/internal/session"
	"github.com/rcliao/hole-sync/internal/store"
)

var (
	dbPath        string
	configPath    string
	holeFlag      string
	langFlag      string
	solutionsFlag string
	registryFlag  string
	experimental  bool
	loggedIn      bool

	cfg    *config.Config
	logger = zap.NewNop()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "hole-sync",
	Short: "Keep code.golf drafts and solutions in sync",
	Long: "Edit, restore and submit code.golf solutions from the terminal. Drafts live in a local " +
		"SQLite cache; verdicts from the server are merged back the way the browser editor does.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		c, err := config.Load(config.DataDir(), configPath)
		if err != nil {
			exitErr("load config", err)
		}
		cfg = c

		l, err := logging.Init(cfg.Log)
		if err != nil {
			exitErr("init logger", err)
		}
		logger = l
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $HOLE_SYNC_DB or ~/.hole-sync/hole-sync.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.hole-sync/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&holeFlag, "hole", "H", "", "Hole id, e.g. fizz-buzz")
	RootCmd.PersistentFlags().StringVarP(&langFlag, "lang", "l", "", "Language id (default: last used)")
	RootCmd.PersistentFlags().StringVar(&solutionsFlag, "solutions", "", "JSON file with the server's [bytes, chars] solution maps")
	RootCmd.PersistentFlags().StringVar(&registryFlag, "registry", "", "YAML language registry (default: built-in)")
	RootCmd.PersistentFlags().BoolVar(&experimental, "experimental", false, "Hole is experimental; solutions are not saved server side")
	RootCmd.PersistentFlags().BoolVar(&loggedIn, "logged-in", false, "Solutions are recorded against an account")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.DB
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath(), store.WithQuota(cfg.Storage.Quota))
}

func loadRegistry() (*model.Registry, error) {
	path := registryFlag
	if path == "" {
		path = cfg.Registry
	}

	reg := model.DefaultRegistry()
	if path != "" {
		r, err := model.LoadRegistry(path)
		if err != nil {
			return nil, err
		}
		reg = r
	}
	if cfg.FallbackLang != "" && cfg.FallbackLang != reg.Fallback() {
		return model.NewRegistry(reg.Sorted(), cfg.FallbackLang)
	}
	return reg, nil
}

func newClient() (*client.Client, error) {
	return client.New(cfg.Server.URL,
		client.WithTimeout(cfg.Server.Timeout),
		client.WithSession(cfg.Server.Session),
		client.WithLogger(logger.Named("client")),
	)
}

// openSession opens the --hole session backed by s. The authoritative
// solutions come from --solutions when given, otherwise from the last merge
// stored in s.
func openSession(ctx context.Context, s *store.SQLiteStore, sub session.Submitter) (*session.Session, error) {
	if holeFlag == "" {
		return nil, errors.New("--hole is required")
	}

	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}

	var snap model.Snapshot
	if solutionsFlag != "" {
		f, err := os.Open(solutionsFlag)
		if err != nil {
			return nil, fmt.Errorf("open solutions: %w", err)
		}
		defer f.Close()
		if snap, err = model.DecodeSnapshot(f); err != nil {
			return nil, fmt.Errorf("solutions %s: %w", solutionsFlag, err)
		}
		if err := s.SaveSnapshot(ctx, holeFlag, snap); err != nil {
			return nil, err
		}
	} else if snap, _, err = s.LoadSnapshot(ctx, holeFlag); err != nil {
		return nil, err
	}

	owner := model.Anonymous
	if loggedIn || cfg.Server.Session != "" {
		owner = model.LoggedIn
	}

	return session.New(ctx, session.Options{
		Hole:         holeFlag,
		Experimental: experimental,
		Registry:     reg,
		Snapshot:     snap,
		Drafts:       store.NewLocalCache(s, logger.Named("drafts")),
		Submitter:    sub,
		Ownership:    owner,
		Lang:         langFlag,
		Logger:       logger.Named("session"),
	})
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
