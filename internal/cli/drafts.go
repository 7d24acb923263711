package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/hole-sync/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Manage locally cached drafts",
		Long:  "List, export, import or clear drafts. Commands act on --hole when given, otherwise on every hole.",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List drafts",
			Run:   runDraftsList,
		},
		&cobra.Command{
			Use:   "export",
			Short: "Export drafts as JSON",
			Run:   runDraftsExport,
		},
		&cobra.Command{
			Use:   "import",
			Short: "Import drafts from JSON on stdin",
			Long:  "Import drafts from stdin. Accepts the format produced by export or a bare array of drafts.",
			Run:   runDraftsImport,
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete drafts",
			Run:   runDraftsClear,
		},
	)

	RootCmd.AddCommand(cmd)
}

func runDraftsList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	drafts, err := s.Drafts(cmd.Context(), holeFlag)
	if err != nil {
		exitErr("list", err)
	}
	printJSON(drafts)
}

func runDraftsExport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	drafts, err := s.Drafts(cmd.Context(), holeFlag)
	if err != nil {
		exitErr("export", err)
	}
	printJSON(store.NewExport(drafts))
}

func runDraftsImport(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var drafts []store.Draft
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &drafts)
	} else {
		var exp store.Export
		err = json.Unmarshal(data, &exp)
		drafts = exp.Drafts
	}
	if err != nil {
		exitErr("parse json", err)
	}

	if holeFlag != "" {
		kept := drafts[:0]
		for _, d := range drafts {
			if d.Hole == holeFlag {
				kept = append(kept, d)
			}
		}
		drafts = kept
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.ImportDrafts(cmd.Context(), drafts)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}

func runDraftsClear(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	removed, err := s.ClearDrafts(cmd.Context(), holeFlag)
	if err != nil {
		exitErr("clear", err)
	}

	fmt.Printf(`{"ok":true,"removed":%d}`+"\n", removed)
}
