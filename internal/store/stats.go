package store

import (
	"context"
	"fmt"
	"os"
	"sort"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string      `json:"db_path"`
	DBSizeBytes int64       `json:"db_size_bytes"`
	Drafts      int         `json:"drafts"`
	DraftBytes  int64       `json:"draft_bytes"`
	Quota       int64       `json:"quota,omitempty"`
	Solutions   int         `json:"solutions"`
	Holes       []HoleStats `json:"holes"`
}

// HoleStats holds per-hole draft counts.
type HoleStats struct {
	Hole   string `json:"hole"`
	Drafts int    `json:"drafts"`
	Langs  int    `json:"langs"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath, Quota: s.quota, Holes: []HoleStats{}}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM solutions`).Scan(&st.Solutions); err != nil {
		return st, fmt.Errorf("count solutions: %w", err)
	}

	drafts, err := s.Drafts(ctx, "")
	if err != nil {
		return st, err
	}

	byHole := map[string]*HoleStats{}
	langs := map[string]map[string]bool{}
	for _, d := range drafts {
		st.Drafts++
		st.DraftBytes += int64(len(d.Code))

		hs, ok := byHole[d.Hole]
		if !ok {
			hs = &HoleStats{Hole: d.Hole}
			byHole[d.Hole] = hs
			langs[d.Hole] = map[string]bool{}
		}
		hs.Drafts++
		langs[d.Hole][d.Lang] = true
	}

	for hole, hs := range byHole {
		hs.Langs = len(langs[hole])
		st.Holes = append(st.Holes, *hs)
	}
	sort.Slice(st.Holes, func(i, j int) bool {
		if st.Holes[i].Drafts != st.Holes[j].Drafts {
			return st.Holes[i].Drafts > st.Holes[j].Drafts
		}
		return st.Holes[i].Hole < st.Holes[j].Hole
	})

	return st, nil
}
