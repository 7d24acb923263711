package store

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/hole-sync/internal/metric"
)

// Export is a portable set of drafts, e.g. for moving them between devices.
type Export struct {
	ID         string    `json:"id"`
	ExportedAt time.Time `json:"exported_at"`
	Drafts     []Draft   `json:"drafts"`
}

// NewExport wraps drafts in an export with a fresh id.
func NewExport(drafts []Draft) Export {
	if drafts == nil {
		drafts = []Draft{}
	}
	return Export{ID: ulid.Make().String(), ExportedAt: time.Now().UTC(), Drafts: drafts}
}

// Draft is an exported draft slot.
type Draft struct {
	Hole   string        `json:"hole"`
	Lang   string        `json:"lang"`
	Metric metric.Metric `json:"metric"`
	Code   string        `json:"code"`
}

// Key returns the slot the draft belongs to.
func (d Draft) Key() Key {
	return Key{Hole: d.Hole, Lang: d.Lang, Metric: d.Metric}
}

// Drafts returns all stored drafts, optionally filtered by hole.
func (s *SQLiteStore) Drafts(ctx context.Context, hole string) ([]Draft, error) {
	prefix := draftPrefix
	if hole != "" {
		prefix += hole + "_"
	}

	entries, err := s.Entries(ctx, prefix)
	if err != nil {
		return nil, err
	}

	drafts := []Draft{}
	for _, e := range entries {
		k, ok := ParseKey(e.Key)
		if !ok || (hole != "" && k.Hole != hole) {
			continue
		}
		drafts = append(drafts, Draft{
			Hole: k.Hole, Lang: k.Lang, Metric: k.Metric, Code: e.Value,
		})
	}
	return drafts, nil
}

// ImportDrafts stores drafts from an export, overwriting existing slots.
// Incomplete drafts are skipped.
func (s *SQLiteStore) ImportDrafts(ctx context.Context, drafts []Draft) (int, error) {
	imported := 0
	for _, d := range drafts {
		if d.Hole == "" || d.Lang == "" || d.Code == "" {
			continue
		}
		if err := s.Set(ctx, d.Key().String(), d.Code); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

// ClearDrafts removes every draft of hole, or of every hole when hole is
// empty. It returns the number removed.
func (s *SQLiteStore) ClearDrafts(ctx context.Context, hole string) (int, error) {
	drafts, err := s.Drafts(ctx, hole)
	if err != nil {
		return 0, err
	}
	for _, d := range drafts {
		if err := s.Remove(ctx, d.Key().String()); err != nil {
			return 0, err
		}
	}
	return len(drafts), nil
}
