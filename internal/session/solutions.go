package session

import (
	"maps"

	"github.com/rcliao/hole-sync/internal/metric"
	"github.com/rcliao/hole-sync/internal/model"
)

// Solutions is the authoritative record of best known code per language and
// metric. Only the submission merge writes to it.
type Solutions struct {
	codes model.Snapshot
}

// NewSolutions seeds the record from a snapshot. Empty code is dropped.
func NewSolutions(snap model.Snapshot) *Solutions {
	s := &Solutions{codes: model.NewSnapshot()}
	for _, m := range metric.All {
		for lang, code := range snap.Get(m) {
			if code != "" {
				s.codes.Get(m)[lang] = code
			}
		}
	}
	return s
}

// Get returns the best code for lang under m.
func (s *Solutions) Get(lang string, m metric.Metric) (string, bool) {
	code, ok := s.codes.Get(m)[lang]
	return code, ok
}

// Has reports whether lang has a solution under m.
func (s *Solutions) Has(lang string, m metric.Metric) bool {
	_, ok := s.codes.Get(m)[lang]
	return ok
}

// Pair returns both entries for lang. Missing entries are "".
func (s *Solutions) Pair(lang string) metric.Pair[string] {
	var p metric.Pair[string]
	for _, m := range metric.All {
		p.Set(m, s.codes.Get(m)[lang])
	}
	return p
}

func (s *Solutions) set(lang string, m metric.Metric, code string) {
	s.codes.Get(m)[lang] = code
}

// Snapshot returns a copy of the record.
func (s *Solutions) Snapshot() model.Snapshot {
	return model.Snapshot{maps.Clone(s.codes.Get(metric.Bytes)), maps.Clone(s.codes.Get(metric.Chars))}
}
