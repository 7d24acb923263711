// Package session reconciles the edit buffer, the device draft cache and the
// authoritative solutions for one hole, and runs submissions against it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rcliao/hole-sync/internal/metric"
	"github.com/rcliao/hole-sync/internal/model"
	"github.com/rcliao/hole-sync/internal/store"
)

// Options configures a Session.
type Options struct {
	Hole         string
	Experimental bool
	Registry     *model.Registry
	Snapshot     model.Snapshot
	Drafts       *store.LocalCache
	Submitter    Submitter
	// Ownership is the initial ownership. LoggedIn reported by an earlier
	// session on this device is remembered and wins over Anonymous.
	Ownership model.Ownership
	// Lang is the initial language. When empty the last chosen language is
	// used.
	Lang   string
	Logger *zap.Logger
}

// Session is the state of one opened hole. All methods are safe for
// concurrent use; each one is applied as a single unit.
type Session struct {
	mu sync.Mutex

	hole         string
	experimental bool
	registry     *model.Registry
	solutions    *Solutions
	drafts       *store.LocalCache
	submitter    Submitter
	log          *zap.Logger

	sel    Selection
	buffer string
	latest uint64
}

// New opens a session and displays the initial language.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Hole == "" {
		return nil, errors.New("hole is required")
	}
	if opts.Drafts == nil {
		return nil, errors.New("draft cache is required")
	}
	if opts.Registry == nil {
		opts.Registry = model.DefaultRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Session{
		hole:         opts.Hole,
		experimental: opts.Experimental,
		registry:     opts.Registry,
		solutions:    NewSolutions(opts.Snapshot),
		drafts:       opts.Drafts,
		submitter:    opts.Submitter,
		log:          opts.Logger.With(zap.String("hole", opts.Hole)),
		sel: Selection{
			Hole:          opts.Hole,
			Metric:        opts.Drafts.MetricPref(ctx, store.PrefSolution),
			RankingMetric: opts.Drafts.MetricPref(ctx, store.PrefScoring),
			Ownership:     opts.Ownership,
		},
	}
	if opts.Drafts.Pref(ctx, store.PrefOwner) == model.LoggedIn.String() {
		s.sel.Ownership = model.LoggedIn
	}

	s.selectLanguage(ctx, opts.Lang)
	return s, nil
}

// Selection returns the current selection.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// Buffer returns the code currently being edited.
func (s *Session) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// Snapshot returns a copy of the authoritative solutions.
func (s *Session) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.solutions.Snapshot()
}

// SelectLanguage switches to the language with the given id. Unknown ids
// select the registry's fallback language.
func (s *Session) SelectLanguage(ctx context.Context, id string) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectLanguage(ctx, id)
	return s.view(ctx)
}

// SelectMetric switches the edited solution slot, as a click on the metric
// picker does. Selecting the active metric changes nothing.
func (s *Session) SelectMetric(ctx context.Context, m metric.Metric) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m == s.sel.Metric {
		return s.view(ctx), nil
	}
	lang := s.language()
	if !lang.SupportsMetric(m) {
		return s.view(ctx), fmt.Errorf("%s is not scored in %s", lang.Name, m)
	}

	s.setMetric(ctx, m)
	s.display(ctx)
	return s.view(ctx), nil
}

// SelectRankingMetric switches the rankings table. Bytes-only languages
// always rank by bytes.
func (s *Session) SelectRankingMetric(ctx context.Context, m metric.Metric) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.language().BytesOnly() {
		m = metric.Bytes
	}
	s.sel.RankingMetric = m
	s.drafts.SetMetricPref(ctx, store.PrefScoring, m)
	return s.view(ctx)
}

// RankingsQuery returns the rankings query for the current selection.
func (s *Session) RankingsQuery(view string) model.RankingsQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.RankingsQuery{
		Hole:   s.hole,
		Lang:   s.sel.Lang,
		Metric: s.sel.RankingMetric,
		View:   model.NormalizeView(view),
	}
}

// Edit replaces the edit buffer and updates the draft for the active slot.
func (s *Session) Edit(ctx context.Context, code string) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = code

	lang := s.language()
	k := s.key(s.sel.Metric)
	best, _ := s.solutions.Get(lang.ID, s.sel.Metric)

	// Only keep drafts the server does not already hold.
	if code != "" && (code != best || !s.savedInDB()) && code != lang.Example {
		s.drafts.Write(ctx, k, code)
	} else {
		s.drafts.Clear(ctx, k)
	}
	return s.view(ctx)
}

// Restore puts the authoritative code for the active slot back into the
// edit buffer. It reports false when there is nothing to restore. The draft
// cache is not touched.
func (s *Session) Restore(ctx context.Context) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.restoreAvailable() {
		return s.view(ctx), false
	}
	s.buffer, _ = s.solutions.Get(s.sel.Lang, s.sel.Metric)
	return s.view(ctx), true
}

// SignOut drops ownership back to anonymous, also for later sessions.
func (s *Session) SignOut(ctx context.Context) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Ownership = model.Anonymous
	s.drafts.SetPref(ctx, store.PrefOwner, model.Anonymous.String())
	return s.view(ctx)
}

// View recomputes what the editor should show.
func (s *Session) View(ctx context.Context) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(ctx)
}

func (s *Session) selectLanguage(ctx context.Context, id string) {
	if id == "" {
		id = s.drafts.Pref(ctx, store.PrefLang)
	}
	lang := s.registry.Resolve(id)
	if lang.ID != id {
		s.log.Debug("unknown language, using fallback", zap.String("lang", id), zap.String("fallback", lang.ID))
	}

	s.sel.Lang = lang.ID
	if lang.BytesOnly() {
		s.setMetric(ctx, metric.Bytes)
	}
	s.drafts.SetPref(ctx, store.PrefLang, lang.ID)

	s.display(ctx)
}

// display picks the metric and buffer for the current language.
func (s *Session) display(ctx context.Context) {
	lang := s.language()
	best := s.solutions.Pair(lang.ID)
	local, present := s.drafts.Pair(ctx, s.hole, lang.ID)

	// With no real difference between the authoritative solutions, prefer
	// the slot that has a draft.
	if s.sel.Metric != metric.Bytes && best.Get(metric.Bytes) == best.Get(metric.Chars) &&
		present.Get(metric.Bytes) && !present.Get(metric.Chars) {
		s.setMetric(ctx, metric.Bytes)
	}

	switch m := s.sel.Metric; {
	case present.Get(m):
		s.buffer = local.Get(m)
	case best.Get(m) != "":
		s.buffer = best.Get(m)
	default:
		s.buffer = lang.Example
	}

	if lang.BytesOnly() {
		s.sel.RankingMetric = metric.Bytes
	}
}

func (s *Session) setMetric(ctx context.Context, m metric.Metric) {
	s.sel.Metric = m
	s.drafts.SetMetricPref(ctx, store.PrefSolution, m)
}

// savedInDB reports whether solutions are recorded server side, which makes
// drafts equal to them redundant.
func (s *Session) savedInDB() bool {
	return s.sel.Ownership == model.LoggedIn && !s.experimental
}

func (s *Session) language() model.Language {
	return s.registry.Resolve(s.sel.Lang)
}

func (s *Session) key(m metric.Metric) store.Key {
	return store.Key{Hole: s.hole, Lang: s.sel.Lang, Metric: m}
}

func (s *Session) restoreAvailable() bool {
	best, ok := s.solutions.Get(s.sel.Lang, s.sel.Metric)
	return ok && s.buffer != best
}
