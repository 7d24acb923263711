package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rcliao/hole-sync/internal/metric"
	"github.com/rcliao/hole-sync/internal/model"
	"github.com/rcliao/hole-sync/internal/store"
)

var (
	// ErrTransport means the run request failed or returned a non-success
	// status. No state was changed.
	ErrTransport = errors.New("submission failed")

	// ErrStale means a newer submission was sent before this one's verdict
	// arrived. The verdict was discarded.
	ErrStale = errors.New("submission superseded")

	errNoSubmitter = errors.New("no submitter configured")
)

// Submitter sends a run request. id identifies the request for tracing.
type Submitter interface {
	Submit(ctx context.Context, id string, req model.SubmitRequest) (*model.SubmitResponse, error)
}

// State is a submission lifecycle state.
type State uint8

const (
	Idle State = iota
	Sent
	Accepted
	Merged
	Stale
	TransportError
)

func (s State) String() string {
	switch s {
	case Sent:
		return "sent"
	case Accepted:
		return "accepted"
	case Merged:
		return "merged"
	case Stale:
		return "stale"
	case TransportError:
		return "transport-error"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the final result of a submission.
type Outcome struct {
	Seq      uint64                `json:"seq"`
	ID       string                `json:"id"`
	State    State                 `json:"state"`
	Response *model.SubmitResponse `json:"response,omitempty"`
	// View is the recomputed editor state after a merge.
	View *View `json:"view,omitempty"`
	Err  error `json:"-"`
}

// Submission is one run request. Only the most recently sent submission of
// a session is merged.
type Submission struct {
	Seq  uint64
	ID   string
	Hole string
	Lang string
	Code string

	mu      sync.Mutex
	state   State
	outcome Outcome
	done    chan struct{}
}

// State returns the current lifecycle state.
func (sub *Submission) State() State {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.state
}

// Done is closed once the submission reaches a final state.
func (sub *Submission) Done() <-chan struct{} {
	return sub.done
}

// Wait blocks until the submission finishes or ctx is done. The returned
// error wraps ErrTransport or ErrStale when the verdict was not merged.
func (sub *Submission) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-sub.done:
		return sub.outcome, sub.outcome.Err
	case <-ctx.Done():
		return Outcome{Seq: sub.Seq, ID: sub.ID, State: sub.State()}, ctx.Err()
	}
}

func (sub *Submission) setState(st State) {
	sub.mu.Lock()
	sub.state = st
	sub.mu.Unlock()
}

func (sub *Submission) finish(o Outcome) {
	o.Seq, o.ID = sub.Seq, sub.ID
	sub.setState(o.State)
	sub.outcome = o
	close(sub.done)
}

// Submit sends the edit buffer for the current language without blocking.
// Any submission still in flight is superseded: its request completes but
// its verdict is ignored.
func (s *Session) Submit(ctx context.Context) *Submission {
	s.mu.Lock()
	s.latest++
	sub := &Submission{
		Seq:   s.latest,
		ID:    ulid.Make().String(),
		Hole:  s.hole,
		Lang:  s.sel.Lang,
		Code:  s.buffer,
		state: Sent,
		done:  make(chan struct{}),
	}
	s.mu.Unlock()

	s.log.Debug("submission sent",
		zap.Uint64("seq", sub.Seq), zap.String("id", sub.ID), zap.String("lang", sub.Lang))

	go s.run(ctx, sub)
	return sub
}

func (s *Session) run(ctx context.Context, sub *Submission) {
	var (
		res *model.SubmitResponse
		err error
	)
	if s.submitter == nil {
		err = errNoSubmitter
	} else {
		res, err = s.submitter.Submit(ctx, sub.ID, model.SubmitRequest{
			Code: sub.Code,
			Hole: sub.Hole,
			Lang: sub.Lang,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.log.Warn("submission failed", zap.Uint64("seq", sub.Seq), zap.String("id", sub.ID), zap.Error(err))
		sub.finish(Outcome{State: TransportError, Err: fmt.Errorf("%w: %w", ErrTransport, err)})
		return
	}

	if sub.Seq != s.latest {
		s.log.Debug("discarding stale verdict",
			zap.Uint64("seq", sub.Seq), zap.Uint64("latest", s.latest))
		sub.finish(Outcome{State: Stale, Err: ErrStale})
		return
	}

	sub.setState(Accepted)
	s.merge(ctx, sub, res)

	v := s.view(ctx)
	sub.finish(Outcome{State: Merged, Response: res, View: &v})
}

// merge folds a verdict into the authoritative solutions and the draft
// cache. The caller holds s.mu.
func (s *Session) merge(ctx context.Context, sub *Submission, res *model.SubmitResponse) {
	if res.LoggedIn && s.sel.Ownership != model.LoggedIn {
		s.sel.Ownership = model.LoggedIn
		s.drafts.SetPref(ctx, store.PrefOwner, model.LoggedIn.String())
		s.log.Info("now logged in")
	}
	saved := s.savedInDB()

	lang := s.registry.Resolve(sub.Lang)
	code := sub.Code
	key := func(m metric.Metric) store.Key {
		return store.Key{Hole: sub.Hole, Lang: lang.ID, Metric: m}
	}

	if res.Pass {
		for _, m := range metric.All {
			best, ok := s.solutions.Get(lang.ID, m)
			// Ties go to the newest submission.
			if ok && metric.Score(m, code) > metric.Score(m, best) {
				continue
			}
			s.solutions.set(lang.ID, m, code)
			s.log.Info("new best solution",
				zap.String("lang", lang.ID), zap.Stringer("metric", m), zap.Int("score", metric.Score(m, code)))

			if !saved {
				continue
			}
			if local, ok := s.drafts.Read(ctx, key(m)); ok && local == code {
				s.drafts.Clear(ctx, key(m))
			}
		}
	}

	best := s.solutions.Pair(lang.ID)
	for _, m := range metric.All {
		k := key(m)
		if saved {
			// The server holds it, so a matching draft would only prompt
			// a restore.
			local, ok := s.drafts.Read(ctx, k)
			if ok && (local == best.Get(metric.Bytes) || local == best.Get(metric.Chars)) {
				s.drafts.Clear(ctx, k)
			}
			continue
		}

		solution := best.Get(m)
		if solution == "" {
			continue
		}
		// Keep anonymous work on the device, but never two copies of one
		// solution since that would show the picker for nothing.
		if (m == metric.Bytes || best.Get(metric.Bytes) != solution) && solution != lang.Example {
			s.drafts.Write(ctx, k, solution)
		} else {
			s.drafts.Clear(ctx, k)
		}
	}

	// The submission became the other metric's solution; follow it.
	if res.Pass && code != "" && lang.ID == s.sel.Lang {
		active, other := s.sel.Metric, metric.Other(s.sel.Metric)
		if best.Get(active) != code && best.Get(other) == code {
			s.setMetric(ctx, other)
		}
	}
}
