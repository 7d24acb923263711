package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rcliao/hole-sync/internal/metric"
	"github.com/rcliao/hole-sync/internal/model"
	"github.com/rcliao/hole-sync/internal/store"
)

type reply struct {
	res *model.SubmitResponse
	err error
}

// gatedSubmitter holds each request until a reply for its code is released.
type gatedSubmitter struct {
	mu    sync.Mutex
	gates map[string]chan reply
	ids   []string
}

func newGatedSubmitter(codes ...string) *gatedSubmitter {
	g := &gatedSubmitter{gates: map[string]chan reply{}}
	for _, c := range codes {
		g.gates[c] = make(chan reply, 1)
	}
	return g
}

func (g *gatedSubmitter) Submit(ctx context.Context, id string, req model.SubmitRequest) (*model.SubmitResponse, error) {
	g.mu.Lock()
	gate := g.gates[req.Code]
	g.ids = append(g.ids, id)
	g.mu.Unlock()

	select {
	case r := <-gate:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedSubmitter) release(code string, r reply) {
	g.gates[code] <- r
}

func pass(loggedIn bool) reply {
	return reply{res: &model.SubmitResponse{Pass: true, LoggedIn: loggedIn, Argv: []string{}, Cheevos: []model.Cheevo{}}}
}

func fail(loggedIn bool) reply {
	return reply{res: &model.SubmitResponse{Pass: false, LoggedIn: loggedIn, Out: "nope", Argv: []string{}, Cheevos: []model.Cheevo{}}}
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// submitCode edits code into the buffer, submits it and waits for the verdict.
func submitCode(t *testing.T, s *Session, g *gatedSubmitter, code string, r reply) (Outcome, error) {
	t.Helper()
	ctx := waitCtx(t)
	s.Edit(ctx, code)
	sub := s.Submit(ctx)
	g.release(code, r)
	return sub.Wait(ctx)
}

func TestSubmitAnonymousPassKeepsDrafts(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)
	code := "print(1)"
	g := newGatedSubmitter(code)
	s := openSession(t, cache, Options{Submitter: g, Ownership: model.Anonymous})

	out, err := submitCode(t, s, g, code, pass(false))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.State != Merged || out.View == nil || !out.Response.Pass {
		t.Fatalf("unexpected outcome %+v", out)
	}

	snap := s.Snapshot()
	for _, m := range metric.All {
		if snap.Get(m)["python"] != code {
			t.Errorf("expected %s solution %q, got %q", m, code, snap.Get(m)["python"])
		}
	}

	// Anonymous work stays on the device, but only once.
	if got, ok := cache.Read(ctx, draftKey("python", metric.Bytes)); !ok || got != code {
		t.Errorf("expected bytes draft %q, got %q", code, got)
	}
	if _, ok := cache.Read(ctx, draftKey("python", metric.Chars)); ok {
		t.Error("chars draft would duplicate the bytes draft")
	}
	if out.View.Picker.Visible {
		t.Error("picker should stay hidden")
	}
	if out.View.Ownership != model.Anonymous {
		t.Errorf("expected anonymous, got %s", out.View.Ownership)
	}
}

func TestSubmitLoggedInPassClearsDrafts(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)
	code := "print(1)"
	g := newGatedSubmitter(code)
	s := openSession(t, cache, Options{Submitter: g, Ownership: model.LoggedIn})

	if _, err := submitCode(t, s, g, code, pass(true)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	for _, m := range metric.All {
		if _, ok := cache.Read(ctx, draftKey("python", m)); ok {
			t.Errorf("expected %s draft cleared once saved on the server", m)
		}
		if s.Snapshot().Get(m)["python"] != code {
			t.Errorf("expected %s solution recorded", m)
		}
	}
}

func TestSubmitLoginMovesTruthToServer(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)
	code := "print(1)"
	g := newGatedSubmitter(code)
	s := openSession(t, cache, Options{Submitter: g, Ownership: model.Anonymous})

	out, err := submitCode(t, s, g, code, pass(true))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.View.Ownership != model.LoggedIn {
		t.Errorf("expected logged in, got %s", out.View.Ownership)
	}
	if _, ok := cache.Read(ctx, draftKey("python", metric.Bytes)); ok {
		t.Error("draft matching the server solution should be cleared")
	}

	// Ownership never regresses through a response.
	g.gates["print(2)"] = make(chan reply, 1)
	out, _ = submitCode(t, s, g, "print(2)", fail(false))
	if out.View.Ownership != model.LoggedIn {
		t.Errorf("ownership regressed to %s", out.View.Ownership)
	}
}

func TestSubmitExperimentalKeepsDrafts(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)
	code := "print(1)"
	g := newGatedSubmitter(code)
	s := openSession(t, cache, Options{Submitter: g, Ownership: model.LoggedIn, Experimental: true})

	if _, err := submitCode(t, s, g, code, pass(true)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got, ok := cache.Read(ctx, draftKey("python", metric.Bytes)); !ok || got != code {
		t.Errorf("experimental holes keep drafts, got %q", got)
	}
}

func TestSubmitTieReplacesSolution(t *testing.T) {
	ten := "0123456789"
	newer := "abcdefghij"
	g := newGatedSubmitter(newer)
	s := openSession(t, newTestCache(t), Options{
		Submitter: g,
		Ownership: model.LoggedIn,
		Snapshot:  snapshot("python", ten, ten),
	})

	if _, err := submitCode(t, s, g, newer, pass(true)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	snap := s.Snapshot()
	if snap.Get(metric.Bytes)["python"] != newer || snap.Get(metric.Chars)["python"] != newer {
		t.Errorf("ties should favor the newest submission, got %v", snap)
	}
}

func TestSubmitImprovesEachMetricIndependently(t *testing.T) {
	ctx := context.Background()
	// "éé" is 4 bytes but only 2 chars.
	code := "éé"
	g := newGatedSubmitter(code)
	cache := newTestCache(t)
	s := openSession(t, cache, Options{
		Submitter: g,
		Ownership: model.LoggedIn,
		Snapshot:  snapshot("python", "ab", "xyz"),
	})
	if s.Selection().Metric != metric.Bytes {
		t.Fatal("expected to start on bytes")
	}

	out, err := submitCode(t, s, g, code, pass(true))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap := s.Snapshot()
	if snap.Get(metric.Bytes)["python"] != "ab" {
		t.Errorf("worse bytes score must not replace, got %q", snap.Get(metric.Bytes)["python"])
	}
	if snap.Get(metric.Chars)["python"] != code {
		t.Errorf("better chars score should replace, got %q", snap.Get(metric.Chars)["python"])
	}

	// The code became the chars solution, so the editor follows it.
	if out.View.Metric != metric.Chars {
		t.Errorf("expected switch to chars, got %s", out.View.Metric)
	}
	if got := cache.MetricPref(ctx, store.PrefSolution); got != metric.Chars {
		t.Errorf("expected chars persisted, got %s", got)
	}
	if !out.View.Picker.Visible {
		t.Error("different solutions per metric should show the picker")
	}
}

func TestSubmitFailLeavesSolutions(t *testing.T) {
	code := "print(1)"
	g := newGatedSubmitter(code)
	s := openSession(t, newTestCache(t), Options{Submitter: g, Ownership: model.LoggedIn})

	out, err := submitCode(t, s, g, code, fail(true))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.State != Merged || out.Response.Pass {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(s.Snapshot().Get(metric.Bytes)) != 0 {
		t.Error("failing runs must not record solutions")
	}
}

func TestSubmitTransportError(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)
	code := "print(1)"
	g := newGatedSubmitter(code)
	s := openSession(t, cache, Options{
		Submitter: g,
		Snapshot:  snapshot("python", "print(22)", ""),
	})

	out, err := submitCode(t, s, g, code, reply{err: errors.New("connection refused")})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if out.State != TransportError || out.Response != nil {
		t.Errorf("unexpected outcome %+v", out)
	}
	if got := s.Snapshot().Get(metric.Bytes)["python"]; got != "print(22)" {
		t.Errorf("solutions changed on transport error: %q", got)
	}
	if got, _ := cache.Read(ctx, draftKey("python", metric.Bytes)); got != code {
		t.Errorf("draft changed on transport error: %q", got)
	}
}

func TestSubmitWithoutSubmitter(t *testing.T) {
	s := openSession(t, newTestCache(t), Options{})
	_, err := s.Submit(waitCtx(t)).Wait(waitCtx(t))
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestStaleVerdictIsDiscarded(t *testing.T) {
	ctx := waitCtx(t)
	g := newGatedSubmitter("a", "bb")
	s := openSession(t, newTestCache(t), Options{Submitter: g, Ownership: model.Anonymous})

	s.Edit(ctx, "a")
	first := s.Submit(ctx)
	s.Edit(ctx, "bb")
	second := s.Submit(ctx)

	if first.Seq >= second.Seq {
		t.Fatalf("sequence numbers must increase: %d, %d", first.Seq, second.Seq)
	}
	if first.ID == second.ID {
		t.Fatal("submission ids must differ")
	}
	if first.State() != Sent {
		t.Errorf("expected first to be in flight, got %s", first.State())
	}

	g.release("bb", pass(false))
	if out, err := second.Wait(ctx); err != nil || out.State != Merged {
		t.Fatalf("second: state=%s err=%v", out.State, err)
	}

	// The earlier, shorter submission arrives last and must be ignored.
	g.release("a", pass(true))
	out, err := first.Wait(ctx)
	if !errors.Is(err, ErrStale) || out.State != Stale {
		t.Fatalf("expected stale, got state=%s err=%v", out.State, err)
	}
	if out.Response != nil || out.View != nil {
		t.Error("stale outcome must not carry a verdict")
	}

	snap := s.Snapshot()
	if snap.Get(metric.Bytes)["python"] != "bb" {
		t.Errorf("stale verdict mutated solutions: %v", snap)
	}
	if s.Selection().Ownership != model.Anonymous {
		t.Error("stale verdict changed ownership")
	}
}

func TestSubmitMergesIntoSubmittedLanguage(t *testing.T) {
	ctx := waitCtx(t)
	g := newGatedSubmitter("puts 1")
	s := openSession(t, newTestCache(t), Options{Submitter: g, Lang: "ruby", Ownership: model.LoggedIn})

	s.Edit(ctx, "puts 1")
	sub := s.Submit(ctx)
	s.SelectLanguage(ctx, "perl")
	g.release("puts 1", pass(true))

	out, err := sub.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if out.View.Lang != "perl" {
		t.Errorf("selection should stay on perl, got %s", out.View.Lang)
	}
	snap := s.Snapshot()
	if snap.Get(metric.Bytes)["ruby"] != "puts 1" {
		t.Errorf("expected ruby solution, got %v", snap)
	}
	if _, ok := snap.Get(metric.Bytes)["perl"]; ok {
		t.Error("verdict leaked into the newly selected language")
	}
}

func TestWaitHonorsContext(t *testing.T) {
	g := newGatedSubmitter("slow")
	s := openSession(t, newTestCache(t), Options{Submitter: g})
	s.Edit(context.Background(), "slow")
	sub := s.Submit(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := sub.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if out.State != Sent {
		t.Errorf("expected sent, got %s", out.State)
	}
	g.release("slow", fail(false))
	<-sub.Done()
}

func TestLoggedInSurvivesReopen(t *testing.T) {
	ctx := waitCtx(t)
	cache := newTestCache(t)
	code := "print(1)"
	g := newGatedSubmitter(code)
	s := openSession(t, cache, Options{Submitter: g})

	if _, err := submitCode(t, s, g, code, pass(true)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// A later session on the same device starts logged in, so editing back
	// to the server's code leaves no duplicate draft.
	again := openSession(t, cache, Options{Snapshot: s.Snapshot()})
	if again.Selection().Ownership != model.LoggedIn {
		t.Fatalf("expected logged in after reopen, got %s", again.Selection().Ownership)
	}
	again.Edit(ctx, "print(2)")
	again.Edit(ctx, code)
	if _, ok := cache.Read(ctx, draftKey("python", metric.Bytes)); ok {
		t.Error("draft duplicating the server solution was kept")
	}

	again.SignOut(ctx)
	if third := openSession(t, cache, Options{}); third.Selection().Ownership != model.Anonymous {
		t.Errorf("sign out should be remembered, got %s", third.Selection().Ownership)
	}
}
