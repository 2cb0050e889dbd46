package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"imgalpha/internal/engine"
	"imgalpha/internal/status"
)

type outcome struct {
	res engine.Result
	err error
}

type call struct {
	ctx     context.Context
	opts    engine.Options
	release chan outcome
}

// gatedEngine hands every call to the test and ignores cancellation, like
// a backend that cannot be preempted.
type gatedEngine struct {
	calls chan *call
}

func newGatedEngine() *gatedEngine {
	return &gatedEngine{calls: make(chan *call, 16)}
}

func (g *gatedEngine) Quantize(ctx context.Context, src *image.NRGBA, opts engine.Options) (engine.Result, error) {
	c := &call{ctx: ctx, opts: opts, release: make(chan outcome, 1)}
	g.calls <- c
	out := <-c.release
	return out.res, out.err
}

func (g *gatedEngine) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("engine was not called")
		return nil
	}
}

func (g *gatedEngine) expectIdle(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case c := <-g.calls:
		t.Fatalf("unexpected engine call with %+v", c.opts)
	case <-time.After(d):
	}
}

func result(tag string) engine.Result {
	return engine.Result{Image: image.NewNRGBA(image.Rect(0, 0, 2, 2)), Encoded: []byte(tag), Colors: 4}
}

func testSource() *Source {
	px := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	px.SetNRGBA(0, 0, color.NRGBA{R: 0xff, A: 0xff})
	return &Source{Name: "test.png", Pixels: px, Encoded: []byte("original-bytes"), Size: 10000, Colors: 50000}
}

func start(t *testing.T, eng engine.Engine) (*Pipeline, <-chan Snapshot) {
	t.Helper()
	p := New(Config{Engine: eng, Debounce: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	sub, _ := p.Subscribe()
	return p, sub
}

func waitFor(t *testing.T, sub <-chan Snapshot, desc string, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-sub:
			if !ok {
				t.Fatalf("subscription closed waiting for %s", desc)
			}
			if pred(s) {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", desc)
		}
	}
}

func TestInitialSnapshotIsIdle(t *testing.T) {
	_, sub := start(t, newGatedEngine())
	s := waitFor(t, sub, "initial snapshot", func(Snapshot) bool { return true })
	if s.Status != status.Idle || s.Busy || s.HasResult() {
		t.Fatalf("unexpected initial snapshot %+v", s)
	}
	if s.Options != engine.DefaultOptions() {
		t.Fatalf("unexpected default options %+v", s.Options)
	}
}

func TestSourceChangeQuantizesImmediately(t *testing.T) {
	eng := newGatedEngine()
	p, sub := start(t, eng)

	p.SetSource(testSource())
	c := eng.next(t)
	if c.opts.Colors != engine.DefaultColors {
		t.Fatalf("unexpected options %+v", c.opts)
	}
	waitFor(t, sub, "busy", func(s Snapshot) bool { return s.Busy && s.Status == status.Processing })

	c.release <- outcome{res: result("A")}
	s := waitFor(t, sub, "result", func(s Snapshot) bool { return !s.Busy && s.HasResult() })
	if string(s.Encoded) != "A" {
		t.Fatalf("got %q", s.Encoded)
	}
	for _, want := range []string{"Original:", "50,000 colours", "10,000 bytes", "256 colours", "1 bytes", "99% smaller"} {
		if !strings.Contains(s.Status, want) {
			t.Fatalf("status %q missing %q", s.Status, want)
		}
	}
}

func TestRapidEditsCollapse(t *testing.T) {
	eng := newGatedEngine()
	p, sub := start(t, eng)

	p.SetSource(testSource())
	eng.next(t).release <- outcome{res: result("initial")}
	waitFor(t, sub, "initial result", func(s Snapshot) bool { return string(s.Encoded) == "initial" })

	for _, n := range []int{128, 64, 32, 16} {
		p.SetOptions(engine.Options{Colors: n, Speed: 3})
	}

	c := eng.next(t)
	if c.opts.Colors != 16 {
		t.Fatalf("expected only the last edit to run, got colours=%d", c.opts.Colors)
	}
	eng.expectIdle(t, 100*time.Millisecond)

	c.release <- outcome{res: result("last")}
	s := waitFor(t, sub, "last result", func(s Snapshot) bool { return string(s.Encoded) == "last" })
	if s.Applied.Colors != 16 || s.Busy {
		t.Fatalf("unexpected snapshot %+v", s)
	}
}

func TestSupersededResultNeverApplied(t *testing.T) {
	eng := newGatedEngine()
	p, sub := start(t, eng)

	p.SetSource(testSource())
	first := eng.next(t)

	p.SetOptions(engine.Options{Colors: 8, Speed: 3})
	second := eng.next(t)

	if first.ctx.Err() == nil {
		t.Fatalf("superseded call should have been cancelled")
	}

	second.release <- outcome{res: result("second")}
	waitFor(t, sub, "second result", func(s Snapshot) bool { return string(s.Encoded) == "second" })

	// The first call ignores cancellation and finishes last.
	first.release <- outcome{res: result("first")}
	s := waitFor(t, sub, "discard", func(s Snapshot) bool { return s.Discarded == 1 })
	if string(s.Encoded) != "second" || s.Applied.Colors != 8 || s.Busy {
		t.Fatalf("stale result leaked: %+v", s)
	}
}

func TestClearedSourceDropsLateResult(t *testing.T) {
	eng := newGatedEngine()
	p, sub := start(t, eng)

	p.SetSource(testSource())
	inflight := eng.next(t)

	p.SetSource(nil)
	waitFor(t, sub, "cleared source", func(s Snapshot) bool { return s.Source == nil && s.Issued == 2 && !s.Busy })
	if inflight.ctx.Err() == nil {
		t.Fatalf("in-flight call should have been cancelled")
	}

	inflight.release <- outcome{res: result("late")}
	s := waitFor(t, sub, "discard", func(s Snapshot) bool { return s.Discarded == 1 })
	if s.HasResult() || s.Image != nil || s.Status != status.Idle {
		t.Fatalf("late result applied without a source: %+v", s)
	}
}

func TestUnchangedOptionsKeepInFlightCall(t *testing.T) {
	eng := newGatedEngine()
	p, sub := start(t, eng)

	p.SetSource(testSource())
	inflight := eng.next(t)

	p.SetOptions(engine.DefaultOptions())
	eng.expectIdle(t, 100*time.Millisecond)
	if inflight.ctx.Err() != nil {
		t.Fatalf("identical options cancelled the running call")
	}

	inflight.release <- outcome{res: result("kept")}
	s := waitFor(t, sub, "result", func(s Snapshot) bool { return string(s.Encoded) == "kept" })
	if s.Discarded != 0 || s.Busy {
		t.Fatalf("unexpected snapshot %+v", s)
	}
}

func TestSupersededFailureIsSilent(t *testing.T) {
	eng := newGatedEngine()
	p, sub := start(t, eng)

	p.SetSource(testSource())
	first := eng.next(t)
	p.SetOptions(engine.Options{Colors: 4, Speed: 3})
	second := eng.next(t)

	first.release <- outcome{err: errors.New("boom")}
	s := waitFor(t, sub, "discard", func(s Snapshot) bool { return s.Discarded == 1 })
	if !s.Busy || s.Err != nil || strings.HasPrefix(s.Status, "Error") {
		t.Fatalf("stale failure surfaced: %+v", s)
	}

	second.release <- outcome{res: result("ok")}
	waitFor(t, sub, "result", func(s Snapshot) bool { return string(s.Encoded) == "ok" && !s.Busy })
}

func TestFailureKeepsPriorResult(t *testing.T) {
	eng := newGatedEngine()
	p, sub := start(t, eng)

	p.SetSource(testSource())
	eng.next(t).release <- outcome{res: result("good")}
	waitFor(t, sub, "good result", func(s Snapshot) bool { return string(s.Encoded) == "good" })

	p.SetOptions(engine.Options{Colors: 2, Speed: 3})
	failure := &engine.Error{Kind: engine.ErrQuantize, Code: engine.CodeQualityTooLow}
	eng.next(t).release <- outcome{err: failure}

	s := waitFor(t, sub, "error", func(s Snapshot) bool { return s.Err != nil })
	if s.Busy {
		t.Fatalf("busy flag not cleared")
	}
	if s.Status != "Error: Quantization failed (99)" {
		t.Fatalf("unexpected status %q", s.Status)
	}
	if string(s.Encoded) != "good" || s.Applied.Colors != engine.DefaultColors {
		t.Fatalf("prior result lost: %+v", s)
	}

	p.SetOptions(engine.Options{Colors: 4, Speed: 3})
	eng.next(t).release <- outcome{res: result("recovered")}
	s = waitFor(t, sub, "recovery", func(s Snapshot) bool { return string(s.Encoded) == "recovered" })
	if s.Err != nil || strings.HasPrefix(s.Status, "Error") {
		t.Fatalf("error state not cleared: %+v", s)
	}
}

func TestPassThroughSkipsEngine(t *testing.T) {
	eng := newGatedEngine()
	p, sub := start(t, eng)

	src := testSource()
	p.SetOptions(engine.Options{Colors: 300, Speed: 3})
	waitFor(t, sub, "options", func(s Snapshot) bool { return s.Options.Colors == 257 })
	p.SetSource(src)

	s := waitFor(t, sub, "pass-through", func(s Snapshot) bool { return s.HasResult() })
	if string(s.Encoded) != "original-bytes" || s.Image != image.Image(src.Pixels) || s.Busy {
		t.Fatalf("unexpected pass-through snapshot %+v", s)
	}
	if !strings.Contains(s.Status, "24-bit colours") {
		t.Fatalf("unexpected status %q", s.Status)
	}
	eng.expectIdle(t, 80*time.Millisecond)
}

func TestPassThroughSupersedesInFlight(t *testing.T) {
	eng := newGatedEngine()
	p, sub := start(t, eng)

	p.SetSource(testSource())
	inflight := eng.next(t)

	p.SetOptions(engine.Options{Colors: 257, Speed: 3})
	waitFor(t, sub, "pass-through", func(s Snapshot) bool { return string(s.Encoded) == "original-bytes" && !s.Busy })

	inflight.release <- outcome{res: result("late")}
	s := waitFor(t, sub, "discard", func(s Snapshot) bool { return s.Discarded == 1 })
	if string(s.Encoded) != "original-bytes" {
		t.Fatalf("late result applied over pass-through")
	}
}

func TestNewSourceClearsResult(t *testing.T) {
	eng := newGatedEngine()
	p, sub := start(t, eng)

	p.SetSource(testSource())
	eng.next(t).release <- outcome{res: result("one")}
	waitFor(t, sub, "first", func(s Snapshot) bool { return string(s.Encoded) == "one" })

	p.SetSource(testSource())
	s := waitFor(t, sub, "cleared", func(s Snapshot) bool { return !s.HasResult() })
	if !s.Busy || s.Status != status.Processing {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	eng.next(t).release <- outcome{res: result("two")}
	waitFor(t, sub, "second", func(s Snapshot) bool { return string(s.Encoded) == "two" })
}

func TestSubscribeAfterRunReturnsClosed(t *testing.T) {
	p := New(Config{Engine: newGatedEngine()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error %v", err)
	}
	ch, unsubscribe := p.Subscribe()
	defer unsubscribe()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if err := p.Run(context.Background()); err == nil {
		t.Fatalf("second Run should fail")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	p, _ := start(t, newGatedEngine())
	ch, unsubscribe := p.Subscribe()
	unsubscribe()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("channel not closed")
		}
	}
}
