// Package pipeline keeps a quantized image in sync with the source image
// and the user's options. A single coordinator goroutine owns all state;
// engine calls run on their own goroutines and report back through the
// coordinator's event queue.
package pipeline

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"imgalpha/internal/engine"
	"imgalpha/internal/geometry"
	"imgalpha/internal/status"
)

type Pipeline struct {
	engine   engine.Engine
	debounce time.Duration
	logger   *log.Logger

	events  chan event
	done    chan struct{}
	started atomic.Bool
	nextID  atomic.Int64

	// Everything below is touched only by the coordinator goroutine.
	state  Snapshot
	issued uint64
	cancel context.CancelFunc
	timer  *time.Timer
	subs   map[int]chan Snapshot
}

func New(cfg Config) *Pipeline {
	cfg = cfg.withDefaults()
	p := &Pipeline{
		engine:   cfg.Engine,
		debounce: cfg.Debounce,
		logger:   cfg.Logger,
		events:   make(chan event, 64),
		done:     make(chan struct{}),
		subs:     make(map[int]chan Snapshot),
	}
	p.state.Options = cfg.Options
	p.state.Applied = cfg.Options
	p.state.Status = status.Idle
	return p
}

// SetOptions records new options. Edits arriving within the debounce
// window collapse into one recomputation using the latest options.
func (p *Pipeline) SetOptions(opts engine.Options) {
	p.post(optionsChanged{opts: opts.Normalize()})
}

// SetSource replaces the source image and recomputes immediately.
func (p *Pipeline) SetSource(src *Source) {
	p.post(sourceChanged{src: src})
}

// Subscribe returns a channel that always holds the latest snapshot. Older
// snapshots a slow reader has not consumed are replaced. The channel is
// closed when Run returns or the returned cancel func is called.
func (p *Pipeline) Subscribe() (<-chan Snapshot, func()) {
	id := int(p.nextID.Add(1))
	ch := make(chan Snapshot, 1)
	select {
	case p.events <- subscribe{id: id, ch: ch}:
	case <-p.done:
		close(ch)
		return ch, func() {}
	}
	return ch, func() { p.post(unsubscribe{id: id}) }
}

// Run is the coordinator loop. It returns when ctx is done; any in-flight
// engine call is cancelled and its result discarded.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return errors.New("pipeline already running")
	}
	defer p.shutdown()

	for {
		var timerC <-chan time.Time
		if p.timer != nil {
			timerC = p.timer.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timerC:
			p.timer = nil
			p.request(ctx)
		case ev := <-p.events:
			p.handle(ctx, ev)
		}
	}
}

func (p *Pipeline) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case optionsChanged:
		if ev.opts == p.state.Options {
			return
		}
		p.state.Options = ev.opts
		p.resetTimer()
		p.publish()
	case sourceChanged:
		p.stopTimer()
		p.state.Source = ev.src
		p.state.Image = nil
		p.state.Encoded = nil
		p.state.Err = nil
		p.state.Status = p.resultStatus()
		p.request(ctx)
	case completed:
		p.complete(ev)
	case subscribe:
		p.subs[ev.id] = ev.ch
		ev.ch <- p.state
	case unsubscribe:
		if ch, ok := p.subs[ev.id]; ok {
			delete(p.subs, ev.id)
			close(ch)
		}
	}
}

// request issues a recomputation for the current source and options,
// superseding whatever is in flight.
func (p *Pipeline) request(ctx context.Context) {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	// Every request gets a new sequence number, so a call cancelled by
	// clearing the source still completes as stale.
	p.issued++
	seq := p.issued
	p.state.Issued = seq

	src := p.state.Source
	if src == nil || src.Pixels == nil {
		p.state.Busy = false
		p.publish()
		return
	}

	opts := p.state.Options

	if opts.PassThrough() {
		p.logger.Printf("request %d: pass-through", seq)
		p.state.Busy = false
		p.state.Err = nil
		p.state.Applied = opts
		p.state.Image = src.Pixels
		p.state.Encoded = src.Encoded
		p.state.Accepted = seq
		p.state.Status = p.resultStatus()
		p.publish()
		return
	}

	callCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.state.Busy = true
	if p.state.Encoded == nil {
		p.state.Status = status.Processing
	}
	p.logger.Printf("request %d: colors=%d dither=%t restricted=%t speed=%d",
		seq, opts.Colors, opts.Dithered, opts.RestrictedAlpha, opts.Speed)

	go func() {
		res, err := p.engine.Quantize(callCtx, src.Pixels, opts)
		p.post(completed{seq: seq, opts: opts, res: res, err: err})
	}()
	p.publish()
}

func (p *Pipeline) complete(c completed) {
	// Anything older than the newest request is dropped, even if the
	// engine ignored cancellation.
	if c.seq != p.issued {
		p.logger.Printf("request %d: stale (latest %d), discarded", c.seq, p.issued)
		p.state.Discarded++
		p.publish()
		return
	}
	if errors.Is(c.err, context.Canceled) {
		p.logger.Printf("request %d: cancelled", c.seq)
		return
	}

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.state.Busy = false

	if c.err != nil {
		p.logger.Printf("request %d: error: %v", c.seq, c.err)
		p.state.Err = c.err
		p.state.Status = status.Error(c.err)
		p.publish()
		return
	}

	p.logger.Printf("request %d: %d bytes, %d colours", c.seq, len(c.res.Encoded), c.res.Colors)
	p.state.Err = nil
	p.state.Applied = c.opts
	p.state.Image = c.res.Image
	p.state.Encoded = c.res.Encoded
	p.state.Accepted = c.seq
	p.state.Status = p.resultStatus()
	p.publish()
}

func (p *Pipeline) resultStatus() string {
	src := p.state.Source
	if src == nil {
		return status.Idle
	}
	if p.state.Encoded == nil {
		return status.Processing
	}
	return status.Format(status.Line{
		DerivedSize:  int64(len(p.state.Encoded)),
		SourceSize:   src.Size,
		SourceColors: src.Colors,
		ColorsLabel:  geometry.ColorsLabel(p.state.Applied.Colors),
	})
}

func (p *Pipeline) resetTimer() {
	p.stopTimer()
	p.timer = time.NewTimer(p.debounce)
}

func (p *Pipeline) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Pipeline) publish() {
	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- p.state
	}
}

func (p *Pipeline) post(ev event) {
	select {
	case p.events <- ev:
	case <-p.done:
	}
}

func (p *Pipeline) shutdown() {
	close(p.done)
	p.stopTimer()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}
