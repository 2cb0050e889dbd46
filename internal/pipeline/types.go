package pipeline

import (
	"image"
	"io"
	"log"
	"time"

	"imgalpha/internal/engine"
)

// DefaultDebounce is the quiet period after the last option edit before a
// recomputation is issued.
const DefaultDebounce = 50 * time.Millisecond

// Source is a decoded image plus what is known about the file it came from.
// It is shared read-only with running engine calls.
type Source struct {
	Name   string
	Pixels *image.NRGBA
	// Encoded is the PNG export of Pixels unchanged. For PNG files it is the
	// file itself.
	Encoded []byte
	Size    int64
	Colors  int
}

// Snapshot is a copy of the coordinator state handed to subscribers.
type Snapshot struct {
	// Options are the most recent options, including ones still waiting
	// for the debounce window to close.
	Options engine.Options
	// Applied are the options that produced Image and Encoded.
	Applied engine.Options

	Source  *Source
	Image   image.Image
	Encoded []byte

	Busy   bool
	Status string
	Err    error

	Issued    uint64
	Accepted  uint64
	Discarded uint64
}

// HasResult reports whether export bytes are available.
func (s Snapshot) HasResult() bool { return s.Encoded != nil }

type Config struct {
	Engine   engine.Engine
	Debounce time.Duration
	Options  engine.Options
	Logger   *log.Logger
}

func (c Config) withDefaults() Config {
	if c.Engine == nil {
		c.Engine = engine.MedianCut{}
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.Options == (engine.Options{}) {
		c.Options = engine.DefaultOptions()
	}
	c.Options = c.Options.Normalize()
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}
	return c
}

type event interface{ isEvent() }

type optionsChanged struct{ opts engine.Options }

type sourceChanged struct{ src *Source }

type completed struct {
	seq  uint64
	opts engine.Options
	res  engine.Result
	err  error
}

type subscribe struct {
	id int
	ch chan Snapshot
}

type unsubscribe struct{ id int }

func (optionsChanged) isEvent() {}
func (sourceChanged) isEvent()  {}
func (completed) isEvent()      {}
func (subscribe) isEvent()      {}
func (unsubscribe) isEvent()    {}
