// Package replay pumps a recorded event log into an EventBus at a
// configurable pace, with topic/symbol/time/count filtering and an
// optional step mode.
package replay

import (
	"bufio"
	"os"
	"time"

	"go.uber.org/zap"

	"mdbus/internal/bus"
)

// StepSource supplies the external "advance" signal consumed in step
// mode. The baseline implementation (stdinStepSource) blocks on a line
// from standard input, matching spec.md §4.3.
type StepSource interface {
	Advance()
}

type stdinStepSource struct {
	scanner *bufio.Scanner
}

func newStdinStepSource() *stdinStepSource {
	return &stdinStepSource{scanner: bufio.NewScanner(os.Stdin)}
}

func (s *stdinStepSource) Advance() {
	s.scanner.Scan()
}

// Engine is the file-to-bus pump described in spec.md §4.3 (component
// C6). Grounded on original_source/md-bus/engine/replay/replay.cpp; the
// filter/cap/step-mode machinery and absolute-schedule pacing are the
// supplemented features named in SPEC_FULL.md §7.
type Engine struct {
	path       string
	logger     *zap.SugaredLogger
	stepSource StepSource

	filter      Filter
	hasFilter   bool
	maxEvents   int
	limitEvents bool
	stepMode    bool
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger attaches a logger; defaults to zap's no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStepSource overrides the default stdin-backed step source, chiefly
// for tests.
func WithStepSource(s StepSource) Option {
	return func(e *Engine) { e.stepSource = s }
}

// New constructs an Engine over path; the file is opened lazily at
// replay time, not here.
func New(path string, opts ...Option) *Engine {
	e := &Engine{
		path:       path,
		logger:     zap.NewNop().Sugar(),
		stepSource: newStdinStepSource(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetFilter installs a replay predicate (spec.md §3).
func (e *Engine) SetFilter(f Filter) {
	e.filter = f
	e.hasFilter = true
}

// ClearFilter removes any installed predicate; every event passes.
func (e *Engine) ClearFilter() {
	e.filter = Filter{}
	e.hasFilter = false
}

// SetMaxEvents caps the number of events this Engine will publish.
func (e *Engine) SetMaxEvents(n int) {
	e.maxEvents = n
	e.limitEvents = true
}

// EnableStepMode toggles waiting for an external advance signal before
// each publish.
func (e *Engine) EnableStepMode(on bool) {
	e.stepMode = on
}

func (e *Engine) passes(ev bus.Event) bool {
	if !e.hasFilter {
		return true
	}
	return e.filter.Matches(ev)
}

// forEachLine opens the file and invokes fn for every non-empty,
// successfully-parsed line, in order. Returns immediately (without
// calling fn) if the file cannot be opened.
func (e *Engine) forEachLine(fn func(bus.Event) (stop bool)) {
	f, err := os.Open(e.path)
	if err != nil {
		e.logger.Errorw("failed to open replay file", "path", e.path, "error", err)
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		ev, ok := bus.ParseEvent(line)
		if !ok {
			e.logger.Warnw("failed to parse replay line", "line", line)
			continue
		}
		if fn(ev) {
			return
		}
	}
}

// ReplayFast publishes every passing event as fast as possible.
func (e *Engine) ReplayFast(b *bus.EventBus) {
	e.logger.Infow("starting fast replay", "path", e.path)
	published := 0
	e.forEachLine(func(ev bus.Event) bool {
		if ev.Header.TsNs == 0 {
			return false
		}
		if !e.passes(ev) {
			return false
		}
		if e.limitEvents && published >= e.maxEvents {
			return true
		}
		if e.stepMode {
			e.stepSource.Advance()
		}
		b.Publish(ev)
		published++
		return e.limitEvents && published >= e.maxEvents
	})
	e.logger.Infow("fast replay finished", "published", published)
}

// ReplayRealtime publishes with inter-event delays equal to the recorded
// ts_ns deltas (equivalent to ReplaySpeed(b, 1.0)).
func (e *Engine) ReplayRealtime(b *bus.EventBus) {
	e.ReplaySpeed(b, 1.0)
}

// ReplaySpeed paces publication using absolute scheduling: the first
// passing event publishes immediately and anchors wall_start/first_ts;
// every subsequent event is published at
// wall_start + (ts_ns-first_ts)/speed, which is drift-free (spec.md §9's
// Open Question, resolved in favor of absolute over delta-only pacing).
// speed <= 0 is clamped to 1.0 with a warning.
func (e *Engine) ReplaySpeed(b *bus.EventBus, speed float64) {
	if speed <= 0 {
		e.logger.Warnw("invalid replay speed, using 1.0", "speed", speed)
		speed = 1.0
	}
	e.logger.Infow("starting timed replay", "path", e.path, "speed", speed)

	published := 0
	first := true
	var firstTs uint64
	var wallStart time.Time

	e.forEachLine(func(ev bus.Event) bool {
		if ev.Header.TsNs == 0 {
			e.logger.Infow("skipping internal stop event", "seq", ev.Header.Seq, "topic", ev.Header.Topic)
			return false
		}
		if !e.passes(ev) {
			return false
		}
		if e.limitEvents && published >= e.maxEvents {
			return true
		}

		if first {
			first = false
			firstTs = ev.Header.TsNs
			wallStart = time.Now()
		} else {
			dtNs := int64(ev.Header.TsNs) - int64(firstTs)
			if dtNs < 0 {
				dtNs = 0
			}
			publishAt := wallStart.Add(time.Duration(float64(dtNs) / speed))
			if d := time.Until(publishAt); d > 0 {
				time.Sleep(d)
			}
		}

		if e.stepMode {
			e.stepSource.Advance()
		}
		b.Publish(ev)
		published++
		return e.limitEvents && published >= e.maxEvents
	})
	e.logger.Infow("timed replay finished", "published", published)
}
