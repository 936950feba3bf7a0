// Package bar aggregates MD_TICK events into finalized OHLCV bars.
package bar

import (
	"sync"

	"go.uber.org/zap"

	"mdbus/internal/bus"
)

// NsPerSecond is the default bucket width (1s).
const NsPerSecond uint64 = 1_000_000_000

type barState struct {
	active   bool
	bucketID uint64
	bar      bus.Bar
}

// Builder is a stateful per-symbol time-bucket OHLCV aggregator (spec.md
// §4.2, component C5). It subscribes to MD_TICK on construction and
// publishes finalized bars back onto the bus on TopicBar1s. Grounded on
// original_source/md-bus/engine/bar/bar_builder.hpp, with the bucket
// rollover / in-place update shape carried from the teacher's
// KlineAggregator.ProcessTicker in internal/model/data_engine.go.
type Builder struct {
	busRef   *bus.EventBus
	bucketNs uint64
	subID    bus.SubID
	logger   *zap.SugaredLogger
	topic    bus.Topic

	mu    sync.Mutex
	state map[string]*barState
}

// New constructs a Builder bound to b with the given bucket width in
// nanoseconds (defaults to NsPerSecond when bucketNs is 0) and subscribes
// it to MD_TICK immediately.
func New(b *bus.EventBus, bucketNs uint64, logger *zap.SugaredLogger) *Builder {
	if bucketNs == 0 {
		bucketNs = NsPerSecond
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	builder := &Builder{
		busRef:   b,
		bucketNs: bucketNs,
		logger:   logger,
		topic:    bus.TopicBar1s,
		state:    make(map[string]*barState),
	}
	builder.subID = b.Subscribe(bus.TopicMDTick, builder.onTick)
	logger.Infow("BarBuilder subscribed to MD_TICK", "bucket_ns", bucketNs)
	return builder
}

// Close flushes all open bars and unsubscribes. Safe to call once.
func (builder *Builder) Close() {
	builder.FlushAll()
	builder.busRef.Unsubscribe(builder.subID)
	builder.logger.Infow("BarBuilder unsubscribed and flushed")
}

func (builder *Builder) onTick(e bus.Event) {
	tick, ok := e.Payload.(bus.Tick)
	if !ok {
		return
	}
	ts := e.Header.TsNs
	if ts == 0 {
		return
	}

	bucketID := ts / builder.bucketNs

	builder.mu.Lock()
	defer builder.mu.Unlock()

	st, ok := builder.state[tick.Symbol]
	if !ok {
		st = &barState{}
		builder.state[tick.Symbol] = st
	}

	if !st.active {
		builder.openBar(st, tick, bucketID, ts)
		return
	}

	if bucketID != st.bucketID {
		st.bar.EndTsNs = (st.bucketID+1)*builder.bucketNs - 1
		builder.publishBar(st.bar)
		builder.openBar(st, tick, bucketID, ts)
		return
	}

	if tick.Pq > st.bar.High {
		st.bar.High = tick.Pq
	}
	if tick.Pq < st.bar.Low {
		st.bar.Low = tick.Pq
	}
	st.bar.Close = tick.Pq
	st.bar.Volume += int64(tick.Qty)
	st.bar.EndTsNs = ts
}

func (builder *Builder) openBar(st *barState, tick bus.Tick, bucketID, ts uint64) {
	st.active = true
	st.bucketID = bucketID
	st.bar = bus.Bar{
		Symbol:    tick.Symbol,
		Open:      tick.Pq,
		High:      tick.Pq,
		Low:       tick.Pq,
		Close:     tick.Pq,
		Volume:    int64(tick.Qty),
		StartTsNs: bucketID * builder.bucketNs,
		EndTsNs:   ts,
	}
}

func (builder *Builder) publishBar(b bus.Bar) {
	builder.logger.Debugw("BarBuilder publishing bar",
		"symbol", b.Symbol, "open", b.Open, "high", b.High, "low", b.Low, "close", b.Close, "volume", b.Volume)
	builder.busRef.Publish(bus.Event{
		Header:  bus.Header{Topic: builder.topic},
		Payload: b,
	})
}

// FlushAll publishes every active bar with its current EndTsNs (not
// bucket-edge-rounded — a live flush preserves the last tick time), then
// deactivates them. Idempotent: a bar with no activity since the last
// flush is simply skipped.
func (builder *Builder) FlushAll() {
	builder.mu.Lock()
	defer builder.mu.Unlock()
	for _, st := range builder.state {
		if !st.active {
			continue
		}
		builder.publishBar(st.bar)
		st.active = false
	}
}
