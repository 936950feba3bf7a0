package bus

import (
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// Callback is invoked on a subscriber's dedicated worker goroutine for
// every event routed to it.
type Callback func(Event)

// SubID is a process-unique identifier allocated monotonically from 1.
type SubID uint64

const invalidSubID SubID = 0

const (
	defaultIngressCapacity = 65536
	defaultPerSubCapacity  = 65536
	maxTrackedTopics       = 8
)

// Stats is a point-in-time snapshot of the bus's counters (§4.1 stats()).
type Stats struct {
	Published     uint64
	IngressPopped uint64
	TopicCounts   map[Topic]uint64
}

type subSlot struct {
	topic Topic
	all   bool
	queue *boundedQueue
	cb    Callback
	run   atomic.Bool
	done  chan struct{}
	subID SubID
}

// EventBus is the single-writer-to-many-reader router described in
// spec.md §4.1. One reactor goroutine drains the ingress queue and fans
// each event out to per-subscriber queues; each subscription owns a
// dedicated worker goroutine that pops from its queue and invokes the
// user callback. Grounded on original_source/md-bus/engine/bus/bus.cpp,
// expressed with goroutines and mutex/condition-variable queues in the idiom of the teacher's
// Connector/DataEngine producer-consumer loops.
type EventBus struct {
	logger *zap.SugaredLogger

	ingress    *boundedQueue
	perSubCap  int
	reactorRun atomic.Bool
	stopped    atomic.Bool
	reactorWg  sync.WaitGroup

	mu      sync.Mutex
	subs    map[SubID]*subSlot // topic-filtered
	allSubs map[SubID]*subSlot // subscribe_all

	publishMu sync.Mutex
	seq       atomic.Uint64
	nextID    atomic.Uint64

	published     atomic.Uint64
	ingressPopped atomic.Uint64
	topicCounts   [maxTrackedTopics]atomic.Uint64
}

// Option configures an EventBus at construction time.
type Option func(*busConfig)

type busConfig struct {
	ingressCap int
	perSubCap  int
	logger     *zap.SugaredLogger
}

// WithIngressCapacity overrides the default 65536-entry ingress queue.
func WithIngressCapacity(n int) Option {
	return func(c *busConfig) { c.ingressCap = n }
}

// WithPerSubCapacity overrides the default 65536-entry per-subscriber queue.
func WithPerSubCapacity(n int) Option {
	return func(c *busConfig) { c.perSubCap = n }
}

// WithLogger attaches a logger; defaults to zap's no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *busConfig) { c.logger = l }
}

// New constructs the bus and starts its reactor goroutine. Defaults match
// spec.md §4.1: 65,536 ingress / 65,536 per-subscriber capacity.
func New(opts ...Option) *EventBus {
	cfg := busConfig{
		ingressCap: defaultIngressCapacity,
		perSubCap:  defaultPerSubCapacity,
		logger:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &EventBus{
		logger:    cfg.logger,
		ingress:   newBoundedQueue(cfg.ingressCap),
		perSubCap: cfg.perSubCap,
		subs:      make(map[SubID]*subSlot),
		allSubs:   make(map[SubID]*subSlot),
	}
	b.nextID.Store(1)
	b.reactorRun.Store(true)

	b.logger.Infow("EventBus starting", "ingress_cap", cfg.ingressCap, "per_sub_cap", cfg.perSubCap)

	b.reactorWg.Add(1)
	go b.reactorLoop()
	return b
}

// Subscribe registers a topic-filtered subscriber and returns its id.
// Rejected (returns invalidSubID) once the bus has been stopped.
func (b *EventBus) Subscribe(topic Topic, cb Callback) SubID {
	return b.addSub(topic, false, cb)
}

// SubscribeAll registers a subscriber that receives every routed event.
func (b *EventBus) SubscribeAll(cb Callback) SubID {
	return b.addSub(0, true, cb)
}

func (b *EventBus) addSub(topic Topic, all bool, cb Callback) SubID {
	if b.stopped.Load() {
		b.logger.Warnw("subscribe rejected: bus stopped")
		return invalidSubID
	}

	id := SubID(b.nextID.Add(1) - 1)
	slot := &subSlot{
		topic: topic,
		all:   all,
		queue: newBoundedQueue(b.perSubCap),
		cb:    cb,
		done:  make(chan struct{}),
		subID: id,
	}
	slot.run.Store(true)

	b.mu.Lock()
	if all {
		b.allSubs[id] = slot
	} else {
		b.subs[id] = slot
	}
	b.mu.Unlock()

	go b.workerLoop(slot)
	return id
}

// Unsubscribe removes the subscription, stops and joins its worker after
// a best-effort drain of events already routed to it. No-op on an unknown
// id (spec.md §7: contract violations are silently no-op).
func (b *EventBus) Unsubscribe(id SubID) {
	b.mu.Lock()
	slot, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	} else if slot, ok = b.allSubs[id]; ok {
		delete(b.allSubs, id)
	}
	b.mu.Unlock()

	if slot == nil {
		return
	}

	slot.run.Store(false)
	slot.queue.push(sentinelEvent()) // wake a blocked worker
	<-slot.done
}

// Publish stamps the event's Seq (next monotonic) and TsNs (current
// monotonic nanoseconds), then enqueues it onto ingress. Returns whether
// ingress accepted it; false once the bus is stopped.
func (b *EventBus) Publish(e Event) bool {
	if b.stopped.Load() {
		return false
	}
	// Stamping and the ingress push happen under one lock so that ingress
	// order matches seq order across concurrent publishers.
	b.publishMu.Lock()
	defer b.publishMu.Unlock()
	e.Header.Seq = b.seq.Add(1) - 1
	e.Header.TsNs = nowNs()
	b.published.Add(1)
	return b.ingress.push(e)
}

// reactorLoop drains ingress and fans each event out under the registry
// lock. Runs until Stop() flips reactorRun and wakes it with a sentinel,
// then drains whatever remains in ingress (still routing it) before
// exiting, matching spec.md §4.1's lifecycle state machine.
func (b *EventBus) reactorLoop() {
	defer b.reactorWg.Done()
	for b.reactorRun.Load() {
		e, ok := b.ingress.pop()
		if !ok {
			continue
		}
		b.route(e)
	}
	for {
		e, ok := b.ingress.tryPop()
		if !ok {
			break
		}
		b.route(e)
	}
}

func (b *EventBus) route(e Event) {
	if e.sentinel {
		return
	}

	b.ingressPopped.Add(1)
	if idx := int(e.Header.Topic); idx < maxTrackedTopics {
		b.topicCounts[idx].Add(1)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, slot := range b.subs {
		if slot.topic == e.Header.Topic {
			slot.queue.push(e)
		}
	}
	for _, slot := range b.allSubs {
		slot.queue.push(e)
	}
}

// workerLoop is the per-subscription consumer: pop, invoke callback,
// repeat. A panic inside the callback is caught and logged with the
// subscription id and event header; the subscription continues (spec.md
// §7 item 5). On run=false it drains any remaining queued events
// (invoking the callback for each, minus sentinels) before exiting, so
// Unsubscribe observes every event routed prior to the call.
func (b *EventBus) workerLoop(slot *subSlot) {
	defer close(slot.done)
	for slot.run.Load() {
		e, ok := slot.queue.pop()
		if !ok {
			continue
		}
		b.dispatch(slot, e)
	}
	for {
		e, ok := slot.queue.tryPop()
		if !ok {
			break
		}
		b.dispatch(slot, e)
	}
}

func (b *EventBus) dispatch(slot *subSlot, e Event) {
	if e.sentinel {
		return
	}
	var pc panics.Catcher
	pc.Try(func() { slot.cb(e) })
	if r := pc.Recovered(); r != nil {
		b.logger.Errorw("subscriber callback panicked",
			"sub_id", slot.subID, "seq", e.Header.Seq, "topic", e.Header.Topic, "panic", r.Value)
	}
}

// Stop gracefully shuts down the bus: flips the run flag, wakes the
// reactor with a sentinel, joins it, then unsubscribes every outstanding
// subscription (which joins each worker in turn). Idempotent.
func (b *EventBus) Stop() {
	if !b.stopped.CompareAndSwap(false, true) {
		return
	}
	b.reactorRun.Store(false)
	b.ingress.push(sentinelEvent())
	b.ingress.close()
	b.logger.Infow("EventBus stopping")
	b.reactorWg.Wait()

	b.mu.Lock()
	ids := make([]SubID, 0, len(b.subs)+len(b.allSubs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	for id := range b.allSubs {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	for _, id := range ids {
		b.Unsubscribe(id)
	}
}

// Stats returns a snapshot of the bus's counters.
func (b *EventBus) Stats() Stats {
	s := Stats{
		Published:     b.published.Load(),
		IngressPopped: b.ingressPopped.Load(),
		TopicCounts:   make(map[Topic]uint64),
	}
	for idx := range b.topicCounts {
		if v := b.topicCounts[idx].Load(); v > 0 {
			s.TopicCounts[Topic(idx)] = v
		}
	}
	return s
}
