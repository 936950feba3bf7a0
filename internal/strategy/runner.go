package strategy

import (
	"go.uber.org/zap"

	"mdbus/internal/bus"
)

// RunnerMode selects which topics the Runner subscribes to, per spec.md
// §6's strategy callback contract.
type RunnerMode int

const (
	// RunnerMixed subscribes to MD_TICK, LOG, HEARTBEAT, and BAR_1S.
	RunnerMixed RunnerMode = iota
	// RunnerTickOnly subscribes to MD_TICK, LOG, HEARTBEAT only.
	RunnerTickOnly
	// RunnerBarOnly subscribes to BAR_1S, LOG, HEARTBEAT only (no ticks).
	RunnerBarOnly
)

// Runner bridges an EventBus and a Strategy: subscribes to the relevant
// topics, dispatches payload-matching events into the strategy's
// callbacks, and unsubscribes on Close. Grounded on
// original_source/md-bus/engine/strategy/runner.hpp.
type Runner struct {
	busRef *bus.EventBus
	strat  Strategy
	logger *zap.SugaredLogger

	subTicks bus.SubID
	subLogs  bus.SubID
	subHB    bus.SubID
	subBars  bus.SubID
}

// New constructs a Runner bridging b and strat under the given mode.
func New(b *bus.EventBus, strat Strategy, mode RunnerMode, logger *zap.SugaredLogger) *Runner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &Runner{busRef: b, strat: strat, logger: logger}

	if mode != RunnerBarOnly {
		r.subTicks = b.Subscribe(bus.TopicMDTick, func(e bus.Event) {
			tick, ok := e.Payload.(bus.Tick)
			if !ok {
				logger.Warnw("Runner: MD_TICK event without Tick payload", "seq", e.Header.Seq)
				return
			}
			strat.OnTick(tick, e)
		})
	}

	r.subLogs = b.Subscribe(bus.TopicLog, func(e bus.Event) {
		msg, ok := e.Payload.(bus.LogText)
		if !ok {
			return
		}
		strat.OnLog(string(msg), e)
	})

	r.subHB = b.Subscribe(bus.TopicHeartbeat, func(e bus.Event) {
		strat.OnHeartbeat(e)
	})

	if mode != RunnerTickOnly {
		r.subBars = b.Subscribe(bus.TopicBar1s, func(e bus.Event) {
			bar, ok := e.Payload.(bus.Bar)
			if !ok {
				return
			}
			strat.OnBar(bar, e)
		})
	}

	return r
}

// Close unsubscribes from every topic the Runner registered. The bus must
// still be live when Close is called.
func (r *Runner) Close() {
	if r.subTicks != 0 {
		r.busRef.Unsubscribe(r.subTicks)
	}
	r.busRef.Unsubscribe(r.subLogs)
	r.busRef.Unsubscribe(r.subHB)
	if r.subBars != 0 {
		r.busRef.Unsubscribe(r.subBars)
	}
}
