package strategy

import "mdbus/internal/bus"

type entry struct {
	strat Strategy
	mode  Mode
}

// Multi fans a single Strategy-shaped set of callbacks out to any number
// of child strategies, each participating under its own Mode. Grounded on
// original_source/md-bus/engine/strategy/multi_strategy.hpp.
type Multi struct {
	entries []entry
}

// NewMulti constructs an empty fan-in.
func NewMulti() *Multi {
	return &Multi{}
}

// Add registers a child strategy with the given participation mode.
func (m *Multi) Add(strat Strategy, mode Mode) {
	if strat == nil {
		return
	}
	m.entries = append(m.entries, entry{strat: strat, mode: mode})
}

func (m *Multi) OnTick(t bus.Tick, e bus.Event) {
	for _, en := range m.entries {
		if en.mode == BarOnly {
			continue
		}
		en.strat.OnTick(t, e)
	}
}

func (m *Multi) OnLog(msg string, e bus.Event) {
	for _, en := range m.entries {
		en.strat.OnLog(msg, e)
	}
}

func (m *Multi) OnHeartbeat(e bus.Event) {
	for _, en := range m.entries {
		en.strat.OnHeartbeat(e)
	}
}

func (m *Multi) OnBar(b bus.Bar, e bus.Event) {
	for _, en := range m.entries {
		if en.mode == TickOnly {
			continue
		}
		en.strat.OnBar(b, e)
	}
}

var _ Strategy = (*Multi)(nil)
