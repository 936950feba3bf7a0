// Package strategy is the collaborator framework spec.md §6 names at its
// interface: a tick/bar/log/heartbeat callback contract and a runner
// bridging it to the bus.
package strategy

import "mdbus/internal/bus"

// Strategy is the minimal interface a trading strategy implements to
// react to bus events. OnBar, OnLog, and OnHeartbeat default to no-ops
// via BaseStrategy; only OnTick is mandatory in spec terms. Grounded on
// original_source/md-bus/engine/strategy/strategy.hpp.
type Strategy interface {
	OnTick(t bus.Tick, e bus.Event)
	OnBar(b bus.Bar, e bus.Event)
	OnLog(msg string, e bus.Event)
	OnHeartbeat(e bus.Event)
}

// BaseStrategy supplies no-op defaults for OnBar/OnLog/OnHeartbeat so a
// concrete strategy need only embed it and implement OnTick.
type BaseStrategy struct{}

func (BaseStrategy) OnBar(bus.Bar, bus.Event) {}
func (BaseStrategy) OnLog(string, bus.Event)  {}
func (BaseStrategy) OnHeartbeat(bus.Event)    {}

// Mode controls which topics a MultiStrategy entry participates in.
type Mode int

const (
	// Mixed receives both tick and bar callbacks.
	Mixed Mode = iota
	// TickOnly suppresses OnBar dispatch.
	TickOnly
	// BarOnly suppresses OnTick dispatch.
	BarOnly
)
