package replay

import "mdbus/internal/bus"

// Filter is the replay predicate configuration from spec.md §3: an AND of
// whichever clauses are active. The symbol clause only applies to Tick
// payloads; a non-Tick event is rejected while it is active.
type Filter struct {
	Topic     bus.Topic
	TopicSet  bool
	Symbol    string
	SymbolSet bool
	TsMin     uint64
	TsMax     uint64
	TimeSet   bool
}

// Matches reports whether e passes every active clause of f.
func (f Filter) Matches(e bus.Event) bool {
	if f.TopicSet && e.Header.Topic != f.Topic {
		return false
	}
	if f.SymbolSet {
		tick, ok := e.Payload.(bus.Tick)
		if !ok || tick.Symbol != f.Symbol {
			return false
		}
	}
	if f.TimeSet && (e.Header.TsNs < f.TsMin || e.Header.TsNs > f.TsMax) {
		return false
	}
	return true
}
