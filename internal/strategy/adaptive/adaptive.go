package adaptive

import (
	"go.uber.org/zap"

	"mdbus/internal/accounting"
	"mdbus/internal/bus"
	"mdbus/internal/indicators"
	"mdbus/internal/strategy"
)

// AdaptiveStrategy sizes a single long position on and off in response to
// the state machine's regime classification for each bar. It trades only
// in StateStrongUpTrend and flattens in every other regime, a trimmed
// stand-in for the threshold/stop-loss/take-profit decision tree built
// by internal/strategy/signal_generator.go in the teacher repo (order
// management and execution are out of scope, see DESIGN.md's deleted
// teacher packages).
type AdaptiveStrategy struct {
	strategy.BaseStrategy

	sm     *StateMachine
	acct   *accounting.Account
	qty    int
	logger *zap.SugaredLogger
	lastPq map[string]float64
}

// New constructs an AdaptiveStrategy trading qty units per position,
// driven by calc's rolling indicators and recording fills into acct.
func New(calc *indicators.Calculator, acct *accounting.Account, qty int, logger *zap.SugaredLogger) *AdaptiveStrategy {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &AdaptiveStrategy{
		sm:     NewStateMachine(calc, logger),
		acct:   acct,
		qty:    qty,
		logger: logger,
		lastPq: make(map[string]float64),
	}
}

// OnTick tracks the latest observed price per symbol so unrealized PnL
// and drawdown can be recomputed between bar closes.
func (s *AdaptiveStrategy) OnTick(t bus.Tick, _ bus.Event) {
	s.lastPq[t.Symbol] = t.Pq
	s.acct.UpdateEquity(t.Pq)
}

// OnBar re-classifies the symbol's regime and opens or closes the
// account's position accordingly.
func (s *AdaptiveStrategy) OnBar(b bus.Bar, e bus.Event) {
	state := s.sm.CheckAndTransition(b.Symbol)
	s.lastPq[b.Symbol] = b.Close

	switch {
	case state == StateStrongUpTrend && !s.acct.HasOpenPosition():
		s.acct.OpenLong(b.Symbol, s.qty, b.Close, e.Header.TsNs)
	case state != StateStrongUpTrend && s.acct.HasOpenPosition():
		s.acct.ClosePosition(b.Close, e.Header.TsNs, accounting.ExitThreshold)
	}

	s.acct.UpdateEquity(b.Close)
}
