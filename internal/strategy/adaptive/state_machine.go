// Package adaptive is an example strategy: a regime-classifying state
// machine driving position sizing through the accounting ledger.
// Grounded on internal/strategy/state_machine.go and
// internal/strategy/signal_generator.go in the teacher repo, simplified
// to the single BAR_1S timeframe this bus emits (the teacher's
// multi-interval H1/H4 cross-check has no analogue here) and rewired
// onto internal/indicators and internal/accounting instead of the
// teacher's multi-timeframe TACalculator and Okx executor.
package adaptive

import (
	"sync"

	"go.uber.org/zap"

	"mdbus/internal/indicators"
)

// MarketState classifies the current regime for a symbol.
type MarketState string

const (
	StateStrongUpTrend   MarketState = "STRONG_UP_TREND"
	StateStrongDownTrend MarketState = "STRONG_DOWN_TREND"
	StateHighVolRanging  MarketState = "HIGH_VOL_RANGING"
	StateLowVolRanging   MarketState = "LOW_VOL_RANGING"
	StateInitial         MarketState = "INITIALIZING"
)

// StateMachine classifies a symbol's market regime from its rolling
// indicator series.
type StateMachine struct {
	mu    sync.RWMutex
	state map[string]MarketState

	calc   *indicators.Calculator
	logger *zap.SugaredLogger

	trendRSIThreshold float64
	atrVolThreshold   float64
}

// NewStateMachine constructs a StateMachine reading from calc.
func NewStateMachine(calc *indicators.Calculator, logger *zap.SugaredLogger) *StateMachine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &StateMachine{
		state:             make(map[string]MarketState),
		calc:              calc,
		logger:            logger,
		trendRSIThreshold: 60.0,
		atrVolThreshold:   0.0005,
	}
}

// CheckAndTransition recomputes symbol's regime from the latest indicator
// series and records the transition.
func (sm *StateMachine) CheckAndTransition(symbol string) MarketState {
	series, err := sm.calc.Get(symbol)
	if err != nil {
		return sm.GetCurrentState(symbol)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	prev := sm.state[symbol]
	next := sm.classify(series)

	if next != prev {
		sm.logger.Infow("state transition", "symbol", symbol, "from", prev, "to", next,
			"rsi", series.RSI, "atr", series.ATR)
		sm.state[symbol] = next
	}
	return next
}

func (sm *StateMachine) classify(series indicators.Series) MarketState {
	if len(series.Close) == 0 {
		return StateInitial
	}
	last := series.Close[len(series.Close)-1]

	aboveMA := last > series.MA
	belowMA := last < series.MA

	if aboveMA && series.RSI >= sm.trendRSIThreshold {
		return StateStrongUpTrend
	}
	if belowMA && series.RSI <= (100-sm.trendRSIThreshold) {
		return StateStrongDownTrend
	}

	if last == 0 {
		return StateLowVolRanging
	}
	if series.ATR/last >= sm.atrVolThreshold {
		return StateHighVolRanging
	}
	return StateLowVolRanging
}

// GetCurrentState returns the last classified regime for symbol
// (StateInitial if never classified).
func (sm *StateMachine) GetCurrentState(symbol string) MarketState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if s, ok := sm.state[symbol]; ok {
		return s
	}
	return StateInitial
}
