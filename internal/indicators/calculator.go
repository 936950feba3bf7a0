// Package indicators is an optional bar-subscriber collaborator that
// maintains rolling technical-indicator series per symbol, feeding
// strategy decision logic. Out of the core bus/bar/replay scope (spec.md
// §1), but gives the go-talib dependency a concrete home rather than
// dropping it (SPEC_FULL.md §6). Grounded on pkg/ta/calculator.go in the
// teacher repo.
package indicators

import (
	"fmt"
	"sync"

	talib "github.com/markcheno/go-talib"
	"go.uber.org/zap"

	"mdbus/internal/bus"
)

// Series holds the rolling OHLCV history and latest computed indicator
// values for one symbol.
type Series struct {
	Symbol string
	Close  []float64
	High   []float64
	Low    []float64
	Volume []float64

	MA       float64
	RSI      float64
	BBandsUp float64
	BBandsDn float64
	ATR      float64
}

// Calculator subscribes to finalized bars and maintains a Series per
// symbol, recomputing indicators once enough history has accumulated.
type Calculator struct {
	busRef *bus.EventBus
	subID  bus.SubID
	logger *zap.SugaredLogger

	mu            sync.RWMutex
	history       map[string]*Series
	minHistoryLen int
	maxHistoryLen int
}

// New constructs a Calculator bound to b, subscribing to BAR_1S only;
// BAR_1M bars are not consumed.
func New(b *bus.EventBus, logger *zap.SugaredLogger) *Calculator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	c := &Calculator{
		busRef:        b,
		logger:        logger,
		history:       make(map[string]*Series),
		minHistoryLen: 30,
		maxHistoryLen: 100,
	}
	c.subID = b.Subscribe(bus.TopicBar1s, c.onBar)
	return c
}

// Close unsubscribes from the bus.
func (c *Calculator) Close() {
	c.busRef.Unsubscribe(c.subID)
}

func (c *Calculator) onBar(e bus.Event) {
	bar, ok := e.Payload.(bus.Bar)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.history[bar.Symbol]
	if !ok {
		s = &Series{Symbol: bar.Symbol}
		c.history[bar.Symbol] = s
	}

	s.Close = append(s.Close, bar.Close)
	s.High = append(s.High, bar.High)
	s.Low = append(s.Low, bar.Low)
	s.Volume = append(s.Volume, float64(bar.Volume))

	if len(s.Close) > c.maxHistoryLen {
		trim := len(s.Close) - c.maxHistoryLen
		s.Close = s.Close[trim:]
		s.High = s.High[trim:]
		s.Low = s.Low[trim:]
		s.Volume = s.Volume[trim:]
	}

	if len(s.Close) < c.minHistoryLen {
		return
	}
	c.recompute(s)
}

func (c *Calculator) recompute(s *Series) {
	ma := talib.Sma(s.Close, 20)
	s.MA = ma[len(ma)-1]

	rsi := talib.Rsi(s.Close, 14)
	s.RSI = rsi[len(rsi)-1]

	up, _, dn := talib.BBands(s.Close, 20, 2, 2, talib.SMA)
	s.BBandsUp = up[len(up)-1]
	s.BBandsDn = dn[len(dn)-1]

	atr := talib.Atr(s.High, s.Low, s.Close, 14)
	s.ATR = atr[len(atr)-1]
}

// Get returns a copy of the indicator series for symbol, or an error if
// history is not yet long enough.
func (c *Calculator) Get(symbol string) (Series, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.history[symbol]
	if !ok || len(s.Close) < c.minHistoryLen {
		return Series{}, fmt.Errorf("indicators: no data for symbol %q", symbol)
	}
	return *s, nil
}
