package adaptive

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mdbus/internal/accounting"
	"mdbus/internal/bus"
	"mdbus/internal/indicators"
)

func feedUptrend(t *testing.T, calc *indicators.Calculator, b *bus.EventBus, symbol string, n int, start float64) {
	t.Helper()
	price := start
	for i := 0; i < n; i++ {
		bar := bus.Bar{Symbol: symbol, Close: price, High: price + 1, Low: price - 1}
		b.Publish(bus.Event{Header: bus.Header{Topic: bus.TopicBar1s}, Payload: bar})
		price += 1.0
	}
}

func TestStateMachine_ClassifiesInitialWithoutHistory(t *testing.T) {
	b := bus.New()
	defer b.Stop()
	calc := indicators.New(b, nil)
	defer calc.Close()

	sm := NewStateMachine(calc, nil)
	assert.Equal(t, StateInitial, sm.GetCurrentState("BTCUSDT"))
}

func TestAdaptiveStrategy_BarFeedDoesNotPanic(t *testing.T) {
	b := bus.New(bus.WithIngressCapacity(256), bus.WithPerSubCapacity(256))
	defer b.Stop()

	calc := indicators.New(b, nil)
	defer calc.Close()

	acct := accounting.New(0, nil)
	strat := New(calc, acct, 1, nil)

	sub := b.Subscribe(bus.TopicBar1s, func(e bus.Event) {
		if bar, ok := e.Payload.(bus.Bar); ok {
			strat.OnBar(bar, e)
		}
	})
	defer b.Unsubscribe(sub)

	feedUptrend(t, calc, b, "BTCUSDT", 40, 100.0)

	// Not asserting a specific position side/state here: the classifier's
	// exact regime depends on go-talib's window warm-up, which this
	// synthetic strictly-increasing feed exercises without a data source.
	// The assertion covers publishing a further bar feed while the strategy
	// is subscribed; OnBar itself runs on the bus worker goroutine, where a
	// panic is caught and logged by the bus rather than surfacing here.
	assert.NotPanics(t, func() {
		feedUptrend(t, calc, b, "BTCUSDT", 10, 140.0)
	})
}
