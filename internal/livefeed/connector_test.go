package livefeed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdbus/internal/bus"
)

func TestNew_SkipsSymbolsTooShortForInstrumentMapping(t *testing.T) {
	b := bus.New()
	defer b.Stop()
	c := New(b, "wss://example.invalid", []string{"BTCUSDT", "BTC"}, nil)
	assert.Len(t, c.instToSymbol, 1)
}

func TestHandleMessage_PublishesTickFromTrade(t *testing.T) {
	b := bus.New(bus.WithIngressCapacity(16), bus.WithPerSubCapacity(16))
	defer b.Stop()

	c := New(b, "wss://example.invalid", []string{"BTCUSDT"}, nil)

	got := make(chan bus.Tick, 1)
	b.Subscribe(bus.TopicMDTick, func(e bus.Event) {
		if t, ok := e.Payload.(bus.Tick); ok {
			got <- t
		}
	})

	msg := []byte(`{"arg":{"channel":"trades","instId":"BTC-USDT-SWAP"},"data":[{"ts":"1","px":"42000.5","sz":"3","side":"buy"}]}`)
	c.handleMessage(msg)

	select {
	case tick := <-got:
		assert.Equal(t, "BTCUSDT", tick.Symbol)
		assert.Equal(t, 42000.5, tick.Pq)
		assert.Equal(t, uint32(3), tick.Qty)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tick published from trade message")
	}
}

func TestHandleMessage_IgnoresUnknownInstrument(t *testing.T) {
	b := bus.New()
	defer b.Stop()
	c := New(b, "wss://example.invalid", []string{"BTCUSDT"}, nil)

	require.NotPanics(t, func() {
		c.handleMessage([]byte(`{"arg":{"channel":"trades","instId":"ETH-USDT-SWAP"},"data":[]}`))
	})
}

func TestHandleMessage_IgnoresSubscribeAck(t *testing.T) {
	b := bus.New()
	defer b.Stop()
	c := New(b, "wss://example.invalid", []string{"BTCUSDT"}, nil)

	require.NotPanics(t, func() {
		c.handleMessage([]byte(`{"event":"subscribe","arg":{"channel":"trades","instId":"BTC-USDT-SWAP"}}`))
	})
}
