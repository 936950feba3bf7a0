package bar

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdbus/internal/bus"
)

func publishTick(b *bus.EventBus, symbol string, pq float64, qty uint32) {
	b.Publish(bus.Event{Header: bus.Header{Topic: bus.TopicMDTick}, Payload: bus.Tick{Symbol: symbol, Pq: pq, Qty: qty}})
}

func subscribeBars(b *bus.EventBus) chan bus.Bar {
	out := make(chan bus.Bar, 16)
	b.Subscribe(bus.TopicBar1s, func(e bus.Event) {
		if bar, ok := e.Payload.(bus.Bar); ok {
			out <- bar
		}
	})
	return out
}

func TestBuilder_FlushAllPublishesOHLC(t *testing.T) {
	b := bus.New(bus.WithIngressCapacity(256), bus.WithPerSubCapacity(256))
	defer b.Stop()

	builder := New(b, 0, nil)
	defer builder.Close()

	bars := subscribeBars(b)

	publishTick(b, "BTCUSDT", 100, 1)
	publishTick(b, "BTCUSDT", 105, 1)
	publishTick(b, "BTCUSDT", 95, 1)
	publishTick(b, "BTCUSDT", 102, 1)
	time.Sleep(50 * time.Millisecond)

	builder.FlushAll()

	select {
	case got := <-bars:
		assert.Equal(t, "BTCUSDT", got.Symbol)
		assert.Equal(t, 100.0, got.Open)
		assert.Equal(t, 105.0, got.High)
		assert.Equal(t, 95.0, got.Low)
		assert.Equal(t, 102.0, got.Close)
		assert.Equal(t, int64(4), got.Volume)
		assert.True(t, got.Low <= got.Open && got.Open <= got.High)
		assert.True(t, got.Low <= got.Close && got.Close <= got.High)
		assert.True(t, got.StartTsNs <= got.EndTsNs)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for flushed bar")
	}
}

func TestBuilder_FlushAllIsIdempotentWhenNoActivity(t *testing.T) {
	b := bus.New()
	defer b.Stop()
	builder := New(b, 0, nil)
	defer builder.Close()

	var count int
	var mu sync.Mutex
	b.Subscribe(bus.TopicBar1s, func(e bus.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	builder.FlushAll()
	builder.FlushAll()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, count)
}

func TestBuilder_IgnoresNonTickPayload(t *testing.T) {
	b := bus.New()
	defer b.Stop()
	builder := New(b, 0, nil)
	defer builder.Close()

	require.NotPanics(t, func() {
		b.Publish(bus.Event{Header: bus.Header{Topic: bus.TopicMDTick}, Payload: bus.LogText("not a tick")})
		time.Sleep(10 * time.Millisecond)
	})
}
