package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mdbus/internal/bus"
)

func TestCalculator_NoDataBeforeMinHistory(t *testing.T) {
	b := bus.New()
	defer b.Stop()
	c := New(b, nil)
	defer c.Close()

	_, err := c.Get("BTCUSDT")
	assert.Error(t, err)
}

func TestCalculator_ComputesSeriesOnceHistoryLongEnough(t *testing.T) {
	b := bus.New(bus.WithIngressCapacity(256), bus.WithPerSubCapacity(256))
	defer b.Stop()
	c := New(b, nil)
	defer c.Close()

	price := 100.0
	for i := 0; i < 35; i++ {
		b.Publish(bus.Event{
			Header:  bus.Header{Topic: bus.TopicBar1s},
			Payload: bus.Bar{Symbol: "BTCUSDT", Close: price, High: price + 1, Low: price - 1},
		})
		price += 0.5
	}
	time.Sleep(50 * time.Millisecond)

	series, err := c.Get("BTCUSDT")
	assert.NoError(t, err)
	assert.NotZero(t, series.MA)
}

func TestCalculator_IgnoresNonBarPayload(t *testing.T) {
	b := bus.New()
	defer b.Stop()
	c := New(b, nil)
	defer c.Close()

	assert.NotPanics(t, func() {
		b.Publish(bus.Event{Header: bus.Header{Topic: bus.TopicBar1s}, Payload: bus.LogText("not a bar")})
		time.Sleep(10 * time.Millisecond)
	})
}
