package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEventBus_StopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := New(WithIngressCapacity(16), WithPerSubCapacity(16))
	id := b.Subscribe(TopicMDTick, func(Event) {})
	require.NotEqual(t, invalidSubID, id)

	require.True(t, b.Publish(Event{Header: Header{Topic: TopicMDTick}, Payload: Tick{Symbol: "X"}}))
	time.Sleep(10 * time.Millisecond)

	b.Stop()
	assert.False(t, b.Publish(Event{Header: Header{Topic: TopicMDTick}}))
}

func TestEventBus_PerSubscriberOrdering(t *testing.T) {
	b := New(WithIngressCapacity(64), WithPerSubCapacity(64))
	defer b.Stop()

	var mu sync.Mutex
	var seen []uint64
	done := make(chan struct{})

	b.Subscribe(TopicMDTick, func(e Event) {
		mu.Lock()
		seen = append(seen, e.Header.Seq)
		if len(seen) == 10 {
			close(done)
		}
		mu.Unlock()
	})

	for i := 0; i < 10; i++ {
		require.True(t, b.Publish(Event{Header: Header{Topic: TopicMDTick}, Payload: Tick{Symbol: "X"}}))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for all events")
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seen); i++ {
		assert.Less(t, seen[i-1], seen[i], "events must be delivered in publish order per subscriber")
	}
}

func TestEventBus_TopicFiltering(t *testing.T) {
	b := New(WithIngressCapacity(64), WithPerSubCapacity(64))
	defer b.Stop()

	var tickCount, logCount int
	var mu sync.Mutex
	done := make(chan struct{})

	b.Subscribe(TopicMDTick, func(e Event) {
		mu.Lock()
		tickCount++
		mu.Unlock()
	})
	b.Subscribe(TopicLog, func(e Event) {
		mu.Lock()
		logCount++
		if logCount == 1 {
			close(done)
		}
		mu.Unlock()
	})

	b.Publish(Event{Header: Header{Topic: TopicMDTick}, Payload: Tick{Symbol: "X"}})
	b.Publish(Event{Header: Header{Topic: TopicLog}, Payload: LogText("hi")})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, tickCount)
	assert.Equal(t, 1, logCount)
}

func TestEventBus_CallbackPanicDoesNotKillSubscription(t *testing.T) {
	b := New(WithIngressCapacity(16), WithPerSubCapacity(16))
	defer b.Stop()

	var count int
	var mu sync.Mutex
	done := make(chan struct{})

	b.Subscribe(TopicMDTick, func(e Event) {
		mu.Lock()
		count++
		n := count
		mu.Unlock()
		if n == 1 {
			panic("boom")
		}
		if n == 2 {
			close(done)
		}
	})

	b.Publish(Event{Header: Header{Topic: TopicMDTick}, Payload: Tick{Symbol: "X"}})
	b.Publish(Event{Header: Header{Topic: TopicMDTick}, Payload: Tick{Symbol: "X"}})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscription did not survive a callback panic")
	}
}

func TestEventBus_SeqMonotonic(t *testing.T) {
	b := New(WithIngressCapacity(64), WithPerSubCapacity(64))
	defer b.Stop()

	var last uint64
	first := true
	for i := 0; i < 20; i++ {
		e := Event{Header: Header{Topic: TopicLog}, Payload: LogText("x")}
		require.True(t, b.Publish(e))
	}

	var mu sync.Mutex
	seqs := make([]uint64, 0, 20)
	done := make(chan struct{})
	b.Subscribe(TopicLog, func(e Event) {
		mu.Lock()
		seqs = append(seqs, e.Header.Seq)
		if len(seqs) == 20 {
			close(done)
		}
		mu.Unlock()
	})

	for i := 0; i < 20; i++ {
		b.Publish(Event{Header: Header{Topic: TopicLog}, Payload: LogText("y")})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, s := range seqs {
		if first {
			first = false
		} else {
			assert.Greater(t, s, last)
		}
		last = s
	}
}

func TestEventBus_UnsubscribeUnknownIDIsNoop(t *testing.T) {
	b := New()
	defer b.Stop()
	assert.NotPanics(t, func() { b.Unsubscribe(SubID(99999)) })
}

func TestEventBus_StopIsIdempotent(t *testing.T) {
	b := New()
	b.Stop()
	assert.NotPanics(t, func() { b.Stop() })
}
