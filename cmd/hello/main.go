// Command hello is a minimal, self-contained demonstration of the bus:
// subscribe to every topic, publish a handful of ticks and log lines,
// record them to a file, then shut down and print stats. Grounded on
// original_source/md-bus/engine/examples/hello_bus.cpp.
package main

import (
	"fmt"
	"time"

	"mdbus/internal/bus"
	"mdbus/internal/recorder"
)

func main() {
	b := bus.New(bus.WithIngressCapacity(1024), bus.WithPerSubCapacity(1024))

	rec := recorder.New(b, "md_events.log", nil)

	subTicks := b.Subscribe(bus.TopicMDTick, func(e bus.Event) {
		if t, ok := e.Payload.(bus.Tick); ok {
			fmt.Printf("[Tick] seq=%d sym=%s pq=%v\n", e.Header.Seq, t.Symbol, t.Pq)
		}
	})
	subLogs := b.Subscribe(bus.TopicLog, func(e bus.Event) {
		if msg, ok := e.Payload.(bus.LogText); ok {
			fmt.Printf("[LOG] seq=%d msg=%s\n", e.Header.Seq, msg)
		}
	})
	subHB := b.Subscribe(bus.TopicHeartbeat, func(e bus.Event) {
		fmt.Printf("[HB ] seq=%d topic=%s\n", e.Header.Seq, e.Header.Topic)
	})
	subAll := b.SubscribeAll(func(e bus.Event) {
		fmt.Printf("[MON] seq=%d topic=%s\n", e.Header.Seq, e.Header.Topic)
	})

	hbStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-hbStop:
				return
			case <-ticker.C:
				b.Publish(bus.Event{Header: bus.Header{Topic: bus.TopicHeartbeat}})
			}
		}
	}()

	for i := 0; i < 5; i++ {
		b.Publish(bus.Event{
			Header:  bus.Header{Topic: bus.TopicMDTick},
			Payload: bus.Tick{Symbol: "NIFTY", Pq: 22500.0 + float64(i), Qty: uint32(100 + i)},
		})
		b.Publish(bus.Event{
			Header:  bus.Header{Topic: bus.TopicLog},
			Payload: bus.LogText(fmt.Sprintf("Published Ticks %d", i)),
		})
		time.Sleep(50 * time.Millisecond)
	}

	close(hbStop)
	time.Sleep(time.Millisecond)

	b.Unsubscribe(subHB)
	b.Unsubscribe(subAll)
	b.Unsubscribe(subTicks)
	b.Unsubscribe(subLogs)

	b.Stop()
	rec.Flush()
	rec.Close()

	fmt.Printf("stats: %+v\n", b.Stats())
}
