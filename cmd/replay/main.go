// Command replay pumps a recorded event log (as produced by cmd/hello or
// the Recorder) back onto a fresh bus in real time. Grounded on
// original_source/md-bus/engine/examples/replay_hello.cpp.
package main

import (
	"flag"
	"fmt"
	"time"

	"mdbus/internal/bus"
	"mdbus/internal/replay"
)

func main() {
	path := flag.String("file", "md_events.log", "event log to replay")
	speed := flag.Float64("speed", 1.0, "replay speed multiplier (<=0 means fast/no pacing)")
	flag.Parse()

	b := bus.New(bus.WithIngressCapacity(1024), bus.WithPerSubCapacity(1024))

	subTicks := b.Subscribe(bus.TopicMDTick, func(e bus.Event) {
		if t, ok := e.Payload.(bus.Tick); ok {
			fmt.Printf("[Tick-R] seq=%d sym=%s pq=%v qty=%d\n", e.Header.Seq, t.Symbol, t.Pq, t.Qty)
		}
	})
	subLogs := b.Subscribe(bus.TopicLog, func(e bus.Event) {
		if msg, ok := e.Payload.(bus.LogText); ok {
			fmt.Printf("[LOG-R] seq=%d msg=%s\n", e.Header.Seq, msg)
		}
	})
	subHB := b.Subscribe(bus.TopicHeartbeat, func(e bus.Event) {
		fmt.Printf("[HB-R ] seq=%d topic=%s\n", e.Header.Seq, e.Header.Topic)
	})
	subMon := b.SubscribeAll(func(e bus.Event) {
		fmt.Printf("[MON-R] seq=%d topic=%s\n", e.Header.Seq, e.Header.Topic)
	})

	eng := replay.New(*path)
	if *speed <= 0 {
		eng.ReplayFast(b)
	} else {
		eng.ReplaySpeed(b, *speed)
	}

	time.Sleep(200 * time.Millisecond)

	b.Unsubscribe(subTicks)
	b.Unsubscribe(subLogs)
	b.Unsubscribe(subHB)
	b.Unsubscribe(subMon)

	b.Stop()
	fmt.Printf("stats: %+v\n", b.Stats())
}
