// Command barhello replays a tick log through the bar builder and prints
// every finalized 1s bar. Grounded on
// original_source/md-bus/engine/examples/bar_hello.cpp.
package main

import (
	"flag"
	"fmt"
	"time"

	"mdbus/internal/bar"
	"mdbus/internal/bus"
	"mdbus/internal/replay"
)

func main() {
	path := flag.String("file", "md_events.log", "event log to replay")
	flag.Parse()

	b := bus.New(bus.WithIngressCapacity(1024), bus.WithPerSubCapacity(1024))
	barBuilder := bar.New(b, bar.NsPerSecond, nil)

	subBars := b.Subscribe(bus.TopicBar1s, func(e bus.Event) {
		bar, ok := e.Payload.(bus.Bar)
		if !ok {
			return
		}
		fmt.Printf("[BAR-1S] sym=%s o=%v h=%v l=%v c=%v v=%d start_ts=%d end_ts=%d\n",
			bar.Symbol, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, bar.StartTsNs, bar.EndTsNs)
	})

	eng := replay.New(*path)
	eng.SetFilter(replay.Filter{TopicSet: true, Topic: bus.TopicMDTick})
	eng.ReplayRealtime(b)

	time.Sleep(200 * time.Millisecond)
	barBuilder.FlushAll()

	b.Unsubscribe(subBars)
	b.Stop()
	fmt.Printf("stats: %+v\n", b.Stats())
}
