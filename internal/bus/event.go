package bus

import (
	"fmt"
	"time"
)

// Topic identifies the logical channel an Event was published on. The bus
// is parameterised by this closed set; routing and the codec stay an
// exhaustive switch over it.
type Topic uint8

const (
	TopicLog Topic = iota
	TopicMDTick
	TopicHeartbeat
	TopicBar1s
	TopicBar1m
)

func (t Topic) String() string {
	switch t {
	case TopicLog:
		return "LOG"
	case TopicMDTick:
		return "MD_TICK"
	case TopicHeartbeat:
		return "HEARTBEAT"
	case TopicBar1s:
		return "BAR_1S"
	case TopicBar1m:
		return "BAR_1M"
	default:
		return "UNKNOWN"
	}
}

// TopicFromString parses a topic token as emitted by the codec (§6 wire
// format). Reports false on an unrecognised token.
func TopicFromString(s string) (Topic, bool) {
	switch s {
	case "LOG":
		return TopicLog, true
	case "MD_TICK":
		return TopicMDTick, true
	case "HEARTBEAT":
		return TopicHeartbeat, true
	case "BAR_1S":
		return TopicBar1s, true
	case "BAR_1M":
		return TopicBar1m, true
	default:
		return 0, false
	}
}

// Header is attached to every Event. Seq is assigned at publish time and
// is strictly increasing in ingress-acceptance order; TsNs is a monotonic
// nanosecond reading taken at the same moment.
type Header struct {
	Seq   uint64
	Topic Topic
	TsNs  uint64
}

// Tick is the smallest unit of market data: a price/quantity observation
// for a symbol.
type Tick struct {
	Symbol string
	Pq     float64
	Qty    uint32
}

// Bar is a finalized OHLCV summary of ticks within one time bucket.
// Invariants: Low <= Open,Close <= High, Low <= High, StartTsNs <=
// EndTsNs, Volume >= 0.
type Bar struct {
	Symbol    string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	StartTsNs uint64
	EndTsNs   uint64
}

// LogText is free-form text carried on the LOG topic.
type LogText string

// Payload is a closed tagged union over {nil, Tick, LogText, Bar}. Exactly
// one concrete type is active per Event; nil denotes the Empty variant.
// Empty is carried by internal wake-up sentinels (marked by Event.sentinel
// and never delivered to callbacks) and by ordinary events with no payload,
// such as heartbeats or parsed ticks whose numeric fields were malformed.
type Payload interface {
	isPayload()
}

func (Tick) isPayload()    {}
func (LogText) isPayload() {}
func (Bar) isPayload()     {}

// Event is Header plus Payload. Created by EventBus.Publish, delivered to
// subscriber callbacks, never mutated after publish.
type Event struct {
	Header  Header
	Payload Payload

	// sentinel marks an internally generated wake-up event used to unblock
	// a blocked consumer during shutdown. Never set by user code, never
	// delivered to a user callback (spec choice (b) for the sentinel
	// open question: sentinels carry a distinguished internal marker).
	sentinel bool
}

func (e Event) String() string {
	return fmt.Sprintf("Event{seq=%d topic=%s ts_ns=%d payload=%v}",
		e.Header.Seq, e.Header.Topic, e.Header.TsNs, e.Payload)
}

func sentinelEvent() Event {
	return Event{sentinel: true}
}

// epoch anchors the monotonic clock used for Header.TsNs: time.Since reads
// the monotonic component of time.Time, so readings taken against a fixed
// start never regress even if the wall clock is adjusted.
var epoch = time.Now()

// nowNs returns a monotonic nanosecond reading suitable for Header.TsNs.
func nowNs() uint64 {
	return uint64(time.Since(epoch).Nanoseconds())
}
