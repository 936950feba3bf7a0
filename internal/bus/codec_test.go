package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeParseEvent_RoundTrip(t *testing.T) {
	cases := []Event{
		{Header: Header{Seq: 1, Topic: TopicMDTick, TsNs: 100}, Payload: Tick{Symbol: "BTCUSDT", Pq: 42000.5, Qty: 3}},
		{Header: Header{Seq: 2, Topic: TopicLog, TsNs: 200}, Payload: LogText("hello, world")},
		{Header: Header{Seq: 3, Topic: TopicHeartbeat, TsNs: 300}},
	}
	for _, e := range cases {
		line := SerializeEvent(e)
		got, ok := ParseEvent(line)
		require.True(t, ok, "line: %s", line)
		assert.Equal(t, e.Header, got.Header)
		assert.Equal(t, e.Payload, got.Payload)
	}
}

func TestParseEvent_MalformedTickFieldDegradesToEmpty(t *testing.T) {
	line := "1,100,MD_TICK,TICK|BTCUSDT|not-a-number|3"
	e, ok := ParseEvent(line)
	require.True(t, ok)
	assert.Equal(t, Header{Seq: 1, Topic: TopicMDTick, TsNs: 100}, e.Header)
	assert.Nil(t, e.Payload)
}

func TestParseEvent_UnknownTopicRejectsLine(t *testing.T) {
	_, ok := ParseEvent("1,100,NOT_A_TOPIC,-")
	assert.False(t, ok)
}

func TestParseEvent_MalformedHeaderRejectsLine(t *testing.T) {
	_, ok := ParseEvent("not-a-seq,100,LOG,hi")
	assert.False(t, ok)
}

func TestSerializePayload_LogTextPreservesCommas(t *testing.T) {
	e := Event{Header: Header{Seq: 1, Topic: TopicLog, TsNs: 1}, Payload: LogText("a,b,c")}
	line := SerializeEvent(e)
	got, ok := ParseEvent(line)
	require.True(t, ok)
	assert.Equal(t, LogText("a,b,c"), got.Payload)
}
