package bus

import (
	"strconv"
	"strings"
)

// serializePayload renders a Payload in the wire format of spec.md §6:
// "-" for Empty, "TICK|<symbol>|<pq>|<qty>" for Tick, "LOG|<text>" for
// LogText. Bar is never emitted to the log (baseline readers need only
// accept Tick and LogText).
func serializePayload(p Payload) string {
	switch v := p.(type) {
	case nil:
		return "-"
	case Tick:
		var b strings.Builder
		b.WriteString("TICK|")
		b.WriteString(v.Symbol)
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(v.Pq, 'f', -1, 64))
		b.WriteByte('|')
		b.WriteString(strconv.FormatUint(uint64(v.Qty), 10))
		return b.String()
	case LogText:
		return "LOG|" + string(v)
	default:
		return "-"
	}
}

// SerializeEvent renders one Event as a line in the schema
// "seq,ts_ns,topic,payload" (spec.md §6), with no trailing newline.
func SerializeEvent(e Event) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(e.Header.Seq, 10))
	b.WriteByte(',')
	b.WriteString(strconv.FormatUint(e.Header.TsNs, 10))
	b.WriteByte(',')
	b.WriteString(e.Header.Topic.String())
	b.WriteByte(',')
	b.WriteString(serializePayload(e.Payload))
	return b.String()
}

// splitN3 splits s on the first three commas, returning exactly 4 parts
// where the last part is the untouched remainder (may itself contain
// commas — the payload's LOG text is not comma-escaped).
func splitN3(s string) ([4]string, bool) {
	var parts [4]string
	rest := s
	for i := 0; i < 3; i++ {
		idx := strings.IndexByte(rest, ',')
		if idx < 0 {
			return parts, false
		}
		parts[i] = rest[:idx]
		rest = rest[idx+1:]
	}
	parts[3] = rest
	return parts, true
}

func parsePayload(s string) Payload {
	if s == "-" || s == "" {
		return nil
	}
	if strings.HasPrefix(s, "TICK|") {
		fields := strings.Split(s[len("TICK|"):], "|")
		if len(fields) < 3 {
			return nil
		}
		pq, err1 := strconv.ParseFloat(fields[1], 64)
		qty, err2 := strconv.ParseUint(fields[2], 10, 32)
		if err1 != nil || err2 != nil {
			// Numeric parse failure -> payload becomes Empty but the
			// header is still applied (spec.md §6 parser contract).
			return nil
		}
		return Tick{Symbol: fields[0], Pq: pq, Qty: uint32(qty)}
	}
	if strings.HasPrefix(s, "LOG|") {
		return LogText(s[len("LOG|"):])
	}
	return nil
}

// ParseEvent reconstructs an Event from one line of the wire format in
// spec.md §6. Reports false on an unparseable header (too few fields, bad
// seq/ts_ns, or unknown topic token); a malformed payload degrades to
// Empty without failing the whole line, matching the parser contract.
func ParseEvent(line string) (Event, bool) {
	parts, ok := splitN3(line)
	if !ok {
		return Event{}, false
	}

	seq, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Event{}, false
	}
	tsNs, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return Event{}, false
	}
	topic, ok := TopicFromString(parts[2])
	if !ok {
		return Event{}, false
	}

	return Event{
		Header:  Header{Seq: seq, Topic: topic, TsNs: tsNs},
		Payload: parsePayload(parts[3]),
	}, true
}
