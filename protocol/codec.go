package protocol

import (
	"fmt"
	"math"
	"net/netip"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPacket, fmt.Sprintf(format, args...))
}

func appendAddrPort(b []byte, num protowire.Number, ap netip.AddrPort) []byte {
	data, _ := ap.MarshalBinary()
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, data)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// Encode serializes p. Exactly one field of p must be set.
func Encode(p *Packet) ([]byte, error) {
	var b []byte
	set := 0
	if p.Vector != nil {
		set++
		b = appendMessage(b, 1, encodeVector(p.Vector))
	}
	if p.Message != nil {
		set++
		b = appendMessage(b, 2, encodeMessage(p.Message))
	}
	if p.WeightUpdate != nil {
		set++
		b = appendMessage(b, 3, encodeWeightUpdate(p.WeightUpdate))
	}
	if set != 1 {
		return nil, fmt.Errorf("packet must have exactly one field set, has %d", set)
	}
	if len(b) > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(b))
	}
	return b, nil
}

func encodeVector(v *Vector) []byte {
	var b []byte
	b = appendAddrPort(b, 1, v.Sender)
	if v.LinkWeight != 0 {
		b = appendVarint(b, 2, uint64(v.LinkWeight))
	}
	for _, e := range v.Entries {
		var eb []byte
		eb = appendAddrPort(eb, 1, e.Destination)
		eb = protowire.AppendTag(eb, 2, protowire.Fixed32Type)
		eb = protowire.AppendFixed32(eb, e.Cost)
		b = appendMessage(b, 3, eb)
	}
	return b
}

func encodeMessage(m *Message) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Id[:])
	b = appendAddrPort(b, 2, m.Source)
	b = appendAddrPort(b, 3, m.Destination)
	b = appendVarint(b, 4, uint64(m.TTL))
	b = protowire.AppendTag(b, 5, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Body)
	return b
}

func encodeWeightUpdate(w *WeightUpdate) []byte {
	var b []byte
	b = appendAddrPort(b, 1, w.Sender)
	b = appendVarint(b, 2, uint64(w.Weight))
	return b
}

// fieldFunc consumes the value of a single field from b, returning the number of bytes used.
// Returning 0 skips the field.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func consumeFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed("bad tag: %v", protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return malformed("field %d: %v", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

func consumeBytes(num protowire.Number, typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, malformed("field %d: expected bytes, got wire type %d", num, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, malformed("field %d: %v", num, protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeUint32(num protowire.Number, typ protowire.Type, b []byte) (uint32, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, malformed("field %d: expected varint, got wire type %d", num, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, malformed("field %d: %v", num, protowire.ParseError(n))
	}
	if v > math.MaxUint32 {
		return 0, 0, malformed("field %d: value %d out of range", num, v)
	}
	return uint32(v), n, nil
}

func consumeAddrPort(num protowire.Number, typ protowire.Type, b []byte) (netip.AddrPort, int, error) {
	data, n, err := consumeBytes(num, typ, b)
	if err != nil {
		return netip.AddrPort{}, 0, err
	}
	var ap netip.AddrPort
	if err := ap.UnmarshalBinary(data); err != nil {
		return netip.AddrPort{}, 0, malformed("field %d: %v", num, err)
	}
	return ap, n, nil
}

// Decode parses a datagram. All decoding failures wrap ErrMalformedPacket.
func Decode(b []byte) (*Packet, error) {
	p := &Packet{}
	set := 0
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var data []byte
		var n int
		var err error
		switch num {
		case 1, 2, 3:
			data, n, err = consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			set++
		default:
			return 0, nil
		}
		switch num {
		case 1:
			p.Vector, err = decodeVector(data)
		case 2:
			p.Message, err = decodeMessage(data)
		case 3:
			p.WeightUpdate, err = decodeWeightUpdate(data)
		}
		return n, err
	})
	if err != nil {
		return nil, err
	}
	if set != 1 {
		return nil, malformed("packet must have exactly one field set, has %d", set)
	}
	return p, nil
}

func decodeVector(b []byte) (*Vector, error) {
	v := &Vector{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			ap, n, err := consumeAddrPort(num, typ, b)
			v.Sender = ap
			return n, err
		case 2:
			w, n, err := consumeUint32(num, typ, b)
			v.LinkWeight = w
			return n, err
		case 3:
			data, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			e, err := decodeEntry(data)
			if err != nil {
				return 0, err
			}
			v.Entries = append(v.Entries, e)
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	if !v.Sender.IsValid() {
		return nil, malformed("vector has no sender")
	}
	return v, nil
}

func decodeEntry(b []byte) (Entry, error) {
	e := Entry{}
	hasCost := false
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			ap, n, err := consumeAddrPort(num, typ, b)
			e.Destination = ap
			return n, err
		case 2:
			if typ != protowire.Fixed32Type {
				return 0, malformed("field %d: expected fixed32, got wire type %d", num, typ)
			}
			c, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return 0, malformed("field %d: %v", num, protowire.ParseError(n))
			}
			e.Cost = c
			hasCost = true
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return Entry{}, err
	}
	if !e.Destination.IsValid() || !hasCost {
		return Entry{}, malformed("incomplete vector entry")
	}
	return e, nil
}

func decodeMessage(b []byte) (*Message, error) {
	m := &Message{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			data, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			id, err := uuid.FromBytes(data)
			if err != nil {
				return 0, malformed("field %d: %v", num, err)
			}
			m.Id = id
			return n, nil
		case 2:
			ap, n, err := consumeAddrPort(num, typ, b)
			m.Source = ap
			return n, err
		case 3:
			ap, n, err := consumeAddrPort(num, typ, b)
			m.Destination = ap
			return n, err
		case 4:
			ttl, n, err := consumeUint32(num, typ, b)
			if err == nil && ttl > math.MaxUint8 {
				return 0, malformed("ttl %d out of range", ttl)
			}
			m.TTL = uint8(ttl)
			return n, err
		case 5:
			data, n, err := consumeBytes(num, typ, b)
			m.Body = append([]byte(nil), data...)
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	if !m.Source.IsValid() || !m.Destination.IsValid() {
		return nil, malformed("message has no source or destination")
	}
	return m, nil
}

func decodeWeightUpdate(b []byte) (*WeightUpdate, error) {
	w := &WeightUpdate{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			ap, n, err := consumeAddrPort(num, typ, b)
			w.Sender = ap
			return n, err
		case 2:
			v, n, err := consumeUint32(num, typ, b)
			w.Weight = v
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	if !w.Sender.IsValid() {
		return nil, malformed("weight update has no sender")
	}
	return w, nil
}
