// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package message

import (
	"bytes"

	"github.com/amqpgo/amqp10/amqperr"
	"github.com/amqpgo/amqp10/codec"
	"github.com/amqpgo/amqp10/types"
)

// Encode serializes m into the fixed section order. Omitted sections
// are simply absent from the output.
func Encode(m *Message) ([]byte, error) {
	var buf bytes.Buffer

	if m.Header != nil {
		codec.Encode(&buf, described(descHeader, encodeHeader(m.Header)))
	}
	if m.DeliveryAnnotations != nil {
		codec.Encode(&buf, described(descDeliveryAnnotations, types.MapValue(m.DeliveryAnnotations)))
	}
	if m.MessageAnnotations != nil {
		codec.Encode(&buf, described(descMessageAnnotations, types.MapValue(m.MessageAnnotations)))
	}
	if m.Properties != nil {
		codec.Encode(&buf, described(descProperties, encodeProperties(m.Properties)))
	}
	if m.ApplicationProperties != nil {
		codec.Encode(&buf, described(descApplicationProperties, types.MapValue(m.ApplicationProperties)))
	}

	switch m.BodyKind {
	case BodyData:
		for _, d := range m.DataBody {
			codec.Encode(&buf, described(descData, types.Binary(d)))
		}
	case BodySequence:
		for _, s := range m.SeqBody {
			codec.Encode(&buf, described(descAMQPSequence, types.Value(types.NewList(s...))))
		}
	case BodyValue:
		codec.Encode(&buf, described(descAMQPValue, m.ValueBody))
	case BodyNone:
		// no body section
	default:
		return nil, amqperr.New(amqperr.KindEncoding, "message: unknown body kind %v", m.BodyKind)
	}

	if m.Footer != nil {
		codec.Encode(&buf, described(descFooter, types.MapValue(m.Footer)))
	}

	return buf.Bytes(), nil
}

// Decode parses a sequence of message sections from b, in the order
// they actually appear (the encoder always emits them in the fixed
// order, but a lenient decoder tolerates any subset).
func Decode(b []byte) (*Message, error) {
	m := &Message{}
	off := 0
	for off < len(b) {
		v, n, err := codec.Decode(b[off:])
		if err != nil {
			return nil, err
		}
		off += n

		d, ok := v.Described()
		if !ok {
			return nil, amqperr.New(amqperr.KindDecoding, "message: section is not a described type")
		}
		desc, ok := d.Descriptor.Uint64()
		if !ok {
			return nil, amqperr.New(amqperr.KindDecoding, "message: section descriptor is not numeric")
		}

		switch desc {
		case descHeader:
			m.Header = decodeHeader(d.Value)
		case descDeliveryAnnotations:
			m.DeliveryAnnotations = mapOf(d.Value)
		case descMessageAnnotations:
			m.MessageAnnotations = mapOf(d.Value)
		case descProperties:
			m.Properties = decodeProperties(d.Value)
		case descApplicationProperties:
			m.ApplicationProperties = mapOf(d.Value)
		case descData:
			bin, _ := d.Value.Binary()
			if err := m.AddData(bin); err != nil {
				return nil, err
			}
		case descAMQPSequence:
			if m.BodyKind != BodyNone && m.BodyKind != BodySequence {
				return nil, amqperr.New(amqperr.KindDecoding, "message: amqp-sequence mixed with other body kind")
			}
			list, _ := d.Value.List()
			m.BodyKind = BodySequence
			m.SeqBody = append(m.SeqBody, list)
		case descAMQPValue:
			if m.BodyKind != BodyNone {
				return nil, amqperr.New(amqperr.KindDecoding, "message: amqp-value mixed with other body kind")
			}
			m.BodyKind = BodyValue
			m.ValueBody = d.Value
		case descFooter:
			m.Footer = mapOf(d.Value)
		default:
			return nil, amqperr.New(amqperr.KindDecoding, "message: unknown section descriptor 0x%X", desc)
		}
	}
	return m, nil
}

func mapOf(v types.Value) *types.Map {
	m, _ := v.Map()
	return m
}

func encodeHeader(h *Header) types.Value {
	ttl := types.Null()
	if h.TTL != nil {
		ttl = types.UInt(*h.TTL)
	}
	return types.NewList(
		types.Bool(h.Durable),
		types.UByte(h.Priority),
		ttl,
		types.Bool(h.FirstAcquirer),
		types.UInt(h.DeliveryCount),
	)
}

func decodeHeader(v types.Value) *Header {
	list, _ := v.List()
	h := &Header{}
	if len(list) > 0 {
		h.Durable, _ = list[0].Bool()
	}
	if len(list) > 1 {
		if n, ok := list[1].Uint64(); ok {
			h.Priority = uint8(n)
		}
	}
	if len(list) > 2 && !list[2].IsNull() {
		if n, ok := list[2].Uint64(); ok {
			ttl := uint32(n)
			h.TTL = &ttl
		}
	}
	if len(list) > 3 {
		h.FirstAcquirer, _ = list[3].Bool()
	}
	if len(list) > 4 {
		if n, ok := list[4].Uint64(); ok {
			h.DeliveryCount = uint32(n)
		}
	}
	return h
}

func encodeProperties(p *Properties) types.Value {
	absExp := types.Null()
	if p.AbsoluteExpiryTime != nil {
		absExp = types.Timestamp(*p.AbsoluteExpiryTime)
	}
	creat := types.Null()
	if p.CreationTime != nil {
		creat = types.Timestamp(*p.CreationTime)
	}
	groupSeq := types.Null()
	if p.GroupSequence != nil {
		groupSeq = types.UInt(*p.GroupSequence)
	}
	return types.NewList(
		orNull(p.MessageID),
		types.Binary(p.UserID),
		nullableString(p.To),
		nullableString(p.Subject),
		nullableString(p.ReplyTo),
		orNull(p.CorrelationID),
		nullableSymbol(p.ContentType),
		nullableSymbol(p.ContentEncoding),
		absExp,
		creat,
		nullableString(p.GroupID),
		groupSeq,
		nullableString(p.ReplyToGroupID),
	)
}

func decodeProperties(v types.Value) *Properties {
	list, _ := v.List()
	p := &Properties{}
	get := func(i int) types.Value {
		if i >= len(list) {
			return types.Null()
		}
		return list[i]
	}
	p.MessageID = get(0)
	p.UserID, _ = get(1).Binary()
	p.To, _ = get(2).String()
	p.Subject, _ = get(3).String()
	p.ReplyTo, _ = get(4).String()
	p.CorrelationID = get(5)
	p.ContentType, _ = get(6).Symbol()
	p.ContentEncoding, _ = get(7).Symbol()
	if ts, ok := get(8).Timestamp(); ok {
		p.AbsoluteExpiryTime = &ts
	}
	if ts, ok := get(9).Timestamp(); ok {
		p.CreationTime = &ts
	}
	p.GroupID, _ = get(10).String()
	if n, ok := get(11).Uint64(); ok {
		seq := uint32(n)
		p.GroupSequence = &seq
	}
	p.ReplyToGroupID, _ = get(12).String()
	return p
}

func nullableString(s string) types.Value {
	if s == "" {
		return types.Null()
	}
	return types.String(s)
}

func nullableSymbol(s string) types.Value {
	if s == "" {
		return types.Null()
	}
	return types.Symbol(s)
}

func orNull(v types.Value) types.Value { return v }
