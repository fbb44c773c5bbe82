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

// Package message implements AMQP 1.0 message serialization: the fixed
// section order (header, delivery-annotations, message-annotations,
// properties, application-properties, body, footer), each section a
// described composite encoded through the codec package, with the same
// descriptor-driven dispatch as the performative package, since
// message sections are described types at the wire level just like
// performatives.
package message

import (
	"github.com/amqpgo/amqp10/amqperr"
	"github.com/amqpgo/amqp10/codec"
	"github.com/amqpgo/amqp10/types"
)

const (
	descHeader               = 0x70
	descDeliveryAnnotations  = 0x71
	descMessageAnnotations   = 0x72
	descProperties           = 0x73
	descApplicationProperties = 0x74
	descData                 = 0x75
	descAMQPSequence         = 0x76
	descAMQPValue            = 0x77
	descFooter               = 0x78
)

// Header is the non-payload delivery metadata section.
type Header struct {
	Durable       bool
	Priority      uint8
	TTL           *uint32 // milliseconds
	FirstAcquirer bool
	DeliveryCount uint32
}

// Properties is the immutable application-facing message metadata
// section. MessageID and CorrelationID are kept as types.Value (not
// narrowed to string) because AMQP lets them be a string, ulong, uuid,
// or binary, and the core must round-trip whichever the application
// chose.
type Properties struct {
	MessageID     types.Value
	UserID        []byte
	To            string
	Subject       string
	ReplyTo       string
	CorrelationID types.Value
	ContentType   string
	ContentEncoding string
	AbsoluteExpiryTime *int64
	CreationTime       *int64
	GroupID            string
	GroupSequence      *uint32
	ReplyToGroupID     string
}

// BodyKind identifies which of the three mutually exclusive body
// representations a Message carries.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyData
	BodySequence
	BodyValue
)

// Message is one AMQP message, sections kept in the order they must be
// emitted on the wire. Exactly one of the Body* fields matching
// BodyKind is populated; mixing kinds in one message is rejected by
// the builders below, at build time rather than on encode.
type Message struct {
	Header                *Header
	DeliveryAnnotations   *types.Map
	MessageAnnotations    *types.Map
	Properties            *Properties
	ApplicationProperties *types.Map
	Footer                *types.Map

	BodyKind BodyKind
	DataBody [][]byte      // one or more `data` sections, one entry per section on read
	SeqBody  []types.List  // one or more `amqp-sequence` sections
	ValueBody types.Value  // exactly one `amqp-value` section
}

// NewTextMessage builds the "text message" convenience form: one data
// section with content-type text/plain.
func NewTextMessage(text string) *Message {
	return &Message{
		Properties: &Properties{ContentType: "text/plain"},
		BodyKind:   BodyData,
		DataBody:   [][]byte{[]byte(text)},
	}
}

// NewBinaryMessage builds the "binary message" convenience form: one
// data section with opaque bytes.
func NewBinaryMessage(b []byte) *Message {
	return &Message{BodyKind: BodyData, DataBody: [][]byte{b}}
}

// NewValueMessage builds a message whose body is a single amqp-value
// section.
func NewValueMessage(v types.Value) *Message {
	return &Message{BodyKind: BodyValue, ValueBody: v}
}

// NewSequenceMessage builds a message whose body is one or more
// amqp-sequence sections.
func NewSequenceMessage(seqs ...types.List) *Message {
	return &Message{BodyKind: BodySequence, SeqBody: seqs}
}

// AddData appends a data section, rejecting a mix with a non-data body.
func (m *Message) AddData(b []byte) error {
	if m.BodyKind != BodyNone && m.BodyKind != BodyData {
		return amqperr.New(amqperr.KindInvalidState, "message: cannot mix data body with %v body", m.BodyKind)
	}
	m.BodyKind = BodyData
	m.DataBody = append(m.DataBody, b)
	return nil
}

func described(desc uint64, body types.Value) types.Value {
	return types.NewDescribed(types.ULong(desc), body)
}
