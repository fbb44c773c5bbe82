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

// Package performative implements the nine AMQP 1.0 performatives
// (OPEN, BEGIN, ATTACH, FLOW, TRANSFER, DISPOSITION, DETACH, END,
// CLOSE) as described lists over the codec package, driven by a
// const+map descriptor table generalized from a class-id/method-id
// pair to AMQP 1.0's single ulong descriptor per performative.
// Performatives are one tagged variant with a descriptor plus a
// positional field list, not a subtype hierarchy.
package performative

import (
	"github.com/amqpgo/amqp10/amqperr"
	"github.com/amqpgo/amqp10/types"
)

// Descriptor identifies which performative a described list carries.
type Descriptor uint64

const (
	DescOpen        Descriptor = 0x10
	DescBegin       Descriptor = 0x11
	DescAttach      Descriptor = 0x12
	DescFlow        Descriptor = 0x13
	DescTransfer    Descriptor = 0x14
	DescDisposition Descriptor = 0x15
	DescDetach      Descriptor = 0x16
	DescEnd         Descriptor = 0x17
	DescClose       Descriptor = 0x18

	descError Descriptor = 0x1D
)

func (d Descriptor) String() string {
	switch d {
	case DescOpen:
		return "open"
	case DescBegin:
		return "begin"
	case DescAttach:
		return "attach"
	case DescFlow:
		return "flow"
	case DescTransfer:
		return "transfer"
	case DescDisposition:
		return "disposition"
	case DescDetach:
		return "detach"
	case DescEnd:
		return "end"
	case DescClose:
		return "close"
	default:
		return "unknown"
	}
}

func descriptorValue(d Descriptor) types.Value { return types.ULong(uint64(d)) }

// Role is a link's direction: false is sender, true is receiver, per
// OASIS §2.8.2.
type Role bool

const (
	RoleSender   Role = false
	RoleReceiver Role = true
)

// SenderSettleMode per OASIS §2.8.3.
type SenderSettleMode uint8

const (
	SenderSettleUnsettled SenderSettleMode = 0
	SenderSettleSettled   SenderSettleMode = 1
	SenderSettleMixed     SenderSettleMode = 2
)

// ReceiverSettleMode per OASIS §2.8.4.
type ReceiverSettleMode uint8

const (
	ReceiverSettleFirst  ReceiverSettleMode = 0
	ReceiverSettleSecond ReceiverSettleMode = 1
)

// decodeList reads the described-list header and reports which
// performative it is, returning the raw field list for the specific
// decoder to interpret.
func decodeList(v types.Value) (Descriptor, types.List, error) {
	d, ok := v.Described()
	if !ok {
		return 0, nil, amqperr.New(amqperr.KindDecoding, "performative: value is not a described type")
	}
	n, ok := d.Descriptor.Uint64()
	if !ok {
		return 0, nil, amqperr.New(amqperr.KindDecoding, "performative: descriptor is not numeric")
	}
	list, ok := d.Value.List()
	if !ok {
		return 0, nil, amqperr.New(amqperr.KindDecoding, "performative: body is not a list")
	}
	return Descriptor(n), list, nil
}

func field(list types.List, i int) types.Value {
	if i >= len(list) {
		return types.Null()
	}
	return list[i]
}

func optUint32(v types.Value) *uint32 {
	if v.IsNull() {
		return nil
	}
	n, ok := v.Uint64()
	if !ok {
		return nil
	}
	u := uint32(n)
	return &u
}

func mustUint32(v types.Value, def uint32) uint32 {
	if p := optUint32(v); p != nil {
		return *p
	}
	return def
}

func optUint16(v types.Value) *uint16 {
	if v.IsNull() {
		return nil
	}
	n, ok := v.Uint64()
	if !ok {
		return nil
	}
	u := uint16(n)
	return &u
}

func optUint64(v types.Value) *uint64 {
	if v.IsNull() {
		return nil
	}
	n, ok := v.Uint64()
	if !ok {
		return nil
	}
	return &n
}

func optBool(v types.Value) bool {
	b, _ := v.Bool()
	return b
}

func optString(v types.Value) string {
	s, ok := v.String()
	if ok {
		return s
	}
	sym, _ := v.Symbol()
	return sym
}

func optMap(v types.Value) *types.Map {
	m, ok := v.Map()
	if !ok {
		return nil
	}
	return m
}

func nullOr(p *uint32) types.Value {
	if p == nil {
		return types.Null()
	}
	return types.UInt(*p)
}

func nullOrU16(p *uint16) types.Value {
	if p == nil {
		return types.Null()
	}
	return types.UInt(uint32(*p))
}

func nullOrU64(p *uint64) types.Value {
	if p == nil {
		return types.Null()
	}
	return types.ULong(*p)
}

func mapOrNull(m *types.Map) types.Value {
	if m == nil {
		return types.Null()
	}
	return types.MapValue(m)
}

func symbolArray(ss []string) types.Value {
	elems := make([]types.Value, len(ss))
	for i, s := range ss {
		elems[i] = types.Symbol(s)
	}
	v, _ := types.NewArray(types.KindSymbol, nil, elems...)
	return v
}

func stringsOf(v types.Value) []string {
	arr, ok := v.Array()
	if !ok {
		return nil
	}
	out := make([]string, 0, arr.Len())
	for _, e := range arr.Elems() {
		out = append(out, optString(e))
	}
	return out
}
