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

package performative

import (
	"github.com/amqpgo/amqp10/amqperr"
	"github.com/amqpgo/amqp10/types"
)

// Performative is implemented by every concrete performative type,
// letting the connection/session/link layers dispatch generically
// before switching on the decoded Go type.
type Performative interface {
	descriptor() Descriptor
	Encode() types.Value
}

// Decode inspects the descriptor of v and returns the matching concrete
// Performative, or a Decoding error for an unrecognized descriptor.
func Decode(v types.Value) (Performative, error) {
	desc, list, err := decodeList(v)
	if err != nil {
		return nil, err
	}
	switch desc {
	case DescOpen:
		return decodeOpen(list), nil
	case DescBegin:
		return decodeBegin(list), nil
	case DescAttach:
		return decodeAttach(list), nil
	case DescFlow:
		return decodeFlow(list), nil
	case DescTransfer:
		return decodeTransfer(list), nil
	case DescDisposition:
		return decodeDisposition(list), nil
	case DescDetach:
		return decodeDetach(list), nil
	case DescEnd:
		return decodeEnd(list), nil
	case DescClose:
		return decodeClose(list), nil
	default:
		return nil, amqperr.New(amqperr.KindDecoding, "performative: unknown descriptor 0x%X", uint64(desc))
	}
}

// Open carries the fields of the OPEN performative.
type Open struct {
	ContainerID         string
	Hostname            string
	MaxFrameSize        uint32
	ChannelMax          uint16
	IdleTimeout         *uint32 // milliseconds
	OutgoingLocales     []string
	IncomingLocales     []string
	OfferedCapabilities []string
	DesiredCapabilities []string
	Properties          *types.Map
}

func (o *Open) descriptor() Descriptor { return DescOpen }

func (o *Open) Encode() types.Value {
	list := types.NewList(
		types.String(o.ContainerID),
		nullableString(o.Hostname),
		types.UInt(o.MaxFrameSize),
		types.UShort(o.ChannelMax),
		nullOr(o.IdleTimeout),
		symbolArray(o.OutgoingLocales),
		symbolArray(o.IncomingLocales),
		symbolArray(o.OfferedCapabilities),
		symbolArray(o.DesiredCapabilities),
		mapOrNull(o.Properties),
	)
	return types.NewDescribed(descriptorValue(DescOpen), list)
}

func decodeOpen(list types.List) *Open {
	return &Open{
		ContainerID:         optString(field(list, 0)),
		Hostname:            optString(field(list, 1)),
		MaxFrameSize:        mustUint32(field(list, 2), 0xFFFFFFFF),
		ChannelMax:          uint16(mustUint32(field(list, 3), 0xFFFF)),
		IdleTimeout:         optUint32(field(list, 4)),
		OutgoingLocales:     stringsOf(field(list, 5)),
		IncomingLocales:     stringsOf(field(list, 6)),
		OfferedCapabilities: stringsOf(field(list, 7)),
		DesiredCapabilities: stringsOf(field(list, 8)),
		Properties:          optMap(field(list, 9)),
	}
}

// Begin carries the fields of the BEGIN performative.
type Begin struct {
	RemoteChannel       *uint16
	NextOutgoingID      uint32
	IncomingWindow      uint32
	OutgoingWindow      uint32
	HandleMax           uint32
	OfferedCapabilities []string
	DesiredCapabilities []string
	Properties          *types.Map
}

func (b *Begin) descriptor() Descriptor { return DescBegin }

func (b *Begin) Encode() types.Value {
	list := types.NewList(
		nullOrU16(b.RemoteChannel),
		types.UInt(b.NextOutgoingID),
		types.UInt(b.IncomingWindow),
		types.UInt(b.OutgoingWindow),
		types.UInt(b.HandleMax),
		symbolArray(b.OfferedCapabilities),
		symbolArray(b.DesiredCapabilities),
		mapOrNull(b.Properties),
	)
	return types.NewDescribed(descriptorValue(DescBegin), list)
}

func decodeBegin(list types.List) *Begin {
	return &Begin{
		RemoteChannel:       optUint16(field(list, 0)),
		NextOutgoingID:      mustUint32(field(list, 1), 0),
		IncomingWindow:      mustUint32(field(list, 2), 0),
		OutgoingWindow:      mustUint32(field(list, 3), 0),
		HandleMax:           mustUint32(field(list, 4), 0xFFFFFFFF),
		OfferedCapabilities: stringsOf(field(list, 5)),
		DesiredCapabilities: stringsOf(field(list, 6)),
		Properties:          optMap(field(list, 7)),
	}
}

// Attach carries the fields of the ATTACH performative.
type Attach struct {
	Name                 string
	Handle               uint32
	Role                 Role
	SndSettleMode        SenderSettleMode
	RcvSettleMode        ReceiverSettleMode
	Source               types.Value
	Target               types.Value
	Unsettled            *types.Map
	IncompleteUnsettled  bool
	InitialDeliveryCount *uint32
	MaxMessageSize       *uint64
	OfferedCapabilities  []string
	DesiredCapabilities  []string
	Properties           *types.Map
}

func (a *Attach) descriptor() Descriptor { return DescAttach }

func (a *Attach) Encode() types.Value {
	list := types.NewList(
		types.String(a.Name),
		types.UInt(a.Handle),
		types.Bool(bool(a.Role)),
		types.UByte(uint8(a.SndSettleMode)),
		types.UByte(uint8(a.RcvSettleMode)),
		valueOrNull(a.Source),
		valueOrNull(a.Target),
		mapOrNull(a.Unsettled),
		types.Bool(a.IncompleteUnsettled),
		nullOr(a.InitialDeliveryCount),
		nullOrU64(a.MaxMessageSize),
		symbolArray(a.OfferedCapabilities),
		symbolArray(a.DesiredCapabilities),
		mapOrNull(a.Properties),
	)
	return types.NewDescribed(descriptorValue(DescAttach), list)
}

func decodeAttach(list types.List) *Attach {
	return &Attach{
		Name:                 optString(field(list, 0)),
		Handle:               mustUint32(field(list, 1), 0),
		Role:                 Role(optBool(field(list, 2))),
		SndSettleMode:        SenderSettleMode(mustUint32(field(list, 3), 0)),
		RcvSettleMode:        ReceiverSettleMode(mustUint32(field(list, 4), 0)),
		Source:               field(list, 5),
		Target:               field(list, 6),
		Unsettled:            optMap(field(list, 7)),
		IncompleteUnsettled:  optBool(field(list, 8)),
		InitialDeliveryCount: optUint32(field(list, 9)),
		MaxMessageSize:       optUint64(field(list, 10)),
		OfferedCapabilities:  stringsOf(field(list, 11)),
		DesiredCapabilities:  stringsOf(field(list, 12)),
		Properties:           optMap(field(list, 13)),
	}
}

// Flow carries the fields of the FLOW performative,
// which republishes both session window and link credit counters.
type Flow struct {
	NextIncomingID *uint32
	IncomingWindow uint32
	NextOutgoingID uint32
	OutgoingWindow uint32
	Handle         *uint32
	DeliveryCount  *uint32
	LinkCredit     *uint32
	Available      *uint32
	Drain          bool
	Echo           bool
	Properties     *types.Map
}

func (f *Flow) descriptor() Descriptor { return DescFlow }

func (f *Flow) Encode() types.Value {
	list := types.NewList(
		nullOr(f.NextIncomingID),
		types.UInt(f.IncomingWindow),
		types.UInt(f.NextOutgoingID),
		types.UInt(f.OutgoingWindow),
		nullOr(f.Handle),
		nullOr(f.DeliveryCount),
		nullOr(f.LinkCredit),
		nullOr(f.Available),
		types.Bool(f.Drain),
		types.Bool(f.Echo),
		mapOrNull(f.Properties),
	)
	return types.NewDescribed(descriptorValue(DescFlow), list)
}

func decodeFlow(list types.List) *Flow {
	return &Flow{
		NextIncomingID: optUint32(field(list, 0)),
		IncomingWindow: mustUint32(field(list, 1), 0),
		NextOutgoingID: mustUint32(field(list, 2), 0),
		OutgoingWindow: mustUint32(field(list, 3), 0),
		Handle:         optUint32(field(list, 4)),
		DeliveryCount:  optUint32(field(list, 5)),
		LinkCredit:     optUint32(field(list, 6)),
		Available:      optUint32(field(list, 7)),
		Drain:          optBool(field(list, 8)),
		Echo:           optBool(field(list, 9)),
		Properties:     optMap(field(list, 10)),
	}
}

// Transfer carries the fields of the TRANSFER performative.
// State/Resume/Aborted/Batchable round out the OASIS field list but are
// rarely populated by this core's own sender.
type Transfer struct {
	Handle        uint32
	DeliveryID    *uint32
	DeliveryTag   []byte
	MessageFormat *uint32
	Settled       *bool
	More          bool
	RcvSettleMode *ReceiverSettleMode
	State         types.Value
	Resume        bool
	Aborted       bool
	Batchable     bool
}

func (t *Transfer) descriptor() Descriptor { return DescTransfer }

func (t *Transfer) Encode() types.Value {
	settled := types.Null()
	if t.Settled != nil {
		settled = types.Bool(*t.Settled)
	}
	rcvMode := types.Null()
	if t.RcvSettleMode != nil {
		rcvMode = types.UByte(uint8(*t.RcvSettleMode))
	}
	list := types.NewList(
		types.UInt(t.Handle),
		nullOr(t.DeliveryID),
		types.Binary(t.DeliveryTag),
		nullOr(t.MessageFormat),
		settled,
		types.Bool(t.More),
		rcvMode,
		valueOrNull(t.State),
		types.Bool(t.Resume),
		types.Bool(t.Aborted),
		types.Bool(t.Batchable),
	)
	return types.NewDescribed(descriptorValue(DescTransfer), list)
}

func decodeTransfer(list types.List) *Transfer {
	t := &Transfer{
		Handle:        mustUint32(field(list, 0), 0),
		DeliveryID:    optUint32(field(list, 1)),
		MessageFormat: optUint32(field(list, 3)),
		More:          optBool(field(list, 5)),
		State:         field(list, 7),
		Resume:        optBool(field(list, 8)),
		Aborted:       optBool(field(list, 9)),
		Batchable:     optBool(field(list, 10)),
	}
	if b, ok := field(list, 2).Binary(); ok {
		t.DeliveryTag = b
	}
	if sv := field(list, 4); !sv.IsNull() {
		b := optBool(sv)
		t.Settled = &b
	}
	if mv := field(list, 6); !mv.IsNull() {
		m := ReceiverSettleMode(mustUint32(mv, 0))
		t.RcvSettleMode = &m
	}
	return t
}

// Disposition carries the fields of the DISPOSITION performative.
type Disposition struct {
	Role       Role
	First      uint32
	Last       *uint32
	Settled    bool
	State      types.Value
	Batchable  bool
}

func (d *Disposition) descriptor() Descriptor { return DescDisposition }

func (d *Disposition) Encode() types.Value {
	list := types.NewList(
		types.Bool(bool(d.Role)),
		types.UInt(d.First),
		nullOr(d.Last),
		types.Bool(d.Settled),
		valueOrNull(d.State),
		types.Bool(d.Batchable),
	)
	return types.NewDescribed(descriptorValue(DescDisposition), list)
}

func decodeDisposition(list types.List) *Disposition {
	return &Disposition{
		Role:      Role(optBool(field(list, 0))),
		First:     mustUint32(field(list, 1), 0),
		Last:      optUint32(field(list, 2)),
		Settled:   optBool(field(list, 3)),
		State:     field(list, 4),
		Batchable: optBool(field(list, 5)),
	}
}

// Detach carries the fields of the DETACH performative.
type Detach struct {
	Handle uint32
	Closed bool
	Error  *ErrorInfo
}

func (d *Detach) descriptor() Descriptor { return DescDetach }

func (d *Detach) Encode() types.Value {
	list := types.NewList(types.UInt(d.Handle), types.Bool(d.Closed), d.Error.encode())
	return types.NewDescribed(descriptorValue(DescDetach), list)
}

func decodeDetach(list types.List) *Detach {
	return &Detach{
		Handle: mustUint32(field(list, 0), 0),
		Closed: optBool(field(list, 1)),
		Error:  decodeErrorInfo(field(list, 2)),
	}
}

// End carries the fields of the END performative.
type End struct {
	Error *ErrorInfo
}

func (e *End) descriptor() Descriptor { return DescEnd }

func (e *End) Encode() types.Value {
	return types.NewDescribed(descriptorValue(DescEnd), types.NewList(e.Error.encode()))
}

func decodeEnd(list types.List) *End {
	return &End{Error: decodeErrorInfo(field(list, 0))}
}

// Close carries the fields of the CLOSE performative.
type Close struct {
	Error *ErrorInfo
}

func (c *Close) descriptor() Descriptor { return DescClose }

func (c *Close) Encode() types.Value {
	return types.NewDescribed(descriptorValue(DescClose), types.NewList(c.Error.encode()))
}

func decodeClose(list types.List) *Close {
	return &Close{Error: decodeErrorInfo(field(list, 0))}
}

func nullableString(s string) types.Value {
	if s == "" {
		return types.Null()
	}
	return types.String(s)
}

// valueOrNull passes through a possibly-absent field: the zero Value is
// already KindNull, so no substitution is needed.
func valueOrNull(v types.Value) types.Value { return v }
