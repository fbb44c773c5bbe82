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

package codec

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/amqpgo/amqp10/types"
)

// Encode appends the byte-exact AMQP 1.0 encoding of v to buf, always
// choosing the smallest legal constructor. Encoding itself cannot fail.
// No validity check is made here or at construction: a symbol is
// written as given, without checking that it is ASCII.
func Encode(buf *bytes.Buffer, v types.Value) {
	switch v.Kind() {
	case types.KindNull:
		buf.WriteByte(ctorNull)

	case types.KindBool:
		b, _ := v.Bool()
		if b {
			buf.WriteByte(ctorBoolTrue)
		} else {
			buf.WriteByte(ctorBoolFalse)
		}

	case types.KindUByte:
		n, _ := v.Uint64()
		buf.WriteByte(ctorUByte)
		buf.WriteByte(byte(n))

	case types.KindUShort:
		n, _ := v.Uint64()
		buf.WriteByte(ctorUShort)
		writeUint16(buf, uint16(n))

	case types.KindUInt:
		n, _ := v.Uint64()
		encodeUInt(buf, uint32(n))

	case types.KindULong:
		n, _ := v.Uint64()
		encodeULong(buf, n)

	case types.KindByte:
		n, _ := v.Int64()
		buf.WriteByte(ctorByte)
		buf.WriteByte(byte(int8(n)))

	case types.KindShort:
		n, _ := v.Int64()
		buf.WriteByte(ctorShort)
		writeUint16(buf, uint16(int16(n)))

	case types.KindInt:
		n, _ := v.Int64()
		encodeInt(buf, int32(n))

	case types.KindLong:
		n, _ := v.Int64()
		encodeLong(buf, n)

	case types.KindFloat:
		f, _ := v.Float32()
		buf.WriteByte(ctorFloat)
		writeUint32(buf, math.Float32bits(f))

	case types.KindDouble:
		f, _ := v.Float64()
		buf.WriteByte(ctorDouble)
		writeUint64(buf, math.Float64bits(f))

	case types.KindChar:
		r, _ := v.Char()
		buf.WriteByte(ctorChar)
		writeUint32(buf, uint32(r))

	case types.KindTimestamp:
		ms, _ := v.Timestamp()
		buf.WriteByte(ctorTimestamp)
		writeUint64(buf, uint64(ms))

	case types.KindUUID:
		u, _ := v.UUID()
		buf.WriteByte(ctorUUID)
		buf.Write(u[:])

	case types.KindBinary:
		b, _ := v.Binary()
		encodeVarWidth(buf, ctorVBin8, ctorVBin32, b)

	case types.KindString:
		s, _ := v.String()
		encodeVarWidth(buf, ctorStr8, ctorStr32, []byte(s))

	case types.KindSymbol:
		s, _ := v.Symbol()
		encodeVarWidth(buf, ctorSym8, ctorSym32, []byte(s))

	case types.KindList:
		list, _ := v.List()
		encodeList(buf, list)

	case types.KindMap:
		m, _ := v.Map()
		encodeMap(buf, m)

	case types.KindArray:
		arr, _ := v.Array()
		encodeArray(buf, arr)

	case types.KindDescribed:
		d, _ := v.Described()
		buf.WriteByte(ctorDescribed)
		Encode(buf, d.Descriptor)
		Encode(buf, d.Value)
	}
}

// EncodeValue is a convenience wrapper returning a fresh byte slice.
func EncodeValue(v types.Value) []byte {
	var buf bytes.Buffer
	Encode(&buf, v)
	return buf.Bytes()
}

func encodeUInt(buf *bytes.Buffer, n uint32) {
	switch {
	case n == 0:
		buf.WriteByte(ctorUInt0)
	case n <= math.MaxUint8:
		buf.WriteByte(ctorSmallUInt)
		buf.WriteByte(byte(n))
	default:
		buf.WriteByte(ctorUInt)
		writeUint32(buf, n)
	}
}

func encodeULong(buf *bytes.Buffer, n uint64) {
	switch {
	case n == 0:
		buf.WriteByte(ctorULong0)
	case n <= math.MaxUint8:
		buf.WriteByte(ctorSmallULong)
		buf.WriteByte(byte(n))
	default:
		buf.WriteByte(ctorULong)
		writeUint64(buf, n)
	}
}

func encodeInt(buf *bytes.Buffer, n int32) {
	if n >= -128 && n <= 127 {
		buf.WriteByte(ctorSmallInt)
		buf.WriteByte(byte(int8(n)))
		return
	}
	buf.WriteByte(ctorInt)
	writeUint32(buf, uint32(n))
}

func encodeLong(buf *bytes.Buffer, n int64) {
	if n >= -128 && n <= 127 {
		buf.WriteByte(ctorSmallLong)
		buf.WriteByte(byte(int8(n)))
		return
	}
	buf.WriteByte(ctorLong)
	writeUint64(buf, uint64(n))
}

func encodeVarWidth(buf *bytes.Buffer, ctor8, ctor32 byte, b []byte) {
	if len(b) <= math.MaxUint8 {
		buf.WriteByte(ctor8)
		buf.WriteByte(byte(len(b)))
	} else {
		buf.WriteByte(ctor32)
		writeUint32(buf, uint32(len(b)))
	}
	buf.Write(b)
}

func encodeList(buf *bytes.Buffer, list types.List) {
	if len(list) == 0 {
		buf.WriteByte(ctorList0)
		return
	}

	var body bytes.Buffer
	for _, e := range list {
		Encode(&body, e)
	}

	// size = count field width + body length
	if body.Len()+1 <= math.MaxUint8 && len(list) <= math.MaxUint8 {
		buf.WriteByte(ctorList8)
		buf.WriteByte(byte(body.Len() + 1))
		buf.WriteByte(byte(len(list)))
	} else {
		buf.WriteByte(ctorList32)
		writeUint32(buf, uint32(body.Len()+4))
		writeUint32(buf, uint32(len(list)))
	}
	buf.Write(body.Bytes())
}

func encodeMap(buf *bytes.Buffer, m *types.Map) {
	var body bytes.Buffer
	count := 0
	for _, p := range m.Pairs() {
		Encode(&body, p.Key)
		Encode(&body, p.Value)
		count += 2
	}

	if body.Len()+1 <= math.MaxUint8 && count <= math.MaxUint8 {
		buf.WriteByte(ctorMap8)
		buf.WriteByte(byte(body.Len() + 1))
		buf.WriteByte(byte(count))
	} else {
		buf.WriteByte(ctorMap32)
		writeUint32(buf, uint32(body.Len()+4))
		writeUint32(buf, uint32(count))
	}
	buf.Write(body.Bytes())
}

func encodeArray(buf *bytes.Buffer, arr *types.Array) {
	var body bytes.Buffer

	elemKind := arr.ElemKind()
	descriptor, described := arr.Descriptor()
	if described {
		body.WriteByte(ctorDescribed)
		Encode(&body, descriptor)
		elemKind = realElemKind(arr.Elems())
	}
	ctor := bareConstructorFor(elemKind)
	body.WriteByte(ctor)

	elems := arr.Elems()
	for _, e := range elems {
		if described {
			d, _ := e.Described()
			e = d.Value
		}
		encodeArrayElement(&body, ctor, e)
	}

	if body.Len()+1 <= math.MaxUint8 && len(elems) <= math.MaxUint8 {
		buf.WriteByte(ctorArray8)
		buf.WriteByte(byte(body.Len() + 1))
		buf.WriteByte(byte(len(elems)))
	} else {
		buf.WriteByte(ctorArray32)
		writeUint32(buf, uint32(body.Len()+4))
		writeUint32(buf, uint32(len(elems)))
	}
	buf.Write(body.Bytes())
}

// realElemKind recovers the kind of the values a described array
// actually wraps (every element's declared Kind is KindDescribed, so
// arr.ElemKind() can't be used directly). An empty described array
// has nothing to recover a kind from; KindNull is a harmless default
// since no element payload will ever be written for it.
func realElemKind(elems []types.Value) types.Kind {
	if len(elems) == 0 {
		return types.KindNull
	}
	d, _ := elems[0].Described()
	return d.Value.Kind()
}

// encodeArrayElement writes one array element's payload at the exact
// width the shared constructor ctor (already written once for the
// whole array) declares, not the element's own minimal width: the
// decoder has no per-element constructor byte to tell it otherwise.
func encodeArrayElement(body *bytes.Buffer, ctor byte, e types.Value) {
	switch ctor {
	case ctorNull:
		// no payload
	case ctorBool:
		b, _ := e.Bool()
		if b {
			body.WriteByte(1)
		} else {
			body.WriteByte(0)
		}
	case ctorUByte:
		n, _ := e.Uint64()
		body.WriteByte(byte(n))
	case ctorByte:
		n, _ := e.Int64()
		body.WriteByte(byte(int8(n)))
	case ctorUShort:
		n, _ := e.Uint64()
		writeUint16(body, uint16(n))
	case ctorShort:
		n, _ := e.Int64()
		writeUint16(body, uint16(int16(n)))
	case ctorUInt:
		n, _ := e.Uint64()
		writeUint32(body, uint32(n))
	case ctorInt:
		n, _ := e.Int64()
		writeUint32(body, uint32(int32(n)))
	case ctorULong:
		n, _ := e.Uint64()
		writeUint64(body, n)
	case ctorLong:
		n, _ := e.Int64()
		writeUint64(body, uint64(n))
	case ctorFloat:
		f, _ := e.Float32()
		writeUint32(body, math.Float32bits(f))
	case ctorDouble:
		f, _ := e.Float64()
		writeUint64(body, math.Float64bits(f))
	case ctorChar:
		r, _ := e.Char()
		writeUint32(body, uint32(r))
	case ctorTimestamp:
		ms, _ := e.Timestamp()
		writeUint64(body, uint64(ms))
	case ctorUUID:
		u, _ := e.UUID()
		body.Write(u[:])
	case ctorVBin32:
		b, _ := e.Binary()
		writeUint32(body, uint32(len(b)))
		body.Write(b)
	case ctorStr32:
		s, _ := e.String()
		writeUint32(body, uint32(len(s)))
		body.Write([]byte(s))
	case ctorSym32:
		s, _ := e.Symbol()
		writeUint32(body, uint32(len(s)))
		body.Write([]byte(s))
	case ctorList32:
		list, _ := e.List()
		encodeListBodyWidth32(body, list)
	case ctorMap32:
		m, _ := e.Map()
		encodeMapBodyWidth32(body, m)
	}
}

// encodeListBodyWidth32 writes a list's size/count fields at 4 bytes
// each, the width every array-of-list element shares regardless of
// how small an individual element would otherwise encode.
func encodeListBodyWidth32(buf *bytes.Buffer, list types.List) {
	var inner bytes.Buffer
	for _, e := range list {
		Encode(&inner, e)
	}
	writeUint32(buf, uint32(inner.Len()+4))
	writeUint32(buf, uint32(len(list)))
	buf.Write(inner.Bytes())
}

// encodeMapBodyWidth32 is encodeListBodyWidth32's map-shaped sibling.
func encodeMapBodyWidth32(buf *bytes.Buffer, m *types.Map) {
	var inner bytes.Buffer
	count := 0
	for _, p := range m.Pairs() {
		Encode(&inner, p.Key)
		Encode(&inner, p.Value)
		count += 2
	}
	writeUint32(buf, uint32(inner.Len()+4))
	writeUint32(buf, uint32(count))
	buf.Write(inner.Bytes())
}

// bareConstructorFor picks the fixed-width constructor kind's array
// elements share when no per-element constructor is retransmitted.
// Variable and compound kinds always use their widest (32-bit) form:
// per-element width variance isn't representable under one shared
// constructor.
func bareConstructorFor(kind types.Kind) byte {
	switch kind {
	case types.KindNull:
		return ctorNull
	case types.KindBool:
		return ctorBool
	case types.KindUByte:
		return ctorUByte
	case types.KindUShort:
		return ctorUShort
	case types.KindUInt:
		return ctorUInt
	case types.KindULong:
		return ctorULong
	case types.KindByte:
		return ctorByte
	case types.KindShort:
		return ctorShort
	case types.KindInt:
		return ctorInt
	case types.KindLong:
		return ctorLong
	case types.KindFloat:
		return ctorFloat
	case types.KindDouble:
		return ctorDouble
	case types.KindChar:
		return ctorChar
	case types.KindTimestamp:
		return ctorTimestamp
	case types.KindUUID:
		return ctorUUID
	case types.KindBinary:
		return ctorVBin32
	case types.KindString:
		return ctorStr32
	case types.KindSymbol:
		return ctorSym32
	case types.KindList:
		return ctorList32
	case types.KindMap:
		return ctorMap32
	default:
		return ctorNull
	}
}

func writeUint16(buf *bytes.Buffer, n uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], n)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, n uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, n uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	buf.Write(b[:])
}
