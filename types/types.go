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

// Package types is the AMQP 1.0 value model: a tagged union with one
// variant per primitive defined in OASIS AMQP 1.0 §1.6, plus the
// composite container kinds (list, map, array, described). The codec
// package encodes/decodes Values; nothing above the codec ever sees a
// raw constructor byte.
package types

import (
	"fmt"
	"math"
)

// Kind tags which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindUByte
	KindByte
	KindUShort
	KindShort
	KindUInt
	KindInt
	KindULong
	KindLong
	KindFloat
	KindDouble
	KindChar
	KindTimestamp
	KindUUID
	KindBinary
	KindString
	KindSymbol
	KindList
	KindMap
	KindArray
	KindDescribed
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindUByte:
		return "ubyte"
	case KindByte:
		return "byte"
	case KindUShort:
		return "ushort"
	case KindShort:
		return "short"
	case KindUInt:
		return "uint"
	case KindInt:
		return "int"
	case KindULong:
		return "ulong"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindChar:
		return "char"
	case KindTimestamp:
		return "timestamp"
	case KindUUID:
		return "uuid"
	case KindBinary:
		return "binary"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindArray:
		return "array"
	case KindDescribed:
		return "described"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// UUID is a 128-bit AMQP uuid value.
type UUID [16]byte

// Value is a single AMQP 1.0 value. The zero Value is KindNull.
//
// Only the field(s) matching Kind are meaningful; Value is small enough
// (and scalar-heavy enough) that a tagged struct beats an interface{}
// union here: no allocation for the numeric/bool/char/timestamp/uuid
// variants, which dominate real traffic (flow state, ids, headers).
type Value struct {
	kind Kind

	u64 uint64 // ubyte/ushort/uint/ulong/bool(0|1)
	i64 int64  // byte/short/int/long/char(rune)/timestamp(ms)
	f64 float64

	str  string  // string/symbol
	bin  []byte  // binary
	uuid UUID    // uuid
	list []Value // list
	m    *Map    // map
	arr  *Array  // array
	desc *Described
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Null is the AMQP null value.
func Null() Value { return Value{kind: KindNull} }

func Bool(b bool) Value {
	var u uint64
	if b {
		u = 1
	}
	return Value{kind: KindBool, u64: u}
}

func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.u64 != 0, true
}

func UByte(n uint8) Value  { return Value{kind: KindUByte, u64: uint64(n)} }
func UShort(n uint16) Value { return Value{kind: KindUShort, u64: uint64(n)} }
func UInt(n uint32) Value  { return Value{kind: KindUInt, u64: uint64(n)} }
func ULong(n uint64) Value { return Value{kind: KindULong, u64: n} }

func Byte(n int8) Value   { return Value{kind: KindByte, i64: int64(n)} }
func Short(n int16) Value { return Value{kind: KindShort, i64: int64(n)} }
func Int(n int32) Value   { return Value{kind: KindInt, i64: int64(n)} }
func Long(n int64) Value  { return Value{kind: KindLong, i64: n} }

func Float(f float32) Value { return Value{kind: KindFloat, f64: float64(f)} }
func Double(f float64) Value { return Value{kind: KindDouble, f64: f} }

// Char is a unicode code point (AMQP "char", encoded as UTF-32BE).
func Char(r rune) Value { return Value{kind: KindChar, i64: int64(r)} }

// Timestamp is milliseconds since the Unix epoch.
func Timestamp(ms int64) Value { return Value{kind: KindTimestamp, i64: ms} }

func UUIDValue(u UUID) Value { return Value{kind: KindUUID, uuid: u} }

func Binary(b []byte) Value { return Value{kind: KindBinary, bin: b} }

func String(s string) Value { return Value{kind: KindString, str: s} }

// Symbol constructs a symbol value. Callers are responsible for ensuring
// s is 7-bit ASCII: neither Symbol nor the codec checks it.
func Symbol(s string) Value { return Value{kind: KindSymbol, str: s} }

func (v Value) uintAccessor() (uint64, bool) {
	switch v.kind {
	case KindUByte, KindUShort, KindUInt, KindULong:
		return v.u64, true
	default:
		return 0, false
	}
}

func (v Value) Uint64() (uint64, bool) { return v.uintAccessor() }

func (v Value) intAccessor() (int64, bool) {
	switch v.kind {
	case KindByte, KindShort, KindInt, KindLong, KindTimestamp:
		return v.i64, true
	case KindChar:
		return v.i64, true
	default:
		return 0, false
	}
}

func (v Value) Int64() (int64, bool) { return v.intAccessor() }

func (v Value) Float32() (float32, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return float32(v.f64), true
}

func (v Value) Float64() (float64, bool) {
	if v.kind != KindDouble {
		return 0, false
	}
	return v.f64, true
}

func (v Value) Char() (rune, bool) {
	if v.kind != KindChar {
		return 0, false
	}
	return rune(v.i64), true
}

func (v Value) Timestamp() (int64, bool) {
	if v.kind != KindTimestamp {
		return 0, false
	}
	return v.i64, true
}

func (v Value) UUID() (UUID, bool) {
	if v.kind != KindUUID {
		return UUID{}, false
	}
	return v.uuid, true
}

func (v Value) Binary() ([]byte, bool) {
	if v.kind != KindBinary {
		return nil, false
	}
	return v.bin, true
}

func (v Value) String() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

func (v Value) Symbol() (string, bool) {
	if v.kind != KindSymbol {
		return "", false
	}
	return v.str, true
}

func (v Value) List() (List, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

func (v Value) Map() (*Map, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m, true
}

func (v Value) Array() (*Array, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

func (v Value) Described() (*Described, bool) {
	if v.kind != KindDescribed {
		return nil, false
	}
	return v.desc, true
}

// Equal reports whether v and other are the same AMQP value. Used to
// check map-key uniqueness and list/composite equality in tests.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool, KindUByte, KindUShort, KindUInt, KindULong:
		return v.u64 == other.u64
	case KindByte, KindShort, KindInt, KindLong, KindChar, KindTimestamp:
		return v.i64 == other.i64
	case KindFloat:
		return math.Float32bits(float32(v.f64)) == math.Float32bits(float32(other.f64))
	case KindDouble:
		return math.Float64bits(v.f64) == math.Float64bits(other.f64)
	case KindUUID:
		return v.uuid == other.uuid
	case KindBinary:
		return string(v.bin) == string(other.bin)
	case KindString, KindSymbol:
		return v.str == other.str
	case KindList:
		return equalLists(v.list, other.list)
	case KindMap:
		return v.m.Equal(other.m)
	case KindArray:
		return v.arr.Equal(other.arr)
	case KindDescribed:
		return v.desc.Descriptor.Equal(other.desc.Descriptor) && v.desc.Value.Equal(other.desc.Value)
	default:
		return false
	}
}

func equalLists(a, b List) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
