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
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/amqpgo/amqp10/amqperr"
	"github.com/amqpgo/amqp10/types"
)

// Decode reads one AMQP value starting at b[0], canonicalizing whichever
// legal constructor was used: accept any legal encoding, canonicalize
// on read. It returns the value, the number of bytes consumed, and a
// *amqperr.DecodeError on malformed
// input. Offsets in returned errors are relative to the start of b.
func Decode(b []byte) (types.Value, int, error) {
	return decodeAt(b, 0)
}

func decodeAt(b []byte, base int) (types.Value, int, error) {
	if len(b) < 1 {
		return types.Value{}, 0, amqperr.NewDecodeError(base, amqperr.ReasonUnexpectedEOF, "expected constructor byte")
	}
	ctor := b[0]

	switch ctor {
	case ctorNull:
		return types.Null(), 1, nil

	case ctorBoolTrue:
		return types.Bool(true), 1, nil
	case ctorBoolFalse:
		return types.Bool(false), 1, nil
	case ctorBool:
		if len(b) < 2 {
			return types.Value{}, 0, eofAt(base, 1)
		}
		return types.Bool(b[1] != 0), 2, nil

	case ctorUByte:
		if len(b) < 2 {
			return types.Value{}, 0, eofAt(base, 1)
		}
		return types.UByte(b[1]), 2, nil

	case ctorUShort:
		if len(b) < 3 {
			return types.Value{}, 0, eofAt(base, 2)
		}
		return types.UShort(binary.BigEndian.Uint16(b[1:3])), 3, nil

	case ctorUInt:
		if len(b) < 5 {
			return types.Value{}, 0, eofAt(base, 4)
		}
		return types.UInt(binary.BigEndian.Uint32(b[1:5])), 5, nil
	case ctorSmallUInt:
		if len(b) < 2 {
			return types.Value{}, 0, eofAt(base, 1)
		}
		return types.UInt(uint32(b[1])), 2, nil
	case ctorUInt0:
		return types.UInt(0), 1, nil

	case ctorULong:
		if len(b) < 9 {
			return types.Value{}, 0, eofAt(base, 8)
		}
		return types.ULong(binary.BigEndian.Uint64(b[1:9])), 9, nil
	case ctorSmallULong:
		if len(b) < 2 {
			return types.Value{}, 0, eofAt(base, 1)
		}
		return types.ULong(uint64(b[1])), 2, nil
	case ctorULong0:
		return types.ULong(0), 1, nil

	case ctorByte:
		if len(b) < 2 {
			return types.Value{}, 0, eofAt(base, 1)
		}
		return types.Byte(int8(b[1])), 2, nil

	case ctorShort:
		if len(b) < 3 {
			return types.Value{}, 0, eofAt(base, 2)
		}
		return types.Short(int16(binary.BigEndian.Uint16(b[1:3]))), 3, nil

	case ctorInt:
		if len(b) < 5 {
			return types.Value{}, 0, eofAt(base, 4)
		}
		return types.Int(int32(binary.BigEndian.Uint32(b[1:5]))), 5, nil
	case ctorSmallInt:
		if len(b) < 2 {
			return types.Value{}, 0, eofAt(base, 1)
		}
		return types.Int(int32(int8(b[1]))), 2, nil

	case ctorLong:
		if len(b) < 9 {
			return types.Value{}, 0, eofAt(base, 8)
		}
		return types.Long(int64(binary.BigEndian.Uint64(b[1:9]))), 9, nil
	case ctorSmallLong:
		if len(b) < 2 {
			return types.Value{}, 0, eofAt(base, 1)
		}
		return types.Long(int64(int8(b[1]))), 2, nil

	case ctorFloat:
		if len(b) < 5 {
			return types.Value{}, 0, eofAt(base, 4)
		}
		return types.Float(math.Float32frombits(binary.BigEndian.Uint32(b[1:5]))), 5, nil

	case ctorDouble:
		if len(b) < 9 {
			return types.Value{}, 0, eofAt(base, 8)
		}
		return types.Double(math.Float64frombits(binary.BigEndian.Uint64(b[1:9]))), 9, nil

	case ctorChar:
		if len(b) < 5 {
			return types.Value{}, 0, eofAt(base, 4)
		}
		return types.Char(rune(binary.BigEndian.Uint32(b[1:5]))), 5, nil

	case ctorTimestamp:
		if len(b) < 9 {
			return types.Value{}, 0, eofAt(base, 8)
		}
		return types.Timestamp(int64(binary.BigEndian.Uint64(b[1:9]))), 9, nil

	case ctorUUID:
		if len(b) < 17 {
			return types.Value{}, 0, eofAt(base, 16)
		}
		var u types.UUID
		copy(u[:], b[1:17])
		return types.UUIDValue(u), 17, nil

	case ctorVBin8, ctorStr8, ctorSym8:
		return decodeVarWidth8(b, base, ctor)
	case ctorVBin32, ctorStr32, ctorSym32:
		return decodeVarWidth32(b, base, ctor)

	case ctorList0:
		return types.NewList(), 1, nil
	case ctorList8:
		return decodeList8(b, base)
	case ctorList32:
		return decodeList32(b, base)

	case ctorMap8:
		return decodeMap8(b, base)
	case ctorMap32:
		return decodeMap32(b, base)

	case ctorArray8:
		return decodeArray8(b, base)
	case ctorArray32:
		return decodeArray32(b, base)

	case ctorDescribed:
		descriptor, n1, err := decodeAt(b[1:], base+1)
		if err != nil {
			return types.Value{}, 0, err
		}
		inner, n2, err := decodeAt(b[1+n1:], base+1+n1)
		if err != nil {
			return types.Value{}, 0, err
		}
		return types.NewDescribed(descriptor, inner), 1 + n1 + n2, nil

	default:
		return types.Value{}, 0, amqperr.UnknownConstructor(base, ctor)
	}
}

func eofAt(base, need int) error {
	return amqperr.NewDecodeError(base, amqperr.ReasonUnexpectedEOF, "")
}

func decodeVarWidth8(b []byte, base int, ctor byte) (types.Value, int, error) {
	if len(b) < 2 {
		return types.Value{}, 0, eofAt(base, 1)
	}
	n := int(b[1])
	if len(b) < 2+n {
		return types.Value{}, 0, eofAt(base, 2+n)
	}
	v, _, err := wrapVarWidth(ctor, b[2:2+n], base)
	if err != nil {
		return types.Value{}, 0, err
	}
	return v, 2 + n, nil
}

func decodeVarWidth32(b []byte, base int, ctor byte) (types.Value, int, error) {
	if len(b) < 5 {
		return types.Value{}, 0, eofAt(base, 4)
	}
	n := binary.BigEndian.Uint32(b[1:5])
	if n > math.MaxInt32 {
		return types.Value{}, 0, amqperr.NewDecodeError(base, amqperr.ReasonLengthOverflow, "")
	}
	if uint32(len(b)-5) < n {
		return types.Value{}, 0, eofAt(base, 5+int(n))
	}
	v, _, err := wrapVarWidth(ctor, b[5:5+int(n)], base)
	if err != nil {
		return types.Value{}, 0, err
	}
	return v, 5 + int(n), nil
}

func wrapVarWidth(ctor byte, body []byte, base int) (types.Value, int, error) {
	switch ctor {
	case ctorVBin8, ctorVBin32:
		return types.Binary(append([]byte(nil), body...)), len(body), nil
	case ctorStr8, ctorStr32:
		if !utf8.Valid(body) {
			return types.Value{}, 0, amqperr.NewDecodeError(base, amqperr.ReasonInvalidUTF8, "")
		}
		return types.String(string(body)), len(body), nil
	case ctorSym8, ctorSym32:
		return types.Symbol(string(body)), len(body), nil
	default:
		panic("codec: unreachable constructor in wrapVarWidth")
	}
}

func decodeList8(b []byte, base int) (types.Value, int, error) {
	if len(b) < 3 {
		return types.Value{}, 0, eofAt(base, 2)
	}
	size := int(b[1])
	count := int(b[2])
	return decodeListBody(b, base, 3, size-1, count)
}

func decodeList32(b []byte, base int) (types.Value, int, error) {
	if len(b) < 9 {
		return types.Value{}, 0, eofAt(base, 8)
	}
	size := binary.BigEndian.Uint32(b[1:5])
	count := binary.BigEndian.Uint32(b[5:9])
	return decodeListBody(b, base, 9, int(size)-4, int(count))
}

func decodeListBody(b []byte, base, headerLen, bodyLen, count int) (types.Value, int, error) {
	if bodyLen < 0 || len(b)-headerLen < bodyLen {
		return types.Value{}, 0, eofAt(base, headerLen+bodyLen)
	}
	elems := make(types.List, 0, count)
	off := headerLen
	for i := 0; i < count; i++ {
		v, n, err := decodeAt(b[off:], base+off)
		if err != nil {
			return types.Value{}, 0, err
		}
		elems = append(elems, v)
		off += n
	}
	return types.Value(types.NewList(elems...)), off, nil
}

func decodeMap8(b []byte, base int) (types.Value, int, error) {
	if len(b) < 3 {
		return types.Value{}, 0, eofAt(base, 2)
	}
	size := int(b[1])
	count := int(b[2])
	return decodeMapBody(b, base, 3, size-1, count)
}

func decodeMap32(b []byte, base int) (types.Value, int, error) {
	if len(b) < 9 {
		return types.Value{}, 0, eofAt(base, 8)
	}
	size := binary.BigEndian.Uint32(b[1:5])
	count := binary.BigEndian.Uint32(b[5:9])
	return decodeMapBody(b, base, 9, int(size)-4, int(count))
}

func decodeMapBody(b []byte, base, headerLen, bodyLen, count int) (types.Value, int, error) {
	if bodyLen < 0 || len(b)-headerLen < bodyLen {
		return types.Value{}, 0, eofAt(base, headerLen+bodyLen)
	}
	if count%2 != 0 {
		return types.Value{}, 0, amqperr.NewDecodeError(base, amqperr.ReasonMapOddCount, "")
	}
	var pairs []types.Pair
	off := headerLen
	for i := 0; i < count/2; i++ {
		k, n1, err := decodeAt(b[off:], base+off)
		if err != nil {
			return types.Value{}, 0, err
		}
		off += n1
		v, n2, err := decodeAt(b[off:], base+off)
		if err != nil {
			return types.Value{}, 0, err
		}
		off += n2
		pairs = append(pairs, types.Pair{Key: k, Value: v})
	}
	mv, err := types.NewMap(pairs...)
	if err != nil {
		return types.Value{}, 0, amqperr.NewDecodeError(base, amqperr.ReasonMapOddCount, err.Error())
	}
	return mv, off, nil
}

func decodeArray8(b []byte, base int) (types.Value, int, error) {
	if len(b) < 3 {
		return types.Value{}, 0, eofAt(base, 2)
	}
	size := int(b[1])
	count := int(b[2])
	return decodeArrayBody(b, base, 3, size-1, count)
}

func decodeArray32(b []byte, base int) (types.Value, int, error) {
	if len(b) < 9 {
		return types.Value{}, 0, eofAt(base, 8)
	}
	size := binary.BigEndian.Uint32(b[1:5])
	count := binary.BigEndian.Uint32(b[5:9])
	return decodeArrayBody(b, base, 9, int(size)-4, int(count))
}

// decodeArrayBody decodes a shared-constructor array body: one
// constructor (plus, for described elements, one shared descriptor),
// followed by count bare element payloads.
func decodeArrayBody(b []byte, base, headerLen, bodyLen, count int) (types.Value, int, error) {
	if bodyLen < 0 || len(b)-headerLen < bodyLen {
		return types.Value{}, 0, eofAt(base, headerLen+bodyLen)
	}
	off := headerLen
	if len(b) <= off {
		return types.Value{}, 0, eofAt(base, off+1)
	}

	var descriptor *types.Value
	elemCtor := b[off]
	elemHeaderLen := 1
	if elemCtor == ctorDescribed {
		d, n, err := decodeAt(b[off+1:], base+off+1)
		if err != nil {
			return types.Value{}, 0, err
		}
		descriptor = &d
		elemHeaderLen = 1 + n
		if len(b) <= off+elemHeaderLen {
			return types.Value{}, 0, eofAt(base, off+elemHeaderLen+1)
		}
		elemCtor = b[off+elemHeaderLen]
		elemHeaderLen++
	}
	off += elemHeaderLen

	elemKind, fixed := elemKindOf(elemCtor)

	elems := make([]types.Value, 0, count)
	for i := 0; i < count; i++ {
		v, n, err := decodeArrayElement(b[off:], base+off, elemCtor, fixed)
		if err != nil {
			return types.Value{}, 0, err
		}
		if descriptor != nil {
			v = types.NewDescribed(*descriptor, v)
		}
		elems = append(elems, v)
		off += n
	}

	effectiveKind := elemKind
	if descriptor != nil {
		effectiveKind = types.KindDescribed
	}
	av, err := types.NewArray(effectiveKind, descriptor, elems...)
	if err != nil {
		return types.Value{}, 0, amqperr.NewDecodeError(base, amqperr.ReasonArrayElementConstructorMismatch, err.Error())
	}
	return av, off, nil
}

// decodeArrayElement decodes one array element given the element's
// shared constructor byte, which (unlike a normal value) is not
// repeated in the stream.
func decodeArrayElement(b []byte, base int, ctor byte, fixed int) (types.Value, int, error) {
	if fixed >= 0 {
		full := append([]byte{ctor}, b[:min(len(b), fixed)]...)
		v, n, err := decodeAt(full, base-1)
		if err != nil {
			return types.Value{}, 0, err
		}
		return v, n - 1, nil
	}

	// variable-width / compound / array element: constructor determines
	// how the length prefix is read, but it isn't re-transmitted.
	switch ctor {
	case ctorVBin8, ctorStr8, ctorSym8:
		if len(b) < 1 {
			return types.Value{}, 0, eofAt(base, 1)
		}
		n := int(b[0])
		if len(b) < 1+n {
			return types.Value{}, 0, eofAt(base, 1+n)
		}
		v, _, err := wrapVarWidth(ctor, b[1:1+n], base)
		return v, 1 + n, err
	case ctorVBin32, ctorStr32, ctorSym32:
		if len(b) < 4 {
			return types.Value{}, 0, eofAt(base, 4)
		}
		n := binary.BigEndian.Uint32(b[0:4])
		if uint32(len(b)-4) < n {
			return types.Value{}, 0, eofAt(base, 4+int(n))
		}
		v, _, err := wrapVarWidth(ctor, b[4:4+int(n)], base)
		return v, 4 + int(n), err
	case ctorList8:
		if len(b) < 2 {
			return types.Value{}, 0, eofAt(base, 2)
		}
		size, count := int(b[0]), int(b[1])
		return decodeListBody(b, base, 2, size-1, count)
	case ctorList32:
		if len(b) < 8 {
			return types.Value{}, 0, eofAt(base, 8)
		}
		size := binary.BigEndian.Uint32(b[0:4])
		count := binary.BigEndian.Uint32(b[4:8])
		return decodeListBody(b, base, 8, int(size)-4, int(count))
	case ctorMap8:
		if len(b) < 2 {
			return types.Value{}, 0, eofAt(base, 2)
		}
		size, count := int(b[0]), int(b[1])
		return decodeMapBody(b, base, 2, size-1, count)
	case ctorMap32:
		if len(b) < 8 {
			return types.Value{}, 0, eofAt(base, 8)
		}
		size := binary.BigEndian.Uint32(b[0:4])
		count := binary.BigEndian.Uint32(b[4:8])
		return decodeMapBody(b, base, 8, int(size)-4, int(count))
	default:
		return types.Value{}, 0, amqperr.UnknownConstructor(base, ctor)
	}
}

// elemKindOf maps a fixed-width constructor byte to its Kind and
// payload width (width -1 marks a variable/compound constructor, which
// decodeArrayElement handles via its own length field).
func elemKindOf(ctor byte) (types.Kind, int) {
	switch ctor {
	case ctorNull:
		return types.KindNull, 0
	case ctorBool:
		return types.KindBool, 1
	case ctorUByte:
		return types.KindUByte, 1
	case ctorByte:
		return types.KindByte, 1
	case ctorUShort:
		return types.KindUShort, 2
	case ctorShort:
		return types.KindShort, 2
	case ctorUInt:
		return types.KindUInt, 4
	case ctorInt:
		return types.KindInt, 4
	case ctorULong:
		return types.KindULong, 8
	case ctorLong:
		return types.KindLong, 8
	case ctorFloat:
		return types.KindFloat, 4
	case ctorDouble:
		return types.KindDouble, 8
	case ctorChar:
		return types.KindChar, 4
	case ctorTimestamp:
		return types.KindTimestamp, 8
	case ctorUUID:
		return types.KindUUID, 16
	case ctorVBin8, ctorVBin32:
		return types.KindBinary, -1
	case ctorStr8, ctorStr32:
		return types.KindString, -1
	case ctorSym8, ctorSym32:
		return types.KindSymbol, -1
	case ctorList8, ctorList32:
		return types.KindList, -1
	case ctorMap8, ctorMap32:
		return types.KindMap, -1
	default:
		return types.KindNull, -1
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
