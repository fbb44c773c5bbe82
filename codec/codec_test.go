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

package codec_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amqpgo/amqp10/codec"
	"github.com/amqpgo/amqp10/types"
)

func TestRoundTrip(t *testing.T) {
	list := types.NewList(types.Int(1), types.String("two"))

	m, err := types.NewMap(
		types.Pair{Key: types.Symbol("k1"), Value: types.Int(1)},
		types.Pair{Key: types.Symbol("k2"), Value: types.Bool(true)},
	)
	require.NoError(t, err)

	symArr, err := types.NewArray(types.KindSymbol, nil, types.Symbol("foo"), types.Symbol("bar-baz"))
	require.NoError(t, err)

	boolArr, err := types.NewArray(types.KindBool, nil, types.Bool(true), types.Bool(false), types.Bool(true))
	require.NoError(t, err)

	intArr, err := types.NewArray(types.KindInt, nil, types.Int(1), types.Int(300), types.Int(-5))
	require.NoError(t, err)

	ulongArr, err := types.NewArray(types.KindULong, nil, types.ULong(0), types.ULong(1<<40))
	require.NoError(t, err)

	emptyArr, err := types.NewArray(types.KindUInt, nil)
	require.NoError(t, err)

	listArr, err := types.NewArray(types.KindList, nil, list, list)
	require.NoError(t, err)

	descValue := types.NewDescribed(types.ULong(0x70), types.String("payload"))
	descriptor := types.ULong(0x70)
	describedArr, err := types.NewArray(types.KindDescribed, &descriptor,
		types.NewDescribed(descriptor, types.Int(1)),
		types.NewDescribed(descriptor, types.Int(2)),
	)
	require.NoError(t, err)

	cases := map[string]types.Value{
		"null":                    types.Null(),
		"bool true":               types.Bool(true),
		"bool false":              types.Bool(false),
		"ubyte":                   types.UByte(200),
		"ushort":                  types.UShort(40000),
		"uint zero":               types.UInt(0),
		"uint small":              types.UInt(200),
		"uint large":              types.UInt(1 << 20),
		"ulong zero":              types.ULong(0),
		"ulong small":             types.ULong(200),
		"ulong large":             types.ULong(1 << 40),
		"byte":                    types.Byte(-5),
		"short":                   types.Short(-1000),
		"int small":               types.Int(42),
		"int large":               types.Int(1 << 20),
		"long small":              types.Long(42),
		"long large":              types.Long(1 << 40),
		"float":                   types.Float(3.5),
		"double":                  types.Double(3.5),
		"char":                    types.Char('λ'),
		"timestamp":               types.Timestamp(1700000000000),
		"uuid":                    types.UUIDValue(types.UUID{1, 2, 3}),
		"binary":                  types.Binary([]byte{0xDE, 0xAD, 0xBE, 0xEF}),
		"string short":            types.String("hello"),
		"string long":             types.String(string(bytes.Repeat([]byte("x"), 300))),
		"symbol short":            types.Symbol("foo"),
		"symbol long":             types.Symbol(string(bytes.Repeat([]byte("y"), 300))),
		"empty list":              types.NewList(),
		"list":                    list,
		"empty map":               types.MapValue(&types.Map{}),
		"map":                     m,
		"symbol array":            symArr,
		"bool array":              boolArr,
		"int array":               intArr,
		"ulong array":             ulongArr,
		"empty array":             emptyArr,
		"list array":              listArr,
		"described array":         describedArr,
		"described":               descValue,
	}

	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			encoded := codec.EncodeValue(v)
			decoded, n, err := codec.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, len(encoded), n)
			assert.True(t, v.Equal(decoded), "round-trip mismatch for %s: got %+v", name, decoded)

			// Re-encoding the decoded value must decode to the same value,
			// even if the canonicalized bytes differ from the original.
			reencoded := codec.EncodeValue(decoded)
			redecoded, _, err := codec.Decode(reencoded)
			require.NoError(t, err)
			assert.True(t, v.Equal(redecoded))
		})
	}
}

// TestScenarioConstructorCanonicalization covers S1: encoding 42
// produces the smallint form, and decoding the non-canonical full-width
// int form yields the same value.
func TestScenarioConstructorCanonicalization(t *testing.T) {
	got := codec.EncodeValue(types.Int(42))
	assert.Equal(t, []byte{0x54, 0x2A}, got)

	decoded, n, err := codec.Decode([]byte{0x71, 0x00, 0x00, 0x00, 0x2A})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.True(t, types.Int(42).Equal(decoded))
}

// TestScenarioEmptyCollections covers S2: an empty list encodes to
// 0x45; an empty map encodes to 0xC1 0x01 0x00 (size=1, count=0).
func TestScenarioEmptyCollections(t *testing.T) {
	assert.Equal(t, []byte{0x45}, codec.EncodeValue(types.NewList()))
	assert.Equal(t, []byte{0xC1, 0x01, 0x00}, codec.EncodeValue(types.MapValue(&types.Map{})))
}

// TestArrayElementsShareConstructorWidth guards against the shared-
// constructor/minimal-width mismatch: every element of a declared array
// must be encoded and decoded at the width the shared constructor (not
// the element's own value) implies.
func TestArrayElementsShareConstructorWidth(t *testing.T) {
	arr, err := types.NewArray(types.KindSymbol, nil, types.Symbol("a"), types.Symbol("bb"))
	require.NoError(t, err)

	encoded := codec.EncodeValue(arr)
	decoded, n, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), n)

	decodedArr, ok := decoded.Array()
	require.True(t, ok)
	assert.Equal(t, types.KindSymbol, decodedArr.ElemKind())
	assert.Equal(t, 2, decodedArr.Len())
	s0, _ := decodedArr.Elems()[0].Symbol()
	s1, _ := decodedArr.Elems()[1].Symbol()
	assert.Equal(t, "a", s0)
	assert.Equal(t, "bb", s1)
}
