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

// Package codec implements byte-exact encode/decode of the types.Value
// model against the OASIS AMQP 1.0 §1.6 binary format. Grounded in the
// teacher's protocol/pamqp/decoder.go (length-then-body parsing loop,
// explicit binary.BigEndian field extraction) and channel.go
// (decodeShortString), generalized from AMQP 0-9-1's fixed method-field
// layout to AMQP 1.0's self-describing constructor-byte scheme.
package codec

// Constructor bytes, per OASIS AMQP 1.0 §1.6.
const (
	ctorNull = 0x40

	ctorBoolTrue  = 0x41
	ctorBoolFalse = 0x42
	ctorBool      = 0x56

	ctorUByte = 0x50

	ctorUShort = 0x60

	ctorUInt      = 0x70
	ctorSmallUInt = 0x52
	ctorUInt0     = 0x43

	ctorULong      = 0x80
	ctorSmallULong = 0x53
	ctorULong0     = 0x44

	ctorByte = 0x51

	ctorShort = 0x61

	ctorInt      = 0x71
	ctorSmallInt = 0x54

	ctorLong      = 0x81
	ctorSmallLong = 0x55

	ctorFloat  = 0x72
	ctorDouble = 0x82

	ctorChar = 0x73

	ctorTimestamp = 0x83

	ctorUUID = 0x98

	ctorVBin8  = 0xA0
	ctorStr8   = 0xA1
	ctorSym8   = 0xA3
	ctorVBin32 = 0xB0
	ctorStr32  = 0xB1
	ctorSym32  = 0xB3

	ctorList0  = 0x45
	ctorList8  = 0xC0
	ctorList32 = 0xD0

	ctorMap8  = 0xC1
	ctorMap32 = 0xD1

	ctorArray8  = 0xE0
	ctorArray32 = 0xF0

	ctorDescribed = 0x00
)
