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

// Package frame implements the AMQP 1.0 frame layer: the protocol-
// header handshake and the 8-byte frame header (size, doff, type,
// channel) wrapping every performative. The read loop follows the
// usual length-prefixed-message shape: read a length prefix, then read
// exactly that many remaining bytes, then parse the body, generalized
// to AMQP 1.0's single frame type carrying one described performative.
package frame

import (
	"encoding/binary"
	"io"

	"github.com/amqpgo/amqp10/amqperr"
)

const (
	// TypeAMQP marks a frame carrying an AMQP performative.
	TypeAMQP byte = 0x00
	// TypeSASL marks a frame carrying a SASL performative. The core
	// recognizes the SASL protocol header to reject it cleanly
	// (amqperr.KindNotImplemented); it does not speak SASL.
	TypeSASL byte = 0x01

	// headerSize is the fixed 8-byte frame header: size(4) doff(1)
	// type(1) channel(2).
	headerSize = 8

	// minDOFF is the smallest legal data offset: the header occupies
	// exactly 2 four-byte words with no extended header.
	minDOFF = 2
)

// Frame is one decoded AMQP frame. Body holds everything after the
// (possibly extended) header: for all performatives except TRANSFER
// this is exactly the encoded performative; for TRANSFER it is the
// performative immediately followed by the message payload bytes.
type Frame struct {
	Type    byte
	Channel uint16
	Body    []byte
}

// Write serializes f with DOFF=2 (no extended header) and writes it to
// w in one call, so a frame is never partially written. Callers must
// serialize concurrent calls to Write on the same w.
func Write(w io.Writer, f Frame) error {
	size := headerSize + len(f.Body)
	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf[0:4], uint32(size))
	buf[4] = minDOFF
	buf[5] = f.Type
	binary.BigEndian.PutUint16(buf[6:8], f.Channel)
	copy(buf[8:], f.Body)
	_, err := w.Write(buf)
	if err != nil {
		return amqperr.Wrap(amqperr.KindTransport, "", err, "frame: write")
	}
	return nil
}

// Read reads exactly one frame from r, rejecting a size exceeding
// maxFrameSize with amqp:connection:framing-error. A zero-length Body
// with Type == TypeAMQP is the empty frame used as a heartbeat.
func Read(r io.Reader, maxFrameSize uint32) (Frame, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return Frame{}, amqperr.Wrap(amqperr.KindTransport, "", err, "frame: read size")
	}
	size := binary.BigEndian.Uint32(head[:])
	if size < headerSize {
		return Frame{}, amqperr.NewCondition(amqperr.KindConnection, amqperr.CondFramingError, "frame size %d smaller than header", size)
	}
	if maxFrameSize > 0 && size > maxFrameSize {
		return Frame{}, amqperr.NewCondition(amqperr.KindConnection, amqperr.CondFramingError, "frame size %d exceeds negotiated max %d", size, maxFrameSize)
	}

	rest := make([]byte, size-4)
	if _, err := io.ReadFull(r, rest); err != nil {
		return Frame{}, amqperr.Wrap(amqperr.KindTransport, "", err, "frame: read body")
	}

	doff := rest[0]
	if doff < minDOFF {
		return Frame{}, amqperr.NewCondition(amqperr.KindConnection, amqperr.CondFramingError, "doff %d smaller than minimum", doff)
	}
	typ := rest[1]
	channel := binary.BigEndian.Uint16(rest[2:4])

	extSkip := int(doff)*4 - headerSize
	if extSkip < 0 || extSkip > len(rest)-4 {
		return Frame{}, amqperr.NewCondition(amqperr.KindConnection, amqperr.CondFramingError, "doff %d inconsistent with frame size %d", doff, size)
	}

	return Frame{Type: typ, Channel: channel, Body: rest[4+extSkip:]}, nil
}

// IsEmpty reports whether f is a heartbeat (empty) frame.
func (f Frame) IsEmpty() bool { return len(f.Body) == 0 }

// Empty builds the heartbeat frame for channel.
func Empty(channel uint16) Frame { return Frame{Type: TypeAMQP, Channel: channel} }
