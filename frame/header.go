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

package frame

import (
	"bytes"
	"io"

	"github.com/amqpgo/amqp10/amqperr"
)

// ProtoHeader is the 8-byte handshake preceding any frame traffic:
// "AMQP" protoID major minor revision.
type ProtoHeader struct {
	ProtoID  byte
	Major    byte
	Minor    byte
	Revision byte
}

// AMQPHeader is the core's own header, sent first and expected back
// unchanged for a successful handshake.
var AMQPHeader = ProtoHeader{ProtoID: 0, Major: 1, Minor: 0, Revision: 0}

// SASLHeader is recognized on read so a SASL-only peer can be rejected
// cleanly rather than treated as a framing error.
var SASLHeader = ProtoHeader{ProtoID: 3, Major: 1, Minor: 0, Revision: 0}

func (h ProtoHeader) Bytes() []byte {
	return []byte{'A', 'M', 'Q', 'P', h.ProtoID, h.Major, h.Minor, h.Revision}
}

func (h ProtoHeader) Equal(other ProtoHeader) bool { return h == other }

// WriteHeader writes h to w.
func WriteHeader(w io.Writer, h ProtoHeader) error {
	if _, err := w.Write(h.Bytes()); err != nil {
		return amqperr.Wrap(amqperr.KindTransport, "", err, "frame: write protocol header")
	}
	return nil
}

// ReadHeader reads and parses one protocol header from r.
func ReadHeader(r io.Reader) (ProtoHeader, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return ProtoHeader{}, amqperr.Wrap(amqperr.KindTransport, "", err, "frame: read protocol header")
	}
	if !bytes.Equal(b[:4], []byte("AMQP")) {
		return ProtoHeader{}, amqperr.NewCondition(amqperr.KindConnection, amqperr.CondFramingError, "missing AMQP magic")
	}
	return ProtoHeader{ProtoID: b[4], Major: b[5], Minor: b[6], Revision: b[7]}, nil
}
