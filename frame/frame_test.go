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

package frame_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amqpgo/amqp10/frame"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []frame.Frame{
		frame.Empty(0),
		{Type: frame.TypeAMQP, Channel: 3, Body: []byte{0x01, 0x02, 0x03}},
		{Type: frame.TypeAMQP, Channel: 65535, Body: bytes.Repeat([]byte{0xAB}, 1000)},
	}

	for _, f := range cases {
		var buf bytes.Buffer
		require.NoError(t, frame.Write(&buf, f))

		got, err := frame.Read(&buf, 0)
		require.NoError(t, err)
		assert.Equal(t, f.Type, got.Type)
		assert.Equal(t, f.Channel, got.Channel)
		assert.Equal(t, f.Body, got.Body)
	}
}

func TestFrameRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, frame.Write(&buf, frame.Frame{Type: frame.TypeAMQP, Body: make([]byte, 100)}))

	_, err := frame.Read(&buf, 64)
	require.Error(t, err)
}

func TestProtocolHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, frame.WriteHeader(&buf, frame.AMQPHeader))

	got, err := frame.ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, frame.AMQPHeader, got)
}

func TestProtocolHeaderRejectsBadMagic(t *testing.T) {
	_, err := frame.ReadHeader(bytes.NewReader([]byte("XMQP\x00\x01\x00\x00")))
	require.Error(t, err)
}
