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

package message_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amqpgo/amqp10/codec"
	"github.com/amqpgo/amqp10/message"
	"github.com/amqpgo/amqp10/types"
)

func TestTextMessageRoundTrip(t *testing.T) {
	m := message.NewTextMessage("hello amqp")

	b, err := message.Encode(m)
	require.NoError(t, err)

	got, err := message.Decode(b)
	require.NoError(t, err)

	assert.Equal(t, message.BodyData, got.BodyKind)
	require.Len(t, got.DataBody, 1)
	assert.Equal(t, []byte("hello amqp"), got.DataBody[0])
	require.NotNil(t, got.Properties)
	assert.Equal(t, "text/plain", got.Properties.ContentType)
}

func TestBinaryMessageRoundTrip(t *testing.T) {
	payload := []byte{0x00, 0x01, 0xFF, 0xFE}
	m := message.NewBinaryMessage(payload)

	b, err := message.Encode(m)
	require.NoError(t, err)

	got, err := message.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, message.BodyData, got.BodyKind)
	require.Len(t, got.DataBody, 1)
	assert.Equal(t, payload, got.DataBody[0])
}

func TestValueMessageRoundTrip(t *testing.T) {
	m := message.NewValueMessage(types.Int(42))

	b, err := message.Encode(m)
	require.NoError(t, err)

	got, err := message.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, message.BodyValue, got.BodyKind)
	assert.True(t, types.Int(42).Equal(got.ValueBody))
}

func TestSequenceMessageRoundTrip(t *testing.T) {
	seq := types.List{types.Int(1), types.String("two")}
	m := message.NewSequenceMessage(seq)

	b, err := message.Encode(m)
	require.NoError(t, err)

	got, err := message.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, message.BodySequence, got.BodyKind)
	require.Len(t, got.SeqBody, 1)
	assert.Len(t, got.SeqBody[0], 2)
}

func TestFullMessageRoundTrip(t *testing.T) {
	ttl := uint32(5000)
	groupSeq := uint32(7)
	m := &message.Message{
		Header: &message.Header{
			Durable:       true,
			Priority:      4,
			TTL:           &ttl,
			FirstAcquirer: true,
			DeliveryCount: 2,
		},
		Properties: &message.Properties{
			MessageID:     types.String("msg-1"),
			To:            "queue-a",
			Subject:       "subj",
			ReplyTo:       "queue-b",
			CorrelationID: types.String("corr-1"),
			ContentType:   "application/octet-stream",
			GroupID:       "group-1",
			GroupSequence: &groupSeq,
		},
		BodyKind: message.BodyData,
		DataBody: [][]byte{[]byte("payload")},
	}

	b, err := message.Encode(m)
	require.NoError(t, err)

	got, err := message.Decode(b)
	require.NoError(t, err)

	require.NotNil(t, got.Header)
	assert.True(t, got.Header.Durable)
	assert.Equal(t, uint8(4), got.Header.Priority)
	require.NotNil(t, got.Header.TTL)
	assert.Equal(t, ttl, *got.Header.TTL)
	assert.True(t, got.Header.FirstAcquirer)
	assert.Equal(t, uint32(2), got.Header.DeliveryCount)

	require.NotNil(t, got.Properties)
	id, ok := got.Properties.MessageID.String()
	require.True(t, ok)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "queue-a", got.Properties.To)
	assert.Equal(t, "application/octet-stream", got.Properties.ContentType)
	require.NotNil(t, got.Properties.GroupSequence)
	assert.Equal(t, groupSeq, *got.Properties.GroupSequence)

	assert.Equal(t, message.BodyData, got.BodyKind)
	require.Len(t, got.DataBody, 1)
	assert.Equal(t, []byte("payload"), got.DataBody[0])
}

func TestAddDataRejectsMixedBody(t *testing.T) {
	m := message.NewValueMessage(types.Int(1))
	err := m.AddData([]byte("x"))
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownSectionDescriptor(t *testing.T) {
	bogus := types.NewDescribed(types.ULong(0x99), types.Int(1))

	_, err := message.Decode(codec.EncodeValue(bogus))
	assert.Error(t, err)
}
