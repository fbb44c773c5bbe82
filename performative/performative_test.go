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

package performative_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amqpgo/amqp10/codec"
	"github.com/amqpgo/amqp10/performative"
	"github.com/amqpgo/amqp10/types"
)

// roundTrip encodes p to bytes through the codec package and decodes it
// back, the same path the frame layer drives a performative through.
func roundTrip(t *testing.T, p performative.Performative) performative.Performative {
	t.Helper()
	encoded := codec.EncodeValue(p.Encode())

	v, n, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), n)

	got, err := performative.Decode(v)
	require.NoError(t, err)
	return got
}

// TestOpenRoundTripWithCapabilities specifically regresses the shared-
// constructor array width bug: non-empty OfferedCapabilities/
// DesiredCapabilities/locale lists must survive encode/decode intact.
func TestOpenRoundTripWithCapabilities(t *testing.T) {
	idle := uint32(30000)
	open := &performative.Open{
		ContainerID:         "container-1",
		Hostname:            "broker.example.com",
		MaxFrameSize:        65536,
		ChannelMax:          100,
		IdleTimeout:         &idle,
		OutgoingLocales:     []string{"en-US"},
		IncomingLocales:     []string{"en-US", "fr-FR"},
		OfferedCapabilities: []string{"ANONYMOUS-RELAY", "sole-connection-for-container"},
		DesiredCapabilities: []string{"shared-subscriptions"},
	}

	got := roundTrip(t, open)
	gotOpen, ok := got.(*performative.Open)
	require.True(t, ok)

	assert.Equal(t, open.ContainerID, gotOpen.ContainerID)
	assert.Equal(t, open.Hostname, gotOpen.Hostname)
	assert.Equal(t, open.MaxFrameSize, gotOpen.MaxFrameSize)
	assert.Equal(t, open.ChannelMax, gotOpen.ChannelMax)
	require.NotNil(t, gotOpen.IdleTimeout)
	assert.Equal(t, idle, *gotOpen.IdleTimeout)
	assert.Equal(t, open.OutgoingLocales, gotOpen.OutgoingLocales)
	assert.Equal(t, open.IncomingLocales, gotOpen.IncomingLocales)
	assert.Equal(t, open.OfferedCapabilities, gotOpen.OfferedCapabilities)
	assert.Equal(t, open.DesiredCapabilities, gotOpen.DesiredCapabilities)
}

func TestOpenRoundTripWithoutCapabilities(t *testing.T) {
	open := &performative.Open{ContainerID: "container-2", MaxFrameSize: 4096, ChannelMax: 1}
	got := roundTrip(t, open)
	gotOpen, ok := got.(*performative.Open)
	require.True(t, ok)
	assert.Equal(t, "container-2", gotOpen.ContainerID)
	assert.Empty(t, gotOpen.OfferedCapabilities)
}

func TestBeginRoundTrip(t *testing.T) {
	remoteChannel := uint16(7)
	begin := &performative.Begin{
		RemoteChannel:       &remoteChannel,
		NextOutgoingID:      1,
		IncomingWindow:      100,
		OutgoingWindow:      100,
		HandleMax:           10,
		OfferedCapabilities: []string{"cap-a", "cap-b"},
	}
	got := roundTrip(t, begin)
	gotBegin, ok := got.(*performative.Begin)
	require.True(t, ok)
	require.NotNil(t, gotBegin.RemoteChannel)
	assert.Equal(t, remoteChannel, *gotBegin.RemoteChannel)
	assert.Equal(t, begin.NextOutgoingID, gotBegin.NextOutgoingID)
	assert.Equal(t, begin.OfferedCapabilities, gotBegin.OfferedCapabilities)
}

func TestAttachRoundTrip(t *testing.T) {
	deliveryCount := uint32(0)
	maxMsgSize := uint64(1024 * 1024)
	attach := &performative.Attach{
		Name:                 "link-1",
		Handle:               3,
		Role:                 performative.RoleSender,
		SndSettleMode:        performative.SenderSettleUnsettled,
		RcvSettleMode:        performative.ReceiverSettleFirst,
		InitialDeliveryCount: &deliveryCount,
		MaxMessageSize:       &maxMsgSize,
		OfferedCapabilities:  []string{"queue"},
		DesiredCapabilities:  []string{"topic", "queue"},
	}
	got := roundTrip(t, attach)
	gotAttach, ok := got.(*performative.Attach)
	require.True(t, ok)
	assert.Equal(t, attach.Name, gotAttach.Name)
	assert.Equal(t, attach.Handle, gotAttach.Handle)
	assert.Equal(t, attach.Role, gotAttach.Role)
	require.NotNil(t, gotAttach.MaxMessageSize)
	assert.Equal(t, maxMsgSize, *gotAttach.MaxMessageSize)
	assert.Equal(t, attach.OfferedCapabilities, gotAttach.OfferedCapabilities)
	assert.Equal(t, attach.DesiredCapabilities, gotAttach.DesiredCapabilities)
}

func TestFlowRoundTrip(t *testing.T) {
	credit := uint32(50)
	flow := &performative.Flow{
		IncomingWindow: 10,
		OutgoingWindow: 10,
		LinkCredit:     &credit,
		Drain:          true,
	}
	got := roundTrip(t, flow)
	gotFlow, ok := got.(*performative.Flow)
	require.True(t, ok)
	require.NotNil(t, gotFlow.LinkCredit)
	assert.Equal(t, credit, *gotFlow.LinkCredit)
	assert.True(t, gotFlow.Drain)
}

func TestTransferRoundTrip(t *testing.T) {
	deliveryID := uint32(9)
	settled := true
	transfer := &performative.Transfer{
		Handle:      2,
		DeliveryID:  &deliveryID,
		DeliveryTag: []byte{0x01, 0x02},
		Settled:     &settled,
		More:        true,
	}
	got := roundTrip(t, transfer)
	gotTransfer, ok := got.(*performative.Transfer)
	require.True(t, ok)
	assert.Equal(t, transfer.Handle, gotTransfer.Handle)
	require.NotNil(t, gotTransfer.DeliveryID)
	assert.Equal(t, deliveryID, *gotTransfer.DeliveryID)
	assert.Equal(t, transfer.DeliveryTag, gotTransfer.DeliveryTag)
	require.NotNil(t, gotTransfer.Settled)
	assert.True(t, *gotTransfer.Settled)
	assert.True(t, gotTransfer.More)
}

func TestDispositionRoundTrip(t *testing.T) {
	last := uint32(12)
	disposition := &performative.Disposition{
		Role:    performative.RoleReceiver,
		First:   10,
		Last:    &last,
		Settled: true,
	}
	got := roundTrip(t, disposition)
	gotDisposition, ok := got.(*performative.Disposition)
	require.True(t, ok)
	assert.Equal(t, disposition.Role, gotDisposition.Role)
	assert.Equal(t, disposition.First, gotDisposition.First)
	require.NotNil(t, gotDisposition.Last)
	assert.Equal(t, last, *gotDisposition.Last)
	assert.True(t, gotDisposition.Settled)
}

func TestDetachRoundTripWithError(t *testing.T) {
	detach := &performative.Detach{
		Handle: 5,
		Closed: true,
		Error:  &performative.ErrorInfo{Condition: "amqp:link:detach-forced", Description: "forced"},
	}
	got := roundTrip(t, detach)
	gotDetach, ok := got.(*performative.Detach)
	require.True(t, ok)
	assert.Equal(t, detach.Handle, gotDetach.Handle)
	assert.True(t, gotDetach.Closed)
	require.NotNil(t, gotDetach.Error)
	assert.Equal(t, "amqp:link:detach-forced", gotDetach.Error.Condition)
}

func TestDetachRoundTripWithoutError(t *testing.T) {
	detach := &performative.Detach{Handle: 1, Closed: false}
	got := roundTrip(t, detach)
	gotDetach, ok := got.(*performative.Detach)
	require.True(t, ok)
	assert.Nil(t, gotDetach.Error)
}

func TestEndRoundTrip(t *testing.T) {
	end := &performative.End{Error: &performative.ErrorInfo{Condition: "amqp:internal-error"}}
	got := roundTrip(t, end)
	gotEnd, ok := got.(*performative.End)
	require.True(t, ok)
	require.NotNil(t, gotEnd.Error)
	assert.Equal(t, "amqp:internal-error", gotEnd.Error.Condition)
}

func TestCloseRoundTrip(t *testing.T) {
	closeP := &performative.Close{}
	got := roundTrip(t, closeP)
	gotClose, ok := got.(*performative.Close)
	require.True(t, ok)
	assert.Nil(t, gotClose.Error)
}

func TestDecodeUnknownDescriptor(t *testing.T) {
	bogus := types.NewDescribed(types.ULong(0xFF), types.NewList())
	_, err := performative.Decode(bogus)
	assert.Error(t, err)
}
