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

package link_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amqpgo/amqp10/link"
	"github.com/amqpgo/amqp10/message"
	"github.com/amqpgo/amqp10/performative"
	"github.com/amqpgo/amqp10/session"
	"github.com/amqpgo/amqp10/types"
)

// fakeSender is a minimal session.Sender that loops performatives back
// to the same session, the way a connection's channel-0 demux would,
// without needing a real transport.
type fakeSender struct {
	mu           sync.Mutex
	sess         *session.Session
	transfers    []*performative.Transfer
	maxFrameSize uint32
}

func (f *fakeSender) SendPerformative(_ uint16, p performative.Performative) error {
	switch v := p.(type) {
	case *performative.Attach:
		f.sess.DispatchAttach(v)
	case *performative.Detach:
		f.sess.Dispatch(v.Handle, v)
	case *performative.Flow:
		f.sess.HandleFlow(v)
	case *performative.Disposition:
		f.sess.DispatchDisposition(v)
	}
	return nil
}

func (f *fakeSender) SendTransfer(_ uint16, t *performative.Transfer, payload []byte) error {
	f.mu.Lock()
	f.transfers = append(f.transfers, t)
	f.mu.Unlock()
	f.sess.DispatchTransfer(t, payload)
	return nil
}

func (f *fakeSender) MaxFrameSize() uint32 {
	if f.maxFrameSize == 0 {
		return 65536
	}
	return f.maxFrameSize
}

func newLoopbackSession(maxFrameSize uint32) (*session.Session, *fakeSender) {
	fs := &fakeSender{maxFrameSize: maxFrameSize}
	sess := session.New(0, fs, 0, 100, 100, 16)
	fs.sess = sess
	return sess, fs
}

func TestSenderAttachCompletesOnLoopback(t *testing.T) {
	sess, _ := newLoopbackSession(0)
	snd := link.NewSender(sess, "test-sender", types.Null(), types.Null())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, snd.Attach(ctx, performative.SenderSettleUnsettled, performative.ReceiverSettleFirst))
	assert.Equal(t, "test-sender", snd.Name())
}

func TestSendBlocksUntilCreditArrives(t *testing.T) {
	sess, _ := newLoopbackSession(0)
	snd := link.NewSender(sess, "credit-sender", types.Null(), types.Null())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, snd.Attach(ctx, performative.SenderSettleUnsettled, performative.ReceiverSettleFirst))

	sendDone := make(chan error, 1)
	go func() {
		_, err := snd.Send(ctx, message.NewTextMessage("hello"))
		sendDone <- err
	}()

	select {
	case <-sendDone:
		t.Fatal("Send must block while credit is zero")
	case <-time.After(50 * time.Millisecond):
	}

	handle := snd.Handle()
	credit := uint32(1)
	sess.HandleFlow(&performative.Flow{Handle: &handle, LinkCredit: &credit, IncomingWindow: 100})

	select {
	case err := <-sendDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Send did not unblock after credit arrived")
	}
}

func TestLargeMessageFragmentsIntoThreeTransfers(t *testing.T) {
	const maxFrame = 512
	sess, fs := newLoopbackSession(maxFrame)
	snd := link.NewSender(sess, "frag-sender", types.Null(), types.Null())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, snd.Attach(ctx, performative.SenderSettleUnsettled, performative.ReceiverSettleFirst))

	handle := snd.Handle()
	credit := uint32(1)
	sess.HandleFlow(&performative.Flow{Handle: &handle, LinkCredit: &credit, IncomingWindow: 100})

	body := make([]byte, int(float64(maxFrame)*2.5))
	for i := range body {
		body[i] = byte(i)
	}
	_, err := snd.Send(ctx, message.NewBinaryMessage(body))
	require.NoError(t, err)

	fs.mu.Lock()
	transfers := fs.transfers
	fs.mu.Unlock()
	require.Len(t, transfers, 3, "2.5x max-frame-size payload must split into exactly 3 TRANSFER frames")
	assert.True(t, transfers[0].More)
	assert.True(t, transfers[1].More)
	assert.False(t, transfers[2].More)
}

func TestReceiverReassemblesAcrossTransfers(t *testing.T) {
	sess, _ := newLoopbackSession(0)
	rcv := link.NewReceiver(sess, "test-receiver", types.Null(), types.Null())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rcv.Attach(ctx, performative.SenderSettleUnsettled, performative.ReceiverSettleFirst))
	require.NoError(t, rcv.AddCredit(10))

	handle := rcv.Handle()
	deliveryID := uint32(0)
	payload, err := message.Encode(message.NewTextMessage("reassembled"))
	require.NoError(t, err)

	rcv.HandleTransfer(&performative.Transfer{Handle: handle, DeliveryID: &deliveryID, DeliveryTag: []byte{1}, More: true}, payload[:5])
	rcv.HandleTransfer(&performative.Transfer{Handle: handle, More: false}, payload[5:])

	msg, err := rcv.Receive(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, message.BodyData, msg.BodyKind)
}

func TestDetachIsIdempotent(t *testing.T) {
	sess, _ := newLoopbackSession(0)
	snd := link.NewSender(sess, "detach-sender", types.Null(), types.Null())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, snd.Attach(ctx, performative.SenderSettleUnsettled, performative.ReceiverSettleFirst))

	require.NoError(t, snd.Detach(ctx, true))

	// the second Detach is a true no-op (already Detached) so no DETACH
	// round-trip occurs to wake the waiter; bound it with a short timeout
	// rather than sharing the outer one.
	shortCtx, shortCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer shortCancel()
	require.NoError(t, snd.Detach(shortCtx, true))
	assert.Equal(t, link.StateDetached, snd.State())
}
