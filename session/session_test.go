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

package session_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amqpgo/amqp10/performative"
	"github.com/amqpgo/amqp10/session"
)

// fakeSender records every performative/transfer handed to it, standing
// in for conn.Connection without pulling in the transport layer.
type fakeSender struct {
	mu           sync.Mutex
	sent         []performative.Performative
	transfers    []*performative.Transfer
	maxFrameSize uint32
}

func (f *fakeSender) SendPerformative(_ uint16, p performative.Performative) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeSender) SendTransfer(_ uint16, t *performative.Transfer, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers = append(f.transfers, t)
	return nil
}

func (f *fakeSender) MaxFrameSize() uint32 {
	if f.maxFrameSize == 0 {
		return 65536
	}
	return f.maxFrameSize
}

type fakeLink struct {
	handle      uint32
	gotAttach   *performative.Attach
	gotDetach   *performative.Detach
	gotFlow     *performative.Flow
	gotTransfer *performative.Transfer
	gotDisp     *performative.Disposition
}

func (f *fakeLink) Handle() uint32                                    { return f.handle }
func (f *fakeLink) HandleAttach(a *performative.Attach)               { f.gotAttach = a }
func (f *fakeLink) HandleDetach(d *performative.Detach)               { f.gotDetach = d }
func (f *fakeLink) HandleFlow(fl *performative.Flow)                  { f.gotFlow = fl }
func (f *fakeLink) HandleTransfer(t *performative.Transfer, _ []byte) { f.gotTransfer = t }
func (f *fakeLink) HandleDisposition(d *performative.Disposition)     { f.gotDisp = d }

func TestBeginHandshake(t *testing.T) {
	fs := &fakeSender{}
	s := session.New(0, fs, 0, 100, 100, 16)
	require.NoError(t, s.Begin())
	assert.Equal(t, session.StateBeginSent, s.State())

	s.HandleBegin(&performative.Begin{NextOutgoingID: 7, IncomingWindow: 5, OutgoingWindow: 5})
	assert.Equal(t, session.StateMapped, s.State())
}

func TestHandleAllocationIsLowestUnused(t *testing.T) {
	fs := &fakeSender{}
	s := session.New(0, fs, 0, 100, 100, 16)

	h0, err := s.AllocateHandle(&fakeLink{})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), h0)

	h1, err := s.AllocateHandle(&fakeLink{})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), h1)

	s.ReleaseHandle(h0)
	h2, err := s.AllocateHandle(&fakeLink{})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), h2, "released handle must be reused before growing past handle-max")
}

func TestAllocateHandleRespectsHandleMax(t *testing.T) {
	fs := &fakeSender{}
	s := session.New(0, fs, 0, 100, 100, 1)
	_, err := s.AllocateHandle(&fakeLink{})
	require.NoError(t, err)
	_, err = s.AllocateHandle(&fakeLink{})
	require.NoError(t, err)
	_, err = s.AllocateHandle(&fakeLink{})
	require.Error(t, err)
}

func TestEndIsIdempotent(t *testing.T) {
	fs := &fakeSender{}
	s := session.New(0, fs, 0, 100, 100, 16)
	require.NoError(t, s.Begin())

	require.NoError(t, s.End())
	require.NoError(t, s.End())
	fs.mu.Lock()
	sentCount := len(fs.sent)
	fs.mu.Unlock()
	assert.Equal(t, 2, sentCount, "begin + exactly one end, the second End must be a no-op")

	s.HandleEnd(&performative.End{})
	select {
	case <-s.Done():
	default:
		t.Fatal("Done channel should be closed after HandleEnd")
	}
	// a second HandleEnd must not panic on a double close
	s.HandleEnd(&performative.End{})
}

func TestTransferWindowInvariant(t *testing.T) {
	fs := &fakeSender{}
	s := session.New(0, fs, 0, 10, 10, 16)
	s.HandleBegin(&performative.Begin{NextOutgoingID: 0, IncomingWindow: 10, OutgoingWindow: 10})

	// lower remote-incoming-window via a FLOW, so the peer can currently
	// accept exactly 1 transfer
	one := uint32(1)
	s.HandleFlow(&performative.Flow{IncomingWindow: one, OutgoingWindow: 10})
	assert.Equal(t, uint32(1), s.RemoteIncomingWindow())

	id, err := s.OnTransferSent()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id)
	assert.Equal(t, uint32(0), s.RemoteIncomingWindow())

	_, err = s.OnTransferSent()
	require.Error(t, err, "sending past a zero remote-incoming-window must fail")
}

func TestDispatchRoutesToOwningLink(t *testing.T) {
	fs := &fakeSender{}
	s := session.New(0, fs, 0, 100, 100, 16)
	lh := &fakeLink{}
	h, err := s.AllocateHandle(lh)
	require.NoError(t, err)
	lh.handle = h

	s.Dispatch(h, &performative.Detach{Handle: h, Closed: true})
	require.NotNil(t, lh.gotDetach)
	assert.True(t, lh.gotDetach.Closed)
}

func TestDispatchAttachRoutesByName(t *testing.T) {
	fs := &fakeSender{}
	s := session.New(0, fs, 0, 100, 100, 16)
	lh := &fakeLink{}
	s.RegisterName("my-link", lh)

	s.DispatchAttach(&performative.Attach{Name: "my-link", Handle: 9})
	require.NotNil(t, lh.gotAttach)
	assert.Equal(t, uint32(9), lh.gotAttach.Handle)
}
