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

// Package session implements the AMQP 1.0 session state machine:
// Unmapped -> BeginSent -> Mapped -> EndSent -> Unmapped, session
// window arithmetic over internal/seqnum, and handle allocation. The
// handle table and channel registry follow the same shape as a
// channel-keyed demux map: get-or-create on first sight, explicit
// delete on teardown, generalized from "channel owns one decode
// context" to "session owns a handle table and a pair of flow-control
// windows".
package session

import (
	"sync"

	"github.com/amqpgo/amqp10/amqperr"
	"github.com/amqpgo/amqp10/internal/seqnum"
	"github.com/amqpgo/amqp10/performative"
)

// State is one of the session's four lifecycle states.
type State int

const (
	StateUnmapped State = iota
	StateBeginSent
	StateMapped
	StateEndSent
)

func (s State) String() string {
	switch s {
	case StateUnmapped:
		return "unmapped"
	case StateBeginSent:
		return "begin-sent"
	case StateMapped:
		return "mapped"
	case StateEndSent:
		return "end-sent"
	default:
		return "unknown"
	}
}

// Sender is the subset of the owning connection a Session needs to
// emit performatives, satisfied by *conn.Connection without an import
// cycle.
type Sender interface {
	SendPerformative(channel uint16, p performative.Performative) error
	// SendTransfer writes one TRANSFER frame whose body is t followed by
	// payload. It does not split payload: the link layer pre-splits it to
	// fit max-frame-size, and this method writes exactly one frame per
	// call.
	SendTransfer(channel uint16, t *performative.Transfer, payload []byte) error
	MaxFrameSize() uint32
}

// LinkHandle is implemented by link.Sender / link.Receiver so a Session
// can dispatch inbound performatives without importing the link
// package (which imports session).
type LinkHandle interface {
	Handle() uint32
	HandleAttach(*performative.Attach)
	HandleDetach(*performative.Detach)
	HandleFlow(*performative.Flow)
	HandleTransfer(*performative.Transfer, []byte)
	HandleDisposition(*performative.Disposition)
}

// Session is one AMQP session: a bidirectional sequence of links
// multiplexed over one connection channel.
type Session struct {
	mu sync.Mutex

	channel uint16
	state   State
	conn    Sender

	nextOutgoingID uint32
	incomingWindow uint32
	outgoingWindow uint32

	remoteNextIncomingID uint32
	remoteIncomingWindow uint32
	remoteOutgoingWindow uint32

	handleMax uint32
	links     map[uint32]LinkHandle
	byName    map[string]LinkHandle

	closed chan struct{}
}

// New creates a Session bound to channel on conn. nextOutgoingID may be
// any initial value; the protocol treats it as arbitrary.
func New(channel uint16, conn Sender, nextOutgoingID, incomingWindow, outgoingWindow, handleMax uint32) *Session {
	return &Session{
		channel:        channel,
		conn:           conn,
		nextOutgoingID: nextOutgoingID,
		incomingWindow: incomingWindow,
		outgoingWindow: outgoingWindow,
		handleMax:      handleMax,
		links:          make(map[uint32]LinkHandle),
		byName:         make(map[string]LinkHandle),
		closed:         make(chan struct{}),
	}
}

func (s *Session) Channel() uint16 { return s.channel }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin sends BEGIN and transitions to BeginSent.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateUnmapped {
		return amqperr.New(amqperr.KindInvalidState, "session: begin called in state %s", s.state)
	}
	b := &performative.Begin{
		NextOutgoingID: s.nextOutgoingID,
		IncomingWindow: s.incomingWindow,
		OutgoingWindow: s.outgoingWindow,
		HandleMax:      s.handleMax,
	}
	if err := s.conn.SendPerformative(s.channel, b); err != nil {
		return err
	}
	s.state = StateBeginSent
	return nil
}

// HandleBegin processes a peer BEGIN, completing the mapping.
func (s *Session) HandleBegin(b *performative.Begin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remoteNextIncomingID = b.NextOutgoingID
	s.remoteIncomingWindow = b.IncomingWindow
	s.remoteOutgoingWindow = b.OutgoingWindow
	if s.state == StateBeginSent || s.state == StateUnmapped {
		s.state = StateMapped
	}
}

// End sends END and transitions toward Unmapped. Idempotent: a no-op
// once already Unmapped.
func (s *Session) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUnmapped || s.state == StateEndSent {
		return nil
	}
	if err := s.conn.SendPerformative(s.channel, &performative.End{}); err != nil {
		return err
	}
	s.state = StateEndSent
	return nil
}

// HandleEnd processes a peer END, completing the unmap.
func (s *Session) HandleEnd(*performative.End) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUnmapped {
		return
	}
	s.state = StateUnmapped
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
}

// Done is closed once the session has reached Unmapped via HandleEnd.
func (s *Session) Done() <-chan struct{} { return s.closed }

// SendLinkPerformative sends a link-scoped performative (ATTACH, FLOW,
// DETACH) on this session's channel, for use by the link package.
func (s *Session) SendLinkPerformative(p performative.Performative) error {
	s.mu.Lock()
	conn := s.conn
	ch := s.channel
	s.mu.Unlock()
	return conn.SendPerformative(ch, p)
}

// RegisterName makes lh reachable by its link name, so a peer ATTACH
// (which identifies the link by name, not handle) can be routed back to
// the waiting Sender/Receiver before the handle mapping is known to be
// symmetric.
func (s *Session) RegisterName(name string, lh LinkHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byName[name] = lh
}

// DispatchAttach routes a decoded peer ATTACH to the link registered
// under its name.
func (s *Session) DispatchAttach(a *performative.Attach) {
	s.mu.Lock()
	lh := s.byName[a.Name]
	s.mu.Unlock()
	if lh != nil {
		lh.HandleAttach(a)
	}
}

// AllocateHandle returns the lowest unused handle not exceeding
// handle-max.
func (s *Session) AllocateHandle(lh LinkHandle) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h := uint32(0); h <= s.handleMax; h++ {
		if _, used := s.links[h]; !used {
			s.links[h] = lh
			return h, nil
		}
	}
	return 0, amqperr.New(amqperr.KindSession, "session: no free handle <= %d", s.handleMax)
}

// ReleaseHandle frees h for reuse (called once a DETACH with closed=true
// completes).
func (s *Session) ReleaseHandle(h uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, h)
}

// linkFor looks up the handle owning a just-received performative.
func (s *Session) linkFor(h uint32) LinkHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.links[h]
}

// OnTransferSent applies the sender-side window/id update:
// next-outgoing-id += 1, remote-incoming-window -= 1. Returns the
// delivery-id the transfer was assigned.
func (s *Session) OnTransferSent() (deliveryID uint32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remoteIncomingWindow == 0 {
		return 0, amqperr.New(amqperr.KindSession, "session: remote incoming-window is zero")
	}
	deliveryID = s.nextOutgoingID
	s.nextOutgoingID = seqnum.Add(s.nextOutgoingID, 1)
	s.remoteIncomingWindow--
	return deliveryID, nil
}

// RemoteIncomingWindow reports the peer's most recently advertised
// incoming-window, the bound a sender must never send past.
func (s *Session) RemoteIncomingWindow() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteIncomingWindow
}

// OnTransferReceived applies the receiver-side update:
// next-incoming-id = transfer.delivery-id + 1, incoming-window -= 1.
func (s *Session) OnTransferReceived(deliveryID uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remoteNextIncomingID = seqnum.Add(deliveryID, 1)
	if s.incomingWindow > 0 {
		s.incomingWindow--
	}
}

// ReplenishIncomingWindow increases the local incoming-window and
// emits a FLOW advertising it.
func (s *Session) ReplenishIncomingWindow(n uint32) error {
	s.mu.Lock()
	s.incomingWindow += n
	flow := &performative.Flow{
		NextIncomingID: u32ptr(s.remoteNextIncomingID),
		IncomingWindow: s.incomingWindow,
		NextOutgoingID: s.nextOutgoingID,
		OutgoingWindow: s.outgoingWindow,
	}
	conn := s.conn
	channel := s.channel
	s.mu.Unlock()
	return conn.SendPerformative(channel, flow)
}

// HandleFlow updates session-level window state from a peer FLOW and
// dispatches link-level fields (handle/delivery-count/link-credit) to
// the link owning the FLOW's handle, if any.
func (s *Session) HandleFlow(f *performative.Flow) {
	s.mu.Lock()
	if f.NextIncomingID != nil {
		s.remoteNextIncomingID = *f.NextIncomingID
	}
	s.remoteIncomingWindow = f.IncomingWindow
	s.remoteOutgoingWindow = f.OutgoingWindow
	s.mu.Unlock()

	if f.Handle != nil {
		if lh := s.linkFor(*f.Handle); lh != nil {
			lh.HandleFlow(f)
		}
	}
}

// Dispatch routes a decoded link-scoped performative (ATTACH excluded;
// callers handle ATTACH directly since it allocates the handle) to its
// owning link.
func (s *Session) Dispatch(handle uint32, p performative.Performative) {
	lh := s.linkFor(handle)
	if lh == nil {
		return
	}
	switch v := p.(type) {
	case *performative.Detach:
		lh.HandleDetach(v)
	case *performative.Flow:
		lh.HandleFlow(v)
	case *performative.Disposition:
		lh.HandleDisposition(v)
	}
}

// DispatchDisposition broadcasts a DISPOSITION to every link on the
// session: DISPOSITION carries a delivery-id range rather than a
// handle, so the owning link cannot be looked up directly; each link's
// unsettled table ignores ids it does not hold.
func (s *Session) DispatchDisposition(d *performative.Disposition) {
	s.mu.Lock()
	links := make([]LinkHandle, 0, len(s.links))
	for _, lh := range s.links {
		links = append(links, lh)
	}
	s.mu.Unlock()
	for _, lh := range links {
		lh.HandleDisposition(d)
	}
}

// DispatchTransfer routes a decoded TRANSFER plus its raw payload bytes
// to the owning link, also applying the session-level receive-window
// update.
func (s *Session) DispatchTransfer(t *performative.Transfer, payload []byte) {
	if t.DeliveryID != nil {
		s.OnTransferReceived(*t.DeliveryID)
	}
	if lh := s.linkFor(t.Handle); lh != nil {
		lh.HandleTransfer(t, payload)
	}
}

// SendTransfer forwards one TRANSFER frame through the owning
// connection on this session's channel.
func (s *Session) SendTransfer(t *performative.Transfer, payload []byte) error {
	s.mu.Lock()
	conn := s.conn
	ch := s.channel
	s.mu.Unlock()
	return conn.SendTransfer(ch, t, payload)
}

// MaxFrameSize reports the connection's negotiated max-frame-size, the
// bound that governs TRANSFER fragmentation.
func (s *Session) MaxFrameSize() uint32 {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	return conn.MaxFrameSize()
}

func u32ptr(v uint32) *uint32 { return &v }
