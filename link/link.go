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

// Package link implements the AMQP 1.0 link state machine: Detached ->
// AttachSent -> Attached -> DetachSent -> Detached, expressed as two
// concrete entities (Sender, Receiver) sharing an embedded core rather
// than a deep class hierarchy, since the two roles diverge enough
// (credit-blocked Send vs blocking Receive, settlement direction) that
// a shared base would offer little. Credit-blocked send and blocking
// receive suspend on internal/pubsub's uuid-keyed waiter queues; the
// unsettled-delivery table shards its lookups with cespare/xxhash.
package link

import (
	"sync"

	"github.com/amqpgo/amqp10/amqperr"
	"github.com/amqpgo/amqp10/internal/pubsub"
	"github.com/amqpgo/amqp10/performative"
	"github.com/amqpgo/amqp10/session"
	"github.com/amqpgo/amqp10/types"
)

// State is one of the link's four lifecycle states.
type State int

const (
	StateDetached State = iota
	StateAttachSent
	StateAttached
	StateDetachSent
)

func (s State) String() string {
	switch s {
	case StateDetached:
		return "detached"
	case StateAttachSent:
		return "attach-sent"
	case StateAttached:
		return "attached"
	case StateDetachSent:
		return "detach-sent"
	default:
		return "unknown"
	}
}

// core holds the fields and state transitions common to both Sender
// and Receiver: name, state, attach, detach. Sender and Receiver embed
// core and separately
// implement session.LinkHandle, since the callback behavior (send vs
// receive semantics) differs by role.
type core struct {
	mu sync.Mutex

	name    string
	handle  uint32
	role    performative.Role
	state   State
	session *session.Session

	sndSettleMode performative.SenderSettleMode
	rcvSettleMode performative.ReceiverSettleMode
	source        types.Value
	target        types.Value
	properties    *types.Map

	events *pubsub.PubSub // wakes blocked attach/detach/credit/receive waiters

	deliveryCount uint32
	unsettled     *unsettledTable

	detachErr *performative.ErrorInfo
}

func newCore(name string, role performative.Role, sess *session.Session, source, target types.Value) *core {
	return &core{
		name:      name,
		role:      role,
		session:   sess,
		source:    source,
		target:    target,
		events:    pubsub.New(),
		unsettled: newUnsettledTable(),
	}
}

func (c *core) Name() string { return c.name }

func (c *core) Handle() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

func (c *core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DeliveryCount returns the current delivery-count, a sequence counter
// that must be compared with serial-number arithmetic rather than
// plain integer comparison once it wraps past MaxUint32.
func (c *core) DeliveryCount() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deliveryCount
}

// attach allocates a handle, sends ATTACH, and transitions to
// AttachSent. self is the owning Sender/Receiver, registered with the
// session so inbound performatives reach it.
func (c *core) attach(self session.LinkHandle, sndMode performative.SenderSettleMode, rcvMode performative.ReceiverSettleMode, initialDeliveryCount *uint32) error {
	c.mu.Lock()
	if c.state != StateDetached {
		c.mu.Unlock()
		return amqperr.New(amqperr.KindInvalidState, "link: attach called in state %s", c.state)
	}
	c.sndSettleMode = sndMode
	c.rcvSettleMode = rcvMode
	sess := c.session
	c.mu.Unlock()

	sess.RegisterName(c.name, self)

	handle, err := sess.AllocateHandle(self)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.handle = handle
	a := &performative.Attach{
		Name:                 c.name,
		Handle:               handle,
		Role:                 c.role,
		SndSettleMode:        sndMode,
		RcvSettleMode:        rcvMode,
		Source:               c.source,
		Target:               c.target,
		InitialDeliveryCount: initialDeliveryCount,
		Properties:           c.properties,
	}
	c.state = StateAttachSent
	c.mu.Unlock()

	return sess.SendLinkPerformative(a)
}

// HandleAttach completes the handshake once the peer's ATTACH arrives.
func (c *core) HandleAttach(a *performative.Attach) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a.InitialDeliveryCount != nil && c.role == performative.RoleReceiver {
		c.deliveryCount = *a.InitialDeliveryCount
	}
	if c.state == StateAttachSent {
		c.state = StateAttached
	}
	c.events.Publish(a)
}

// HandleDetach processes a peer DETACH: local state moves to Detached,
// freeing the handle if the peer closed the link.
func (c *core) HandleDetach(d *performative.Detach) {
	c.mu.Lock()
	c.detachErr = d.Error
	wasAttached := c.state != StateDetached
	c.state = StateDetached
	sess := c.session
	handle := c.handle
	c.mu.Unlock()

	if d.Closed && wasAttached {
		sess.ReleaseHandle(handle)
	}
	c.events.Publish(d)
}

// detach sends DETACH, passing through DetachSent to Detached, and
// publishes a detach event; idempotent, a no-op once already Detached.
func (c *core) detach(closed bool, reason *performative.ErrorInfo) error {
	c.mu.Lock()
	if c.state == StateDetached {
		c.mu.Unlock()
		return nil
	}
	handle := c.handle
	sess := c.session
	c.state = StateDetachSent
	c.mu.Unlock()

	if err := sess.SendLinkPerformative(&performative.Detach{Handle: handle, Closed: closed, Error: reason}); err != nil {
		return err
	}
	if closed {
		sess.ReleaseHandle(handle)
	}

	c.mu.Lock()
	c.state = StateDetached
	c.mu.Unlock()
	c.events.Publish(struct{}{})
	return nil
}
