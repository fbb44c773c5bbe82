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

package link

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/amqpgo/amqp10/amqperr"
	"github.com/amqpgo/amqp10/internal/seqnum"
	"github.com/amqpgo/amqp10/message"
	"github.com/amqpgo/amqp10/performative"
	"github.com/amqpgo/amqp10/session"
	"github.com/amqpgo/amqp10/types"
)

// Sender is the link-send side.
type Sender struct {
	*core

	credit atomic.Uint32
}

var _ session.LinkHandle = (*Sender)(nil)

// NewSender builds a detached Sender for name, targeting target.
func NewSender(sess *session.Session, name string, source, target types.Value) *Sender {
	return &Sender{core: newCore(name, performative.RoleSender, sess, source, target)}
}

// Attach sends ATTACH and blocks until the peer's ATTACH arrives or ctx
// is done.
func (s *Sender) Attach(ctx context.Context, sndMode performative.SenderSettleMode, rcvMode performative.ReceiverSettleMode) error {
	q := s.events.Subscribe(4)
	defer s.events.Unsubscribe(q)

	zero := uint32(0)
	if err := s.attach(s, sndMode, rcvMode, &zero); err != nil {
		return err
	}
	_, ok := q.PopContext(ctx)
	if !ok {
		return amqperr.New(amqperr.KindTimeout, "link: attach %q timed out", s.name)
	}
	return nil
}

// Detach sends DETACH(closed), moves the link to Detached, and returns
// at the link's next event, which is its own detach notice unless the
// peer's DETACH was handled first; it does not otherwise wait for the
// peer's DETACH.
func (s *Sender) Detach(ctx context.Context, closed bool) error {
	q := s.events.Subscribe(4)
	defer s.events.Unsubscribe(q)

	if err := s.detach(closed, nil); err != nil {
		return err
	}
	q.PopContext(ctx)
	return nil
}

// AddCredit is a receiver-only operation; Sender and Receiver stay
// separate types rather than sharing one base precisely because
// operations like this one differ by role.
//
// Send transmits message over the link, blocking while credit == 0,
// since a sender must never violate the credit invariant. Large
// messages are fragmented across multiple TRANSFER frames, all but the
// last carrying more=true.
func (s *Sender) Send(ctx context.Context, msg *message.Message) (deliveryID uint32, err error) {
	if s.State() != StateAttached {
		return 0, amqperr.New(amqperr.KindLink, "link: send on %q while not attached", s.name)
	}

	q := s.events.Subscribe(1)
	defer s.events.Unsubscribe(q)
	for {
		if s.credit.Load() > 0 {
			break
		}
		if _, ok := q.PopContext(ctx); !ok {
			return 0, amqperr.New(amqperr.KindTimeout, "link: send on %q blocked on zero credit", s.name)
		}
	}

	payload, err := message.Encode(msg)
	if err != nil {
		return 0, err
	}

	deliveryID, err = s.session.OnTransferSent()
	if err != nil {
		return 0, err
	}
	tag := uuid.New()

	if err := s.emitTransfer(deliveryID, tag[:], payload); err != nil {
		return 0, err
	}

	s.credit.Add(^uint32(0)) // credit -= 1
	s.mu.Lock()
	s.deliveryCount = seqnum.Add(s.deliveryCount, 1)
	s.unsettled.Put(tag[:], deliveryID)
	s.mu.Unlock()

	return deliveryID, nil
}

// emitTransfer splits payload into frames no larger than the session's
// negotiated max-frame-size, marking every frame but the last as a
// continuation.
func (s *Sender) emitTransfer(deliveryID uint32, tag []byte, payload []byte) error {
	maxFrame := s.session.MaxFrameSize()
	const transferOverhead = 64 // performative list + frame header headroom
	chunkSize := int(maxFrame) - transferOverhead
	if chunkSize <= 0 || chunkSize >= len(payload) {
		chunkSize = len(payload)
	}
	if chunkSize == 0 {
		chunkSize = len(payload)
	}

	off := 0
	first := true
	for {
		end := off + chunkSize
		more := true
		if chunkSize == 0 || end >= len(payload) {
			end = len(payload)
			more = false
		}
		chunk := payload[off:end]

		t := &performative.Transfer{
			Handle: s.Handle(),
			More:   more,
		}
		if first {
			t.DeliveryID = &deliveryID
			t.DeliveryTag = tag
			first = false
		}
		if err := s.session.SendTransfer(t, chunk); err != nil {
			return err
		}
		off = end
		if !more {
			return nil
		}
	}
}

// HandleFlow updates credit from a FLOW targeting this link.
func (s *Sender) HandleFlow(f *performative.Flow) {
	if f.LinkCredit != nil {
		s.credit.Store(*f.LinkCredit)
		s.events.Publish(f)
	}
}

// HandleTransfer is unreachable for a Sender (a sender never receives
// TRANSFER); present only to satisfy session.LinkHandle.
func (s *Sender) HandleTransfer(*performative.Transfer, []byte) {}

// HandleDisposition records peer settlement against the unsettled
// table.
func (s *Sender) HandleDisposition(d *performative.Disposition) {
	outcome := decodeOutcome(d.State)
	first, last := d.First, d.First
	if d.Last != nil {
		last = *d.Last
	}
	for id := first; seqnum.LessOrEqual(id, last); id = seqnum.Add(id, 1) {
		s.unsettled.Settle(id, outcome, d.Settled)
		if id == last {
			break
		}
	}
}
