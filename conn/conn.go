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

// Package conn implements the AMQP 1.0 connection state machine:
// Start -> HdrSent -> HdrExch -> OpenSent -> Opened -> CloseSent ->
// End(+error), on a single inbound read-loop goroutine plus an
// outbound-mutex write path and panic-recovered read loop, generalized
// from a passive decoder loop into an active AMQP peer that also owns
// the session table and idle-timeout ticker.
package conn

import (
	"context"
	"sync"
	"time"

	"github.com/amqpgo/amqp10/amqperr"
	"github.com/amqpgo/amqp10/codec"
	"github.com/amqpgo/amqp10/config"
	"github.com/amqpgo/amqp10/frame"
	"github.com/amqpgo/amqp10/internal/pubsub"
	"github.com/amqpgo/amqp10/internal/rescue"
	"github.com/amqpgo/amqp10/logger"
	"github.com/amqpgo/amqp10/metrics"
	"github.com/amqpgo/amqp10/performative"
	"github.com/amqpgo/amqp10/session"
	"github.com/amqpgo/amqp10/transport"
)

// State is one of the connection's lifecycle states.
type State int

const (
	StateStart State = iota
	StateHdrSent
	StateHdrExch
	StateOpenSent
	StateOpened
	StateCloseSent
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateHdrSent:
		return "hdr-sent"
	case StateHdrExch:
		return "hdr-exch"
	case StateOpenSent:
		return "open-sent"
	case StateOpened:
		return "opened"
	case StateCloseSent:
		return "close-sent"
	case StateEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Connection is one AMQP 1.0 connection: the single inbound reader, the
// outbound writer mutex, and the session table.
type Connection struct {
	cfg    *config.Configuration
	stream transport.Stream
	clock  transport.Clock
	rec    metrics.Recorder

	writeMu sync.Mutex

	mu              sync.Mutex
	state           State
	negMaxFrameSize uint32
	negChannelMax   uint16
	negIdleTimeout  time.Duration
	lastSendAt      time.Time
	lastRecvAt      time.Time
	err             error

	sessions map[uint16]*session.Session

	events *pubsub.PubSub

	closeOnce sync.Once
	done      chan struct{}
}

// New constructs a Connection over stream using cfg. It does not begin
// I/O; call Open to run the handshake and start the read loop.
func New(cfg *config.Configuration, stream transport.Stream, clock transport.Clock, rec metrics.Recorder) *Connection {
	if clock == nil {
		clock = transport.SystemClock{}
	}
	if rec == nil {
		rec = metrics.Noop
	}
	now := clock.Now()
	return &Connection{
		cfg:        cfg,
		stream:     stream,
		clock:      clock,
		rec:        rec,
		state:      StateStart,
		lastSendAt: now,
		lastRecvAt: now,
		sessions:   make(map[uint16]*session.Session),
		events:     pubsub.New(),
		done:       make(chan struct{}),
	}
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.events.Publish(s)
}

// MaxFrameSize implements session.Sender.
func (c *Connection) MaxFrameSize() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.negMaxFrameSize == 0 {
		return c.cfg.MaxFrameSize
	}
	return c.negMaxFrameSize
}

// Open drives the protocol handshake: write the header, read the
// peer's header, and exchange OPEN. It starts the inbound read loop
// and idle-timeout tickers before returning.
func (c *Connection) Open(ctx context.Context) error {
	c.setState(StateHdrSent)
	if err := frame.WriteHeader(c.stream, frame.AMQPHeader); err != nil {
		return c.fail(err)
	}

	peerHeader, err := frame.ReadHeader(c.stream)
	if err != nil {
		return c.fail(err)
	}
	if peerHeader.Equal(frame.SASLHeader) {
		return c.fail(amqperr.New(amqperr.KindNotImplemented, "conn: peer requested SASL, which is not supported"))
	}
	if !peerHeader.Equal(frame.AMQPHeader) {
		closeErr := amqperr.NewCondition(amqperr.KindConnection, amqperr.CondFramingError,
			"peer protocol header %+v does not match %+v", peerHeader, frame.AMQPHeader)
		return c.fail(closeErr)
	}
	c.setState(StateHdrExch)

	idleMS := uint32(c.cfg.IdleTimeout / time.Millisecond)
	open := &performative.Open{
		ContainerID:  c.cfg.ContainerID,
		Hostname:     c.cfg.Hostname,
		MaxFrameSize: c.cfg.MaxFrameSize,
		ChannelMax:   c.cfg.ChannelMax,
	}
	if c.cfg.IdleTimeout > 0 {
		open.IdleTimeout = &idleMS
	}
	if err := c.writeFrame(0, open); err != nil {
		return c.fail(err)
	}
	c.setState(StateOpenSent)

	go c.readLoop()

	q := c.events.Subscribe(4)
	defer c.events.Unsubscribe(q)
	for c.State() != StateOpened {
		if _, ok := q.PopContext(ctx); !ok {
			return amqperr.New(amqperr.KindTimeout, "conn: open handshake timed out")
		}
	}

	go c.idleTimeoutLoop()
	return nil
}

// handleOpen reconciles negotiated parameters on receiving the peer's
// OPEN.
func (c *Connection) handleOpen(o *performative.Open) {
	c.mu.Lock()
	negMax := o.MaxFrameSize
	if c.cfg.MaxFrameSize < negMax {
		negMax = c.cfg.MaxFrameSize
	}
	c.negMaxFrameSize = negMax

	negChMax := o.ChannelMax
	if c.cfg.ChannelMax < negChMax {
		negChMax = c.cfg.ChannelMax
	}
	c.negChannelMax = negChMax

	if o.IdleTimeout != nil {
		c.negIdleTimeout = time.Duration(*o.IdleTimeout) * time.Millisecond
	}
	c.state = StateOpened
	c.mu.Unlock()
	c.events.Publish(o)
}

// CreateSession creates and registers a new session on the lowest unused
// channel; it does not send BEGIN (Session.Begin does).
func (c *Connection) CreateSession(incomingWindow, outgoingWindow, handleMax uint32) (*session.Session, error) {
	c.mu.Lock()
	if c.state != StateOpened {
		c.mu.Unlock()
		return nil, amqperr.New(amqperr.KindInvalidState, "conn: create-session while not opened")
	}
	var channel uint16
	for {
		if _, used := c.sessions[channel]; !used {
			break
		}
		if channel == c.negChannelMax {
			c.mu.Unlock()
			return nil, amqperr.New(amqperr.KindConnection, "conn: no free channel <= %d", c.negChannelMax)
		}
		channel++
	}
	sess := session.New(channel, c, 0, incomingWindow, outgoingWindow, handleMax)
	c.sessions[channel] = sess
	c.mu.Unlock()
	return sess, nil
}

// Close sends CLOSE and waits for the peer's CLOSE, then half-closes
// the stream. Idempotent: calling it again after the connection has
// already ended is a no-op.
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateEnd || c.state == StateCloseSent {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	q := c.events.Subscribe(4)
	defer c.events.Unsubscribe(q)

	if err := c.writeFrame(0, &performative.Close{}); err != nil {
		return err
	}
	c.setState(StateCloseSent)

	for c.State() != StateEnd {
		if _, ok := q.PopContext(ctx); !ok {
			break
		}
	}
	c.closeOnce.Do(func() { close(c.done) })
	return c.stream.Shutdown()
}

// handleClose processes a peer CLOSE. An unsolicited CLOSE with an
// error condition moves directly to End(error).
func (c *Connection) handleClose(cl *performative.Close) {
	c.mu.Lock()
	wasCloseSent := c.state == StateCloseSent
	if cl.Error != nil {
		c.err = cl.Error.AsError(amqperr.KindConnection)
	}
	c.state = StateEnd
	c.mu.Unlock()
	c.events.Publish(cl)

	if !wasCloseSent {
		_ = c.writeFrame(0, &performative.Close{})
	}
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Connection) fail(err error) error {
	c.mu.Lock()
	c.err = err
	c.state = StateEnd
	c.mu.Unlock()
	c.events.Publish(err)
	c.closeOnce.Do(func() { close(c.done) })
	return err
}

// Done is closed once the connection reaches its End state.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Err returns the terminal error, if the connection ended abnormally.
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// SendPerformative implements session.Sender: it writes p as a single
// frame on channel, serialized against other writers via the outbound
// mutex.
func (c *Connection) SendPerformative(channel uint16, p performative.Performative) error {
	return c.writeFrame(channel, p)
}

// SendTransfer implements session.Sender for TRANSFER frames, whose
// body is the performative followed by the message payload.
func (c *Connection) SendTransfer(channel uint16, t *performative.Transfer, payload []byte) error {
	return c.writeTransferFrame(channel, t, payload)
}

var _ session.Sender = (*Connection)(nil)

// writeFrame encodes p as a described list and writes it as a single
// AMQP frame on channel, serialized against other writers.
func (c *Connection) writeFrame(channel uint16, p performative.Performative) error {
	body := codec.EncodeValue(p.Encode())
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := frame.Write(c.stream, frame.Frame{Type: frame.TypeAMQP, Channel: channel, Body: body}); err != nil {
		return amqperr.Wrap(amqperr.KindTransport, "", err, "conn: write frame failed")
	}
	c.mu.Lock()
	c.lastSendAt = c.clock.Now()
	c.mu.Unlock()
	c.rec.FrameSent(performativeName(p))
	return nil
}

// writeTransferFrame writes a TRANSFER whose frame body is t's encoded
// performative followed by the raw message payload, unlike every other
// performative whose body is just the performative.
func (c *Connection) writeTransferFrame(channel uint16, t *performative.Transfer, payload []byte) error {
	body := append(codec.EncodeValue(t.Encode()), payload...)
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := frame.Write(c.stream, frame.Frame{Type: frame.TypeAMQP, Channel: channel, Body: body}); err != nil {
		return amqperr.Wrap(amqperr.KindTransport, "", err, "conn: write transfer frame failed")
	}
	c.mu.Lock()
	c.lastSendAt = c.clock.Now()
	c.mu.Unlock()
	c.rec.FrameSent("transfer")
	c.rec.TransferSent()
	return nil
}

// readLoop is the connection's single inbound reader, grounded in the
// teacher's panic-recovered per-connection read goroutine. It never
// returns until the stream errors or the connection ends.
func (c *Connection) readLoop() {
	defer rescue.HandleCrash()
	for {
		maxFrame := c.MaxFrameSize()
		fr, err := frame.Read(c.stream, maxFrame)
		if err != nil {
			logger.Errorf("conn: read loop: %v", err)
			c.fail(err)
			return
		}
		c.mu.Lock()
		c.lastRecvAt = c.clock.Now()
		c.mu.Unlock()

		if fr.IsEmpty() {
			continue // heartbeat frame, resets the idle timer only
		}

		if err := c.dispatchFrame(fr); err != nil {
			logger.Errorf("conn: dispatch frame: %v", err)
		}

		if c.State() == StateEnd {
			return
		}
	}
}

// dispatchFrame decodes one frame's body and routes it either to
// connection-level handling (channel 0, OPEN/CLOSE) or to the owning
// session.
func (c *Connection) dispatchFrame(fr frame.Frame) error {
	v, consumed, err := codec.Decode(fr.Body)
	if err != nil {
		return err
	}
	p, err := performative.Decode(v)
	if err != nil {
		return err
	}
	c.rec.FrameReceived(performativeName(p))

	switch pf := p.(type) {
	case *performative.Open:
		c.handleOpen(pf)
		return nil
	case *performative.Close:
		c.handleClose(pf)
		return nil
	}

	sess := c.sessionFor(fr.Channel)
	if sess == nil {
		return nil
	}
	switch pf := p.(type) {
	case *performative.Begin:
		sess.HandleBegin(pf)
	case *performative.End:
		sess.HandleEnd(pf)
		c.removeSession(fr.Channel)
	case *performative.Attach:
		sess.DispatchAttach(pf)
	case *performative.Flow:
		sess.HandleFlow(pf)
	case *performative.Transfer:
		c.rec.TransferReceived()
		payload := fr.Body[consumed:]
		sess.DispatchTransfer(pf, payload)
	case *performative.Detach:
		sess.Dispatch(pf.Handle, pf)
	case *performative.Disposition:
		sess.DispatchDisposition(pf)
	}
	return nil
}

func (c *Connection) sessionFor(channel uint16) *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[channel]
}

func (c *Connection) removeSession(channel uint16) {
	c.mu.Lock()
	delete(c.sessions, channel)
	c.mu.Unlock()
}

// idleTimeoutLoop enforces the negotiated idle-timeout contract: send
// an empty frame at half the negotiated idle-timeout, and close the
// connection with amqp:resource-limit-exceeded if nothing has been
// received for a full idle-timeout period.
func (c *Connection) idleTimeoutLoop() {
	defer rescue.HandleCrash()

	c.mu.Lock()
	idle := c.negIdleTimeout
	c.mu.Unlock()
	if idle <= 0 {
		return
	}

	ticker := c.clock.NewTicker(idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C():
			c.mu.Lock()
			sinceRecv := c.clock.Now().Sub(c.lastRecvAt)
			sinceSend := c.clock.Now().Sub(c.lastSendAt)
			c.mu.Unlock()

			if sinceRecv > idle {
				closeErr := amqperr.NewCondition(amqperr.KindConnection, amqperr.CondResourceLimitExceeded,
					"conn: no frame received within idle-timeout %s", idle)
				_ = c.writeFrame(0, &performative.Close{Error: &performative.ErrorInfo{
					Condition: amqperr.CondResourceLimitExceeded, Description: closeErr.Error()}})
				c.fail(closeErr)
				return
			}
			if sinceSend >= idle/2 {
				c.writeMu.Lock()
				_ = frame.Write(c.stream, frame.Empty(0))
				c.writeMu.Unlock()
			}
		}
	}
}

func performativeName(p performative.Performative) string {
	switch p.(type) {
	case *performative.Open:
		return "open"
	case *performative.Begin:
		return "begin"
	case *performative.Attach:
		return "attach"
	case *performative.Flow:
		return "flow"
	case *performative.Transfer:
		return "transfer"
	case *performative.Disposition:
		return "disposition"
	case *performative.Detach:
		return "detach"
	case *performative.End:
		return "end"
	case *performative.Close:
		return "close"
	default:
		return "unknown"
	}
}
