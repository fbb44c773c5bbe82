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

// Package amqp10 is the top-level entry point of the AMQP 1.0 core
// client library: Dial opens a transport, runs the connection
// handshake, and returns a Client the caller uses to create sessions
// and links. Everything underneath (codec, frame, performative,
// session, link) is usable standalone; this package just wires the
// collaborators together the way an application wants to use them.
package amqp10

import (
	"context"
	"net"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/amqpgo/amqp10/config"
	"github.com/amqpgo/amqp10/conn"
	"github.com/amqpgo/amqp10/metrics"
	"github.com/amqpgo/amqp10/session"
	"github.com/amqpgo/amqp10/transport"
)

// Client owns one AMQP connection and the sessions opened on it.
type Client struct {
	conn     *conn.Connection
	cfg      *config.Configuration
	sessions []*session.Session
}

// Dial connects to addr over TCP, runs the protocol header and OPEN
// handshake, and returns a ready Client. ctx bounds the handshake only;
// once Open returns, the connection's own idle-timeout governs liveness.
func Dial(ctx context.Context, addr string, opts ...config.Option) (*Client, error) {
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(ctx, transport.NewNetStream(nc), opts...)
}

// NewClient wraps an already-established Stream, for callers supplying
// their own transport (TLS, a test pipe, SASL-negotiated socket).
// It generates a random uuid container-id; config.WithContainerID
// overrides it.
func NewClient(ctx context.Context, stream transport.Stream, opts ...config.Option) (*Client, error) {
	cfg := config.New(uuid.New().String(), opts...)
	c := conn.New(cfg, stream, transport.SystemClock{}, metrics.Noop)
	if err := c.Open(ctx); err != nil {
		return nil, err
	}
	return &Client{conn: c, cfg: cfg}, nil
}

// NewSession begins a session with conservative defaults: a roomy
// incoming/outgoing window of 100 and a handle-max of 4096.
func (cl *Client) NewSession(ctx context.Context) (*session.Session, error) {
	sess, err := cl.conn.CreateSession(100, 100, 4096)
	if err != nil {
		return nil, err
	}
	if err := sess.Begin(); err != nil {
		return nil, err
	}
	cl.sessions = append(cl.sessions, sess)
	return sess, nil
}

// Close ends every open session and then closes the connection,
// aggregating any failures instead of stopping at the first one so a
// single wedged session doesn't prevent the others from tearing down.
func (cl *Client) Close(ctx context.Context) error {
	var result *multierror.Error
	for _, sess := range cl.sessions {
		if err := sess.End(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := cl.conn.Close(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
