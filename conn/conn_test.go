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

package conn_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amqpgo/amqp10/amqperr"
	"github.com/amqpgo/amqp10/config"
	"github.com/amqpgo/amqp10/conn"
	"github.com/amqpgo/amqp10/metrics"
	"github.com/amqpgo/amqp10/transport"
)

// pipeStream adapts a net.Conn from net.Pipe to transport.Stream: Pipe
// connections don't support CloseWrite, so Shutdown just closes fully,
// which is fine for a test peer that tears down both sides together.
type pipeStream struct{ net.Conn }

func (p pipeStream) Shutdown() error { return p.Close() }

func dialPipe(t *testing.T, containerID string, idleTimeout time.Duration) (*conn.Connection, *conn.Connection) {
	t.Helper()
	a, b := net.Pipe()

	cfgA := config.New(containerID+"-a", config.WithIdleTimeout(idleTimeout))
	cfgB := config.New(containerID+"-b", config.WithIdleTimeout(idleTimeout))

	connA := conn.New(cfgA, pipeStream{a}, transport.SystemClock{}, metrics.Noop)
	connB := conn.New(cfgB, pipeStream{b}, transport.SystemClock{}, metrics.Noop)

	errCh := make(chan error, 2)
	go func() { errCh <- connA.Open(context.Background()) }()
	go func() { errCh <- connB.Open(context.Background()) }()

	for i := 0; i < 2; i++ {
		require.NoError(t, <-errCh)
	}
	return connA, connB
}

func TestHandshakeReachesOpened(t *testing.T) {
	connA, connB := dialPipe(t, "test-handshake", 0)
	defer func() { _ = connA.Close(context.Background()) }()
	defer func() { _ = connB.Close(context.Background()) }()

	assert.Equal(t, conn.StateOpened, connA.State())
	assert.Equal(t, conn.StateOpened, connB.State())
}

func TestNegotiatedMaxFrameSizeIsMinimum(t *testing.T) {
	a, b := net.Pipe()
	cfgA := config.New("small", config.WithMaxFrameSize(1024))
	cfgB := config.New("large", config.WithMaxFrameSize(65536))

	connA := conn.New(cfgA, pipeStream{a}, transport.SystemClock{}, metrics.Noop)
	connB := conn.New(cfgB, pipeStream{b}, transport.SystemClock{}, metrics.Noop)
	defer func() { _ = connA.Close(context.Background()) }()
	defer func() { _ = connB.Close(context.Background()) }()

	errCh := make(chan error, 2)
	go func() { errCh <- connA.Open(context.Background()) }()
	go func() { errCh <- connB.Open(context.Background()) }()
	require.NoError(t, <-errCh)
	require.NoError(t, <-errCh)

	assert.Equal(t, uint32(1024), connA.MaxFrameSize())
	assert.Equal(t, uint32(1024), connB.MaxFrameSize())
}

func TestCreateSessionRequiresOpenState(t *testing.T) {
	a, _ := net.Pipe()
	c := conn.New(config.New("not-opened"), pipeStream{a}, transport.SystemClock{}, metrics.Noop)
	_, err := c.CreateSession(100, 100, 16)
	require.Error(t, err)
	assert.True(t, amqperr.Is(err, amqperr.KindInvalidState))
}

func TestCreateSessionAfterOpen(t *testing.T) {
	connA, connB := dialPipe(t, "test-session", 0)
	defer func() {
		_ = connA.Close(context.Background())
		_ = connB.Close(context.Background())
	}()

	sessA, err := connA.CreateSession(10, 10, 16)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), sessA.Channel())

	sessA2, err := connA.CreateSession(10, 10, 16)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), sessA2.Channel())
}

func TestCloseIsIdempotent(t *testing.T) {
	connA, connB := dialPipe(t, "test-close", 0)
	defer func() { _ = connB.Close(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, connA.Close(ctx))
	require.NoError(t, connA.Close(ctx))
}
