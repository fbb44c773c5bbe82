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

// Package pubsub backs every suspension point in the endpoint state
// machines (credit-blocked Send, blocking Receive, awaiting a reply
// performative). Each suspended call subscribes its own single-reader
// Queue, waits on it with a deadline, and unsubscribes on the way out;
// Publish is used to fan a wakeup (credit arrived, a performative arrived,
// the connection closed) out to every outstanding waiter at once.
package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Queue is a single-waiter subscription returned by PubSub.Subscribe.
type Queue interface {
	// ID is the queue's unique identifier, used to unsubscribe it later.
	ID() string

	// PopTimeout blocks until an item is available or timeout elapses.
	PopTimeout(timeout time.Duration) (any, bool)

	// PopContext blocks until an item is available or ctx is done, so a
	// caller can combine an operation timeout with connection-close
	// cancellation in one wait.
	PopContext(ctx context.Context) (any, bool)

	// Push enqueues an item for this waiter. Non-blocking: a full queue
	// silently drops the wakeup, since a missed wakeup is re-sent by the
	// next Publish (credit/window updates are level-triggered, not edge).
	Push(data any)

	// Close releases the queue. Further Push calls are no-ops.
	Close()
}

type channel struct {
	id     string
	ch     chan any
	closed atomic.Bool
}

func newChannel(size int) Queue {
	if size <= 0 {
		size = 1
	}

	return &channel{
		id: uuid.New().String(),
		ch: make(chan any, size),
	}
}

func (ch *channel) ID() string {
	return ch.id
}

func (ch *channel) PopTimeout(timeout time.Duration) (any, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return ch.PopContext(ctx)
}

func (ch *channel) PopContext(ctx context.Context) (any, bool) {
	if ch.closed.Load() {
		return nil, false
	}

	select {
	case data, ok := <-ch.ch:
		return data, ok

	case <-ctx.Done():
		return nil, false
	}
}

func (ch *channel) Push(data any) {
	if ch.closed.Load() {
		return
	}

	select {
	case ch.ch <- data:
	default:
	}
}

func (ch *channel) Close() {
	if ch.closed.CompareAndSwap(false, true) {
		close(ch.ch)
	}
}

// PubSub is a registry of outstanding waiter queues.
type PubSub struct {
	mut    sync.RWMutex
	queues map[string]Queue
}

func New() *PubSub {
	return &PubSub{
		queues: make(map[string]Queue),
	}
}

func (p *PubSub) Num() int {
	p.mut.RLock()
	defer p.mut.RUnlock()

	return len(p.queues)
}

// Subscribe registers a new waiter queue of the given buffer size.
func (p *PubSub) Subscribe(size int) Queue {
	p.mut.Lock()
	defer p.mut.Unlock()

	ch := newChannel(size)
	p.queues[ch.ID()] = ch
	return ch
}

// Publish wakes every outstanding waiter with msg.
func (p *PubSub) Publish(msg any) {
	p.mut.RLock()
	defer p.mut.RUnlock()

	for _, q := range p.queues {
		q.Push(msg)
	}
}

func (p *PubSub) Unsubscribe(q Queue) {
	p.mut.Lock()
	defer p.mut.Unlock()

	delete(p.queues, q.ID())
}
