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
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/amqpgo/amqp10/types"
)

// Outcome is the settlement state recorded against one unsettled
// delivery, mirroring DISPOSITION's possible outcomes.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeAccepted
	OutcomeRejected
	OutcomeReleased
	OutcomeModified
)

// unsettledEntry tracks one delivery awaiting disposition, keyed by its
// delivery-tag: logically a map from delivery-tag to disposition state.
type unsettledEntry struct {
	tag        []byte
	deliveryID uint32
	outcome    Outcome
	settled    bool
}

// unsettledTable is a small-to-medium hash-capable container keyed by
// xxhash.Sum64 of the delivery-tag bytes, a fast non-cryptographic hash
// well suited to short opaque keys. Collisions are resolved with a
// fallback slice scan (tags are opaque bytes, not trusted to be
// collision-free).
type unsettledTable struct {
	mu      sync.Mutex
	entries map[uint64][]*unsettledEntry
}

func newUnsettledTable() *unsettledTable {
	return &unsettledTable{entries: make(map[uint64][]*unsettledEntry)}
}

func tagHash(tag []byte) uint64 { return xxhash.Sum64(tag) }

func (t *unsettledTable) Put(tag []byte, deliveryID uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := tagHash(tag)
	t.entries[h] = append(t.entries[h], &unsettledEntry{tag: append([]byte(nil), tag...), deliveryID: deliveryID})
}

func (t *unsettledTable) find(tag []byte) *unsettledEntry {
	h := tagHash(tag)
	for _, e := range t.entries[h] {
		if string(e.tag) == string(tag) {
			return e
		}
	}
	return nil
}

func (t *unsettledTable) findByDeliveryID(id uint32) *unsettledEntry {
	for _, bucket := range t.entries {
		for _, e := range bucket {
			if e.deliveryID == id {
				return e
			}
		}
	}
	return nil
}

// Settle records outcome for id and, if settled, removes the entry.
func (t *unsettledTable) Settle(id uint32, outcome Outcome, settled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.findByDeliveryID(id)
	if e == nil {
		return
	}
	e.outcome = outcome
	e.settled = settled
	if settled {
		h := tagHash(e.tag)
		bucket := t.entries[h]
		for i, cand := range bucket {
			if cand == e {
				t.entries[h] = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
	}
}

func (t *unsettledTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, bucket := range t.entries {
		n += len(bucket)
	}
	return n
}

// Snapshot serializes the table to the AMQP map shape ATTACH's
// unsettled field requires (delivery-tag -> state), for link recovery.
func (t *unsettledTable) Snapshot() *types.Map {
	t.mu.Lock()
	defer t.mu.Unlock()
	var pairs []types.Pair
	for _, bucket := range t.entries {
		for _, e := range bucket {
			pairs = append(pairs, types.Pair{
				Key:   types.Binary(e.tag),
				Value: outcomeValue(e.outcome),
			})
		}
	}
	m, _ := types.NewMap(pairs...)
	mv, _ := m.Map()
	return mv
}

func outcomeValue(o Outcome) types.Value {
	switch o {
	case OutcomeAccepted:
		return types.Symbol("accepted")
	case OutcomeRejected:
		return types.Symbol("rejected")
	case OutcomeReleased:
		return types.Symbol("released")
	case OutcomeModified:
		return types.Symbol("modified")
	default:
		return types.Null()
	}
}

func decodeOutcome(v types.Value) Outcome {
	desc, ok := v.Described()
	if !ok {
		return OutcomeUnknown
	}
	n, ok := desc.Descriptor.Uint64()
	if !ok {
		return OutcomeUnknown
	}
	switch n {
	case 0x24:
		return OutcomeAccepted
	case 0x25:
		return OutcomeRejected
	case 0x26:
		return OutcomeReleased
	case 0x27:
		return OutcomeModified
	default:
		return OutcomeUnknown
	}
}
