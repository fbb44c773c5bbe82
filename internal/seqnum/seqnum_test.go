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

package seqnum_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amqpgo/amqp10/internal/seqnum"
)

func TestAddWrapsModulo2To32(t *testing.T) {
	assert.Equal(t, uint32(0), seqnum.Add(math.MaxUint32, 1))
	assert.Equal(t, uint32(5), seqnum.Add(math.MaxUint32, 6))
	assert.Equal(t, uint32(41), seqnum.Add(40, 1))
}

func TestLessAcrossWraparound(t *testing.T) {
	cases := []struct {
		name string
		a, b uint32
		want bool
	}{
		{"simple", 1, 2, true},
		{"simple reversed", 2, 1, false},
		{"equal", 5, 5, false},
		{"wraps forward", math.MaxUint32, 0, true},
		{"wraps backward", 0, math.MaxUint32, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, seqnum.Less(tc.a, tc.b))
		})
	}
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 0, seqnum.Compare(10, 10))
	assert.Equal(t, -1, seqnum.Compare(10, 11))
	assert.Equal(t, 1, seqnum.Compare(11, 10))
	assert.Equal(t, -1, seqnum.Compare(math.MaxUint32, 0))
}

func TestInWindow(t *testing.T) {
	assert.True(t, seqnum.InWindow(5, 0, 10))
	assert.True(t, seqnum.InWindow(0, 0, 10))
	assert.True(t, seqnum.InWindow(10, 0, 10))
	assert.False(t, seqnum.InWindow(11, 0, 10))

	// window straddling a uint32 wraparound
	lo := uint32(math.MaxUint32 - 2)
	hi := uint32(2)
	assert.True(t, seqnum.InWindow(math.MaxUint32, lo, hi))
	assert.True(t, seqnum.InWindow(0, lo, hi))
	assert.True(t, seqnum.InWindow(2, lo, hi))
	assert.False(t, seqnum.InWindow(3, lo, hi))
}

func TestDiff(t *testing.T) {
	assert.Equal(t, int32(1), seqnum.Diff(11, 10))
	assert.Equal(t, int32(-1), seqnum.Diff(10, 11))
	assert.Equal(t, int32(1), seqnum.Diff(0, math.MaxUint32))
}
