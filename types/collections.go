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

package types

import "fmt"

// List is an ordered sequence of values. Insertion order is preserved.
type List []Value

func NewList(vs ...Value) Value {
	return Value{kind: KindList, list: List(vs)}
}

// Pair is one key/value entry of a Map, kept in insertion order.
type Pair struct {
	Key   Value
	Value Value
}

// Map is an ordered sequence of unique-keyed value pairs. Order is
// preserved for wire-compatibility (re-encoding reproduces the same
// pair order); key uniqueness is enforced at construction time, since
// only hashable kinds are legal map keys.
type Map struct {
	pairs []Pair
}

// NewMap builds a Map value, returning an error if any key repeats.
func NewMap(pairs ...Pair) (Value, error) {
	m := &Map{}
	for _, p := range pairs {
		if _, ok := m.Get(p.Key); ok {
			return Value{}, fmt.Errorf("types: duplicate map key %v", p.Key)
		}
		m.pairs = append(m.pairs, p)
	}
	return Value{kind: KindMap, m: m}, nil
}

// MapValue wraps an already-built Map as a Value, for callers (like the
// performative layer) that assemble a Map incrementally rather than via
// NewMap's varargs.
func MapValue(m *Map) Value {
	if m == nil {
		m = &Map{}
	}
	return Value{kind: KindMap, m: m}
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.pairs)
}

func (m *Map) Pairs() []Pair {
	if m == nil {
		return nil
	}
	return m.pairs
}

func (m *Map) Get(key Value) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	for _, p := range m.pairs {
		if p.Key.Equal(key) {
			return p.Value, true
		}
	}
	return Value{}, false
}

// GetSymbol looks a value up by a symbol key, the common case for
// annotation/property maps keyed by well-known symbols.
func (m *Map) GetSymbol(key string) (Value, bool) {
	return m.Get(Symbol(key))
}

func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	for _, p := range m.Pairs() {
		ov, ok := other.Get(p.Key)
		if !ok || !p.Value.Equal(ov) {
			return false
		}
	}
	return true
}

// Array is a typed, homogeneous sequence: every element shares one
// constructor (and, for described elements, one shared descriptor per
// OASIS §1.6.23).
type Array struct {
	elemKind   Kind
	descriptor *Value // shared descriptor, only set when elemKind == KindDescribed
	elems      []Value
}

// NewArray builds an array value. All elements must share elemKind; for
// KindDescribed elements they must additionally share one descriptor,
// passed via descriptor.
func NewArray(elemKind Kind, descriptor *Value, elems ...Value) (Value, error) {
	for _, e := range elems {
		if e.Kind() != elemKind {
			return Value{}, fmt.Errorf("types: array element kind %s does not match declared kind %s", e.Kind(), elemKind)
		}
	}
	return Value{kind: KindArray, arr: &Array{elemKind: elemKind, descriptor: descriptor, elems: elems}}, nil
}

func (a *Array) ElemKind() Kind { return a.elemKind }

func (a *Array) Descriptor() (Value, bool) {
	if a == nil || a.descriptor == nil {
		return Value{}, false
	}
	return *a.descriptor, true
}

func (a *Array) Elems() []Value {
	if a == nil {
		return nil
	}
	return a.elems
}

func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.elems)
}

func (a *Array) Equal(other *Array) bool {
	if a.ElemKind() != other.ElemKind() || a.Len() != other.Len() {
		return false
	}
	ad, aok := a.Descriptor()
	od, ook := other.Descriptor()
	if aok != ook || (aok && !ad.Equal(od)) {
		return false
	}
	for i, e := range a.Elems() {
		if !e.Equal(other.Elems()[i]) {
			return false
		}
	}
	return true
}

// Described pairs a descriptor value with the inner value it describes.
// Kept as its own variant (not folded into Map) so performatives, message
// sections, and arbitrary application described-types all round-trip
// through the same representation.
type Described struct {
	Descriptor Value
	Value      Value
}

func NewDescribed(descriptor, value Value) Value {
	return Value{kind: KindDescribed, desc: &Described{Descriptor: descriptor, Value: value}}
}
