// Copyright The OpenTelemetry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package builder implements the adaptive Arrow array builders described in
// spec §4.2.3: append is O(1) amortized, an all-null prefix is a deferred
// count materialized only on first non-null append, Finish returns nil for
// an all-null optional column, and dictionary-backed builders may promote
// key width or demote to a native type mid-batch.
//
// Grounded on github.com/open-telemetry/otel-arrow's
// pkg/otel/common/schema/builder and pkg/otel/common/arrow/dictionary.go.
package builder

import (
	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
)

// dictState is the current representation of a DictionaryString column.
type dictState int

const (
	stateDictU8 dictState = iota
	stateDictU16
	stateNative
)

// DictionaryString is an adaptive, optionally-nullable Utf8 column builder.
// It starts as Dictionary<uint8, Utf8>, promotes in place to
// Dictionary<uint16, Utf8> once more than 255 distinct values have been
// appended (spec §4.2.1 step 5), and demotes to a native Utf8 builder if
// cardinality would exceed 65535. Promotion and demotion are one-way within
// a batch.
type DictionaryString struct {
	mem      memory.Allocator
	optional bool

	state   dictState
	nullPfx int // deferred leading-null count, only valid before first append

	u8  *array.BinaryDictionaryBuilder
	u16 *array.BinaryDictionaryBuilder
	nat *array.StringBuilder

	seen     map[string]struct{}
	anyValue bool
}

// NewDictionaryString constructs a new adaptive dictionary-string builder.
// optional indicates that Finish should return (nil, false) when every
// appended value (if any) was null.
func NewDictionaryString(mem memory.Allocator, optional bool) *DictionaryString {
	dt := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Uint8, ValueType: arrow.BinaryTypes.String}
	return &DictionaryString{
		mem:      mem,
		optional: optional,
		state:    stateDictU8,
		u8:       array.NewDictionaryBuilder(mem, dt).(*array.BinaryDictionaryBuilder),
		seen:     make(map[string]struct{}),
	}
}

// Append appends a non-null string value, promoting or demoting the
// underlying representation as cardinality grows.
func (b *DictionaryString) Append(v string) error {
	b.materializeNullPrefix()
	b.anyValue = true

	if _, ok := b.seen[v]; !ok {
		b.seen[v] = struct{}{}
		switch {
		case b.state == stateDictU8 && len(b.seen) > 255:
			b.promoteToU16()
		case b.state == stateDictU16 && len(b.seen) > 65535:
			b.demoteToNative()
		}
	}

	switch b.state {
	case stateDictU8:
		return b.u8.AppendString(v)
	case stateDictU16:
		return b.u16.AppendString(v)
	default:
		b.nat.Append(v)
		return nil
	}
}

// AppendNull appends a null. Before the first non-null append this is a
// deferred count, not a materialized builder append (§4.2.3).
func (b *DictionaryString) AppendNull() {
	if !b.anyValue {
		b.nullPfx++
		return
	}
	switch b.state {
	case stateDictU8:
		b.u8.AppendNull()
	case stateDictU16:
		b.u16.AppendNull()
	default:
		b.nat.AppendNull()
	}
}

func (b *DictionaryString) materializeNullPrefix() {
	if b.nullPfx == 0 {
		return
	}
	for i := 0; i < b.nullPfx; i++ {
		switch b.state {
		case stateDictU8:
			b.u8.AppendNull()
		case stateDictU16:
			b.u16.AppendNull()
		default:
			b.nat.AppendNull()
		}
	}
	b.nullPfx = 0
}

// promoteToU16 rebuilds the already-appended sequence (values and null
// bitmap) into a wider dictionary index type, preserving order.
func (b *DictionaryString) promoteToU16() {
	arr := b.u8.NewDictionaryArray()
	defer arr.Release()

	dt := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Uint16, ValueType: arrow.BinaryTypes.String}
	b.u16 = array.NewDictionaryBuilder(b.mem, dt).(*array.BinaryDictionaryBuilder)
	b.replayInto(arr)
	b.u8.Release()
	b.u8 = nil
	b.state = stateDictU16
}

// demoteToNative rebuilds the already-appended sequence into a plain Utf8
// builder, preserving order and nulls, and abandons dictionary encoding for
// the remainder of this batch (one-way transition, §8.2 invariant 5).
func (b *DictionaryString) demoteToNative() {
	arr := b.u16.NewDictionaryArray()
	defer arr.Release()

	b.nat = array.NewStringBuilder(b.mem)
	b.replayInto(arr)
	b.u16.Release()
	b.u16 = nil
	b.state = stateNative
}

func (b *DictionaryString) replayInto(arr *array.Dictionary) {
	dict, ok := arr.Dictionary().(*array.String)
	if !ok {
		return
	}
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			switch b.state {
			case stateDictU16:
				b.u16.AppendNull()
			case stateNative:
				b.nat.AppendNull()
			}
			continue
		}
		idx := arr.GetValueIndex(i)
		v := dict.Value(idx)
		switch b.state {
		case stateDictU16:
			_ = b.u16.AppendString(v)
		case stateNative:
			b.nat.Append(v)
		}
	}
}

// Finish returns the built array and true, or (nil, false) if this is an
// optional column that received only nulls.
func (b *DictionaryString) Finish() (arrow.Array, bool) {
	if b.optional && !b.anyValue {
		b.release()
		return nil, false
	}
	b.materializeNullPrefix()
	switch b.state {
	case stateDictU8:
		return b.u8.NewArray(), true
	case stateDictU16:
		return b.u16.NewArray(), true
	default:
		return b.nat.NewArray(), true
	}
}

func (b *DictionaryString) release() {
	if b.u8 != nil {
		b.u8.Release()
	}
	if b.u16 != nil {
		b.u16.Release()
	}
	if b.nat != nil {
		b.nat.Release()
	}
}

// DictionaryKeyWidth returns the current index width in bits (8, 16) or 0
// if the column has been demoted to a native (non-dictionary) type. Used
// to populate schema metadata / fingerprinting.
func (b *DictionaryString) DictionaryKeyWidth() int {
	switch b.state {
	case stateDictU8:
		return 8
	case stateDictU16:
		return 16
	default:
		return 0
	}
}
