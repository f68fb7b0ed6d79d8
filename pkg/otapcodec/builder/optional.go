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

package builder

import (
	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
)

// Uint16 is an adaptive, optionally-nullable uint16 column builder. Unlike
// the dictionary-string builder it never changes representation, but it
// still defers an all-null prefix and reports no array at all for an
// optional column that only ever saw nulls (spec §4.2.3 and §4.2.2's
// "optional columns are accumulated only if at least one row sets a
// non-default value").
type Uint16 struct {
	b        *array.Uint16Builder
	optional bool
	nullPfx  int
	anyValue bool
}

func NewUint16(mem memory.Allocator, optional bool) *Uint16 {
	return &Uint16{b: array.NewUint16Builder(mem), optional: optional}
}

func (u *Uint16) Append(v uint16) {
	u.materialize()
	u.anyValue = true
	u.b.Append(v)
}

func (u *Uint16) AppendNull() {
	if !u.anyValue {
		u.nullPfx++
		return
	}
	u.b.AppendNull()
}

func (u *Uint16) materialize() {
	for i := 0; i < u.nullPfx; i++ {
		u.b.AppendNull()
	}
	u.nullPfx = 0
}

func (u *Uint16) Finish() (arrow.Array, bool) {
	if u.optional && !u.anyValue {
		u.b.Release()
		return nil, false
	}
	u.materialize()
	return u.b.NewArray(), true
}

// Uint32 is the u32 analogue of Uint16, used for wide parent-id and
// root-row-index columns (spec §3).
type Uint32 struct {
	b        *array.Uint32Builder
	optional bool
	nullPfx  int
	anyValue bool
}

func NewUint32(mem memory.Allocator, optional bool) *Uint32 {
	return &Uint32{b: array.NewUint32Builder(mem), optional: optional}
}

func (u *Uint32) Append(v uint32) {
	u.materialize()
	u.anyValue = true
	u.b.Append(v)
}

func (u *Uint32) AppendNull() {
	if !u.anyValue {
		u.nullPfx++
		return
	}
	u.b.AppendNull()
}

func (u *Uint32) materialize() {
	for i := 0; i < u.nullPfx; i++ {
		u.b.AppendNull()
	}
	u.nullPfx = 0
}

func (u *Uint32) Finish() (arrow.Array, bool) {
	if u.optional && !u.anyValue {
		u.b.Release()
		return nil, false
	}
	u.materialize()
	return u.b.NewArray(), true
}

// Uint64 is an adaptive, optionally-nullable uint64 column builder, used
// for histogram/summary point counts.
type Uint64 struct {
	b        *array.Uint64Builder
	optional bool
	nullPfx  int
	anyValue bool
}

func NewUint64(mem memory.Allocator, optional bool) *Uint64 {
	return &Uint64{b: array.NewUint64Builder(mem), optional: optional}
}

func (u *Uint64) Append(v uint64) {
	u.materialize()
	u.anyValue = true
	u.b.Append(v)
}

func (u *Uint64) AppendNull() {
	if !u.anyValue {
		u.nullPfx++
		return
	}
	u.b.AppendNull()
}

func (u *Uint64) materialize() {
	for i := 0; i < u.nullPfx; i++ {
		u.b.AppendNull()
	}
	u.nullPfx = 0
}

func (u *Uint64) Finish() (arrow.Array, bool) {
	if u.optional && !u.anyValue {
		u.b.Release()
		return nil, false
	}
	u.materialize()
	return u.b.NewArray(), true
}

// Int64 is an adaptive, optionally-nullable int64 column builder, used for
// attribute int values and OTLP fixed64 fields (time_unix_nano).
type Int64 struct {
	b        *array.Int64Builder
	optional bool
	nullPfx  int
	anyValue bool
}

func NewInt64(mem memory.Allocator, optional bool) *Int64 {
	return &Int64{b: array.NewInt64Builder(mem), optional: optional}
}

func (u *Int64) Append(v int64) {
	u.materialize()
	u.anyValue = true
	u.b.Append(v)
}

func (u *Int64) AppendNull() {
	if !u.anyValue {
		u.nullPfx++
		return
	}
	u.b.AppendNull()
}

func (u *Int64) materialize() {
	for i := 0; i < u.nullPfx; i++ {
		u.b.AppendNull()
	}
	u.nullPfx = 0
}

func (u *Int64) Finish() (arrow.Array, bool) {
	if u.optional && !u.anyValue {
		u.b.Release()
		return nil, false
	}
	u.materialize()
	return u.b.NewArray(), true
}

// Float64 is an adaptive, optionally-nullable float64 column builder.
type Float64 struct {
	b        *array.Float64Builder
	optional bool
	nullPfx  int
	anyValue bool
}

func NewFloat64(mem memory.Allocator, optional bool) *Float64 {
	return &Float64{b: array.NewFloat64Builder(mem), optional: optional}
}

func (u *Float64) Append(v float64) {
	u.materialize()
	u.anyValue = true
	u.b.Append(v)
}

func (u *Float64) AppendNull() {
	if !u.anyValue {
		u.nullPfx++
		return
	}
	u.b.AppendNull()
}

func (u *Float64) materialize() {
	for i := 0; i < u.nullPfx; i++ {
		u.b.AppendNull()
	}
	u.nullPfx = 0
}

func (u *Float64) Finish() (arrow.Array, bool) {
	if u.optional && !u.anyValue {
		u.b.Release()
		return nil, false
	}
	u.materialize()
	return u.b.NewArray(), true
}

// Bool is an adaptive, optionally-nullable bool column builder.
type Bool struct {
	b        *array.BooleanBuilder
	optional bool
	nullPfx  int
	anyValue bool
}

func NewBool(mem memory.Allocator, optional bool) *Bool {
	return &Bool{b: array.NewBooleanBuilder(mem), optional: optional}
}

func (u *Bool) Append(v bool) {
	u.materialize()
	u.anyValue = true
	u.b.Append(v)
}

func (u *Bool) AppendNull() {
	if !u.anyValue {
		u.nullPfx++
		return
	}
	u.b.AppendNull()
}

func (u *Bool) materialize() {
	for i := 0; i < u.nullPfx; i++ {
		u.b.AppendNull()
	}
	u.nullPfx = 0
}

func (u *Bool) Finish() (arrow.Array, bool) {
	if u.optional && !u.anyValue {
		u.b.Release()
		return nil, false
	}
	u.materialize()
	return u.b.NewArray(), true
}

// Binary is an adaptive, optionally-nullable []byte column builder, used
// for attribute bytes/ser values.
type Binary struct {
	b        *array.BinaryBuilder
	optional bool
	nullPfx  int
	anyValue bool
}

func NewBinary(mem memory.Allocator, optional bool) *Binary {
	return &Binary{b: array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary), optional: optional}
}

func (u *Binary) Append(v []byte) {
	u.materialize()
	u.anyValue = true
	u.b.Append(v)
}

func (u *Binary) AppendNull() {
	if !u.anyValue {
		u.nullPfx++
		return
	}
	u.b.AppendNull()
}

func (u *Binary) materialize() {
	for i := 0; i < u.nullPfx; i++ {
		u.b.AppendNull()
	}
	u.nullPfx = 0
}

func (u *Binary) Finish() (arrow.Array, bool) {
	if u.optional && !u.anyValue {
		u.b.Release()
		return nil, false
	}
	u.materialize()
	return u.b.NewArray(), true
}
