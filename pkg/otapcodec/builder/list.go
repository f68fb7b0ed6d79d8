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

// Float64List is an adaptive, optionally-nullable list<float64> column
// builder, used for histogram explicit_bounds and summary quantile
// values/quantiles (spec §9 metrics extension: multi-value fields that
// don't fit the one-row-per-point model get a list column instead of
// their own derivative table).
type Float64List struct {
	b        *array.ListBuilder
	vb       *array.Float64Builder
	optional bool
	nullPfx  int
	anyValue bool
}

func NewFloat64List(mem memory.Allocator, optional bool) *Float64List {
	b := array.NewListBuilder(mem, arrow.PrimitiveTypes.Float64)
	return &Float64List{b: b, vb: b.ValueBuilder().(*array.Float64Builder), optional: optional}
}

func (u *Float64List) Append(vals []float64) {
	u.materialize()
	u.anyValue = true
	u.b.Append(true)
	for _, v := range vals {
		u.vb.Append(v)
	}
}

func (u *Float64List) AppendNull() {
	if !u.anyValue {
		u.nullPfx++
		return
	}
	u.b.AppendNull()
}

func (u *Float64List) materialize() {
	for i := 0; i < u.nullPfx; i++ {
		u.b.AppendNull()
	}
	u.nullPfx = 0
}

func (u *Float64List) Finish() (arrow.Array, bool) {
	if u.optional && !u.anyValue {
		u.b.Release()
		return nil, false
	}
	u.materialize()
	return u.b.NewArray(), true
}

// Uint64List is the uint64 analogue of Float64List, used for histogram and
// exponential-histogram bucket_counts.
type Uint64List struct {
	b        *array.ListBuilder
	vb       *array.Uint64Builder
	optional bool
	nullPfx  int
	anyValue bool
}

func NewUint64List(mem memory.Allocator, optional bool) *Uint64List {
	b := array.NewListBuilder(mem, arrow.PrimitiveTypes.Uint64)
	return &Uint64List{b: b, vb: b.ValueBuilder().(*array.Uint64Builder), optional: optional}
}

func (u *Uint64List) Append(vals []uint64) {
	u.materialize()
	u.anyValue = true
	u.b.Append(true)
	for _, v := range vals {
		u.vb.Append(v)
	}
}

func (u *Uint64List) AppendNull() {
	if !u.anyValue {
		u.nullPfx++
		return
	}
	u.b.AppendNull()
}

func (u *Uint64List) materialize() {
	for i := 0; i < u.nullPfx; i++ {
		u.b.AppendNull()
	}
	u.nullPfx = 0
}

func (u *Uint64List) Finish() (arrow.Array, bool) {
	if u.optional && !u.anyValue {
		u.b.Release()
		return nil, false
	}
	u.materialize()
	return u.b.NewArray(), true
}

// Float64ListAccessor reads list<float64> column name from rec, returning
// nil if the column is absent (matches the accessor idiom used throughout
// pkg/otapcodec for optional scalar columns).
func Float64ListAccessor(schema *arrow.Schema, rec arrow.Record, name string) func(i int) ([]float64, bool) {
	idx := schema.FieldIndices(name)
	if len(idx) == 0 {
		return nil
	}
	col := rec.Column(idx[0]).(*array.List)
	values := col.ListValues().(*array.Float64)
	return func(i int) ([]float64, bool) {
		if col.IsNull(i) {
			return nil, false
		}
		start, end := col.ValueOffsets(i)
		out := make([]float64, 0, end-start)
		for j := start; j < end; j++ {
			out = append(out, values.Value(int(j)))
		}
		return out, true
	}
}

// Uint64ListAccessor is the uint64 analogue of Float64ListAccessor.
func Uint64ListAccessor(schema *arrow.Schema, rec arrow.Record, name string) func(i int) ([]uint64, bool) {
	idx := schema.FieldIndices(name)
	if len(idx) == 0 {
		return nil
	}
	col := rec.Column(idx[0]).(*array.List)
	values := col.ListValues().(*array.Uint64)
	return func(i int) ([]uint64, bool) {
		if col.IsNull(i) {
			return nil, false
		}
		start, end := col.ValueOffsets(i)
		out := make([]uint64, 0, end-start)
		for j := start; j < end; j++ {
			out = append(out, values.Value(int(j)))
		}
		return out, true
	}
}
