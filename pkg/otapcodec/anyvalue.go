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

package otapcodec

import (
	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"go.opentelemetry.io/collector/pdata/pcommon"

	"github.com/open-telemetry/otap-dataflow-go/internal/werror"
	"github.com/open-telemetry/otap-dataflow-go/pkg/otapcodec/builder"
	"github.com/open-telemetry/otap-dataflow-go/pkg/otapcodec/servalue"
)

// anyValueColumns is the same {type, str, int, double, bool, bytes, ser}
// one-of encoding used for attribute values (spec §4.2.1 step 3), reused
// here for a root-level AnyValue column (e.g. a LogRecord's body) that is
// not part of a parent/child attribute table and therefore carries no
// parent_id or key column.
type anyValueColumns struct {
	prefix string
	typ    *array.Uint8Builder
	str    *builder.DictionaryString
	i      *builder.Int64
	d      *builder.Float64
	b      *builder.Bool
	by     *builder.Binary
	ser    *builder.Binary
}

func newAnyValueColumns(mem memory.Allocator, prefix string) *anyValueColumns {
	return &anyValueColumns{
		prefix: prefix,
		typ:    array.NewUint8Builder(mem),
		str:    builder.NewDictionaryString(mem, true),
		i:      builder.NewInt64(mem, true),
		d:      builder.NewFloat64(mem, true),
		b:      builder.NewBool(mem, true),
		by:     builder.NewBinary(mem, true),
		ser:    builder.NewBinary(mem, true),
	}
}

func (c *anyValueColumns) Append(v pcommon.Value) error {
	tag := attrTypeOf(v)
	c.typ.Append(uint8(tag))

	row := attrRow{value: v}
	if tag == AttrTypeMap || tag == AttrTypeSlice {
		b, err := servalue.Encode(toNeutral(v))
		if err != nil {
			return werror.WrapKind(werror.KindCodec, err)
		}
		row.ser = b
	}
	appendOneOf(tag, row, c.str, c.i, c.d, c.b, c.by, c.ser)
	return nil
}

func (c *anyValueColumns) Fields() ([]arrow.Field, []arrow.Array) {
	fields := []arrow.Field{{Name: c.prefix + "_type", Type: arrow.PrimitiveTypes.Uint8}}
	cols := []arrow.Array{c.typ.NewArray()}

	appendOptional(&fields, &cols, c.prefix+"_str", c.str)
	appendOptionalNum(&fields, &cols, c.prefix+"_int", arrow.PrimitiveTypes.Int64, c.i)
	appendOptionalNum(&fields, &cols, c.prefix+"_double", arrow.PrimitiveTypes.Float64, c.d)
	appendOptionalNum(&fields, &cols, c.prefix+"_bool", arrow.FixedWidthTypes.Boolean, c.b)
	appendOptionalBin(&fields, &cols, c.prefix+"_bytes", c.by)
	appendOptionalBin(&fields, &cols, c.prefix+"_ser", c.ser)
	return fields, cols
}

// readAnyValueAt reads row i of a record whose schema was produced by
// anyValueColumns.Fields for the given column name prefix.
func readAnyValueAt(schema *arrow.Schema, rec arrow.Record, prefix string, i int) (AttrValue, error) {
	typeIdx := schema.FieldIndices(prefix + "_type")
	if len(typeIdx) == 0 {
		return AttrValue{}, nil
	}
	tag := AttrType(rec.Column(typeIdx[0]).(*array.Uint8).Value(i))

	colStr := optionalCol(schema, rec, prefix+"_str")
	colInt := optionalCol(schema, rec, prefix+"_int")
	colDbl := optionalCol(schema, rec, prefix+"_double")
	colBool := optionalCol(schema, rec, prefix+"_bool")
	colBytes := optionalCol(schema, rec, prefix+"_bytes")
	colSer := optionalCol(schema, rec, prefix+"_ser")

	return readAttrValue(tag, i, colStr, colInt, colDbl, colBool, colBytes, colSer)
}

// ApplyAttrValue writes a decoded AttrValue into dst, the inverse of
// toNeutral/attrTypeOf for scalar and serialized values.
func ApplyAttrValue(v AttrValue, dst pcommon.Value) {
	switch v.Type {
	case AttrTypeStr:
		dst.SetStr(v.Str)
	case AttrTypeInt:
		dst.SetInt(v.Int)
	case AttrTypeDouble:
		dst.SetDouble(v.Double)
	case AttrTypeBool:
		dst.SetBool(v.Bool)
	case AttrTypeBytes:
		dst.SetEmptyBytes().Append(v.Bytes...)
	case AttrTypeMap, AttrTypeSlice:
		WriteNeutral(v.Ser, dst)
	}
}
