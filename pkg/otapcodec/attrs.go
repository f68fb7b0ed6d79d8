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
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"go.opentelemetry.io/collector/pdata/pcommon"

	"github.com/open-telemetry/otap-dataflow-go/internal/werror"
	"github.com/open-telemetry/otap-dataflow-go/pkg/otapcodec/builder"
	"github.com/open-telemetry/otap-dataflow-go/pkg/otapcodec/servalue"
)

// AttrType is the attribute-value type tag stored in an attribute batch's
// type column (spec §4.2.1 step 3).
type AttrType uint8

const (
	AttrTypeEmpty AttrType = iota
	AttrTypeStr
	AttrTypeInt
	AttrTypeDouble
	AttrTypeBool
	AttrTypeMap
	AttrTypeSlice
	AttrTypeBytes
)

// Column names shared by every attribute-table schema (spec §6.2).
const (
	ColParentID = "parent_id"
	ColKey      = "key"
	ColType     = "type"
	ColStr      = "str"
	ColInt      = "int"
	ColDouble   = "double"
	ColBool     = "bool"
	ColBytes    = "bytes"
	ColSer      = "ser"
)

// AttrAccumulator collects attribute rows across an entire batch so they
// can be globally sorted by (key, type-qualified-value) before the
// parent-id quasi-delta transform is applied (spec §4.2.1 step 4), mirror
// of the teacher's Attributes16Accumulator / Attributes32Accumulator.
type AttrAccumulator struct {
	parentWidth int
	rows        []attrRow
}

type attrRow struct {
	parentID uint32
	key      string
	value    pcommon.Value
	ser      []byte // pre-computed for Map/Slice values, used for both grouping and the ser column
}

// NewAttrAccumulator creates an accumulator for a table whose parent_id
// column is parentWidth bits wide (16 or 32, spec §3).
func NewAttrAccumulator(parentWidth int) *AttrAccumulator {
	return &AttrAccumulator{parentWidth: parentWidth}
}

// IsEmpty reports whether no rows have been appended, in which case the
// whole attribute batch should be omitted (spec §4.2.2 "missing columns
// mean defaults").
func (a *AttrAccumulator) IsEmpty() bool { return len(a.rows) == 0 }

// Append records one attribute row. Empty-keyed entries are skipped,
// matching the teacher's accumulator behavior.
func (a *AttrAccumulator) Append(parentID uint32, key string, v pcommon.Value) error {
	if key == "" {
		return nil
	}
	var ser []byte
	if v.Type() == pcommon.ValueTypeMap || v.Type() == pcommon.ValueTypeSlice {
		neutral := toNeutral(v)
		b, err := servalue.Encode(neutral)
		if err != nil {
			return werror.WrapKind(werror.KindCodec, err)
		}
		ser = b
	}
	a.rows = append(a.rows, attrRow{parentID: parentID, key: key, value: v, ser: ser})
	return nil
}

func groupKey(r attrRow) string {
	switch r.value.Type() {
	case pcommon.ValueTypeStr:
		return r.key + "\x00s\x00" + r.value.Str()
	case pcommon.ValueTypeInt:
		return r.key + "\x00i\x00" + strconv.FormatInt(r.value.Int(), 10)
	case pcommon.ValueTypeDouble:
		return r.key + "\x00d\x00" + strconv.FormatFloat(r.value.Double(), 'g', -1, 64)
	case pcommon.ValueTypeBool:
		return r.key + "\x00b\x00" + strconv.FormatBool(r.value.Bool())
	case pcommon.ValueTypeBytes:
		return r.key + "\x00y\x00" + hex.EncodeToString(r.value.Bytes().AsRaw())
	case pcommon.ValueTypeMap, pcommon.ValueTypeSlice:
		return r.key + "\x00c\x00" + hex.EncodeToString(r.ser)
	default:
		return r.key + "\x00e\x00"
	}
}

// Build constructs the attribute record batch: parent ids are sorted and
// quasi-delta encoded (spec §4.2.1 step 4), and exactly one of
// {str,int,double,bool,bytes,ser} is populated per row (spec §4.2.1 step 3).
func (a *AttrAccumulator) Build(mem memory.Allocator) (arrow.Record, error) {
	if a.IsEmpty() {
		return nil, nil
	}

	pidRows := make([]ParentIDRow, len(a.rows))
	for i, r := range a.rows {
		pidRows[i] = ParentIDRow{GroupKey: groupKey(r), ParentID: r.parentID, Index: i}
	}
	encoded := EncodeQuasiDelta(pidRows)

	var pid16 *builder.Uint16
	var pid32 *builder.Uint32
	if a.parentWidth == 32 {
		pid32 = builder.NewUint32(mem, false)
	} else {
		pid16 = builder.NewUint16(mem, false)
	}
	key := builder.NewDictionaryString(mem, false)
	typ := array.NewUint8Builder(mem)
	str := builder.NewDictionaryString(mem, true)
	intCol := builder.NewInt64(mem, true)
	dbl := builder.NewFloat64(mem, true)
	boolCol := builder.NewBool(mem, true)
	bytesCol := builder.NewBinary(mem, true)
	serCol := builder.NewBinary(mem, true)

	for _, pr := range encoded {
		row := a.rows[pr.Index]

		if pid32 != nil {
			pid32.Append(pr.ParentID)
		} else {
			pid16.Append(uint16(pr.ParentID))
		}
		if err := key.Append(row.key); err != nil {
			return nil, werror.WrapKind(werror.KindCodec, err)
		}

		tag := attrTypeOf(row.value)
		typ.Append(uint8(tag))

		appendOneOf(tag, row, str, intCol, dbl, boolCol, bytesCol, serCol)
	}

	fields := []arrow.Field{}
	cols := []arrow.Array{}

	if pid32 != nil {
		arr, _ := pid32.Finish()
		fields = append(fields, arrow.Field{Name: ColParentID, Type: arrow.PrimitiveTypes.Uint32,
			Metadata: arrow.NewMetadata([]string{MetadataColumnEncoding}, []string{EncodingDelta})})
		cols = append(cols, arr)
	} else {
		arr, _ := pid16.Finish()
		fields = append(fields, arrow.Field{Name: ColParentID, Type: arrow.PrimitiveTypes.Uint16,
			Metadata: arrow.NewMetadata([]string{MetadataColumnEncoding}, []string{EncodingDelta})})
		cols = append(cols, arr)
	}

	keyArr, _ := key.Finish()
	fields = append(fields, arrow.Field{Name: ColKey, Type: keyArr.DataType()})
	cols = append(cols, keyArr)

	typeArr := typ.NewArray()
	fields = append(fields, arrow.Field{Name: ColType, Type: arrow.PrimitiveTypes.Uint8})
	cols = append(cols, typeArr)

	appendOptional(&fields, &cols, ColStr, str)
	appendOptionalNum(&fields, &cols, ColInt, arrow.PrimitiveTypes.Int64, intCol)
	appendOptionalNum(&fields, &cols, ColDouble, arrow.PrimitiveTypes.Float64, dbl)
	appendOptionalNum(&fields, &cols, ColBool, arrow.FixedWidthTypes.Boolean, boolCol)
	appendOptionalBin(&fields, &cols, ColBytes, bytesCol)
	appendOptionalBin(&fields, &cols, ColSer, serCol)

	schema := arrow.NewSchema(fields, nil)
	return array.NewRecord(schema, cols, int64(len(encoded))), nil
}

func attrTypeOf(v pcommon.Value) AttrType {
	switch v.Type() {
	case pcommon.ValueTypeStr:
		return AttrTypeStr
	case pcommon.ValueTypeInt:
		return AttrTypeInt
	case pcommon.ValueTypeDouble:
		return AttrTypeDouble
	case pcommon.ValueTypeBool:
		return AttrTypeBool
	case pcommon.ValueTypeMap:
		return AttrTypeMap
	case pcommon.ValueTypeSlice:
		return AttrTypeSlice
	case pcommon.ValueTypeBytes:
		return AttrTypeBytes
	default:
		return AttrTypeEmpty
	}
}

func appendOneOf(tag AttrType, row attrRow, str *builder.DictionaryString, intCol *builder.Int64,
	dbl *builder.Float64, boolCol *builder.Bool, bytesCol, serCol *builder.Binary) {
	if tag != AttrTypeStr {
		str.AppendNull()
	}
	if tag != AttrTypeInt {
		intCol.AppendNull()
	}
	if tag != AttrTypeDouble {
		dbl.AppendNull()
	}
	if tag != AttrTypeBool {
		boolCol.AppendNull()
	}
	if tag != AttrTypeBytes {
		bytesCol.AppendNull()
	}
	if tag != AttrTypeMap && tag != AttrTypeSlice {
		serCol.AppendNull()
	}

	switch tag {
	case AttrTypeStr:
		_ = str.Append(row.value.Str())
	case AttrTypeInt:
		intCol.Append(row.value.Int())
	case AttrTypeDouble:
		dbl.Append(row.value.Double())
	case AttrTypeBool:
		boolCol.Append(row.value.Bool())
	case AttrTypeBytes:
		bytesCol.Append(row.value.Bytes().AsRaw())
	case AttrTypeMap, AttrTypeSlice:
		serCol.Append(row.ser)
	}
}

func appendOptional(fields *[]arrow.Field, cols *[]arrow.Array, name string, b *builder.DictionaryString) {
	arr, ok := b.Finish()
	if !ok {
		return
	}
	*fields = append(*fields, arrow.Field{Name: name, Type: arr.DataType(), Nullable: true})
	*cols = append(*cols, arr)
}

type numFinisher interface {
	Finish() (arrow.Array, bool)
}

func appendOptionalNum(fields *[]arrow.Field, cols *[]arrow.Array, name string, dt arrow.DataType, b numFinisher) {
	arr, ok := b.Finish()
	if !ok {
		return
	}
	*fields = append(*fields, arrow.Field{Name: name, Type: dt, Nullable: true})
	*cols = append(*cols, arr)
}

func appendOptionalBin(fields *[]arrow.Field, cols *[]arrow.Array, name string, b *builder.Binary) {
	arr, ok := b.Finish()
	if !ok {
		return
	}
	*fields = append(*fields, arrow.Field{Name: name, Type: arrow.BinaryTypes.Binary, Nullable: true})
	*cols = append(*cols, arr)
}

// ReadAttrs decodes an attribute record batch, undoing the quasi-delta
// transform (spec §4.2.2 "attribute fan-in"), and calls apply once per row
// with that row's absolute parent id, key and decoded value.
func ReadAttrs(rec arrow.Record, apply func(parentID uint32, key string, v AttrValue)) error {
	if rec == nil {
		return nil
	}
	schema := rec.Schema()

	pidIdx := schema.FieldIndices(ColParentID)
	if len(pidIdx) == 0 {
		return werror.WrapKind(werror.KindCodec, fmt.Errorf("attribute batch missing %s column", ColParentID))
	}
	keyIdx := schema.FieldIndices(ColKey)
	typeIdx := schema.FieldIndices(ColType)
	if len(keyIdx) == 0 || len(typeIdx) == 0 {
		return werror.WrapKind(werror.KindCodec, fmt.Errorf("attribute batch missing key/type column"))
	}

	groupKeys := make([]string, rec.NumRows())
	deltas := make([]uint32, rec.NumRows())
	pidCol := rec.Column(pidIdx[0])
	switch c := pidCol.(type) {
	case *array.Uint32:
		for i := 0; i < c.Len(); i++ {
			deltas[i] = c.Value(i)
		}
	case *array.Uint16:
		for i := 0; i < c.Len(); i++ {
			deltas[i] = uint32(c.Value(i))
		}
	default:
		return werror.WrapKind(werror.KindCodec, fmt.Errorf("unsupported parent_id column type %T", pidCol))
	}

	keyCol := rec.Column(keyIdx[0])
	typeCol := rec.Column(typeIdx[0]).(*array.Uint8)

	keyAt := stringAccessor(keyCol)

	colStr := optionalCol(schema, rec, ColStr)
	colInt := optionalCol(schema, rec, ColInt)
	colDbl := optionalCol(schema, rec, ColDouble)
	colBool := optionalCol(schema, rec, ColBool)
	colBytes := optionalCol(schema, rec, ColBytes)
	colSer := optionalCol(schema, rec, ColSer)

	// Group by key, type and value, the same grouping groupKey uses when
	// encoding, so each group's running parent id is undone separately.
	for i := 0; i < int(rec.NumRows()); i++ {
		v, err := readAttrValue(AttrType(typeCol.Value(i)), i, colStr, colInt, colDbl, colBool, colBytes, colSer)
		if err != nil {
			return err
		}
		vk := fmt.Sprint(v.Str, v.Int, v.Double, v.Bool, v.Bytes)
		if colSer != nil && !colSer.IsNull(i) {
			vk = string(colSer.(*array.Binary).Value(i))
		}
		groupKeys[i] = keyAt(i) + "\x00" + strconv.Itoa(int(v.Type)) + "\x00" + vk
	}

	parentIDs := DecodeQuasiDelta(groupKeys, deltas)

	for i := 0; i < int(rec.NumRows()); i++ {
		key := keyAt(i)
		tag := AttrType(typeCol.Value(i))
		v, err := readAttrValue(tag, i, colStr, colInt, colDbl, colBool, colBytes, colSer)
		if err != nil {
			return err
		}
		apply(parentIDs[i], key, v)
	}
	return nil
}

func stringAccessor(col arrow.Array) func(i int) string {
	switch c := col.(type) {
	case *array.String:
		return c.Value
	case *array.Dictionary:
		dict, ok := c.Dictionary().(*array.String)
		if !ok {
			return func(int) string { return "" }
		}
		return func(i int) string {
			if c.IsNull(i) {
				return ""
			}
			return dict.Value(c.GetValueIndex(i))
		}
	default:
		return func(int) string { return "" }
	}
}

func optionalCol(schema *arrow.Schema, rec arrow.Record, name string) arrow.Array {
	idx := schema.FieldIndices(name)
	if len(idx) == 0 {
		return nil
	}
	return rec.Column(idx[0])
}

// AttrValue is the neutral decoded form of one attribute's value, used so
// pkg/otapcodec need not import a concrete pdata writer; callers convert
// it into pcommon.Value.
type AttrValue struct {
	Type   AttrType
	Str    string
	Int    int64
	Double float64
	Bool   bool
	Bytes  []byte
	Ser    servalue.Value
}

func readAttrValue(tag AttrType, i int, colStr, colInt, colDbl, colBool, colBytes, colSer arrow.Array) (AttrValue, error) {
	v := AttrValue{Type: tag}
	switch tag {
	case AttrTypeStr:
		if colStr != nil && !colStr.IsNull(i) {
			v.Str = stringAccessor(colStr)(i)
		}
	case AttrTypeInt:
		if colInt != nil && !colInt.IsNull(i) {
			v.Int = colInt.(*array.Int64).Value(i)
		}
	case AttrTypeDouble:
		if colDbl != nil && !colDbl.IsNull(i) {
			v.Double = colDbl.(*array.Float64).Value(i)
		}
	case AttrTypeBool:
		if colBool != nil && !colBool.IsNull(i) {
			v.Bool = colBool.(*array.Boolean).Value(i)
		}
	case AttrTypeBytes:
		if colBytes != nil && !colBytes.IsNull(i) {
			v.Bytes = append([]byte(nil), colBytes.(*array.Binary).Value(i)...)
		}
	case AttrTypeMap, AttrTypeSlice:
		if colSer != nil && !colSer.IsNull(i) {
			raw := colSer.(*array.Binary).Value(i)
			decoded, err := servalue.Decode(raw)
			if err != nil {
				return v, werror.WrapKind(werror.KindCodec, err)
			}
			v.Ser = decoded
		}
	}
	return v, nil
}

// toNeutral converts a pcommon.Value of type Map or Slice (recursively)
// into the neutral servalue.Value tree.
func toNeutral(v pcommon.Value) servalue.Value {
	switch v.Type() {
	case pcommon.ValueTypeStr:
		return v.Str()
	case pcommon.ValueTypeInt:
		return v.Int()
	case pcommon.ValueTypeDouble:
		return v.Double()
	case pcommon.ValueTypeBool:
		return v.Bool()
	case pcommon.ValueTypeBytes:
		return []byte(v.Bytes().AsRaw())
	case pcommon.ValueTypeMap:
		out := make(map[string]servalue.Value, v.Map().Len())
		v.Map().Range(func(k string, vv pcommon.Value) bool {
			out[k] = toNeutral(vv)
			return true
		})
		return out
	case pcommon.ValueTypeSlice:
		s := v.Slice()
		out := make([]servalue.Value, s.Len())
		for i := 0; i < s.Len(); i++ {
			out[i] = toNeutral(s.At(i))
		}
		return out
	default:
		return nil
	}
}

// WriteNeutral writes a servalue.Value tree (as decoded from a ser column)
// into dst, mirroring toNeutral's encoding.
func WriteNeutral(v servalue.Value, dst pcommon.Value) {
	switch t := v.(type) {
	case nil:
		// leave dst at its zero value (ValueTypeEmpty)
	case bool:
		dst.SetBool(t)
	case int64:
		dst.SetInt(t)
	case float64:
		dst.SetDouble(t)
	case string:
		dst.SetStr(t)
	case []byte:
		dst.SetEmptyBytes().Append(t...)
	case map[string]servalue.Value:
		m := dst.SetEmptyMap()
		for k, vv := range t {
			WriteNeutral(vv, m.PutEmpty(k))
		}
	case []servalue.Value:
		s := dst.SetEmptySlice()
		for _, vv := range t {
			WriteNeutral(vv, s.AppendEmpty())
		}
	}
}
