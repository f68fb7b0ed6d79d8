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
	"go.opentelemetry.io/collector/pdata/plog"

	"github.com/open-telemetry/otap-dataflow-go/pkg/otapcodec/builder"
)

// Root-batch column names for the Logs payload type (spec §6.2).
const (
	ColID                        = "id"
	ColResourceID                = "resource_id"
	ColScopeID                   = "scope_id"
	ColResourceSchemaURL         = "resource_schema_url"
	ColResourceDroppedAttrCount  = "resource_dropped_attributes_count"
	ColScopeSchemaURL            = "scope_schema_url"
	ColScopeName                 = "scope_name"
	ColScopeVersion              = "scope_version"
	ColScopeDroppedAttrCount     = "scope_dropped_attributes_count"
	ColTimeUnixNano              = "time_unix_nano"
	ColObservedTimeUnixNano      = "observed_time_unix_nano"
	ColSeverityNumber            = "severity_number"
	ColSeverityText              = "severity_text"
	ColBodyPrefix                = "body"
	ColDroppedAttributesCount    = "dropped_attributes_count"
	ColFlags                     = "flags"
	ColTraceID                   = "trace_id"
	ColSpanID                    = "span_id"
)

var zeroTraceID pcommon.TraceID
var zeroSpanID pcommon.SpanID

// EncodeLogs converts ld into a record set keyed by PayloadTypeLogs (root),
// PayloadTypeResourceAttrs, PayloadTypeScopeAttrs, and PayloadTypeLogAttrs
// (spec §4.2.1). Resource and scope ids are assigned densely per request,
// as the root row index is (spec §4.2.1 step 1).
func EncodeLogs(ld plog.Logs) (RecordSet, error) {
	mem := memory.DefaultAllocator

	id := builder.NewUint16(mem, false)
	resID := builder.NewUint16(mem, false)
	scopeID := builder.NewUint16(mem, false)
	resSchemaURL := builder.NewDictionaryString(mem, true)
	resDropped := builder.NewUint32(mem, true)
	scopeSchemaURL := builder.NewDictionaryString(mem, true)
	scopeName := builder.NewDictionaryString(mem, true)
	scopeVersion := builder.NewDictionaryString(mem, true)
	scopeDropped := builder.NewUint32(mem, true)
	timeCol := builder.NewInt64(mem, false)
	obsTimeCol := builder.NewInt64(mem, true)
	sevNum := builder.NewInt64(mem, true)
	sevText := builder.NewDictionaryString(mem, true)
	body := newAnyValueColumns(mem, ColBodyPrefix)
	droppedAttrs := builder.NewUint32(mem, true)
	flags := builder.NewUint32(mem, true)
	traceID := builder.NewBinary(mem, true)
	spanID := builder.NewBinary(mem, true)

	resAttrs := NewAttrAccumulator(16)
	scopeAttrs := NewAttrAccumulator(16)
	logAttrs := NewAttrAccumulator(16)

	var rowIdx, scopeCounter uint16

	for ri := 0; ri < ld.ResourceLogs().Len(); ri++ {
		rl := ld.ResourceLogs().At(ri)
		thisResID := uint16(ri)
		res := rl.Resource()

		res.Attributes().Range(func(k string, v pcommon.Value) bool {
			_ = resAttrs.Append(uint32(thisResID), k, v)
			return true
		})

		for si := 0; si < rl.ScopeLogs().Len(); si++ {
			sl := rl.ScopeLogs().At(si)
			thisScopeID := scopeCounter
			scopeCounter++
			sc := sl.Scope()

			sc.Attributes().Range(func(k string, v pcommon.Value) bool {
				_ = scopeAttrs.Append(uint32(thisScopeID), k, v)
				return true
			})

			for lri := 0; lri < sl.LogRecords().Len(); lri++ {
				lr := sl.LogRecords().At(lri)
				thisID := rowIdx
				rowIdx++

				id.Append(thisID)
				resID.Append(thisResID)
				scopeID.Append(thisScopeID)

				appendOptStr(resSchemaURL, rl.SchemaUrl())
				appendOptU32(resDropped, res.DroppedAttributesCount())
				appendOptStr(scopeSchemaURL, sl.SchemaUrl())
				appendOptStr(scopeName, sc.Name())
				appendOptStr(scopeVersion, sc.Version())
				appendOptU32(scopeDropped, sc.DroppedAttributesCount())

				timeCol.Append(int64(lr.Timestamp()))
				appendOptI64(obsTimeCol, int64(lr.ObservedTimestamp()))
				appendOptI64(sevNum, int64(lr.SeverityNumber()))
				appendOptStr(sevText, lr.SeverityText())

				if err := body.Append(lr.Body()); err != nil {
					return nil, err
				}

				appendOptU32(droppedAttrs, lr.DroppedAttributesCount())
				appendOptU32(flags, uint32(lr.Flags()))

				if lr.TraceID() != zeroTraceID {
					tid := lr.TraceID()
					traceID.Append(tid[:])
				} else {
					traceID.AppendNull()
				}
				if lr.SpanID() != zeroSpanID {
					sid := lr.SpanID()
					spanID.Append(sid[:])
				} else {
					spanID.AppendNull()
				}

				lr.Attributes().Range(func(k string, v pcommon.Value) bool {
					_ = logAttrs.Append(uint32(thisID), k, v)
					return true
				})
			}
		}
	}

	fields := []arrow.Field{
		{Name: ColID, Type: arrow.PrimitiveTypes.Uint16,
			Metadata: arrow.NewMetadata([]string{MetadataColumnEncoding}, []string{EncodingPlain})},
	}
	idArr, _ := id.Finish()
	cols := []arrow.Array{idArr}

	resIDArr, _ := resID.Finish()
	fields = append(fields, arrow.Field{Name: ColResourceID, Type: arrow.PrimitiveTypes.Uint16})
	cols = append(cols, resIDArr)

	scopeIDArr, _ := scopeID.Finish()
	fields = append(fields, arrow.Field{Name: ColScopeID, Type: arrow.PrimitiveTypes.Uint16})
	cols = append(cols, scopeIDArr)

	appendOptional(&fields, &cols, ColResourceSchemaURL, resSchemaURL)
	appendOptionalNum(&fields, &cols, ColResourceDroppedAttrCount, arrow.PrimitiveTypes.Uint32, resDropped)
	appendOptional(&fields, &cols, ColScopeSchemaURL, scopeSchemaURL)
	appendOptional(&fields, &cols, ColScopeName, scopeName)
	appendOptional(&fields, &cols, ColScopeVersion, scopeVersion)
	appendOptionalNum(&fields, &cols, ColScopeDroppedAttrCount, arrow.PrimitiveTypes.Uint32, scopeDropped)

	timeArr, _ := timeCol.Finish()
	fields = append(fields, arrow.Field{Name: ColTimeUnixNano, Type: arrow.PrimitiveTypes.Int64})
	cols = append(cols, timeArr)

	appendOptionalNum(&fields, &cols, ColObservedTimeUnixNano, arrow.PrimitiveTypes.Int64, obsTimeCol)
	appendOptionalNum(&fields, &cols, ColSeverityNumber, arrow.PrimitiveTypes.Int64, sevNum)
	appendOptional(&fields, &cols, ColSeverityText, sevText)

	bf, bc := body.Fields()
	fields = append(fields, bf...)
	cols = append(cols, bc...)

	appendOptionalNum(&fields, &cols, ColDroppedAttributesCount, arrow.PrimitiveTypes.Uint32, droppedAttrs)
	appendOptionalNum(&fields, &cols, ColFlags, arrow.PrimitiveTypes.Uint32, flags)
	appendOptionalBin(&fields, &cols, ColTraceID, traceID)
	appendOptionalBin(&fields, &cols, ColSpanID, spanID)

	schema := arrow.NewSchema(fields, nil)
	root := array.NewRecord(schema, cols, int64(rowIdx))

	rs := RecordSet{PayloadTypeLogs: root}
	if rec, err := resAttrs.Build(mem); err != nil {
		return nil, err
	} else if rec != nil {
		rs[PayloadTypeResourceAttrs] = rec
	}
	if rec, err := scopeAttrs.Build(mem); err != nil {
		return nil, err
	} else if rec != nil {
		rs[PayloadTypeScopeAttrs] = rec
	}
	if rec, err := logAttrs.Build(mem); err != nil {
		return nil, err
	} else if rec != nil {
		rs[PayloadTypeLogAttrs] = rec
	}
	return rs, nil
}

// DecodeLogs reconstructs a plog.Logs from a record set produced by
// EncodeLogs (or an interoperating producer observing the same schema
// contract, spec §6.2). Missing optional columns are treated as defaults
// (spec §4.2.2).
func DecodeLogs(rs RecordSet) (plog.Logs, error) {
	out := plog.NewLogs()
	root := rs[PayloadTypeLogs]
	if root == nil {
		return out, nil
	}
	schema := root.Schema()

	idCol := mustU16(schema, root, ColID)
	resIDCol := mustU16(schema, root, ColResourceID)
	scopeIDCol := mustU16(schema, root, ColScopeID)

	resSchemaURL := stringColAccessor(schema, root, ColResourceSchemaURL)
	resDropped := u32ColAccessor(schema, root, ColResourceDroppedAttrCount)
	scopeSchemaURL := stringColAccessor(schema, root, ColScopeSchemaURL)
	scopeName := stringColAccessor(schema, root, ColScopeName)
	scopeVersion := stringColAccessor(schema, root, ColScopeVersion)
	scopeDropped := u32ColAccessor(schema, root, ColScopeDroppedAttrCount)

	timeCol := mustI64(schema, root, ColTimeUnixNano)
	obsTimeCol := i64ColAccessor(schema, root, ColObservedTimeUnixNano)
	sevNumCol := i64ColAccessor(schema, root, ColSeverityNumber)
	sevTextCol := stringColAccessor(schema, root, ColSeverityText)
	droppedAttrsCol := u32ColAccessor(schema, root, ColDroppedAttributesCount)
	flagsCol := u32ColAccessor(schema, root, ColFlags)
	traceIDCol := binColAccessor(schema, root, ColTraceID)
	spanIDCol := binColAccessor(schema, root, ColSpanID)

	// The producer (EncodeLogs) assigns resource_id/scope_id in row order
	// as it walks ResourceLogs/ScopeLogs, so within the root batch each id
	// change marks the start of a new resource or scope (spec §4.2.1 step
	// 1). A single forward pass is enough to rebuild the nesting.
	resByID := map[uint16]plog.ResourceLogs{}
	scopeByID := map[uint16]plog.ScopeLogs{}
	logByID := map[uint16]plog.LogRecord{}

	var curRes plog.ResourceLogs
	var curScope plog.ScopeLogs
	haveRes, haveScope := false, false
	var curResID, curScopeID uint16

	n := int(root.NumRows())
	for i := 0; i < n; i++ {
		rID := resIDCol.Value(i)
		sID := scopeIDCol.Value(i)

		if !haveRes || rID != curResID {
			curRes = out.ResourceLogs().AppendEmpty()
			if resSchemaURL != nil {
				curRes.SetSchemaUrl(resSchemaURL(i))
			}
			if resDropped != nil {
				curRes.Resource().SetDroppedAttributesCount(resDropped(i))
			}
			resByID[rID] = curRes
			curResID = rID
			haveRes = true
			haveScope = false // force a new scope under the new resource
		}

		if !haveScope || sID != curScopeID {
			curScope = curRes.ScopeLogs().AppendEmpty()
			if scopeSchemaURL != nil {
				curScope.SetSchemaUrl(scopeSchemaURL(i))
			}
			if scopeName != nil {
				curScope.Scope().SetName(scopeName(i))
			}
			if scopeVersion != nil {
				curScope.Scope().SetVersion(scopeVersion(i))
			}
			if scopeDropped != nil {
				curScope.Scope().SetDroppedAttributesCount(scopeDropped(i))
			}
			scopeByID[sID] = curScope
			curScopeID = sID
			haveScope = true
		}

		lr := curScope.LogRecords().AppendEmpty()
		lr.SetTimestamp(pcommon.Timestamp(timeCol.Value(i)))
		if obsTimeCol != nil {
			lr.SetObservedTimestamp(pcommon.Timestamp(obsTimeCol(i)))
		}
		if sevNumCol != nil {
			lr.SetSeverityNumber(plog.SeverityNumber(sevNumCol(i)))
		}
		if sevTextCol != nil {
			lr.SetSeverityText(sevTextCol(i))
		}
		bodyVal, err := readAnyValueAt(schema, root, ColBodyPrefix, i)
		if err != nil {
			return out, err
		}
		ApplyAttrValue(bodyVal, lr.Body())
		if droppedAttrsCol != nil {
			lr.SetDroppedAttributesCount(droppedAttrsCol(i))
		}
		if flagsCol != nil {
			lr.SetFlags(plog.LogRecordFlags(flagsCol(i)))
		}
		if traceIDCol != nil {
			var tid pcommon.TraceID
			copy(tid[:], traceIDCol(i))
			lr.SetTraceID(tid)
		}
		if spanIDCol != nil {
			var sid pcommon.SpanID
			copy(sid[:], spanIDCol(i))
			lr.SetSpanID(sid)
		}

		logByID[idCol.Value(i)] = lr
	}

	// Attribute fan-in: resource/scope/log attribute tables reference
	// their parent row by (decoded) parent_id.
	if err := ReadAttrs(rs[PayloadTypeResourceAttrs], func(parentID uint32, key string, v AttrValue) {
		if rl, ok := resByID[uint16(parentID)]; ok {
			ApplyAttrValue(v, rl.Resource().Attributes().PutEmpty(key))
		}
	}); err != nil {
		return out, err
	}
	if err := ReadAttrs(rs[PayloadTypeScopeAttrs], func(parentID uint32, key string, v AttrValue) {
		if sl, ok := scopeByID[uint16(parentID)]; ok {
			ApplyAttrValue(v, sl.Scope().Attributes().PutEmpty(key))
		}
	}); err != nil {
		return out, err
	}
	if err := ReadAttrs(rs[PayloadTypeLogAttrs], func(parentID uint32, key string, v AttrValue) {
		if lr, ok := logByID[uint16(parentID)]; ok {
			ApplyAttrValue(v, lr.Attributes().PutEmpty(key))
		}
	}); err != nil {
		return out, err
	}

	return out, nil
}

func appendOptStr(b *builder.DictionaryString, s string) {
	if s == "" {
		b.AppendNull()
		return
	}
	_ = b.Append(s)
}

func appendOptU32(b *builder.Uint32, v uint32) {
	if v == 0 {
		b.AppendNull()
		return
	}
	b.Append(v)
}

func appendOptI64(b *builder.Int64, v int64) {
	if v == 0 {
		b.AppendNull()
		return
	}
	b.Append(v)
}

func mustU16(schema *arrow.Schema, rec arrow.Record, name string) *array.Uint16 {
	idx := schema.FieldIndices(name)
	if len(idx) == 0 {
		return nil
	}
	return rec.Column(idx[0]).(*array.Uint16)
}

func mustI64(schema *arrow.Schema, rec arrow.Record, name string) *array.Int64 {
	idx := schema.FieldIndices(name)
	if len(idx) == 0 {
		return nil
	}
	return rec.Column(idx[0]).(*array.Int64)
}

func stringColAccessor(schema *arrow.Schema, rec arrow.Record, name string) func(i int) string {
	idx := schema.FieldIndices(name)
	if len(idx) == 0 {
		return nil
	}
	col := rec.Column(idx[0])
	acc := stringAccessor(col)
	return func(i int) string {
		if col.IsNull(i) {
			return ""
		}
		return acc(i)
	}
}

func u32ColAccessor(schema *arrow.Schema, rec arrow.Record, name string) func(i int) uint32 {
	idx := schema.FieldIndices(name)
	if len(idx) == 0 {
		return nil
	}
	col := rec.Column(idx[0]).(*array.Uint32)
	return func(i int) uint32 {
		if col.IsNull(i) {
			return 0
		}
		return col.Value(i)
	}
}

func i64ColAccessor(schema *arrow.Schema, rec arrow.Record, name string) func(i int) int64 {
	idx := schema.FieldIndices(name)
	if len(idx) == 0 {
		return nil
	}
	col := rec.Column(idx[0]).(*array.Int64)
	return func(i int) int64 {
		if col.IsNull(i) {
			return 0
		}
		return col.Value(i)
	}
}

func binColAccessor(schema *arrow.Schema, rec arrow.Record, name string) func(i int) []byte {
	idx := schema.FieldIndices(name)
	if len(idx) == 0 {
		return nil
	}
	col := rec.Column(idx[0]).(*array.Binary)
	return func(i int) []byte {
		if col.IsNull(i) {
			return nil
		}
		return col.Value(i)
	}
}
