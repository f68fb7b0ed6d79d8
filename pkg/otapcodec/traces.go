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
	"go.opentelemetry.io/collector/pdata/ptrace"

	"github.com/open-telemetry/otap-dataflow-go/pkg/otapcodec/builder"
)

// Root-batch column names for the Spans payload type (spec §6.2, §9 traces
// extension). Span events and links are encoded as their own derivative
// batches referencing the span's root id as parent_id, the same pattern
// used for log/resource/scope attribute fan-out.
const (
	ColTraceIDSpan       = "trace_id"
	ColSpanIDSpan        = "span_id"
	ColParentSpanID      = "parent_span_id"
	ColTraceState        = "trace_state"
	ColSpanName          = "name"
	ColSpanKind          = "kind"
	ColStartTimeUnixNano = "start_time_unix_nano"
	ColEndTimeUnixNano   = "end_time_unix_nano"
	ColStatusCode        = "status_code"
	ColStatusMessage     = "status_message"

	ColEventTimeUnixNano = "time_unix_nano"
	ColEventName         = "name"

	ColLinkTraceID    = "trace_id"
	ColLinkSpanID     = "span_id"
	ColLinkTraceState = "trace_state"
)

// EncodeTraces converts td into a record set keyed by PayloadTypeSpans
// (root) and its attribute/event/link derivative batches. Grounded on the
// same resource/scope walk as EncodeLogs (spec §4.2.1 step 1); span
// events and links are flattened into their own tables rather than nested
// struct-list columns, a deliberate simplification recorded in DESIGN.md.
func EncodeTraces(td ptrace.Traces) (RecordSet, error) {
	mem := memory.DefaultAllocator

	id := builder.NewUint16(mem, false)
	resID := builder.NewUint16(mem, false)
	scopeID := builder.NewUint16(mem, false)
	resSchemaURL := builder.NewDictionaryString(mem, true)
	scopeSchemaURL := builder.NewDictionaryString(mem, true)
	scopeName := builder.NewDictionaryString(mem, true)
	scopeVersion := builder.NewDictionaryString(mem, true)

	traceID := builder.NewBinary(mem, false)
	spanID := builder.NewBinary(mem, false)
	parentSpanID := builder.NewBinary(mem, true)
	traceState := builder.NewDictionaryString(mem, true)
	name := builder.NewDictionaryString(mem, true)
	kind := builder.NewUint32(mem, true)
	startTime := builder.NewInt64(mem, false)
	endTime := builder.NewInt64(mem, true)
	statusCode := builder.NewUint32(mem, true)
	statusMsg := builder.NewDictionaryString(mem, true)

	resAttrs := NewAttrAccumulator(16)
	scopeAttrs := NewAttrAccumulator(16)
	spanAttrs := NewAttrAccumulator(16)

	evID := builder.NewUint32(mem, false)
	evParent := builder.NewUint16(mem, false)
	evTime := builder.NewInt64(mem, false)
	evName := builder.NewDictionaryString(mem, true)
	eventAttrs := NewAttrAccumulator(32)

	lkID := builder.NewUint32(mem, false)
	lkParent := builder.NewUint16(mem, false)
	lkTraceID := builder.NewBinary(mem, false)
	lkSpanID := builder.NewBinary(mem, false)
	lkTraceState := builder.NewDictionaryString(mem, true)
	linkAttrs := NewAttrAccumulator(32)

	var rowIdx, scopeCounter uint16
	var evCounter, lkCounter uint32

	for ri := 0; ri < td.ResourceSpans().Len(); ri++ {
		rs := td.ResourceSpans().At(ri)
		thisResID := uint16(ri)
		res := rs.Resource()
		res.Attributes().Range(func(k string, v pcommon.Value) bool {
			_ = resAttrs.Append(uint32(thisResID), k, v)
			return true
		})

		for si := 0; si < rs.ScopeSpans().Len(); si++ {
			ss := rs.ScopeSpans().At(si)
			thisScopeID := scopeCounter
			scopeCounter++
			sc := ss.Scope()
			sc.Attributes().Range(func(k string, v pcommon.Value) bool {
				_ = scopeAttrs.Append(uint32(thisScopeID), k, v)
				return true
			})

			for spi := 0; spi < ss.Spans().Len(); spi++ {
				sp := ss.Spans().At(spi)
				thisID := rowIdx
				rowIdx++

				id.Append(thisID)
				resID.Append(thisResID)
				scopeID.Append(thisScopeID)
				appendOptStr(resSchemaURL, rs.SchemaUrl())
				appendOptStr(scopeSchemaURL, ss.SchemaUrl())
				appendOptStr(scopeName, sc.Name())
				appendOptStr(scopeVersion, sc.Version())

				tid := sp.TraceID()
				traceID.Append(tid[:])
				sid := sp.SpanID()
				spanID.Append(sid[:])
				if psid := sp.ParentSpanID(); psid != zeroSpanID {
					parentSpanID.Append(psid[:])
				} else {
					parentSpanID.AppendNull()
				}
				appendOptStr(traceState, sp.TraceState().AsRaw())
				appendOptStr(name, sp.Name())
				appendOptU32(kind, uint32(sp.Kind()))
				startTime.Append(int64(sp.StartTimestamp()))
				appendOptI64(endTime, int64(sp.EndTimestamp()))
				appendOptU32(statusCode, uint32(sp.Status().Code()))
				appendOptStr(statusMsg, sp.Status().Message())

				sp.Attributes().Range(func(k string, v pcommon.Value) bool {
					_ = spanAttrs.Append(uint32(thisID), k, v)
					return true
				})

				for ei := 0; ei < sp.Events().Len(); ei++ {
					ev := sp.Events().At(ei)
					thisEvID := evCounter
					evCounter++
					evID.Append(thisEvID)
					evParent.Append(thisID)
					evTime.Append(int64(ev.Timestamp()))
					appendOptStr(evName, ev.Name())
					ev.Attributes().Range(func(k string, v pcommon.Value) bool {
						_ = eventAttrs.Append(thisEvID, k, v)
						return true
					})
				}

				for li := 0; li < sp.Links().Len(); li++ {
					lk := sp.Links().At(li)
					thisLkID := lkCounter
					lkCounter++
					lkID.Append(thisLkID)
					lkParent.Append(thisID)
					ltid := lk.TraceID()
					lkTraceID.Append(ltid[:])
					lsid := lk.SpanID()
					lkSpanID.Append(lsid[:])
					appendOptStr(lkTraceState, lk.TraceState().AsRaw())
					lk.Attributes().Range(func(k string, v pcommon.Value) bool {
						_ = linkAttrs.Append(thisLkID, k, v)
						return true
					})
				}
			}
		}
	}

	fields := []arrow.Field{{Name: ColID, Type: arrow.PrimitiveTypes.Uint16}}
	idArr, _ := id.Finish()
	cols := []arrow.Array{idArr}

	resIDArr, _ := resID.Finish()
	fields = append(fields, arrow.Field{Name: ColResourceID, Type: arrow.PrimitiveTypes.Uint16})
	cols = append(cols, resIDArr)
	scopeIDArr, _ := scopeID.Finish()
	fields = append(fields, arrow.Field{Name: ColScopeID, Type: arrow.PrimitiveTypes.Uint16})
	cols = append(cols, scopeIDArr)

	appendOptional(&fields, &cols, ColResourceSchemaURL, resSchemaURL)
	appendOptional(&fields, &cols, ColScopeSchemaURL, scopeSchemaURL)
	appendOptional(&fields, &cols, ColScopeName, scopeName)
	appendOptional(&fields, &cols, ColScopeVersion, scopeVersion)

	traceIDArr, _ := traceID.Finish()
	fields = append(fields, arrow.Field{Name: ColTraceIDSpan, Type: arrow.BinaryTypes.Binary})
	cols = append(cols, traceIDArr)
	spanIDArr, _ := spanID.Finish()
	fields = append(fields, arrow.Field{Name: ColSpanIDSpan, Type: arrow.BinaryTypes.Binary})
	cols = append(cols, spanIDArr)

	appendOptionalBin(&fields, &cols, ColParentSpanID, parentSpanID)
	appendOptional(&fields, &cols, ColTraceState, traceState)
	appendOptional(&fields, &cols, ColSpanName, name)
	appendOptionalNum(&fields, &cols, ColSpanKind, arrow.PrimitiveTypes.Uint32, kind)

	startArr, _ := startTime.Finish()
	fields = append(fields, arrow.Field{Name: ColStartTimeUnixNano, Type: arrow.PrimitiveTypes.Int64})
	cols = append(cols, startArr)

	appendOptionalNum(&fields, &cols, ColEndTimeUnixNano, arrow.PrimitiveTypes.Int64, endTime)
	appendOptionalNum(&fields, &cols, ColStatusCode, arrow.PrimitiveTypes.Uint32, statusCode)
	appendOptional(&fields, &cols, ColStatusMessage, statusMsg)

	schema := arrow.NewSchema(fields, nil)
	root := array.NewRecord(schema, cols, int64(rowIdx))

	rs := RecordSet{PayloadTypeSpans: root}
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
	if rec, err := spanAttrs.Build(mem); err != nil {
		return nil, err
	} else if rec != nil {
		rs[PayloadTypeSpanAttrs] = rec
	}

	if evCounter > 0 {
		evFields := []arrow.Field{
			{Name: ColID, Type: arrow.PrimitiveTypes.Uint32},
			{Name: "parent_id", Type: arrow.PrimitiveTypes.Uint16},
			{Name: ColEventTimeUnixNano, Type: arrow.PrimitiveTypes.Int64},
		}
		evIDArr, _ := evID.Finish()
		evParentArr, _ := evParent.Finish()
		evTimeArr, _ := evTime.Finish()
		evCols := []arrow.Array{evIDArr, evParentArr, evTimeArr}
		appendOptional(&evFields, &evCols, ColEventName, evName)
		evSchema := arrow.NewSchema(evFields, nil)
		evRec := array.NewRecord(evSchema, evCols, int64(evCounter))
		rs[PayloadTypeSpanEvents] = evRec
		if rec, err := eventAttrs.Build(mem); err != nil {
			return nil, err
		} else if rec != nil {
			rs[PayloadTypeSpanEventAttrs] = rec
		}
	}

	if lkCounter > 0 {
		lkFields := []arrow.Field{
			{Name: ColID, Type: arrow.PrimitiveTypes.Uint32},
			{Name: "parent_id", Type: arrow.PrimitiveTypes.Uint16},
		}
		lkIDArr, _ := lkID.Finish()
		lkParentArr, _ := lkParent.Finish()
		lkCols := []arrow.Array{lkIDArr, lkParentArr}

		lkTraceIDArr, _ := lkTraceID.Finish()
		lkFields = append(lkFields, arrow.Field{Name: ColLinkTraceID, Type: arrow.BinaryTypes.Binary})
		lkCols = append(lkCols, lkTraceIDArr)
		lkSpanIDArr, _ := lkSpanID.Finish()
		lkFields = append(lkFields, arrow.Field{Name: ColLinkSpanID, Type: arrow.BinaryTypes.Binary})
		lkCols = append(lkCols, lkSpanIDArr)
		appendOptional(&lkFields, &lkCols, ColLinkTraceState, lkTraceState)

		lkSchema := arrow.NewSchema(lkFields, nil)
		lkRec := array.NewRecord(lkSchema, lkCols, int64(lkCounter))
		rs[PayloadTypeSpanLinks] = lkRec
		if rec, err := linkAttrs.Build(mem); err != nil {
			return nil, err
		} else if rec != nil {
			rs[PayloadTypeSpanLinkAttrs] = rec
		}
	}

	return rs, nil
}

// DecodeTraces reconstructs a ptrace.Traces from a record set produced by
// EncodeTraces, reversing the resource/scope/span walk and re-attaching
// events and links by their span parent_id.
func DecodeTraces(rs RecordSet) (ptrace.Traces, error) {
	out := ptrace.NewTraces()
	root := rs[PayloadTypeSpans]
	if root == nil {
		return out, nil
	}
	schema := root.Schema()

	resIDCol := mustU16(schema, root, ColResourceID)
	scopeIDCol := mustU16(schema, root, ColScopeID)
	resSchemaURL := stringColAccessor(schema, root, ColResourceSchemaURL)
	scopeSchemaURL := stringColAccessor(schema, root, ColScopeSchemaURL)
	scopeName := stringColAccessor(schema, root, ColScopeName)
	scopeVersion := stringColAccessor(schema, root, ColScopeVersion)

	traceIDCol := binColAccessor(schema, root, ColTraceIDSpan)
	spanIDCol := binColAccessor(schema, root, ColSpanIDSpan)
	parentSpanIDCol := binColAccessor(schema, root, ColParentSpanID)
	traceStateCol := stringColAccessor(schema, root, ColTraceState)
	nameCol := stringColAccessor(schema, root, ColSpanName)
	kindCol := u32ColAccessor(schema, root, ColSpanKind)
	startCol := mustI64(schema, root, ColStartTimeUnixNano)
	endCol := i64ColAccessor(schema, root, ColEndTimeUnixNano)
	statusCodeCol := u32ColAccessor(schema, root, ColStatusCode)
	statusMsgCol := stringColAccessor(schema, root, ColStatusMessage)

	resByID := map[uint16]ptrace.ResourceSpans{}
	scopeByID := map[uint16]ptrace.ScopeSpans{}
	spanByID := map[uint16]ptrace.Span{}

	var curRes ptrace.ResourceSpans
	var curScope ptrace.ScopeSpans
	haveRes, haveScope := false, false
	var curResID, curScopeID uint16

	n := int(root.NumRows())
	for i := 0; i < n; i++ {
		rID := resIDCol.Value(i)
		sID := scopeIDCol.Value(i)

		if !haveRes || rID != curResID {
			curRes = out.ResourceSpans().AppendEmpty()
			if resSchemaURL != nil {
				curRes.SetSchemaUrl(resSchemaURL(i))
			}
			resByID[rID] = curRes
			curResID = rID
			haveRes = true
			haveScope = false
		}
		if !haveScope || sID != curScopeID {
			curScope = curRes.ScopeSpans().AppendEmpty()
			if scopeSchemaURL != nil {
				curScope.SetSchemaUrl(scopeSchemaURL(i))
			}
			if scopeName != nil {
				curScope.Scope().SetName(scopeName(i))
			}
			if scopeVersion != nil {
				curScope.Scope().SetVersion(scopeVersion(i))
			}
			scopeByID[sID] = curScope
			curScopeID = sID
			haveScope = true
		}

		sp := curScope.Spans().AppendEmpty()
		var tid pcommon.TraceID
		copy(tid[:], traceIDCol(i))
		sp.SetTraceID(tid)
		var sid pcommon.SpanID
		copy(sid[:], spanIDCol(i))
		sp.SetSpanID(sid)
		if parentSpanIDCol != nil {
			var psid pcommon.SpanID
			copy(psid[:], parentSpanIDCol(i))
			sp.SetParentSpanID(psid)
		}
		if traceStateCol != nil {
			sp.TraceState().FromRaw(traceStateCol(i))
		}
		if nameCol != nil {
			sp.SetName(nameCol(i))
		}
		if kindCol != nil {
			sp.SetKind(ptrace.SpanKind(kindCol(i)))
		}
		sp.SetStartTimestamp(pcommon.Timestamp(startCol.Value(i)))
		if endCol != nil {
			sp.SetEndTimestamp(pcommon.Timestamp(endCol(i)))
		}
		if statusCodeCol != nil {
			sp.Status().SetCode(ptrace.StatusCode(statusCodeCol(i)))
		}
		if statusMsgCol != nil {
			sp.Status().SetMessage(statusMsgCol(i))
		}

		spanByID[uint16(i)] = sp
	}

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
	if err := ReadAttrs(rs[PayloadTypeSpanAttrs], func(parentID uint32, key string, v AttrValue) {
		if sp, ok := spanByID[uint16(parentID)]; ok {
			ApplyAttrValue(v, sp.Attributes().PutEmpty(key))
		}
	}); err != nil {
		return out, err
	}

	if evRoot := rs[PayloadTypeSpanEvents]; evRoot != nil {
		evSchema := evRoot.Schema()
		evParentCol := mustU16(evSchema, evRoot, "parent_id")
		evTimeCol := mustI64(evSchema, evRoot, ColEventTimeUnixNano)
		evNameCol := stringColAccessor(evSchema, evRoot, ColEventName)
		evByID := map[uint32]ptrace.SpanEvent{}
		evIDCol := evRoot.Column(schemaFieldIndex(evSchema, ColID)).(*array.Uint32)

		for i := 0; i < int(evRoot.NumRows()); i++ {
			pID := evParentCol.Value(i)
			sp, ok := spanByID[pID]
			if !ok {
				continue
			}
			ev := sp.Events().AppendEmpty()
			ev.SetTimestamp(pcommon.Timestamp(evTimeCol.Value(i)))
			if evNameCol != nil {
				ev.SetName(evNameCol(i))
			}
			evByID[evIDCol.Value(i)] = ev
		}
		if err := ReadAttrs(rs[PayloadTypeSpanEventAttrs], func(parentID uint32, key string, v AttrValue) {
			if ev, ok := evByID[parentID]; ok {
				ApplyAttrValue(v, ev.Attributes().PutEmpty(key))
			}
		}); err != nil {
			return out, err
		}
	}

	if lkRoot := rs[PayloadTypeSpanLinks]; lkRoot != nil {
		lkSchema := lkRoot.Schema()
		lkParentCol := mustU16(lkSchema, lkRoot, "parent_id")
		lkTraceIDCol := binColAccessor(lkSchema, lkRoot, ColLinkTraceID)
		lkSpanIDCol := binColAccessor(lkSchema, lkRoot, ColLinkSpanID)
		lkTraceStateCol := stringColAccessor(lkSchema, lkRoot, ColLinkTraceState)
		lkByID := map[uint32]ptrace.SpanLink{}
		lkIDCol := lkRoot.Column(schemaFieldIndex(lkSchema, ColID)).(*array.Uint32)

		for i := 0; i < int(lkRoot.NumRows()); i++ {
			pID := lkParentCol.Value(i)
			sp, ok := spanByID[pID]
			if !ok {
				continue
			}
			lk := sp.Links().AppendEmpty()
			var ltid pcommon.TraceID
			copy(ltid[:], lkTraceIDCol(i))
			lk.SetTraceID(ltid)
			var lsid pcommon.SpanID
			copy(lsid[:], lkSpanIDCol(i))
			lk.SetSpanID(lsid)
			if lkTraceStateCol != nil {
				lk.TraceState().FromRaw(lkTraceStateCol(i))
			}
			lkByID[lkIDCol.Value(i)] = lk
		}
		if err := ReadAttrs(rs[PayloadTypeSpanLinkAttrs], func(parentID uint32, key string, v AttrValue) {
			if lk, ok := lkByID[parentID]; ok {
				ApplyAttrValue(v, lk.Attributes().PutEmpty(key))
			}
		}); err != nil {
			return out, err
		}
	}

	return out, nil
}

func schemaFieldIndex(schema *arrow.Schema, name string) int {
	idx := schema.FieldIndices(name)
	if len(idx) == 0 {
		return -1
	}
	return idx[0]
}
