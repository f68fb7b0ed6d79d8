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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/ptrace"
)

func traceID(b byte) pcommon.TraceID {
	var id pcommon.TraceID
	for i := range id {
		id[i] = b
	}
	return id
}

func spanID(b byte) pcommon.SpanID {
	var id pcommon.SpanID
	for i := range id {
		id[i] = b
	}
	return id
}

// newTestTraces builds a single resource/scope/span, the seed every
// traces test in this file starts from: a root span with its required
// trace/span ids and a name, no parent span id, no attributes.
func newTestTraces() ptrace.Traces {
	td := ptrace.NewTraces()
	rs := td.ResourceSpans().AppendEmpty()
	ss := rs.ScopeSpans().AppendEmpty()
	sp := ss.Spans().AppendEmpty()
	sp.SetName("root-span")
	sp.SetTraceID(traceID(0xAA))
	sp.SetSpanID(spanID(0xBB))
	return td
}

// TestTracesRoundTripMinimal is scenario S1 for the traces extension (spec
// §9): a single span with its required trace/span ids and name, no parent
// span id and no events or links.
func TestTracesRoundTripMinimal(t *testing.T) {
	td := newTestTraces()
	rs, err := EncodeTraces(td)
	require.NoError(t, err)
	defer rs.Release()

	require.Contains(t, rs, PayloadTypeSpans)
	assert.NotContains(t, rs, PayloadTypeSpanAttrs)
	assert.NotContains(t, rs, PayloadTypeSpanEvents)
	assert.NotContains(t, rs, PayloadTypeSpanLinks)

	schema := rs[PayloadTypeSpans].Schema()
	assert.Empty(t, schema.FieldIndices(ColParentSpanID), "absent parent_span_id must be omitted")

	out, err := DecodeTraces(rs)
	require.NoError(t, err)
	require.Equal(t, 1, out.ResourceSpans().Len())
	sp := out.ResourceSpans().At(0).ScopeSpans().At(0).Spans().At(0)
	assert.Equal(t, "root-span", sp.Name())
	assert.Equal(t, traceID(0xAA), sp.TraceID())
	assert.Equal(t, spanID(0xBB), sp.SpanID())
}

// TestTracesRoundTripMixedAttributes is scenario S2: a span carrying one
// attribute of each AnyValue kind.
func TestTracesRoundTripMixedAttributes(t *testing.T) {
	td := newTestTraces()
	sp := td.ResourceSpans().At(0).ScopeSpans().At(0).Spans().At(0)

	attrs := sp.Attributes()
	attrs.PutStr("k_str", "v")
	attrs.PutInt("k_int", -7)
	attrs.PutDouble("k_dbl", 3.14)
	attrs.PutBool("k_bool", true)
	attrs.PutEmptyBytes("k_bytes").FromRaw([]byte{0x01, 0x02})
	arr := attrs.PutEmptySlice("k_arr")
	arr.AppendEmpty().SetInt(1)
	arr.AppendEmpty().SetStr("a")
	m := attrs.PutEmptyMap("k_map")
	m.PutInt("nk", 1)

	rs, err := EncodeTraces(td)
	require.NoError(t, err)
	defer rs.Release()

	require.Contains(t, rs, PayloadTypeSpanAttrs)
	types := attrTypesByKey(t, rs[PayloadTypeSpanAttrs])
	require.Len(t, types, 7)
	assert.Equal(t, AttrTypeSlice, types["k_arr"])
	assert.Equal(t, AttrTypeMap, types["k_map"])

	out, err := DecodeTraces(rs)
	require.NoError(t, err)
	gotAttrs := out.ResourceSpans().At(0).ScopeSpans().At(0).Spans().At(0).Attributes()

	v, ok := gotAttrs.Get("k_arr")
	require.True(t, ok)
	s := v.Slice()
	require.Equal(t, 2, s.Len())
	assert.Equal(t, int64(1), s.At(0).Int())

	v, ok = gotAttrs.Get("k_map")
	require.True(t, ok)
	nk, ok := v.Map().Get("nk")
	require.True(t, ok)
	assert.Equal(t, int64(1), nk.Int())
}

// TestTracesRoundTripDictionaryPromotion is scenario S3: enough distinct
// span names within one batch to force the span-name dictionary column
// past its 255-value promotion threshold (spec §4.2.1 step 5).
func TestTracesRoundTripDictionaryPromotion(t *testing.T) {
	names := distinctStrings("span", 300)
	td := ptrace.NewTraces()
	rs0 := td.ResourceSpans().AppendEmpty()
	ss := rs0.ScopeSpans().AppendEmpty()
	for i, name := range names {
		sp := ss.Spans().AppendEmpty()
		sp.SetName(name)
		sp.SetTraceID(traceID(byte(i % 256)))
		sp.SetSpanID(spanID(byte(i % 256)))
	}

	rs, err := EncodeTraces(td)
	require.NoError(t, err)
	defer rs.Release()

	schema := rs[PayloadTypeSpans].Schema()
	assert.Equal(t, 16, dictionaryIndexWidth(t, schema, ColSpanName))

	out, err := DecodeTraces(rs)
	require.NoError(t, err)
	spans := out.ResourceSpans().At(0).ScopeSpans().At(0).Spans()
	require.Equal(t, len(names), spans.Len())
	assert.Equal(t, names[0], spans.At(0).Name())
	assert.Equal(t, names[299], spans.At(299).Name())
}
