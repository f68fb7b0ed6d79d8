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
	"go.opentelemetry.io/collector/pdata/plog"
)

// TestLogsRoundTripMinimal is scenario S1: a single resource/scope/record
// with everything else left at its default, OTLP -> OTAP -> OTLP. No
// attribute batch should be produced for any of the three attribute-bearing
// levels, and every all-default optional column must be omitted from the
// root batch (spec §4.2.1 step 2, §4.2.2 "missing columns mean defaults").
func TestLogsRoundTripMinimal(t *testing.T) {
	ld := plog.NewLogs()
	rl := ld.ResourceLogs().AppendEmpty()
	sl := rl.ScopeLogs().AppendEmpty()
	lr := sl.LogRecords().AppendEmpty()
	lr.Body().SetStr("hello")

	rs, err := EncodeLogs(ld)
	require.NoError(t, err)
	defer rs.Release()

	require.Contains(t, rs, PayloadTypeLogs)
	assert.NotContains(t, rs, PayloadTypeResourceAttrs)
	assert.NotContains(t, rs, PayloadTypeScopeAttrs)
	assert.NotContains(t, rs, PayloadTypeLogAttrs)

	schema := rs[PayloadTypeLogs].Schema()
	assert.Empty(t, schema.FieldIndices(ColSeverityNumber), "all-zero severity_number must be omitted")
	assert.Empty(t, schema.FieldIndices(ColSeverityText), "empty severity_text must be omitted")
	assert.Empty(t, schema.FieldIndices(ColResourceSchemaURL), "empty resource schema_url must be omitted")
	assert.Empty(t, schema.FieldIndices(ColTraceID), "absent trace_id must be omitted")
	assert.Empty(t, schema.FieldIndices(ColSpanID), "absent span_id must be omitted")

	out, err := DecodeLogs(rs)
	require.NoError(t, err)
	require.Equal(t, 1, out.ResourceLogs().Len())
	require.Equal(t, 1, out.ResourceLogs().At(0).ScopeLogs().Len())
	gotLr := out.ResourceLogs().At(0).ScopeLogs().At(0).LogRecords().At(0)
	assert.Equal(t, "hello", gotLr.Body().Str())
	assert.Equal(t, plog.SeverityNumberUnspecified, gotLr.SeverityNumber())
	assert.Equal(t, "", gotLr.SeverityText())
}

// TestLogsRoundTripMixedAttributes is scenario S2: one LogRecord carrying
// one attribute of each AnyValue kind, including Map and Slice values whose
// round-trip exercises the ser column's CBOR codec end to end (spec
// §4.2.1 step 3).
func TestLogsRoundTripMixedAttributes(t *testing.T) {
	ld := plog.NewLogs()
	rl := ld.ResourceLogs().AppendEmpty()
	sl := rl.ScopeLogs().AppendEmpty()
	lr := sl.LogRecords().AppendEmpty()
	lr.Body().SetStr("hello")

	attrs := lr.Attributes()
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

	rs, err := EncodeLogs(ld)
	require.NoError(t, err)
	defer rs.Release()

	require.Contains(t, rs, PayloadTypeLogAttrs)
	types := attrTypesByKey(t, rs[PayloadTypeLogAttrs])
	require.Len(t, types, 7)
	assert.Equal(t, AttrTypeStr, types["k_str"])
	assert.Equal(t, AttrTypeInt, types["k_int"])
	assert.Equal(t, AttrTypeDouble, types["k_dbl"])
	assert.Equal(t, AttrTypeBool, types["k_bool"])
	assert.Equal(t, AttrTypeBytes, types["k_bytes"])
	assert.Equal(t, AttrTypeSlice, types["k_arr"])
	assert.Equal(t, AttrTypeMap, types["k_map"])

	out, err := DecodeLogs(rs)
	require.NoError(t, err)
	gotAttrs := out.ResourceLogs().At(0).ScopeLogs().At(0).LogRecords().At(0).Attributes()

	v, ok := gotAttrs.Get("k_str")
	require.True(t, ok)
	assert.Equal(t, "v", v.Str())

	v, ok = gotAttrs.Get("k_int")
	require.True(t, ok)
	assert.Equal(t, int64(-7), v.Int())

	v, ok = gotAttrs.Get("k_dbl")
	require.True(t, ok)
	assert.InDelta(t, 3.14, v.Double(), 1e-9)

	v, ok = gotAttrs.Get("k_bool")
	require.True(t, ok)
	assert.True(t, v.Bool())

	v, ok = gotAttrs.Get("k_bytes")
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x02}, v.Bytes().AsRaw())

	// The non-negative integer inside a Slice value must round-trip as the
	// same int64 it was written as, not silently drop to ValueTypeEmpty.
	v, ok = gotAttrs.Get("k_arr")
	require.True(t, ok)
	s := v.Slice()
	require.Equal(t, 2, s.Len())
	assert.Equal(t, int64(1), s.At(0).Int())
	assert.Equal(t, "a", s.At(1).Str())

	// Same for a non-negative integer nested inside a Map value.
	v, ok = gotAttrs.Get("k_map")
	require.True(t, ok)
	nk, ok := v.Map().Get("nk")
	require.True(t, ok)
	assert.Equal(t, int64(1), nk.Int())
}

// TestLogsRoundTripDictionaryPromotion is scenario S3: enough distinct
// severity_text values within one batch to force the adaptive dictionary
// builder through both transitions (spec §4.2.1 step 5) — promotion from
// Dictionary<u8,Utf8> to Dictionary<u16,Utf8> past 255 distinct values, and
// demotion to a native Utf8 column past 65535.
func TestLogsRoundTripDictionaryPromotion(t *testing.T) {
	t.Run("promotes past 255 distinct values", func(t *testing.T) {
		values := distinctStrings("sev", 300)
		ld := plog.NewLogs()
		rl := ld.ResourceLogs().AppendEmpty()
		sl := rl.ScopeLogs().AppendEmpty()
		for _, v := range values {
			lr := sl.LogRecords().AppendEmpty()
			lr.SetSeverityText(v)
		}

		rs, err := EncodeLogs(ld)
		require.NoError(t, err)
		defer rs.Release()

		schema := rs[PayloadTypeLogs].Schema()
		assert.Equal(t, 16, dictionaryIndexWidth(t, schema, ColSeverityText))

		out, err := DecodeLogs(rs)
		require.NoError(t, err)
		records := out.ResourceLogs().At(0).ScopeLogs().At(0).LogRecords()
		require.Equal(t, len(values), records.Len())
		assert.Equal(t, values[0], records.At(0).SeverityText())
		assert.Equal(t, values[150], records.At(150).SeverityText())
		assert.Equal(t, values[299], records.At(299).SeverityText())
	})

	t.Run("demotes to native past 65535 distinct values", func(t *testing.T) {
		values := distinctStrings("sev", 70000)
		ld := plog.NewLogs()
		rl := ld.ResourceLogs().AppendEmpty()
		sl := rl.ScopeLogs().AppendEmpty()
		for _, v := range values {
			lr := sl.LogRecords().AppendEmpty()
			lr.SetSeverityText(v)
		}

		rs, err := EncodeLogs(ld)
		require.NoError(t, err)
		defer rs.Release()

		schema := rs[PayloadTypeLogs].Schema()
		assert.Equal(t, 0, dictionaryIndexWidth(t, schema, ColSeverityText), "must demote to native Utf8")

		out, err := DecodeLogs(rs)
		require.NoError(t, err)
		records := out.ResourceLogs().At(0).ScopeLogs().At(0).LogRecords()
		require.Equal(t, len(values), records.Len())
		assert.Equal(t, values[0], records.At(0).SeverityText())
		assert.Equal(t, values[35000], records.At(35000).SeverityText())
		assert.Equal(t, values[69999], records.At(69999).SeverityText())
	})
}
