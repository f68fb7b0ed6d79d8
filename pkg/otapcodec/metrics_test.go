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
	"go.opentelemetry.io/collector/pdata/pmetric"
)

// TestMetricsRoundTripMinimal is scenario S1 for the metrics extension
// (spec §9): a single Gauge metric with one int data point, everything
// else left at its default.
func TestMetricsRoundTripMinimal(t *testing.T) {
	md := pmetric.NewMetrics()
	rm := md.ResourceMetrics().AppendEmpty()
	sm := rm.ScopeMetrics().AppendEmpty()
	m := sm.Metrics().AppendEmpty()
	m.SetName("requests_total")
	dp := m.SetEmptyGauge().DataPoints().AppendEmpty()
	dp.SetIntValue(42)

	rs, err := EncodeMetrics(md)
	require.NoError(t, err)
	defer rs.Release()

	require.Contains(t, rs, PayloadTypeUnivariateMetrics)
	require.Contains(t, rs, PayloadTypeNumberDataPoints)
	assert.NotContains(t, rs, PayloadTypeResourceAttrs)
	assert.NotContains(t, rs, PayloadTypeScopeAttrs)
	assert.NotContains(t, rs, PayloadTypeNumberDpAttrs)

	rootSchema := rs[PayloadTypeUnivariateMetrics].Schema()
	assert.Empty(t, rootSchema.FieldIndices(ColMetricDescription))
	assert.Empty(t, rootSchema.FieldIndices(ColMetricUnit))

	out, err := DecodeMetrics(rs)
	require.NoError(t, err)
	require.Equal(t, 1, out.ResourceMetrics().Len())
	gotM := out.ResourceMetrics().At(0).ScopeMetrics().At(0).Metrics().At(0)
	assert.Equal(t, "requests_total", gotM.Name())
	require.Equal(t, pmetric.MetricTypeGauge, gotM.Type())
	gotDp := gotM.Gauge().DataPoints().At(0)
	assert.Equal(t, pmetric.NumberDataPointValueTypeInt, gotDp.ValueType())
	assert.Equal(t, int64(42), gotDp.IntValue())
}

// TestMetricsRoundTripMixedAttributes is scenario S2: a data point carrying
// one attribute of each AnyValue kind, exercising the same ser-column CBOR
// path as the logs/traces attribute tables.
func TestMetricsRoundTripMixedAttributes(t *testing.T) {
	md := pmetric.NewMetrics()
	rm := md.ResourceMetrics().AppendEmpty()
	sm := rm.ScopeMetrics().AppendEmpty()
	m := sm.Metrics().AppendEmpty()
	m.SetName("latency")
	dp := m.SetEmptyGauge().DataPoints().AppendEmpty()
	dp.SetDoubleValue(1.5)

	attrs := dp.Attributes()
	attrs.PutStr("k_str", "v")
	attrs.PutInt("k_int", -7)
	attrs.PutDouble("k_dbl", 3.14)
	attrs.PutBool("k_bool", true)
	attrs.PutEmptyBytes("k_bytes").FromRaw([]byte{0x01, 0x02})
	arr := attrs.PutEmptySlice("k_arr")
	arr.AppendEmpty().SetInt(1)
	arr.AppendEmpty().SetStr("a")
	mv := attrs.PutEmptyMap("k_map")
	mv.PutInt("nk", 1)

	rs, err := EncodeMetrics(md)
	require.NoError(t, err)
	defer rs.Release()

	require.Contains(t, rs, PayloadTypeNumberDpAttrs)
	types := attrTypesByKey(t, rs[PayloadTypeNumberDpAttrs])
	require.Len(t, types, 7)
	assert.Equal(t, AttrTypeSlice, types["k_arr"])
	assert.Equal(t, AttrTypeMap, types["k_map"])

	out, err := DecodeMetrics(rs)
	require.NoError(t, err)
	gotDp := out.ResourceMetrics().At(0).ScopeMetrics().At(0).Metrics().At(0).Gauge().DataPoints().At(0)
	gotAttrs := gotDp.Attributes()

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

// TestMetricsRoundTripDictionaryPromotion is scenario S3: enough distinct
// metric names within one batch to force the metric-name dictionary column
// past its 255-value promotion threshold (spec §4.2.1 step 5).
func TestMetricsRoundTripDictionaryPromotion(t *testing.T) {
	names := distinctStrings("metric", 300)
	md := pmetric.NewMetrics()
	rm := md.ResourceMetrics().AppendEmpty()
	sm := rm.ScopeMetrics().AppendEmpty()
	for _, name := range names {
		m := sm.Metrics().AppendEmpty()
		m.SetName(name)
		dp := m.SetEmptyGauge().DataPoints().AppendEmpty()
		dp.SetIntValue(1)
	}

	rs, err := EncodeMetrics(md)
	require.NoError(t, err)
	defer rs.Release()

	schema := rs[PayloadTypeUnivariateMetrics].Schema()
	assert.Equal(t, 16, dictionaryIndexWidth(t, schema, ColMetricName))

	out, err := DecodeMetrics(rs)
	require.NoError(t, err)
	metrics := out.ResourceMetrics().At(0).ScopeMetrics().At(0).Metrics()
	require.Equal(t, len(names), metrics.Len())
	assert.Equal(t, names[0], metrics.At(0).Name())
	assert.Equal(t, names[299], metrics.At(299).Name())
}
