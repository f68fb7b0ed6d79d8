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
	"go.opentelemetry.io/collector/pdata/pmetric"

	"github.com/open-telemetry/otap-dataflow-go/pkg/otapcodec/builder"
)

// Root-batch column names for the UnivariateMetrics payload type.
const (
	ColMetricName        = "name"
	ColMetricDescription = "description"
	ColMetricUnit        = "unit"
	ColMetricType        = "type"

	ColDpTimeUnixNano = "time_unix_nano"
	ColDpValueType    = "value_type"
	ColDpValueInt     = "value_int"
	ColDpValueDouble  = "value_double"
	ColDpFlags        = "flags"

	ColDpCount          = "count"
	ColDpSum            = "sum"
	ColDpMin            = "min"
	ColDpMax            = "max"
	ColDpBucketCounts   = "bucket_counts"
	ColDpExplicitBounds = "explicit_bounds"

	ColDpScale             = "scale"
	ColDpZeroCount         = "zero_count"
	ColDpPositiveOffset    = "positive_offset"
	ColDpPositiveBuckets   = "positive_bucket_counts"
	ColDpNegativeOffset    = "negative_offset"
	ColDpNegativeBuckets   = "negative_bucket_counts"
	ColDpQuantiles         = "quantiles"
	ColDpQuantileValues    = "quantile_values"
)

// MetricDataType mirrors pmetric.MetricType for the subset this codec
// encodes (spec §9 metrics extension).
type MetricDataType uint8

const (
	MetricTypeGauge MetricDataType = iota
	MetricTypeSum
	MetricTypeHistogram
	MetricTypeExponentialHistogram
	MetricTypeSummary
)

// pointTables accumulates the per-metric-type derivative tables built
// alongside the UnivariateMetrics root during EncodeMetrics. Each family
// (number/histogram/exponential-histogram/summary) has its own id
// allocator so one metric type overflowing 32 bits of row count can never
// collide with another's.
type pointTables struct {
	mem memory.Allocator

	numID, numParent           *builder.Uint32 // numParent actually uint16 width; kept separate below
	numParentU16               *builder.Uint16
	numTime                    *builder.Int64
	numValType                 *array.Uint8Builder
	numValInt                  *builder.Int64
	numValDouble               *builder.Float64
	numFlags                   *builder.Uint32
	numAttrs                   *AttrAccumulator
	numCount                   uint32

	histID, histParent *builder.Uint32
	histParentU16      *builder.Uint16
	histTime           *builder.Int64
	histCount          *builder.Uint64
	histSum            *builder.Float64
	histMin, histMax   *builder.Float64
	histBuckets        *builder.Uint64List
	histBounds         *builder.Float64List
	histFlags          *builder.Uint32
	histAttrs          *AttrAccumulator
	histCounter        uint32

	expID, expParent      *builder.Uint32
	expParentU16          *builder.Uint16
	expTime               *builder.Int64
	expCount              *builder.Uint64
	expSum                *builder.Float64
	expMin, expMax        *builder.Float64
	expScale              *builder.Int64
	expZeroCount          *builder.Uint64
	expPosOffset          *builder.Int64
	expPosBuckets         *builder.Uint64List
	expNegOffset          *builder.Int64
	expNegBuckets         *builder.Uint64List
	expFlags              *builder.Uint32
	expAttrs              *AttrAccumulator
	expCounter            uint32

	sumID, sumParent  *builder.Uint32
	sumParentU16      *builder.Uint16
	sumTime           *builder.Int64
	sumCount          *builder.Uint64
	sumSum            *builder.Float64
	sumQuantiles      *builder.Float64List
	sumQuantileValues *builder.Float64List
	sumFlags          *builder.Uint32
	sumAttrs          *AttrAccumulator
	sumCounter        uint32
}

func newPointTables(mem memory.Allocator) *pointTables {
	return &pointTables{
		mem: mem,

		numParentU16: builder.NewUint16(mem, false),
		numTime:      builder.NewInt64(mem, false),
		numValType:   array.NewUint8Builder(mem),
		numValInt:    builder.NewInt64(mem, true),
		numValDouble: builder.NewFloat64(mem, true),
		numFlags:     builder.NewUint32(mem, true),
		numAttrs:     NewAttrAccumulator(32),

		histParentU16: builder.NewUint16(mem, false),
		histTime:      builder.NewInt64(mem, false),
		histCount:     builder.NewUint64(mem, false),
		histSum:       builder.NewFloat64(mem, true),
		histMin:       builder.NewFloat64(mem, true),
		histMax:       builder.NewFloat64(mem, true),
		histBuckets:   builder.NewUint64List(mem, true),
		histBounds:    builder.NewFloat64List(mem, true),
		histFlags:     builder.NewUint32(mem, true),
		histAttrs:     NewAttrAccumulator(32),

		expParentU16:  builder.NewUint16(mem, false),
		expTime:       builder.NewInt64(mem, false),
		expCount:      builder.NewUint64(mem, false),
		expSum:        builder.NewFloat64(mem, true),
		expMin:        builder.NewFloat64(mem, true),
		expMax:        builder.NewFloat64(mem, true),
		expScale:      builder.NewInt64(mem, false),
		expZeroCount:  builder.NewUint64(mem, false),
		expPosOffset:  builder.NewInt64(mem, true),
		expPosBuckets: builder.NewUint64List(mem, true),
		expNegOffset:  builder.NewInt64(mem, true),
		expNegBuckets: builder.NewUint64List(mem, true),
		expFlags:      builder.NewUint32(mem, true),
		expAttrs:      NewAttrAccumulator(32),

		sumParentU16:      builder.NewUint16(mem, false),
		sumTime:           builder.NewInt64(mem, false),
		sumCount:          builder.NewUint64(mem, false),
		sumSum:            builder.NewFloat64(mem, true),
		sumQuantiles:      builder.NewFloat64List(mem, true),
		sumQuantileValues: builder.NewFloat64List(mem, true),
		sumFlags:          builder.NewUint32(mem, true),
		sumAttrs:          NewAttrAccumulator(32),
	}
}

func (t *pointTables) appendNumber(parentID uint16, dp pmetric.NumberDataPoint) {
	id := t.numCount
	t.numCount++
	if t.numID == nil {
		t.numID = builder.NewUint32(t.mem, false)
	}
	t.numID.Append(id)
	t.numParentU16.Append(parentID)
	t.numTime.Append(int64(dp.Timestamp()))
	switch dp.ValueType() {
	case pmetric.NumberDataPointValueTypeInt:
		t.numValType.Append(uint8(AttrTypeInt))
		t.numValInt.Append(dp.IntValue())
		t.numValDouble.AppendNull()
	case pmetric.NumberDataPointValueTypeDouble:
		t.numValType.Append(uint8(AttrTypeDouble))
		t.numValInt.AppendNull()
		t.numValDouble.Append(dp.DoubleValue())
	default:
		t.numValType.Append(uint8(AttrTypeEmpty))
		t.numValInt.AppendNull()
		t.numValDouble.AppendNull()
	}
	appendOptU32(t.numFlags, uint32(dp.Flags()))
	dp.Attributes().Range(func(k string, v pcommon.Value) bool {
		_ = t.numAttrs.Append(id, k, v)
		return true
	})
}

func (t *pointTables) appendHistogram(parentID uint16, dp pmetric.HistogramDataPoint) {
	id := t.histCounter
	t.histCounter++
	if t.histID == nil {
		t.histID = builder.NewUint32(t.mem, false)
	}
	t.histID.Append(id)
	t.histParentU16.Append(parentID)
	t.histTime.Append(int64(dp.Timestamp()))
	t.histCount.Append(dp.Count())
	if dp.HasSum() {
		t.histSum.Append(dp.Sum())
	} else {
		t.histSum.AppendNull()
	}
	if dp.HasMin() {
		t.histMin.Append(dp.Min())
	} else {
		t.histMin.AppendNull()
	}
	if dp.HasMax() {
		t.histMax.Append(dp.Max())
	} else {
		t.histMax.AppendNull()
	}
	if bc := dp.BucketCounts(); bc.Len() > 0 {
		t.histBuckets.Append(bc.AsRaw())
	} else {
		t.histBuckets.AppendNull()
	}
	if eb := dp.ExplicitBounds(); eb.Len() > 0 {
		t.histBounds.Append(eb.AsRaw())
	} else {
		t.histBounds.AppendNull()
	}
	appendOptU32(t.histFlags, uint32(dp.Flags()))
	dp.Attributes().Range(func(k string, v pcommon.Value) bool {
		_ = t.histAttrs.Append(id, k, v)
		return true
	})
}

func (t *pointTables) appendExpHistogram(parentID uint16, dp pmetric.ExponentialHistogramDataPoint) {
	id := t.expCounter
	t.expCounter++
	if t.expID == nil {
		t.expID = builder.NewUint32(t.mem, false)
	}
	t.expID.Append(id)
	t.expParentU16.Append(parentID)
	t.expTime.Append(int64(dp.Timestamp()))
	t.expCount.Append(dp.Count())
	if dp.HasSum() {
		t.expSum.Append(dp.Sum())
	} else {
		t.expSum.AppendNull()
	}
	if dp.HasMin() {
		t.expMin.Append(dp.Min())
	} else {
		t.expMin.AppendNull()
	}
	if dp.HasMax() {
		t.expMax.Append(dp.Max())
	} else {
		t.expMax.AppendNull()
	}
	t.expScale.Append(int64(dp.Scale()))
	t.expZeroCount.Append(dp.ZeroCount())

	pos := dp.Positive()
	t.expPosOffset.Append(int64(pos.Offset()))
	if bc := pos.BucketCounts(); bc.Len() > 0 {
		t.expPosBuckets.Append(bc.AsRaw())
	} else {
		t.expPosBuckets.AppendNull()
	}
	neg := dp.Negative()
	t.expNegOffset.Append(int64(neg.Offset()))
	if bc := neg.BucketCounts(); bc.Len() > 0 {
		t.expNegBuckets.Append(bc.AsRaw())
	} else {
		t.expNegBuckets.AppendNull()
	}

	appendOptU32(t.expFlags, uint32(dp.Flags()))
	dp.Attributes().Range(func(k string, v pcommon.Value) bool {
		_ = t.expAttrs.Append(id, k, v)
		return true
	})
}

func (t *pointTables) appendSummary(parentID uint16, dp pmetric.SummaryDataPoint) {
	id := t.sumCounter
	t.sumCounter++
	if t.sumID == nil {
		t.sumID = builder.NewUint32(t.mem, false)
	}
	t.sumID.Append(id)
	t.sumParentU16.Append(parentID)
	t.sumTime.Append(int64(dp.Timestamp()))
	t.sumCount.Append(dp.Count())
	t.sumSum.Append(dp.Sum())

	qv := dp.QuantileValues()
	if qv.Len() > 0 {
		quantiles := make([]float64, qv.Len())
		values := make([]float64, qv.Len())
		for i := 0; i < qv.Len(); i++ {
			quantiles[i] = qv.At(i).Quantile()
			values[i] = qv.At(i).Value()
		}
		t.sumQuantiles.Append(quantiles)
		t.sumQuantileValues.Append(values)
	} else {
		t.sumQuantiles.AppendNull()
		t.sumQuantileValues.AppendNull()
	}
	appendOptU32(t.sumFlags, uint32(dp.Flags()))
	dp.Attributes().Range(func(k string, v pcommon.Value) bool {
		_ = t.sumAttrs.Append(id, k, v)
		return true
	})
}

// build finalizes every non-empty derivative table into rs.
func (t *pointTables) build(rs RecordSet) error {
	if t.numID != nil {
		fields := []arrow.Field{
			{Name: ColID, Type: arrow.PrimitiveTypes.Uint32},
			{Name: "parent_id", Type: arrow.PrimitiveTypes.Uint16},
			{Name: ColDpTimeUnixNano, Type: arrow.PrimitiveTypes.Int64},
			{Name: ColDpValueType, Type: arrow.PrimitiveTypes.Uint8},
		}
		idArr, _ := t.numID.Finish()
		parentArr, _ := t.numParentU16.Finish()
		timeArr, _ := t.numTime.Finish()
		cols := []arrow.Array{idArr, parentArr, timeArr, t.numValType.NewArray()}
		appendOptionalNum(&fields, &cols, ColDpValueInt, arrow.PrimitiveTypes.Int64, t.numValInt)
		appendOptionalNum(&fields, &cols, ColDpValueDouble, arrow.PrimitiveTypes.Float64, t.numValDouble)
		appendOptionalNum(&fields, &cols, ColDpFlags, arrow.PrimitiveTypes.Uint32, t.numFlags)
		rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, int64(t.numCount))
		rs[PayloadTypeNumberDataPoints] = rec
		if attrRec, err := t.numAttrs.Build(t.mem); err != nil {
			return err
		} else if attrRec != nil {
			rs[PayloadTypeNumberDpAttrs] = attrRec
		}
	}

	if t.histID != nil {
		fields := []arrow.Field{
			{Name: ColID, Type: arrow.PrimitiveTypes.Uint32},
			{Name: "parent_id", Type: arrow.PrimitiveTypes.Uint16},
			{Name: ColDpTimeUnixNano, Type: arrow.PrimitiveTypes.Int64},
			{Name: ColDpCount, Type: arrow.PrimitiveTypes.Uint64},
		}
		idArr, _ := t.histID.Finish()
		parentArr, _ := t.histParentU16.Finish()
		timeArr, _ := t.histTime.Finish()
		countArr, _ := t.histCount.Finish()
		cols := []arrow.Array{idArr, parentArr, timeArr, countArr}
		appendOptionalNum(&fields, &cols, ColDpSum, arrow.PrimitiveTypes.Float64, t.histSum)
		appendOptionalNum(&fields, &cols, ColDpMin, arrow.PrimitiveTypes.Float64, t.histMin)
		appendOptionalNum(&fields, &cols, ColDpMax, arrow.PrimitiveTypes.Float64, t.histMax)
		appendOptionalNum(&fields, &cols, ColDpBucketCounts, arrow.ListOf(arrow.PrimitiveTypes.Uint64), t.histBuckets)
		appendOptionalNum(&fields, &cols, ColDpExplicitBounds, arrow.ListOf(arrow.PrimitiveTypes.Float64), t.histBounds)
		appendOptionalNum(&fields, &cols, ColDpFlags, arrow.PrimitiveTypes.Uint32, t.histFlags)
		rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, int64(t.histCounter))
		rs[PayloadTypeHistogramDataPoints] = rec
		if attrRec, err := t.histAttrs.Build(t.mem); err != nil {
			return err
		} else if attrRec != nil {
			rs[PayloadTypeHistogramDpAttrs] = attrRec
		}
	}

	if t.expID != nil {
		fields := []arrow.Field{
			{Name: ColID, Type: arrow.PrimitiveTypes.Uint32},
			{Name: "parent_id", Type: arrow.PrimitiveTypes.Uint16},
			{Name: ColDpTimeUnixNano, Type: arrow.PrimitiveTypes.Int64},
			{Name: ColDpCount, Type: arrow.PrimitiveTypes.Uint64},
			{Name: ColDpScale, Type: arrow.PrimitiveTypes.Int64},
			{Name: ColDpZeroCount, Type: arrow.PrimitiveTypes.Uint64},
		}
		idArr, _ := t.expID.Finish()
		parentArr, _ := t.expParentU16.Finish()
		timeArr, _ := t.expTime.Finish()
		countArr, _ := t.expCount.Finish()
		scaleArr, _ := t.expScale.Finish()
		zeroArr, _ := t.expZeroCount.Finish()
		cols := []arrow.Array{idArr, parentArr, timeArr, countArr, scaleArr, zeroArr}
		appendOptionalNum(&fields, &cols, ColDpSum, arrow.PrimitiveTypes.Float64, t.expSum)
		appendOptionalNum(&fields, &cols, ColDpMin, arrow.PrimitiveTypes.Float64, t.expMin)
		appendOptionalNum(&fields, &cols, ColDpMax, arrow.PrimitiveTypes.Float64, t.expMax)
		appendOptionalNum(&fields, &cols, ColDpPositiveOffset, arrow.PrimitiveTypes.Int64, t.expPosOffset)
		appendOptionalNum(&fields, &cols, ColDpPositiveBuckets, arrow.ListOf(arrow.PrimitiveTypes.Uint64), t.expPosBuckets)
		appendOptionalNum(&fields, &cols, ColDpNegativeOffset, arrow.PrimitiveTypes.Int64, t.expNegOffset)
		appendOptionalNum(&fields, &cols, ColDpNegativeBuckets, arrow.ListOf(arrow.PrimitiveTypes.Uint64), t.expNegBuckets)
		appendOptionalNum(&fields, &cols, ColDpFlags, arrow.PrimitiveTypes.Uint32, t.expFlags)
		rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, int64(t.expCounter))
		rs[PayloadTypeExpHistogramDataPoints] = rec
		if attrRec, err := t.expAttrs.Build(t.mem); err != nil {
			return err
		} else if attrRec != nil {
			rs[PayloadTypeExpHistogramDpAttrs] = attrRec
		}
	}

	if t.sumID != nil {
		fields := []arrow.Field{
			{Name: ColID, Type: arrow.PrimitiveTypes.Uint32},
			{Name: "parent_id", Type: arrow.PrimitiveTypes.Uint16},
			{Name: ColDpTimeUnixNano, Type: arrow.PrimitiveTypes.Int64},
			{Name: ColDpCount, Type: arrow.PrimitiveTypes.Uint64},
			{Name: ColDpSum, Type: arrow.PrimitiveTypes.Float64},
		}
		idArr, _ := t.sumID.Finish()
		parentArr, _ := t.sumParentU16.Finish()
		timeArr, _ := t.sumTime.Finish()
		countArr, _ := t.sumCount.Finish()
		sumArr, _ := t.sumSum.Finish()
		cols := []arrow.Array{idArr, parentArr, timeArr, countArr, sumArr}
		appendOptionalNum(&fields, &cols, ColDpQuantiles, arrow.ListOf(arrow.PrimitiveTypes.Float64), t.sumQuantiles)
		appendOptionalNum(&fields, &cols, ColDpQuantileValues, arrow.ListOf(arrow.PrimitiveTypes.Float64), t.sumQuantileValues)
		appendOptionalNum(&fields, &cols, ColDpFlags, arrow.PrimitiveTypes.Uint32, t.sumFlags)
		rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, int64(t.sumCounter))
		rs[PayloadTypeSummaryDataPoints] = rec
		if attrRec, err := t.sumAttrs.Build(t.mem); err != nil {
			return err
		} else if attrRec != nil {
			rs[PayloadTypeSummaryDpAttrs] = attrRec
		}
	}

	return nil
}

// EncodeMetrics converts md into a record set keyed by
// PayloadTypeUnivariateMetrics (root, one row per metric definition) plus
// one derivative data-point table per metric type actually present
// (NumberDataPoints for Gauge/Sum, HistogramDataPoints,Exponential
// HistogramDataPoints, SummaryDataPoints), each with its own attribute
// table.
func EncodeMetrics(md pmetric.Metrics) (RecordSet, error) {
	mem := memory.DefaultAllocator

	id := builder.NewUint16(mem, false)
	resID := builder.NewUint16(mem, false)
	scopeID := builder.NewUint16(mem, false)
	resSchemaURL := builder.NewDictionaryString(mem, true)
	scopeSchemaURL := builder.NewDictionaryString(mem, true)
	scopeName := builder.NewDictionaryString(mem, true)
	scopeVersion := builder.NewDictionaryString(mem, true)

	name := builder.NewDictionaryString(mem, false)
	description := builder.NewDictionaryString(mem, true)
	unit := builder.NewDictionaryString(mem, true)
	typ := array.NewUint8Builder(mem)

	resAttrs := NewAttrAccumulator(16)
	scopeAttrs := NewAttrAccumulator(16)

	points := newPointTables(mem)

	var rowIdx, scopeCounter uint16

	for ri := 0; ri < md.ResourceMetrics().Len(); ri++ {
		rm := md.ResourceMetrics().At(ri)
		thisResID := uint16(ri)
		res := rm.Resource()
		res.Attributes().Range(func(k string, v pcommon.Value) bool {
			_ = resAttrs.Append(uint32(thisResID), k, v)
			return true
		})

		for si := 0; si < rm.ScopeMetrics().Len(); si++ {
			sm := rm.ScopeMetrics().At(si)
			thisScopeID := scopeCounter
			scopeCounter++
			sc := sm.Scope()
			sc.Attributes().Range(func(k string, v pcommon.Value) bool {
				_ = scopeAttrs.Append(uint32(thisScopeID), k, v)
				return true
			})

			for mi := 0; mi < sm.Metrics().Len(); mi++ {
				m := sm.Metrics().At(mi)
				thisID := rowIdx
				rowIdx++

				id.Append(thisID)
				resID.Append(thisResID)
				scopeID.Append(thisScopeID)
				appendOptStr(resSchemaURL, rm.SchemaUrl())
				appendOptStr(scopeSchemaURL, sm.SchemaUrl())
				appendOptStr(scopeName, sc.Name())
				appendOptStr(scopeVersion, sc.Version())

				_ = name.Append(m.Name())
				appendOptStr(description, m.Description())
				appendOptStr(unit, m.Unit())

				switch m.Type() {
				case pmetric.MetricTypeGauge:
					typ.Append(uint8(MetricTypeGauge))
					g := m.Gauge().DataPoints()
					for pi := 0; pi < g.Len(); pi++ {
						points.appendNumber(thisID, g.At(pi))
					}
				case pmetric.MetricTypeSum:
					typ.Append(uint8(MetricTypeSum))
					s := m.Sum().DataPoints()
					for pi := 0; pi < s.Len(); pi++ {
						points.appendNumber(thisID, s.At(pi))
					}
				case pmetric.MetricTypeHistogram:
					typ.Append(uint8(MetricTypeHistogram))
					h := m.Histogram().DataPoints()
					for pi := 0; pi < h.Len(); pi++ {
						points.appendHistogram(thisID, h.At(pi))
					}
				case pmetric.MetricTypeExponentialHistogram:
					typ.Append(uint8(MetricTypeExponentialHistogram))
					h := m.ExponentialHistogram().DataPoints()
					for pi := 0; pi < h.Len(); pi++ {
						points.appendExpHistogram(thisID, h.At(pi))
					}
				case pmetric.MetricTypeSummary:
					typ.Append(uint8(MetricTypeSummary))
					s := m.Summary().DataPoints()
					for pi := 0; pi < s.Len(); pi++ {
						points.appendSummary(thisID, s.At(pi))
					}
				default:
					typ.Append(uint8(MetricTypeGauge))
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

	nameArr, _ := name.Finish()
	fields = append(fields, arrow.Field{Name: ColMetricName, Type: nameArr.DataType()})
	cols = append(cols, nameArr)
	appendOptional(&fields, &cols, ColMetricDescription, description)
	appendOptional(&fields, &cols, ColMetricUnit, unit)

	fields = append(fields, arrow.Field{Name: ColMetricType, Type: arrow.PrimitiveTypes.Uint8})
	cols = append(cols, typ.NewArray())

	schema := arrow.NewSchema(fields, nil)
	root := array.NewRecord(schema, cols, int64(rowIdx))

	rs := RecordSet{PayloadTypeUnivariateMetrics: root}
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

	if err := points.build(rs); err != nil {
		return nil, err
	}

	return rs, nil
}

// DecodeMetrics reconstructs a pmetric.Metrics from a record set produced
// by EncodeMetrics.
func DecodeMetrics(rs RecordSet) (pmetric.Metrics, error) {
	out := pmetric.NewMetrics()
	root := rs[PayloadTypeUnivariateMetrics]
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

	idCol := mustU16(schema, root, ColID)
	nameCol := stringColAccessor(schema, root, ColMetricName)
	descCol := stringColAccessor(schema, root, ColMetricDescription)
	unitCol := stringColAccessor(schema, root, ColMetricUnit)
	typeCol := root.Column(schemaFieldIndex(schema, ColMetricType)).(*array.Uint8)

	resByID := map[uint16]pmetric.ResourceMetrics{}
	scopeByID := map[uint16]pmetric.ScopeMetrics{}
	gaugeByID := map[uint16]pmetric.Gauge{}
	sumByID := map[uint16]pmetric.Sum{}
	histByID := map[uint16]pmetric.Histogram{}
	expHistByID := map[uint16]pmetric.ExponentialHistogram{}
	summaryByID := map[uint16]pmetric.Summary{}

	var curRes pmetric.ResourceMetrics
	var curScope pmetric.ScopeMetrics
	haveRes, haveScope := false, false
	var curResID, curScopeID uint16

	n := int(root.NumRows())
	for i := 0; i < n; i++ {
		rID := resIDCol.Value(i)
		sID := scopeIDCol.Value(i)

		if !haveRes || rID != curResID {
			curRes = out.ResourceMetrics().AppendEmpty()
			if resSchemaURL != nil {
				curRes.SetSchemaUrl(resSchemaURL(i))
			}
			resByID[rID] = curRes
			curResID = rID
			haveRes = true
			haveScope = false
		}
		if !haveScope || sID != curScopeID {
			curScope = curRes.ScopeMetrics().AppendEmpty()
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

		m := curScope.Metrics().AppendEmpty()
		if nameCol != nil {
			m.SetName(nameCol(i))
		}
		if descCol != nil {
			m.SetDescription(descCol(i))
		}
		if unitCol != nil {
			m.SetUnit(unitCol(i))
		}
		rowID := idCol.Value(i)
		switch MetricDataType(typeCol.Value(i)) {
		case MetricTypeSum:
			sumByID[rowID] = m.SetEmptySum()
		case MetricTypeHistogram:
			histByID[rowID] = m.SetEmptyHistogram()
		case MetricTypeExponentialHistogram:
			expHistByID[rowID] = m.SetEmptyExponentialHistogram()
		case MetricTypeSummary:
			summaryByID[rowID] = m.SetEmptySummary()
		default:
			gaugeByID[rowID] = m.SetEmptyGauge()
		}
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

	if err := decodeNumberDataPoints(rs, sumByID, gaugeByID); err != nil {
		return out, err
	}
	if err := decodeHistogramDataPoints(rs, histByID); err != nil {
		return out, err
	}
	if err := decodeExpHistogramDataPoints(rs, expHistByID); err != nil {
		return out, err
	}
	if err := decodeSummaryDataPoints(rs, summaryByID); err != nil {
		return out, err
	}

	return out, nil
}

func decodeNumberDataPoints(rs RecordSet, sumByID map[uint16]pmetric.Sum, gaugeByID map[uint16]pmetric.Gauge) error {
	dpRoot := rs[PayloadTypeNumberDataPoints]
	if dpRoot == nil {
		return nil
	}
	dpSchema := dpRoot.Schema()
	dpParentCol := mustU16(dpSchema, dpRoot, "parent_id")
	dpTimeCol := mustI64(dpSchema, dpRoot, ColDpTimeUnixNano)
	dpValTypeCol := dpRoot.Column(schemaFieldIndex(dpSchema, ColDpValueType)).(*array.Uint8)
	dpValIntCol := i64ColAccessor(dpSchema, dpRoot, ColDpValueInt)
	dpValDoubleCol := func(i int) (float64, bool) {
		idx := dpSchema.FieldIndices(ColDpValueDouble)
		if len(idx) == 0 {
			return 0, false
		}
		col := dpRoot.Column(idx[0]).(*array.Float64)
		if col.IsNull(i) {
			return 0, false
		}
		return col.Value(i), true
	}
	dpFlagsCol := u32ColAccessor(dpSchema, dpRoot, ColDpFlags)
	dpIDCol := dpRoot.Column(schemaFieldIndex(dpSchema, ColID)).(*array.Uint32)

	dpByID := map[uint32]pmetric.NumberDataPoint{}
	for i := 0; i < int(dpRoot.NumRows()); i++ {
		pID := dpParentCol.Value(i)
		var dp pmetric.NumberDataPoint
		if sum, ok := sumByID[pID]; ok {
			dp = sum.DataPoints().AppendEmpty()
		} else if gauge, ok := gaugeByID[pID]; ok {
			dp = gauge.DataPoints().AppendEmpty()
		} else {
			continue
		}
		dp.SetTimestamp(pcommon.Timestamp(dpTimeCol.Value(i)))
		switch AttrType(dpValTypeCol.Value(i)) {
		case AttrTypeInt:
			if dpValIntCol != nil {
				dp.SetIntValue(dpValIntCol(i))
			}
		case AttrTypeDouble:
			if v, ok := dpValDoubleCol(i); ok {
				dp.SetDoubleValue(v)
			}
		}
		if dpFlagsCol != nil {
			dp.SetFlags(pmetric.DataPointFlags(dpFlagsCol(i)))
		}
		dpByID[dpIDCol.Value(i)] = dp
	}
	return ReadAttrs(rs[PayloadTypeNumberDpAttrs], func(parentID uint32, key string, v AttrValue) {
		if dp, ok := dpByID[parentID]; ok {
			ApplyAttrValue(v, dp.Attributes().PutEmpty(key))
		}
	})
}

func decodeHistogramDataPoints(rs RecordSet, histByID map[uint16]pmetric.Histogram) error {
	dpRoot := rs[PayloadTypeHistogramDataPoints]
	if dpRoot == nil {
		return nil
	}
	s := dpRoot.Schema()
	parentCol := mustU16(s, dpRoot, "parent_id")
	timeCol := mustI64(s, dpRoot, ColDpTimeUnixNano)
	countCol := u64ColAccessorRequired(s, dpRoot, ColDpCount)
	sumCol := f64ColAccessor(s, dpRoot, ColDpSum)
	minCol := f64ColAccessor(s, dpRoot, ColDpMin)
	maxCol := f64ColAccessor(s, dpRoot, ColDpMax)
	bucketsCol := builder.Uint64ListAccessor(s, dpRoot, ColDpBucketCounts)
	boundsCol := builder.Float64ListAccessor(s, dpRoot, ColDpExplicitBounds)
	flagsCol := u32ColAccessor(s, dpRoot, ColDpFlags)
	idCol := dpRoot.Column(schemaFieldIndex(s, ColID)).(*array.Uint32)

	dpByID := map[uint32]pmetric.HistogramDataPoint{}
	for i := 0; i < int(dpRoot.NumRows()); i++ {
		pID := parentCol.Value(i)
		hist, ok := histByID[pID]
		if !ok {
			continue
		}
		dp := hist.DataPoints().AppendEmpty()
		dp.SetTimestamp(pcommon.Timestamp(timeCol.Value(i)))
		dp.SetCount(countCol(i))
		if v, ok := sumCol(i); ok {
			dp.SetSum(v)
		}
		if v, ok := minCol(i); ok {
			dp.SetMin(v)
		}
		if v, ok := maxCol(i); ok {
			dp.SetMax(v)
		}
		if bucketsCol != nil {
			if vals, ok := bucketsCol(i); ok {
				dp.BucketCounts().FromRaw(vals)
			}
		}
		if boundsCol != nil {
			if vals, ok := boundsCol(i); ok {
				dp.ExplicitBounds().FromRaw(vals)
			}
		}
		if flagsCol != nil {
			dp.SetFlags(pmetric.DataPointFlags(flagsCol(i)))
		}
		dpByID[idCol.Value(i)] = dp
	}
	return ReadAttrs(rs[PayloadTypeHistogramDpAttrs], func(parentID uint32, key string, v AttrValue) {
		if dp, ok := dpByID[parentID]; ok {
			ApplyAttrValue(v, dp.Attributes().PutEmpty(key))
		}
	})
}

func decodeExpHistogramDataPoints(rs RecordSet, expByID map[uint16]pmetric.ExponentialHistogram) error {
	dpRoot := rs[PayloadTypeExpHistogramDataPoints]
	if dpRoot == nil {
		return nil
	}
	s := dpRoot.Schema()
	parentCol := mustU16(s, dpRoot, "parent_id")
	timeCol := mustI64(s, dpRoot, ColDpTimeUnixNano)
	countCol := u64ColAccessorRequired(s, dpRoot, ColDpCount)
	scaleCol := mustI64(s, dpRoot, ColDpScale)
	zeroCountCol := u64ColAccessorRequired(s, dpRoot, ColDpZeroCount)
	sumCol := f64ColAccessor(s, dpRoot, ColDpSum)
	minCol := f64ColAccessor(s, dpRoot, ColDpMin)
	maxCol := f64ColAccessor(s, dpRoot, ColDpMax)
	posOffsetCol := i64ColAccessor(s, dpRoot, ColDpPositiveOffset)
	posBucketsCol := builder.Uint64ListAccessor(s, dpRoot, ColDpPositiveBuckets)
	negOffsetCol := i64ColAccessor(s, dpRoot, ColDpNegativeOffset)
	negBucketsCol := builder.Uint64ListAccessor(s, dpRoot, ColDpNegativeBuckets)
	flagsCol := u32ColAccessor(s, dpRoot, ColDpFlags)
	idCol := dpRoot.Column(schemaFieldIndex(s, ColID)).(*array.Uint32)

	dpByID := map[uint32]pmetric.ExponentialHistogramDataPoint{}
	for i := 0; i < int(dpRoot.NumRows()); i++ {
		pID := parentCol.Value(i)
		hist, ok := expByID[pID]
		if !ok {
			continue
		}
		dp := hist.DataPoints().AppendEmpty()
		dp.SetTimestamp(pcommon.Timestamp(timeCol.Value(i)))
		dp.SetCount(countCol(i))
		dp.SetScale(int32(scaleCol.Value(i)))
		dp.SetZeroCount(zeroCountCol(i))
		if v, ok := sumCol(i); ok {
			dp.SetSum(v)
		}
		if v, ok := minCol(i); ok {
			dp.SetMin(v)
		}
		if v, ok := maxCol(i); ok {
			dp.SetMax(v)
		}
		if posOffsetCol != nil {
			dp.Positive().SetOffset(int32(posOffsetCol(i)))
		}
		if posBucketsCol != nil {
			if vals, ok := posBucketsCol(i); ok {
				dp.Positive().BucketCounts().FromRaw(vals)
			}
		}
		if negOffsetCol != nil {
			dp.Negative().SetOffset(int32(negOffsetCol(i)))
		}
		if negBucketsCol != nil {
			if vals, ok := negBucketsCol(i); ok {
				dp.Negative().BucketCounts().FromRaw(vals)
			}
		}
		if flagsCol != nil {
			dp.SetFlags(pmetric.DataPointFlags(flagsCol(i)))
		}
		dpByID[idCol.Value(i)] = dp
	}
	return ReadAttrs(rs[PayloadTypeExpHistogramDpAttrs], func(parentID uint32, key string, v AttrValue) {
		if dp, ok := dpByID[parentID]; ok {
			ApplyAttrValue(v, dp.Attributes().PutEmpty(key))
		}
	})
}

func decodeSummaryDataPoints(rs RecordSet, summaryByID map[uint16]pmetric.Summary) error {
	dpRoot := rs[PayloadTypeSummaryDataPoints]
	if dpRoot == nil {
		return nil
	}
	s := dpRoot.Schema()
	parentCol := mustU16(s, dpRoot, "parent_id")
	timeCol := mustI64(s, dpRoot, ColDpTimeUnixNano)
	countCol := u64ColAccessorRequired(s, dpRoot, ColDpCount)
	sumCol := mustF64(s, dpRoot, ColDpSum)
	quantilesCol := builder.Float64ListAccessor(s, dpRoot, ColDpQuantiles)
	valuesCol := builder.Float64ListAccessor(s, dpRoot, ColDpQuantileValues)
	flagsCol := u32ColAccessor(s, dpRoot, ColDpFlags)
	idCol := dpRoot.Column(schemaFieldIndex(s, ColID)).(*array.Uint32)

	dpByID := map[uint32]pmetric.SummaryDataPoint{}
	for i := 0; i < int(dpRoot.NumRows()); i++ {
		pID := parentCol.Value(i)
		summary, ok := summaryByID[pID]
		if !ok {
			continue
		}
		dp := summary.DataPoints().AppendEmpty()
		dp.SetTimestamp(pcommon.Timestamp(timeCol.Value(i)))
		dp.SetCount(countCol(i))
		dp.SetSum(sumCol.Value(i))

		var quantiles, values []float64
		if quantilesCol != nil {
			quantiles, _ = quantilesCol(i)
		}
		if valuesCol != nil {
			values, _ = valuesCol(i)
		}
		for qi := range quantiles {
			qv := dp.QuantileValues().AppendEmpty()
			qv.SetQuantile(quantiles[qi])
			if qi < len(values) {
				qv.SetValue(values[qi])
			}
		}
		if flagsCol != nil {
			dp.SetFlags(pmetric.DataPointFlags(flagsCol(i)))
		}
		dpByID[idCol.Value(i)] = dp
	}
	return ReadAttrs(rs[PayloadTypeSummaryDpAttrs], func(parentID uint32, key string, v AttrValue) {
		if dp, ok := dpByID[parentID]; ok {
			ApplyAttrValue(v, dp.Attributes().PutEmpty(key))
		}
	})
}

func mustF64(schema *arrow.Schema, rec arrow.Record, name string) *array.Float64 {
	return rec.Column(schemaFieldIndex(schema, name)).(*array.Float64)
}

func f64ColAccessor(schema *arrow.Schema, rec arrow.Record, name string) func(i int) (float64, bool) {
	idx := schema.FieldIndices(name)
	if len(idx) == 0 {
		return func(int) (float64, bool) { return 0, false }
	}
	col := rec.Column(idx[0]).(*array.Float64)
	return func(i int) (float64, bool) {
		if col.IsNull(i) {
			return 0, false
		}
		return col.Value(i), true
	}
}

func u64ColAccessorRequired(schema *arrow.Schema, rec arrow.Record, name string) func(i int) uint64 {
	col := rec.Column(schemaFieldIndex(schema, name)).(*array.Uint64)
	return func(i int) uint64 { return col.Value(i) }
}
