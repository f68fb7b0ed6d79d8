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

package pdata

// PayloadType enumerates the catalog of OTAP record-batch kinds. A record
// set (§3 of the spec) is a mapping from PayloadType to one Arrow record
// batch; each batch's schema is determined by its PayloadType.
type PayloadType int32

// The catalog mirrors the one used by the teacher's related-data builders
// (pkg/otel/common/arrow/related_data.go) and the OTAP transport envelope
// (§6.1): root batches first, then the attribute/derivative batches that
// reference them by parent_id.
const (
	PayloadTypeUnspecified PayloadType = iota

	// Logs signal.
	PayloadTypeLogs
	PayloadTypeLogAttrs

	// Shared resource/scope attribute tables.
	PayloadTypeResourceAttrs
	PayloadTypeScopeAttrs

	// Traces signal.
	PayloadTypeSpans
	PayloadTypeSpanAttrs
	PayloadTypeSpanEvents
	PayloadTypeSpanEventAttrs
	PayloadTypeSpanLinks
	PayloadTypeSpanLinkAttrs

	// Metrics signal.
	PayloadTypeUnivariateMetrics
	PayloadTypeNumberDataPoints
	PayloadTypeNumberDpAttrs
	PayloadTypeNumberDpExemplars
	PayloadTypeHistogramDataPoints
	PayloadTypeHistogramDpAttrs
	PayloadTypeHistogramDpExemplars
	PayloadTypeExpHistogramDataPoints
	PayloadTypeExpHistogramDpAttrs
	PayloadTypeExpHistogramDpExemplars
	PayloadTypeSummaryDataPoints
	PayloadTypeSummaryDpAttrs
)

// String implements fmt.Stringer. Used in log fields, schema fingerprints,
// and ArrowPayload.Type wire values (§6.1).
func (t PayloadType) String() string {
	switch t {
	case PayloadTypeLogs:
		return "Logs"
	case PayloadTypeLogAttrs:
		return "LogAttrs"
	case PayloadTypeResourceAttrs:
		return "ResourceAttrs"
	case PayloadTypeScopeAttrs:
		return "ScopeAttrs"
	case PayloadTypeSpans:
		return "Spans"
	case PayloadTypeSpanAttrs:
		return "SpanAttrs"
	case PayloadTypeSpanEvents:
		return "SpanEvents"
	case PayloadTypeSpanEventAttrs:
		return "SpanEventAttrs"
	case PayloadTypeSpanLinks:
		return "SpanLinks"
	case PayloadTypeSpanLinkAttrs:
		return "SpanLinkAttrs"
	case PayloadTypeUnivariateMetrics:
		return "UnivariateMetrics"
	case PayloadTypeNumberDataPoints:
		return "NumberDataPoints"
	case PayloadTypeNumberDpAttrs:
		return "NumberDpAttrs"
	case PayloadTypeNumberDpExemplars:
		return "NumberDpExemplars"
	case PayloadTypeHistogramDataPoints:
		return "HistogramDataPoints"
	case PayloadTypeHistogramDpAttrs:
		return "HistogramDpAttrs"
	case PayloadTypeHistogramDpExemplars:
		return "HistogramDpExemplars"
	case PayloadTypeExpHistogramDataPoints:
		return "ExpHistogramDataPoints"
	case PayloadTypeExpHistogramDpAttrs:
		return "ExpHistogramDpAttrs"
	case PayloadTypeExpHistogramDpExemplars:
		return "ExpHistogramDpExemplars"
	case PayloadTypeSummaryDataPoints:
		return "SummaryDataPoints"
	case PayloadTypeSummaryDpAttrs:
		return "SummaryDpAttrs"
	default:
		return "Unspecified"
	}
}

// IsAttrTable reports whether t is one of the attribute tables that carry
// a parent_id column referencing a root or derivative batch.
func (t PayloadType) IsAttrTable() bool {
	switch t {
	case PayloadTypeLogAttrs, PayloadTypeResourceAttrs, PayloadTypeScopeAttrs,
		PayloadTypeSpanAttrs, PayloadTypeSpanEventAttrs, PayloadTypeSpanLinkAttrs,
		PayloadTypeNumberDpAttrs, PayloadTypeHistogramDpAttrs,
		PayloadTypeExpHistogramDpAttrs, PayloadTypeSummaryDpAttrs:
		return true
	default:
		return false
	}
}

// ParentIDWidth reports the bit width (16 or 32) of the parent_id column
// for this payload type, per §3's "u16 or u32, payload-type dependent".
// Root-level attribute tables (log/span/resource/scope) use u16; the
// attribute tables of derivative batches (span events, span links, data
// points) use u32 because their row counts can exceed 65535 within a
// single batch.
func (t PayloadType) ParentIDWidth() int {
	switch t {
	case PayloadTypeSpanEventAttrs, PayloadTypeSpanLinkAttrs,
		PayloadTypeNumberDpAttrs, PayloadTypeNumberDpExemplars,
		PayloadTypeHistogramDpAttrs, PayloadTypeHistogramDpExemplars,
		PayloadTypeExpHistogramDpAttrs, PayloadTypeExpHistogramDpExemplars,
		PayloadTypeSummaryDpAttrs:
		return 32
	default:
		return 16
	}
}

// rootPayloadType returns the PayloadType carrying the root batch for a
// signal (spec §4.1's payload.num_items()).
func rootPayloadType(signal SignalType) PayloadType {
	switch signal {
	case SignalLogs:
		return PayloadTypeLogs
	case SignalMetrics:
		return PayloadTypeUnivariateMetrics
	case SignalTraces:
		return PayloadTypeSpans
	default:
		return PayloadTypeUnspecified
	}
}
