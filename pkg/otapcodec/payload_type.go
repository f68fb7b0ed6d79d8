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

// Package otapcodec implements the bidirectional conversion between the
// columnar (Arrow-backed) OTAP representation and the row-oriented
// (protobuf) OTLP representation: parent-id delta decoding, adaptive
// dictionary encoding, attribute value encoding, and schema fingerprinting.
//
// Grounded on github.com/open-telemetry/otel-arrow's pkg/otel/arrow_record,
// pkg/otel/common/arrow and pkg/otel/common/schema packages.
package otapcodec

import "github.com/open-telemetry/otap-dataflow-go/pkg/pdata"

// PayloadType, RecordSet and the PayloadType* catalog live in pkg/pdata
// (the payload model, C1): the codec (C2) converts between OTLP and OTAP
// forms of a pdata.Payload and must not own the data model it operates on.
// These aliases let the rest of this package refer to them unqualified.
type PayloadType = pdata.PayloadType

const (
	PayloadTypeUnspecified             = pdata.PayloadTypeUnspecified
	PayloadTypeLogs                    = pdata.PayloadTypeLogs
	PayloadTypeLogAttrs                = pdata.PayloadTypeLogAttrs
	PayloadTypeResourceAttrs           = pdata.PayloadTypeResourceAttrs
	PayloadTypeScopeAttrs              = pdata.PayloadTypeScopeAttrs
	PayloadTypeSpans                   = pdata.PayloadTypeSpans
	PayloadTypeSpanAttrs               = pdata.PayloadTypeSpanAttrs
	PayloadTypeSpanEvents              = pdata.PayloadTypeSpanEvents
	PayloadTypeSpanEventAttrs          = pdata.PayloadTypeSpanEventAttrs
	PayloadTypeSpanLinks               = pdata.PayloadTypeSpanLinks
	PayloadTypeSpanLinkAttrs           = pdata.PayloadTypeSpanLinkAttrs
	PayloadTypeUnivariateMetrics       = pdata.PayloadTypeUnivariateMetrics
	PayloadTypeNumberDataPoints        = pdata.PayloadTypeNumberDataPoints
	PayloadTypeNumberDpAttrs           = pdata.PayloadTypeNumberDpAttrs
	PayloadTypeNumberDpExemplars       = pdata.PayloadTypeNumberDpExemplars
	PayloadTypeHistogramDataPoints     = pdata.PayloadTypeHistogramDataPoints
	PayloadTypeHistogramDpAttrs        = pdata.PayloadTypeHistogramDpAttrs
	PayloadTypeHistogramDpExemplars    = pdata.PayloadTypeHistogramDpExemplars
	PayloadTypeExpHistogramDataPoints  = pdata.PayloadTypeExpHistogramDataPoints
	PayloadTypeExpHistogramDpAttrs     = pdata.PayloadTypeExpHistogramDpAttrs
	PayloadTypeExpHistogramDpExemplars = pdata.PayloadTypeExpHistogramDpExemplars
	PayloadTypeSummaryDataPoints       = pdata.PayloadTypeSummaryDataPoints
	PayloadTypeSummaryDpAttrs          = pdata.PayloadTypeSummaryDpAttrs
)
