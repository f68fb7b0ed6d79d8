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
	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/ptrace"

	"github.com/open-telemetry/otap-dataflow-go/internal/werror"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

// ToOtlpBytes converts p to its OTLP ExportXRequest protobuf encoding for
// signal, the Go equivalent of the Rust source's
// `payload.try_into::<OtlpProtoBytes>()` (spec §4.1). If p already carries
// OtlpBytes, they are returned unchanged; an OtapRecords payload is decoded
// into pdata first and then marshaled, so callers never need to branch on
// PayloadKind themselves.
func ToOtlpBytes(p pdata.Payload, signal pdata.SignalType) ([]byte, error) {
	if p.Kind == pdata.PayloadKindOtlpBytes {
		return p.OtlpBytes, nil
	}
	if p.Kind != pdata.PayloadKindOtapRecords {
		return nil, werror.WrapKind(werror.KindCodec, errConvert("otapcodec: payload has no representation to convert"))
	}

	rs := RecordSet(p.Records)
	switch signal {
	case pdata.SignalLogs:
		ld, err := DecodeLogs(rs)
		if err != nil {
			return nil, err
		}
		return (&plog.ProtoMarshaler{}).MarshalLogs(ld)
	case pdata.SignalMetrics:
		md, err := DecodeMetrics(rs)
		if err != nil {
			return nil, err
		}
		return (&pmetric.ProtoMarshaler{}).MarshalMetrics(md)
	case pdata.SignalTraces:
		td, err := DecodeTraces(rs)
		if err != nil {
			return nil, err
		}
		return (&ptrace.ProtoMarshaler{}).MarshalTraces(td)
	default:
		return nil, werror.WrapKind(werror.KindCodec, errConvert("otapcodec: unknown signal type"))
	}
}

// ToOtapRecords converts p to its OTAP RecordSet encoding for signal, the
// inverse of ToOtlpBytes. If p already carries Records, they are returned
// unchanged.
func ToOtapRecords(p pdata.Payload, signal pdata.SignalType) (pdata.RecordSet, error) {
	if p.Kind == pdata.PayloadKindOtapRecords {
		return p.Records, nil
	}
	if p.Kind != pdata.PayloadKindOtlpBytes {
		return pdata.RecordSet{}, werror.WrapKind(werror.KindCodec, errConvert("otapcodec: payload has no representation to convert"))
	}

	switch signal {
	case pdata.SignalLogs:
		ld, err := (&plog.ProtoUnmarshaler{}).UnmarshalLogs(p.OtlpBytes)
		if err != nil {
			return pdata.RecordSet{}, werror.WrapKind(werror.KindCodec, err)
		}
		rs, err := EncodeLogs(ld)
		return pdata.RecordSet(rs), err
	case pdata.SignalMetrics:
		md, err := (&pmetric.ProtoUnmarshaler{}).UnmarshalMetrics(p.OtlpBytes)
		if err != nil {
			return pdata.RecordSet{}, werror.WrapKind(werror.KindCodec, err)
		}
		rs, err := EncodeMetrics(md)
		return pdata.RecordSet(rs), err
	case pdata.SignalTraces:
		td, err := (&ptrace.ProtoUnmarshaler{}).UnmarshalTraces(p.OtlpBytes)
		if err != nil {
			return pdata.RecordSet{}, werror.WrapKind(werror.KindCodec, err)
		}
		rs, err := EncodeTraces(td)
		return pdata.RecordSet(rs), err
	default:
		return pdata.RecordSet{}, werror.WrapKind(werror.KindCodec, errConvert("otapcodec: unknown signal type"))
	}
}

type errConvert string

func (e errConvert) Error() string { return string(e) }
