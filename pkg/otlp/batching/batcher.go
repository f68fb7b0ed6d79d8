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

// Package batching coalesces OTLP export request bytes without decoding
// them (spec §4.7, C7). Every top-level OTLP export request message
// (ExportLogsServiceRequest, ExportMetricsServiceRequest,
// ExportTraceServiceRequest) carries its payload in a single repeated
// field at wire field number 1 (resource_logs/resource_metrics/
// resource_spans); protobuf merges repeated fields across concatenated
// messages, so re-chunking at the boundaries of those field-1 entries
// yields a valid re-encoding of the same logical request.
package batching

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/open-telemetry/otap-dataflow-go/internal/werror"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

// resourceFieldNumber is the wire field number carrying resource_logs,
// resource_metrics, and resource_spans in their respective top-level
// request messages; all three use field 1.
const resourceFieldNumber = protowire.Number(1)

// OtlpProtoBytes is the wire-encoded bytes of one top-level OTLP export
// request message, for a single signal type.
type OtlpProtoBytes []byte

type errString string

func (e errString) Error() string { return string(e) }

var (
	errMalformedTag    = errString("batching: malformed field tag")
	errMalformedLength = errString("batching: malformed length-delimited field")
	errUnexpectedField = errString("batching: expected a single length-delimited field 1")
)

// splitItems walks data's top-level wire format and returns the raw
// tag+length+value byte ranges of each field-1 entry it finds, in order.
// It returns an error if data is not entirely a sequence of such entries
// (spec §4.7 "corruption tolerance").
func splitItems(data []byte) ([][]byte, error) {
	items := make([][]byte, 0, 4)
	rest := data
	for len(rest) > 0 {
		start := len(data) - len(rest)

		num, typ, tagLen := protowire.ConsumeTag(rest)
		if tagLen < 0 {
			return nil, werror.WrapKind(werror.KindCodec, errMalformedTag)
		}
		if typ != protowire.BytesType || num != resourceFieldNumber {
			return nil, werror.WrapKind(werror.KindCodec, errUnexpectedField)
		}
		rest = rest[tagLen:]

		_, valLen := protowire.ConsumeBytes(rest)
		if valLen < 0 {
			return nil, werror.WrapKind(werror.KindCodec, errMalformedLength)
		}
		rest = rest[valLen:]

		items = append(items, data[start:len(data)-len(rest)])
	}
	return items, nil
}

// ItemCount reports the number of top-level resource entries encoded in
// data, for telemetry and tests. It returns an error under the same
// conditions as MakeBytesBatches would treat data as corrupted.
func ItemCount(data OtlpProtoBytes) (int, error) {
	items, err := splitItems(data)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// MakeBytesBatches coalesces inputs into fewer, larger OtlpProtoBytes
// batches, all for signal, without decoding any of them (spec §4.7).
//
// maxBytes of 0 means unbounded (all well-formed items land in a single
// output batch). A well-formed input whose items would otherwise cross a
// maxBytes boundary is split onto the batch it fits into; an input that
// itself exceeds maxBytes as a single item is emitted alone, oversized,
// rather than rejected or split (splitting would require decoding it).
// An input that fails to parse as a sequence of field-1 entries is
// emitted verbatim as its own output, isolated from neighboring
// well-formed inputs so a downstream decode failure cannot poison them.
func MakeBytesBatches(signal pdata.SignalType, maxBytes uint64, inputs []OtlpProtoBytes) []OtlpProtoBytes {
	var out []OtlpProtoBytes
	var cur []byte

	flush := func() {
		if len(cur) > 0 {
			out = append(out, OtlpProtoBytes(cur))
			cur = nil
		}
	}

	for _, in := range inputs {
		items, err := splitItems(in)
		if err != nil {
			flush()
			out = append(out, in)
			continue
		}
		for _, item := range items {
			if maxBytes > 0 && len(cur) > 0 && uint64(len(cur)+len(item)) > maxBytes {
				flush()
			}
			cur = append(cur, item...)
			if maxBytes > 0 && uint64(len(cur)) >= maxBytes {
				flush()
			}
		}
	}
	flush()
	return out
}
