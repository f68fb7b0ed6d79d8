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
	"bytes"

	"github.com/apache/arrow/go/v12/arrow/ipc"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/klauspost/compress/zstd"

	"github.com/open-telemetry/otap-dataflow-go/internal/werror"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

// RecordSet is defined in pkg/pdata (the payload model, C1); this package
// only aliases it so the codec's own functions can refer to it unqualified.
type RecordSet = pdata.RecordSet

// payloadOrder fixes the stable frame order required by spec §4.2.1 step 7:
// "the root batch precedes any of its attribute/derivative batches". Types
// not listed here (future additions) sort after all listed types, in
// PayloadType numeric order.
var payloadOrder = []PayloadType{
	PayloadTypeLogs, PayloadTypeResourceAttrs, PayloadTypeScopeAttrs, PayloadTypeLogAttrs,
	PayloadTypeSpans, PayloadTypeSpanAttrs,
	PayloadTypeSpanEvents, PayloadTypeSpanEventAttrs,
	PayloadTypeSpanLinks, PayloadTypeSpanLinkAttrs,
	PayloadTypeUnivariateMetrics,
	PayloadTypeNumberDataPoints, PayloadTypeNumberDpAttrs, PayloadTypeNumberDpExemplars,
	PayloadTypeHistogramDataPoints, PayloadTypeHistogramDpAttrs, PayloadTypeHistogramDpExemplars,
	PayloadTypeExpHistogramDataPoints, PayloadTypeExpHistogramDpAttrs, PayloadTypeExpHistogramDpExemplars,
	PayloadTypeSummaryDataPoints, PayloadTypeSummaryDpAttrs,
}

func orderedTypes(rs RecordSet) []PayloadType {
	rank := make(map[PayloadType]int, len(payloadOrder))
	for i, t := range payloadOrder {
		rank[t] = i
	}
	out := make([]PayloadType, 0, len(rs))
	for t := range rs {
		out = append(out, t)
	}
	// insertion sort by rank (or numeric PayloadType for unlisted types),
	// stable and allocation-free for the small number of payload types in
	// one record set.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(rank, out[j-1], out[j]); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func less(rank map[PayloadType]int, a, b PayloadType) bool {
	ra, aok := rank[a]
	rb, bok := rank[b]
	switch {
	case aok && bok:
		return ra > rb // note: comparator used by the insertion sort above walks backward
	case aok:
		return false
	case bok:
		return true
	default:
		return a > b
	}
}

// ArrowPayload is the wire frame for one record batch (spec §6.1):
// schema-id (a hex schema fingerprint), payload type, and an Arrow IPC
// *stream* write of the single batch.
type ArrowPayload struct {
	SchemaID string
	Type     PayloadType
	Record   []byte
	// Compressed reports whether Record holds a zstd frame rather than a
	// raw Arrow IPC stream (spec §6.1's "body compression is an
	// implementation-chosen transport optimization"). Set by
	// EncodeFramesCompressed, cleared by plain EncodeFrames.
	Compressed bool
}

// BatchArrowRecords is the OTAP transport envelope (spec §6.1).
type BatchArrowRecords struct {
	BatchID      int64
	ArrowPayload []ArrowPayload
	// Headers carries opaque, HPACK-encoded metadata (e.g. request
	// timestamp); the core never interprets it.
	Headers []byte
}

// EncodeFrames serializes rs into an ordered slice of ArrowPayload frames,
// root batch first, matching spec §4.2.1 step 7.
func EncodeFrames(rs RecordSet) ([]ArrowPayload, error) {
	order := orderedTypes(rs)
	out := make([]ArrowPayload, 0, len(order))

	for _, t := range order {
		rec := rs[t]
		if rec == nil {
			continue
		}
		var buf bytes.Buffer
		w := ipc.NewWriter(&buf, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(memory.DefaultAllocator))
		if err := w.Write(rec); err != nil {
			return nil, werror.WrapKind(werror.KindCodec, err)
		}
		if err := w.Close(); err != nil {
			return nil, werror.WrapKind(werror.KindCodec, err)
		}
		out = append(out, ArrowPayload{
			SchemaID: Fingerprint(rec.Schema()).String(),
			Type:     t,
			Record:   buf.Bytes(),
		})
	}
	return out, nil
}

// DecodeFrames reconstructs a RecordSet from ordered ArrowPayload frames.
// Each frame's IPC stream is expected to contain exactly one record batch.
// A frame with Compressed set is transparently zstd-inflated first, so
// callers never need to special-case the two transport encodings.
func DecodeFrames(frames []ArrowPayload) (RecordSet, error) {
	rs := make(RecordSet, len(frames))
	for _, f := range frames {
		body := f.Record
		if f.Compressed {
			inflated, err := decompressZstd(body)
			if err != nil {
				return nil, werror.WrapKind(werror.KindCodec, err)
			}
			body = inflated
		}

		r, err := ipc.NewReader(bytes.NewReader(body), ipc.WithAllocator(memory.DefaultAllocator))
		if err != nil {
			return nil, werror.WrapKind(werror.KindCodec, err)
		}
		if !r.Next() {
			r.Release()
			return nil, werror.WrapKind(werror.KindCodec, errEmptyIPCStream)
		}
		rec := r.Record()
		rec.Retain()
		r.Release()
		rs[f.Type] = rec
	}
	return rs, nil
}

// EncodeFramesCompressed is EncodeFrames followed by a zstd pass over each
// frame's IPC stream body (spec §6.1), for transports where CPU is cheaper
// than the network the frames cross. The frame count and ordering are
// identical to EncodeFrames; only Record's bytes and Compressed differ.
func EncodeFramesCompressed(rs RecordSet) ([]ArrowPayload, error) {
	frames, err := EncodeFrames(rs)
	if err != nil {
		return nil, err
	}
	for i, f := range frames {
		compressed, err := compressZstd(f.Record)
		if err != nil {
			return nil, werror.WrapKind(werror.KindCodec, err)
		}
		frames[i].Record = compressed
		frames[i].Compressed = true
	}
	return frames, nil
}

func compressZstd(b []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(b, make([]byte, 0, len(b))), nil
}

func decompressZstd(b []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(b, nil)
}

var errEmptyIPCStream = errEmptyIPCStreamErr("otapcodec: empty arrow IPC stream")

type errEmptyIPCStreamErr string

func (e errEmptyIPCStreamErr) Error() string { return string(e) }
