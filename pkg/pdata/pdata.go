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

// PayloadKind tags which of Payload's two mutually-exclusive
// representations is populated (spec §3: a payload is either the OTAP
// columnar form or raw OTLP protobuf bytes, never both).
type PayloadKind uint8

const (
	PayloadKindUnspecified PayloadKind = iota
	PayloadKindOtlpBytes
	PayloadKindOtapRecords
)

// String implements fmt.Stringer.
func (k PayloadKind) String() string {
	switch k {
	case PayloadKindOtlpBytes:
		return "otlp_bytes"
	case PayloadKindOtapRecords:
		return "otap_records"
	default:
		return "unspecified"
	}
}

// Payload is the sum type carried by one Pdata: either a length-delimited
// OTLP ExportXRequest protobuf message (as produced by a receiver that
// chose not to decode into Arrow, or by the C7 bytes batcher) or an OTAP
// RecordSet (spec §3, §4.1). Exactly one of OtlpBytes/Records is set,
// selected by Kind.
type Payload struct {
	Kind      PayloadKind
	OtlpBytes []byte
	Records   RecordSet
}

// NewOtlpPayload wraps a raw OTLP protobuf message.
func NewOtlpPayload(b []byte) Payload {
	return Payload{Kind: PayloadKindOtlpBytes, OtlpBytes: b}
}

// NewOtapPayload wraps an OTAP record set.
func NewOtapPayload(rs RecordSet) Payload {
	return Payload{Kind: PayloadKindOtapRecords, Records: rs}
}

// Release frees any Arrow-backed memory held by the payload. A no-op for
// the OtlpBytes representation.
func (p Payload) Release() {
	if p.Kind == PayloadKindOtapRecords {
		p.Records.Release()
	}
}

// Retain increments the reference count of any Arrow-backed memory held
// by the payload. A no-op for the OtlpBytes representation.
func (p Payload) Retain() {
	if p.Kind == PayloadKindOtapRecords {
		p.Records.Retain()
	}
}

// NumItems reports the number of root-level telemetry items the payload
// carries for signal (spec §4.1's payload.num_items(), used for ack-fabric
// bookkeeping and pipeline metrics). For the OtlpBytes representation, the
// caller is expected to have recorded the count out of band (e.g. from a
// bytes-batcher item count) since this package does not parse protobuf;
// NumItems returns 0 in that case.
func (p Payload) NumItems(signal SignalType) int64 {
	if p.Kind != PayloadKindOtapRecords {
		return 0
	}
	return p.Records.NumRootRows(signal)
}

// Context is the opaque, task-local-like handle threaded alongside a
// Payload (spec §5, §6.3): it correlates a unit of telemetry back to the
// ACK/NACK subscription slot its originating receiver registered. It
// carries no deadline or cancellation state. The ack
// fabric (pkg/engine/ack) is the sole writer of SlotID/Generation; the
// node runtime (pkg/engine/node) only forwards Context unchanged as
// telemetry flows from node to node.
type Context struct {
	// SlotID identifies the ACK/NACK subscription slot this payload's
	// outcome must be reported to. Zero means "no subscription" (e.g. a
	// payload produced internally by a processor, not owned by any
	// ingress request).
	SlotID uint32
	// Generation defeats ABA reuse of a slot: a slot is only a valid
	// target for the ack fabric's Notify if Generation matches the slot's current
	// generation at report time (spec §4.6, "(slot_id, generation) pairs
	// to defeat ABA").
	Generation uint32
}

// HasSubscription reports whether c was assigned a live ACK/NACK slot.
func (c Context) HasSubscription() bool {
	return c.SlotID != 0 || c.Generation != 0
}

// Pdata is the unit of data flowing between pipeline nodes (spec §3): a
// signal-tagged Payload plus the Context needed to report its eventual
// outcome upstream.
type Pdata struct {
	signal  SignalType
	payload Payload
	ctx     Context
}

// NewWithContext constructs a Pdata from its three parts.
func NewWithContext(signal SignalType, payload Payload, ctx Context) Pdata {
	return Pdata{signal: signal, payload: payload, ctx: ctx}
}

// IntoParts decomposes a Pdata back into its signal, payload and context,
// the inverse of NewWithContext. Used by nodes that need to repackage a
// payload (e.g. re-tagging Context after a split, spec §4.6).
func (d Pdata) IntoParts() (SignalType, Payload, Context) {
	return d.signal, d.payload, d.ctx
}

// SignalType reports which of the three signal families d carries.
func (d Pdata) SignalType() SignalType {
	return d.signal
}

// Payload returns d's payload without consuming d.
func (d Pdata) Payload() Payload {
	return d.payload
}

// Context returns d's ack-correlation context without consuming d.
func (d Pdata) Context() Context {
	return d.ctx
}

// NumItems reports the number of root-level telemetry items d carries
// (spec §4.1).
func (d Pdata) NumItems() int64 {
	return d.payload.NumItems(d.signal)
}

// Release frees any Arrow-backed memory held by d's payload.
func (d Pdata) Release() {
	d.payload.Release()
}

// Retain increments the reference count of any Arrow-backed memory held
// by d's payload. A processor that fans a single Pdata out to multiple
// out-ports must Retain once per extra destination beyond the first
// (spec §4.6 step 2, "clone it if it fans out") so the combined Release
// calls downstream balance the original allocation.
func (d Pdata) Retain() {
	d.payload.Retain()
}

// WithContext returns a copy of d with its context replaced, leaving
// signal and payload untouched, for a caller that splits a payload across
// multiple downstream sends and gives each split its own subscription slot
// (spec §4.6).
func (d Pdata) WithContext(ctx Context) Pdata {
	d.ctx = ctx
	return d
}
