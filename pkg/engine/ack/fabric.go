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

// Package ack implements the ACK/NACK subscription fabric (spec §4.6): a
// single shared structure per pipeline with one subscription map per
// signal type, keyed by a monotonically assigned slot id paired with a
// generation counter so a recycled slot id can never be confused with its
// predecessor's in-flight subscription (spec §5 "(slot_id, generation)
// pairs to defeat ABA").
package ack

import (
	"context"
	"sync"

	"github.com/open-telemetry/otap-dataflow-go/internal/werror"
	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

// Outcome is the terminal result of a subscription, mirroring
// chans.AckOutcome (spec §4.6 "Sent | Expired | Invalid | None").
type Outcome = chans.AckOutcome

const (
	OutcomeNone    = chans.AckOutcomeNone
	OutcomeSent    = chans.AckOutcomeSent
	OutcomeExpired = chans.AckOutcomeExpired
	OutcomeInvalid = chans.AckOutcomeInvalid
)

// CallData is the opaque handle a receiver stashes in a slot when it
// allocates one (spec §4.6 step 1); the fabric never inspects it.
type CallData any

type subscription struct {
	generation uint32
	calldata   CallData
	result     chan Outcome
}

// Ticket identifies one outstanding subscription. A receiver passes the
// embedded Context to the payload it emits (spec §4.6 step 1: "attaches
// the slot id to the payload context's interest record") and keeps the
// Ticket itself to await the eventual outcome.
type Ticket struct {
	Context pdata.Context
	result  chan Outcome
}

// Fabric is the per-pipeline ACK/NACK subscription structure: three
// independent per-signal slot maps plus a monotonic slot allocator (spec
// §4.6). It is single-threaded in the Rust source (no locks needed inside
// a pinned-core instance); this Go port keeps a mutex since pipeline
// nodes run as goroutines rather than true single-threaded tasks, but the
// critical sections are O(1) map operations.
type Fabric struct {
	mu   sync.Mutex
	next uint32
	gen  uint32
	maps map[pdata.SignalType]map[uint32]*subscription
}

// NewFabric creates an empty Fabric.
func NewFabric() *Fabric {
	return &Fabric{
		maps: map[pdata.SignalType]map[uint32]*subscription{
			pdata.SignalLogs:    {},
			pdata.SignalMetrics: {},
			pdata.SignalTraces:  {},
		},
	}
}

// Subscribe allocates a new slot for signal, storing calldata against it,
// and returns a Ticket the caller uses to attach interest to its payload
// and later await the result via Await (spec §4.6 step 1).
func (f *Fabric) Subscribe(signal pdata.SignalType, calldata CallData) (Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.maps[signal]
	if !ok {
		return Ticket{}, werror.WrapKind(werror.KindConfig, errUnknownSignal)
	}

	f.next++
	slotID := f.next
	f.gen++
	generation := f.gen

	sub := &subscription{generation: generation, calldata: calldata, result: make(chan Outcome, 1)}
	m[slotID] = sub

	return Ticket{
		Context: pdata.Context{SlotID: slotID, Generation: generation},
		result:  sub.result,
	}, nil
}

// Notify routes a terminal outcome for pctx back to its subscription
// (spec §4.6 step 3). It reports OutcomeInvalid if pctx carries no
// subscription, the slot is unknown, or the generation does not match
// (a stale reference to a recycled slot) — in all of those cases the
// call still succeeds (no error): Invalid is itself a valid routing
// outcome per the enumeration in §4.6, surfaced to the caller instead of
// silently dropped.
func (f *Fabric) Notify(signal pdata.SignalType, pctx pdata.Context, outcome Outcome) Outcome {
	if !pctx.HasSubscription() {
		return OutcomeNone
	}

	f.mu.Lock()
	m, ok := f.maps[signal]
	if !ok {
		f.mu.Unlock()
		return OutcomeInvalid
	}
	sub, ok := m[pctx.SlotID]
	if !ok || sub.generation != pctx.Generation {
		f.mu.Unlock()
		return OutcomeInvalid
	}
	delete(m, pctx.SlotID)
	f.mu.Unlock()

	sub.result <- outcome
	return outcome
}

// Await blocks until a terminal outcome arrives for t, ctx is canceled,
// or deadline (if set on the receiver's own request) elapses first,
// whichever comes first (spec §5 "ACK/NACK waits inherit the receiver's
// per-request deadline ... plus the pipeline shutdown deadline").
func (f *Fabric) Await(ctx context.Context, t Ticket) (Outcome, error) {
	select {
	case o := <-t.result:
		return o, nil
	case <-ctx.Done():
		return OutcomeExpired, ctx.Err()
	}
}

// ExpirePending marks every subscription still outstanding for signal as
// Expired and removes it from the map (spec §4.6 step 5: "if a shutdown
// deadline elapses before a response arrives, the fabric marks the slot
// Expired"). It returns the number of subscriptions expired.
func (f *Fabric) ExpirePending(signal pdata.SignalType) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.maps[signal]
	if !ok {
		return 0
	}
	n := 0
	for slotID, sub := range m {
		sub.result <- OutcomeExpired
		delete(m, slotID)
		n++
	}
	return n
}

// NotifyAck adapts Notify to the node.Acker interface (pkg/engine/node)
// so a Fabric can be passed directly as an exporter's EffectHandler
// acker without pkg/engine/ack importing pkg/engine/node.
func (f *Fabric) NotifyAck(_ context.Context, pctx pdata.Context, outcome Outcome) error {
	// The signal type isn't carried on pdata.Context; callers that need
	// per-signal routing use Notify directly with the Pdata's signal. A
	// bare NotifyAck call searches all three maps, since a slot id is
	// unique across the fabric's allocator regardless of which map holds
	// it.
	for _, signal := range []pdata.SignalType{pdata.SignalLogs, pdata.SignalMetrics, pdata.SignalTraces} {
		f.mu.Lock()
		m := f.maps[signal]
		sub, ok := m[pctx.SlotID]
		f.mu.Unlock()
		if ok && sub.generation == pctx.Generation {
			f.Notify(signal, pctx, outcome)
			return nil
		}
	}
	return nil
}

// Pending reports the number of outstanding subscriptions for signal, for
// telemetry snapshots (spec §4.5's per-node metric-set aggregation).
func (f *Fabric) Pending(signal pdata.SignalType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.maps[signal])
}

type errString string

func (e errString) Error() string { return string(e) }

var errUnknownSignal = errString("ack: unknown signal type")
