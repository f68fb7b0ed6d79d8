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

// Package testnodes provides minimal Receiver/Exporter implementations
// for exercising a built pipeline end-to-end without real network I/O:
// a FakeReceiver that emits a fixed slice of items then idles until
// shutdown, a NoopExporter that ACKs everything immediately, and a
// FlakyExporter that NACKs until switched into ACK mode (supplemented
// from
// `original_source/rust/otap-dataflow/crates/otap/tests/common/flaky_exporter.rs`
// and its neighboring `noop_exporter.rs`).
package testnodes

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/node"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

// FakeReceiverURN is the URN a FakeReceiver registers under.
const FakeReceiverURN = "urn:otel:testnodes:receiver"

// FakeReceiver emits a fixed slice of items (spec §8.3's scenario setup
// needs a receiver that doesn't depend on real network I/O) and then
// idles, honoring Shutdown like any other receiver.
type FakeReceiver struct {
	Items []pdata.Pdata
}

// Start emits every configured item, in order, then blocks until ctrl
// delivers Shutdown or ctx is canceled.
func (r *FakeReceiver) Start(ctx context.Context, ctrl *chans.ControlChan, handler *node.EffectHandler) error {
	for _, item := range r.Items {
		if err := handler.SendData(ctx, item); err != nil {
			return err
		}
	}

	for {
		select {
		case msg, ok := <-ctrl.C():
			if !ok {
				return nil
			}
			if _, isShutdown := msg.(chans.Shutdown); isShutdown {
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// NoopExporterURN is the URN a NoopExporter registers under.
const NoopExporterURN = "urn:otel:noop:exporter"

// NoopExporter discards every item it receives, ACKing each immediately.
// Grounded on the original's `noop_exporter.rs`: an exporter whose only
// job is to prove the rest of the pipeline runs without depending on a
// real sink.
type NoopExporter struct {
	delivered atomic.Int64
}

// Delivered reports the number of items ACKed so far.
func (e *NoopExporter) Delivered() int64 { return e.delivered.Load() }

// Start drains in, ACKing every item, until ctrl delivers Shutdown.
func (e *NoopExporter) Start(ctx context.Context, ctrl *chans.ControlChan, in *chans.DataChan, handler *node.EffectHandler) error {
	node.RunUntilShutdown(ctx, ctrl, in, handler, e.onItem, nil)
	return nil
}

func (e *NoopExporter) onItem(ctx context.Context, d pdata.Pdata, handler *node.EffectHandler) error {
	e.delivered.Add(1)
	defer d.Release()
	return handler.NotifyAck(ctx, d.Context(), chans.AckOutcomeSent)
}

// FlakyExporterURN is the URN a FlakyExporter registers under.
const FlakyExporterURN = "urn:otel:flaky:exporter"

// FlakyExporter NACKs every item until SetShouldAck(true) switches it
// into ACK mode, for exercising the C6 retry-through-NACK path within a
// single pipeline run (spec §8.3 S7): start flaky, observe retries
// arrive, flip to healthy, observe delivery succeed. Ported from
// flaky_exporter.rs's global mutable test state into per-instance fields
// guarded by a mutex, since this package has no need for the original's
// cross-test global (each FlakyExporter here is its own instance, handed
// directly to the test that constructed it).
type FlakyExporter struct {
	mu        sync.Mutex
	shouldAck bool

	delivered atomic.Int64
	nacked    atomic.Int64
}

// NewFlakyExporter creates a FlakyExporter starting in the given mode
// (shouldAck false means it NACKs everything until SetShouldAck(true)).
func NewFlakyExporter(shouldAck bool) *FlakyExporter {
	return &FlakyExporter{shouldAck: shouldAck}
}

// SetShouldAck switches the exporter between ACK and NACK mode. Safe to
// call while the exporter's Start loop is running on another goroutine.
func (e *FlakyExporter) SetShouldAck(ack bool) {
	e.mu.Lock()
	e.shouldAck = ack
	e.mu.Unlock()
}

// Delivered reports the number of items ACKed so far.
func (e *FlakyExporter) Delivered() int64 { return e.delivered.Load() }

// NackCount reports the number of items NACKed so far.
func (e *FlakyExporter) NackCount() int64 { return e.nacked.Load() }

// Start drains in, ACKing or NACKing each item per the current mode,
// until ctrl delivers Shutdown.
func (e *FlakyExporter) Start(ctx context.Context, ctrl *chans.ControlChan, in *chans.DataChan, handler *node.EffectHandler) error {
	node.RunUntilShutdown(ctx, ctrl, in, handler, e.onItem, nil)
	return nil
}

func (e *FlakyExporter) onItem(ctx context.Context, d pdata.Pdata, handler *node.EffectHandler) error {
	e.mu.Lock()
	ack := e.shouldAck
	e.mu.Unlock()

	defer d.Release()
	if ack {
		e.delivered.Add(1)
		return handler.NotifyAck(ctx, d.Context(), chans.AckOutcomeSent)
	}
	e.nacked.Add(1)
	return handler.NotifyAck(ctx, d.Context(), chans.AckOutcomeExpired)
}
