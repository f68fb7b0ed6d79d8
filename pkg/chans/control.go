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

package chans

import (
	"context"
	"time"

	"github.com/open-telemetry/otap-dataflow-go/internal/werror"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

// ControlMsg is a message sent out-of-band to a node, always observed
// ahead of pending data (spec §5.3, "control messages pre-empt data").
type ControlMsg interface {
	isControlMsg()
}

// Shutdown requests a node stop accepting new data and drain within
// Deadline (spec §5.4, §7 ShutdownDeadlineElapsed).
type Shutdown struct {
	Deadline time.Time
}

func (Shutdown) isControlMsg() {}

// ConfigUpdate carries a live configuration change for a running node
// (spec §6.3's "nodes may accept configuration updates without a
// restart").
type ConfigUpdate struct {
	Settings map[string]string
}

func (ConfigUpdate) isControlMsg() {}

// AckEvent reports the terminal outcome of a previously emitted Context
// back through the node that owns the originating subscription (spec
// §4.6). No package in this module constructs or sends AckEvent; the ack
// fabric (pkg/engine/ack) reports outcomes through its own Notify/Await.
type AckEvent struct {
	Context pdata.Context
	Outcome AckOutcome
}

func (AckEvent) isControlMsg() {}

// AckOutcome mirrors the ack fabric's outcome taxonomy (spec §4.6).
type AckOutcome uint8

const (
	AckOutcomeNone AckOutcome = iota
	AckOutcomeSent
	AckOutcomeExpired
	AckOutcomeInvalid
)

// ControlChan is a bounded MPSC channel of ControlMsg. It is always
// non-blocking on Send (a full control channel is a configuration error,
// spec §7 ChannelFull) since control traffic volume is expected to be far
// below data volume.
type ControlChan struct {
	ch chan ControlMsg
}

// NewControlChan creates a ControlChan with the given buffer capacity.
func NewControlChan(capacity int) *ControlChan {
	return &ControlChan{ch: make(chan ControlMsg, capacity)}
}

// Send enqueues msg, returning ErrChannelFull if there is no room.
func (c *ControlChan) Send(msg ControlMsg) error {
	select {
	case c.ch <- msg:
		return nil
	default:
		return werror.WrapKind(werror.KindChannelFull, ErrChannelFull)
	}
}

// C exposes the underlying channel for use in SelectBiased.
func (c *ControlChan) C() <-chan ControlMsg { return c.ch }

// Close closes the channel. Callers must ensure no further Send calls
// occur afterward.
func (c *ControlChan) Close() { close(c.ch) }

// SelectResult is the outcome of a single SelectBiased call.
type SelectResult struct {
	// IsControl is true if Control is populated, false if Data is.
	IsControl bool
	Control   ControlMsg
	Data      pdata.Pdata
	// Closed is true if ctx was done or the channel selected from was
	// closed; Control/Data are zero in that case.
	Closed bool
}

// SelectBiased receives the next available message, always preferring a
// pending control message over a pending data item (spec §5.3). It first
// polls control non-blocking; only if nothing is immediately available
// does it fall into an unbiased select across both channels and ctx.
func SelectBiased(ctx context.Context, control *ControlChan, data *DataChan) SelectResult {
	select {
	case m, ok := <-control.ch:
		if !ok {
			return SelectResult{Closed: true}
		}
		return SelectResult{IsControl: true, Control: m}
	default:
	}

	select {
	case m, ok := <-control.ch:
		if !ok {
			return SelectResult{Closed: true}
		}
		return SelectResult{IsControl: true, Control: m}
	case d, ok := <-data.ch:
		if !ok {
			return SelectResult{Closed: true}
		}
		return SelectResult{Data: d}
	case <-ctx.Done():
		return SelectResult{Closed: true}
	}
}
