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

// Package chans implements the bounded channels that connect pipeline
// nodes (spec §5): a data channel carrying pdata.Pdata with a configurable
// overflow policy, and a control channel carrying out-of-band messages
// (shutdown, config updates) that a node runtime always drains before
// data, via a biased select.
package chans

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/open-telemetry/otap-dataflow-go/internal/telemetry"
	"github.com/open-telemetry/otap-dataflow-go/internal/werror"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

// OverflowPolicy selects what a DataChan does when Send is called against
// a full channel (spec §5.2).
type OverflowPolicy uint8

const (
	// PolicyBlock makes Send wait for room, honoring ctx cancellation.
	PolicyBlock OverflowPolicy = iota
	// PolicyDropNewest makes Send discard the item being sent and return
	// immediately when the channel is full.
	PolicyDropNewest
	// PolicyDropOldest makes Send evict the oldest queued item to make
	// room for the new one, so Send never blocks or fails on a full
	// channel (only on a closed one).
	PolicyDropOldest
)

// String implements fmt.Stringer.
func (p OverflowPolicy) String() string {
	switch p {
	case PolicyBlock:
		return "block"
	case PolicyDropNewest:
		return "drop_newest"
	case PolicyDropOldest:
		return "drop_oldest"
	default:
		return "unknown"
	}
}

type errChannelFull string

func (e errChannelFull) Error() string { return string(e) }

// ErrChannelFull is returned by DataChan.Send under PolicyDropNewest when
// the channel has no room (spec §7, Kind ChannelFull).
const ErrChannelFull = errChannelFull("chans: channel full")

// DataChan is a bounded, single-signal-type queue of pdata.Pdata between
// two pipeline nodes (spec §5.2). It is safe for concurrent senders and a
// single receiver, matching the one-reader-per-edge pipeline topology
// (spec §4.4).
type DataChan struct {
	ch      chan pdata.Pdata
	policy  OverflowPolicy
	dropped atomic.Uint64
	sent    atomic.Uint64

	name   string
	logger *telemetry.EntityLogger
}

// NewDataChan creates a DataChan with the given buffer capacity and
// overflow policy.
func NewDataChan(capacity int, policy OverflowPolicy) *DataChan {
	return &DataChan{ch: make(chan pdata.Pdata, capacity), policy: policy}
}

// AttachLogger gives c an entity logger and the name it should identify
// itself as when logging (spec §7's channel-overflow warning event).
// Callers that never attach one (most tests, and any DataChan built
// outside of pipeline.Build) keep dropping silently into the counter
// only, exactly as before.
func (c *DataChan) AttachLogger(name string, logger *telemetry.EntityLogger) {
	c.name = name
	c.logger = logger
}

func (c *DataChan) warnDropped(reason string) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(c.name, "dropping pdata item", zap.String("policy", c.policy.String()), zap.String("reason", reason), zap.Uint64("dropped_total", c.dropped.Load()))
}

// Send enqueues d according to c's overflow policy. Under PolicyBlock it
// blocks until there is room or ctx is done, returning ctx.Err() in the
// latter case. Under PolicyDropNewest it returns ErrChannelFull instead of
// blocking. Under PolicyDropOldest it always succeeds (evicting the
// oldest item if necessary) unless c is closed, in which case it panics
// like a plain send on a closed channel — callers must not Send after
// Close.
func (c *DataChan) Send(ctx context.Context, d pdata.Pdata) error {
	switch c.policy {
	case PolicyBlock:
		select {
		case c.ch <- d:
			c.sent.Add(1)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case PolicyDropNewest:
		select {
		case c.ch <- d:
			c.sent.Add(1)
			return nil
		default:
			c.dropped.Add(1)
			c.warnDropped("channel full, newest item rejected")
			return werror.WrapKind(werror.KindChannelFull, ErrChannelFull)
		}
	case PolicyDropOldest:
		for {
			select {
			case c.ch <- d:
				c.sent.Add(1)
				return nil
			default:
			}
			select {
			case <-c.ch:
				c.dropped.Add(1)
				c.warnDropped("channel full, oldest item evicted")
			default:
				// someone else drained between our two selects; retry send
			}
		}
	default:
		return werror.WrapKind(werror.KindConfig, errUnknownPolicy)
	}
}

var errUnknownPolicy = errChannelFull("chans: unknown overflow policy")

// Recv receives the next item, blocking until one is available, ctx is
// done, or c is closed (in which case ok is false).
func (c *DataChan) Recv(ctx context.Context) (d pdata.Pdata, ok bool) {
	select {
	case d, ok = <-c.ch:
		return d, ok
	case <-ctx.Done():
		return pdata.Pdata{}, false
	}
}

// TryRecv receives the next item without blocking.
func (c *DataChan) TryRecv() (d pdata.Pdata, ok bool) {
	select {
	case d, ok = <-c.ch:
		return d, ok
	default:
		return pdata.Pdata{}, false
	}
}

// C exposes the underlying channel for use in a select statement
// alongside a control channel (see SelectBiased).
func (c *DataChan) C() <-chan pdata.Pdata { return c.ch }

// Close closes the channel. Callers must ensure no further Send calls
// occur afterward.
func (c *DataChan) Close() { close(c.ch) }

// Len reports the number of items currently queued.
func (c *DataChan) Len() int { return len(c.ch) }

// Cap reports the channel's buffer capacity.
func (c *DataChan) Cap() int { return cap(c.ch) }

// Dropped reports the cumulative count of items evicted or rejected by
// the overflow policy, for pipeline telemetry (spec §4.4's channel
// metrics).
func (c *DataChan) Dropped() uint64 { return c.dropped.Load() }

// Sent reports the cumulative count of items successfully enqueued.
func (c *DataChan) Sent() uint64 { return c.sent.Load() }
