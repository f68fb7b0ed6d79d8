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

package node

import (
	"context"
	"time"

	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

// ItemFunc processes one data item pulled off an exporter's input edge.
type ItemFunc func(ctx context.Context, d pdata.Pdata, handler *EffectHandler) error

// ControlFunc handles an out-of-band control message other than Shutdown,
// which RunUntilShutdown always handles itself. Implementations typically
// switch on msg.(type) for chans.ConfigUpdate and similar.
type ControlFunc func(ctx context.Context, msg chans.ControlMsg, handler *EffectHandler) error

// RunUntilShutdown implements the standard exporter/processor-as-consumer
// loop (spec §5.3): repeatedly select the next control message or data
// item, always preferring control, until a Shutdown is observed or ctx is
// canceled. Shutdown.Deadline (if non-zero) bounds how long the loop will
// keep draining in through onItem before returning
// TerminalStateDeadlineElapsed instead of TerminalStateShutdown.
//
// Concrete Exporter and Processor implementations that consume from a
// single input edge can build Start/Process entirely out of onItem and
// onControl, rather than hand-rolling the select loop themselves.
func RunUntilShutdown(ctx context.Context, ctrl *chans.ControlChan, in *chans.DataChan, handler *EffectHandler, onItem ItemFunc, onControl ControlFunc) TerminalState {
	for {
		res := chans.SelectBiased(ctx, ctrl, in)
		switch {
		case res.Closed:
			return TerminalStateShutdown
		case res.IsControl:
			if sd, ok := res.Control.(chans.Shutdown); ok {
				return drain(ctx, in, sd.Deadline, handler, onItem)
			}
			if onControl != nil {
				if err := onControl(ctx, res.Control, handler); err != nil {
					return TerminalStateFatal
				}
			}
		default:
			if err := onItem(ctx, res.Data, handler); err != nil {
				return TerminalStateFatal
			}
		}
	}
}

// drain consumes whatever remains queued on in, honoring deadline if it is
// non-zero, so that a node finishes in-flight work before its goroutine
// exits (spec §5.4).
func drain(ctx context.Context, in *chans.DataChan, deadline time.Time, handler *EffectHandler, onItem ItemFunc) TerminalState {
	drainCtx := ctx
	var cancel context.CancelFunc
	if !deadline.IsZero() {
		drainCtx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	for {
		d, ok := in.TryRecv()
		if !ok {
			return TerminalStateShutdown
		}
		if err := onItem(drainCtx, d, handler); err != nil {
			if drainCtx.Err() != nil {
				return TerminalStateDeadlineElapsed
			}
			return TerminalStateFatal
		}
		if drainCtx.Err() != nil {
			return TerminalStateDeadlineElapsed
		}
	}
}
