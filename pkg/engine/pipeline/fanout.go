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

package pipeline

import (
	"context"
	"math/rand"

	"github.com/open-telemetry/otap-dataflow-go/internal/config"
	"github.com/open-telemetry/otap-dataflow-go/internal/telemetry"
	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

// dispatcher is the per-out-port fan-out adapter the build phase installs
// between one of a node's named out-port channels and that port's
// configured destinations (spec §4.4 "processors may ... fan out (emit on
// multiple named out-ports)", §6.3's dispatch strategy enum). A node gets
// one dispatcher per out-port it declares; a node with a single default
// out-port has exactly one.
type dispatcher struct {
	in           *chans.DataChan
	strategy     config.DispatchStrategy
	destinations []*chans.DataChan
	counters     *telemetry.PipelineCounters

	rrNext int
}

func newDispatcher(in *chans.DataChan, strategy config.DispatchStrategy, destinations []*chans.DataChan, counters *telemetry.PipelineCounters) *dispatcher {
	return &dispatcher{in: in, strategy: strategy, destinations: destinations, counters: counters}
}

// run drains d.in until it is closed, dispatching each item across d's
// destinations per its strategy. It is meant to run in its own goroutine,
// one per node out-port.
func (d *dispatcher) run(ctx context.Context) {
	for {
		item, ok := d.in.Recv(ctx)
		if !ok {
			return
		}
		d.send(ctx, item)
	}
}

func (d *dispatcher) send(ctx context.Context, item pdata.Pdata) {
	if len(d.destinations) == 0 {
		return
	}

	switch d.strategy {
	case config.DispatchBroadcast:
		for i, dest := range d.destinations {
			out := item
			if i > 0 {
				out.Retain()
			}
			d.sendOne(ctx, dest, out)
		}
	case config.DispatchRoundRobin:
		dest := d.destinations[d.rrNext%len(d.destinations)]
		d.rrNext++
		d.sendOne(ctx, dest, item)
	case config.DispatchRandom:
		dest := d.destinations[rand.Intn(len(d.destinations))] //nolint:gosec // load distribution, not security-sensitive
		d.sendOne(ctx, dest, item)
	case config.DispatchLeastLoaded:
		dest := d.destinations[0]
		for _, other := range d.destinations[1:] {
			if other.Len() < dest.Len() {
				dest = other
			}
		}
		d.sendOne(ctx, dest, item)
	default:
		d.sendOne(ctx, d.destinations[0], item)
	}
}

func (d *dispatcher) sendOne(ctx context.Context, dest *chans.DataChan, item pdata.Pdata) {
	if err := dest.Send(ctx, item); err == nil {
		if d.counters != nil {
			d.counters.ChannelSent()
		}
	} else if d.counters != nil {
		d.counters.ChannelDrop()
	}
}
