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

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/multierr"
)

const scopeName = "github.com/open-telemetry/otap-dataflow-go/internal/telemetry"

// OtelInstruments mirrors a PipelineCounters snapshot onto real
// `go.opentelemetry.io/otel/metric` instruments (spec §6's out-of-core
// "external reporter" boundary: this package only creates the
// instruments and feeds them from CollectAll, shipping the resulting
// series to a backend is the caller's concern). Grounded on the
// teacher's `concurrentbatchprocessor/metrics.go` pattern of resolving
// one `metric.Meter` and registering an Int64Counter per tracked value.
type OtelInstruments struct {
	nodesStarted metric.Int64Counter
	nodesStopped metric.Int64Counter
	channelSends metric.Int64Counter
	channelRecvs metric.Int64Counter
	channelDrops metric.Int64Counter
}

// NewOtelInstruments resolves mp's meter and registers one counter per
// PipelineCounters field.
func NewOtelInstruments(mp metric.MeterProvider) (*OtelInstruments, error) {
	meter := mp.Meter(scopeName)

	var errs, err error
	oi := &OtelInstruments{}

	oi.nodesStarted, err = meter.Int64Counter("pipeline.nodes_started", metric.WithDescription("Nodes started since pipeline build"), metric.WithUnit("1"))
	errs = multierr.Append(errs, err)
	oi.nodesStopped, err = meter.Int64Counter("pipeline.nodes_stopped", metric.WithDescription("Nodes stopped since pipeline build"), metric.WithUnit("1"))
	errs = multierr.Append(errs, err)
	oi.channelSends, err = meter.Int64Counter("pipeline.channel_sends", metric.WithDescription("Items successfully enqueued across all edges"), metric.WithUnit("1"))
	errs = multierr.Append(errs, err)
	oi.channelRecvs, err = meter.Int64Counter("pipeline.channel_recvs", metric.WithDescription("Items received across all edges"), metric.WithUnit("1"))
	errs = multierr.Append(errs, err)
	oi.channelDrops, err = meter.Int64Counter("pipeline.channel_drops", metric.WithDescription("Items dropped by an edge's overflow policy"), metric.WithUnit("1"))
	errs = multierr.Append(errs, err)

	return oi, errs
}

// NewNoopMeterProvider builds an SDK meter provider with no configured
// reader, so instruments can be created and recorded against without a
// metrics backend wired in (the common case when only CollectAll's
// snapshot is consumed directly, e.g. by internal/telemetry/report).
func NewNoopMeterProvider() metric.MeterProvider {
	return sdkmetric.NewMeterProvider()
}

// Record adds the delta between prev and cur to every instrument. Callers
// invoke this once per telemetry tick with the previous and current
// Snapshot so counters (which only ever increase in Snapshot, since they
// are cumulative) translate into monotonic otel counter Add calls.
func (oi *OtelInstruments) Record(ctx context.Context, prev, cur Snapshot) {
	oi.nodesStarted.Add(ctx, cur.NodesStarted-prev.NodesStarted)
	oi.nodesStopped.Add(ctx, cur.NodesStopped-prev.NodesStopped)
	oi.channelSends.Add(ctx, cur.ChannelSends-prev.ChannelSends)
	oi.channelRecvs.Add(ctx, cur.ChannelRecvs-prev.ChannelRecvs)
	oi.channelDrops.Add(ctx, cur.ChannelDrops-prev.ChannelDrops)
}
