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

import "sync/atomic"

// Snapshot is the typed aggregate of per-pipeline counters the telemetry
// timer rolls up at each tick (spec §4.5 "aggregate the returned metric
// sets into a snapshot"; supplemented from
// `original_source/rust/otap-dataflow/crates/engine/src/pipeline_metrics.rs`).
type Snapshot struct {
	NodesStarted   int64
	NodesStopped   int64
	ChannelSends   int64
	ChannelRecvs   int64
	ChannelDrops   int64
}

// PipelineCounters is the live, mutable counterpart of Snapshot that the
// engine updates as nodes start/stop and channels move data; Collect
// produces an immutable copy for reporting.
type PipelineCounters struct {
	nodesStarted atomic.Int64
	nodesStopped atomic.Int64
	channelSends atomic.Int64
	channelRecvs atomic.Int64
	channelDrops atomic.Int64
}

// NewPipelineCounters creates a zeroed PipelineCounters.
func NewPipelineCounters() *PipelineCounters { return &PipelineCounters{} }

func (c *PipelineCounters) NodeStarted()  { c.nodesStarted.Add(1) }
func (c *PipelineCounters) NodeStopped()  { c.nodesStopped.Add(1) }
func (c *PipelineCounters) ChannelSent()  { c.channelSends.Add(1) }
func (c *PipelineCounters) ChannelRecv()  { c.channelRecvs.Add(1) }
func (c *PipelineCounters) ChannelDrop()  { c.channelDrops.Add(1) }

// Collect returns a consistent, copied snapshot of the current counters
// (spec §5 "readers that want a snapshot receive a consistent, copied
// view").
func (c *PipelineCounters) Collect() Snapshot {
	return Snapshot{
		NodesStarted: c.nodesStarted.Load(),
		NodesStopped: c.nodesStopped.Load(),
		ChannelSends: c.channelSends.Load(),
		ChannelRecvs: c.channelRecvs.Load(),
		ChannelDrops: c.channelDrops.Load(),
	}
}

// Snapshot implements MetricSet so a PipelineCounters can be attached
// directly to the pipeline's own Registry entity.
func (c *PipelineCounters) Snapshot() map[string]int64 {
	s := c.Collect()
	return map[string]int64{
		"nodes_started": s.NodesStarted,
		"nodes_stopped": s.NodesStopped,
		"channel_sends": s.ChannelSends,
		"channel_recvs": s.ChannelRecvs,
		"channel_drops": s.ChannelDrops,
	}
}
