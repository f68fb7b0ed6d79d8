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

// Package pipeline implements the engine's build/run/shutdown phases
// (spec §4.5, C5): constructing a node graph from validated config,
// running one goroutine per node on a shared context, and tearing
// everything down within a deadline.
package pipeline

import (
	"github.com/open-telemetry/otap-dataflow-go/internal/config"
	"github.com/open-telemetry/otap-dataflow-go/internal/telemetry"
	"github.com/open-telemetry/otap-dataflow-go/internal/werror"
	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/ack"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/node"
)

// nodeState is the engine's private bookkeeping for one built node (spec
// §9's "arena+index for node and channel storage": the Pipeline is the
// sole owner of every node and channel; nothing else holds a reference
// back).
type nodeState struct {
	id      string
	kind    Kind
	wrapper Wrapper
	ctrl    *chans.ControlChan
	in      *chans.DataChan // nil for receivers
	outs    map[string]*chans.DataChan // one per configured out-port; nil for exporters
	handler *node.EffectHandler
	disps   []*dispatcher
	destIDs []string // this node's configured downstream node ids, for topological ordering

	terminal node.TerminalState
	runErr   error
	done     chan struct{}
}

// Pipeline is one built, runnable instance of a pipeline config (spec
// §4.5). Multiple Pipelines built from identical config may run on
// different goroutines/cores independently (spec's "multi-core" note);
// each has wholly independent channels, registry, and ack fabric.
type Pipeline struct {
	cfg      config.PipelineConfig
	registry *telemetry.Registry
	counters *telemetry.PipelineCounters
	acker    *ack.Fabric
	otel     *telemetry.OtelInstruments // nil unless cfg.Settings.MeterProvider is set
	otelPrev telemetry.Snapshot
	logger   *telemetry.EntityLogger

	nodes map[string]*nodeState
}

// Build runs the engine's build phase (spec §4.5): validates cfg,
// invokes each node's factory, allocates channels for every edge, and
// registers every pipeline/node/channel entity in the telemetry
// registry.
func Build(cfg config.PipelineConfig, factories *Registry) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:      cfg,
		registry: telemetry.NewRegistry(),
		counters: telemetry.NewPipelineCounters(),
		acker:    ack.NewFabric(),
		logger:   telemetry.NewEntityLogger(cfg.Settings.Logger),
		nodes:    make(map[string]*nodeState),
	}

	if err := p.registry.Register("pipeline", telemetry.EntityKindPipeline); err != nil {
		return nil, err
	}
	if err := p.registry.AttachMetricSet("pipeline", p.counters); err != nil {
		return nil, err
	}

	if cfg.Settings.MeterProvider != nil {
		otel, err := telemetry.NewOtelInstruments(cfg.Settings.MeterProvider)
		if err != nil {
			return nil, werror.WrapKind(werror.KindConfig, err)
		}
		p.otel = otel
	}

	for id, nc := range cfg.Nodes {
		kind, err := nodeKindOf(nc.Kind)
		if err != nil {
			return nil, err
		}
		if recv, ok := nc.Config.(AckFabricReceiver); ok {
			recv.SetAckFabric(p.acker)
		}
		wrapper, err := factories.Build(nc, kind)
		if err != nil {
			return nil, err
		}

		ctrlCap := cfg.Settings.ChannelCapacity
		if ctrlCap == 0 {
			ctrlCap = 8
		}
		ns := &nodeState{
			id:      id,
			kind:    kind,
			wrapper: wrapper,
			ctrl:    chans.NewControlChan(ctrlCap),
			done:    make(chan struct{}),
		}
		for _, out := range nc.OutPorts {
			ns.destIDs = append(ns.destIDs, out.Destinations...)
		}
		p.nodes[id] = ns

		if err := p.registry.Register("node."+id, telemetry.EntityKindNode); err != nil {
			return nil, err
		}
	}

	// Inbound edges: every node that is not a receiver reads from exactly
	// one shared inbound DataChan, fed by every upstream out-port that
	// names it as a destination.
	for id, nc := range cfg.Nodes {
		ns := p.nodes[id]
		if ns.kind == KindReceiver {
			continue
		}
		cap := cfg.Settings.ChannelCapacity
		if cap == 0 {
			cap = 64
		}
		ns.in = chans.NewDataChan(cap, cfg.Settings.ChannelOverflowPolicy)
		ns.in.AttachLogger("chan.in."+id, p.logger)
		if err := p.registry.Register("chan.in."+id, telemetry.EntityKindChannel); err != nil {
			return nil, err
		}
		_ = nc
	}

	// Outbound edges + dispatchers: every node gets one outbound DataChan
	// per configured out-port (what its EffectHandler writes that port's
	// items to) and one dispatcher goroutine fanning each port out across
	// its own destinations (spec §4.4 fan-out). A node with a single
	// unnamed out-port behaves exactly like the old single-output-edge
	// model; a node with several named ports (e.g. a signal-type router)
	// can target any one of them via EffectHandler.SendDataToPort.
	for id, nc := range cfg.Nodes {
		ns := p.nodes[id]
		if len(nc.OutPorts) == 0 {
			continue
		}
		cap := cfg.Settings.ChannelCapacity
		if cap == 0 {
			cap = 64
		}
		ns.outs = make(map[string]*chans.DataChan, len(nc.OutPorts))

		for portName, outPort := range nc.OutPorts {
			dests := make([]*chans.DataChan, 0, len(outPort.Destinations))
			for _, destID := range outPort.Destinations {
				destNS, ok := p.nodes[destID]
				if !ok {
					return nil, werror.WrapKind(werror.KindConfig, errString("pipeline: node `"+id+"` references unknown destination `"+destID+"`"))
				}
				dests = append(dests, destNS.in)
			}

			portChan := chans.NewDataChan(cap, cfg.Settings.ChannelOverflowPolicy)
			portChan.AttachLogger("chan.out."+id+"."+portName, p.logger)
			if err := p.registry.Register("chan.out."+id+"."+portName, telemetry.EntityKindChannel); err != nil {
				return nil, err
			}
			ns.outs[portName] = portChan
			ns.disps = append(ns.disps, newDispatcher(portChan, outPort.Dispatch, dests, p.counters))
		}
	}

	for id, nc := range cfg.Nodes {
		ns := p.nodes[id]
		var defaultOut *chans.DataChan
		if len(nc.OutPorts) == 1 {
			for _, out := range ns.outs {
				defaultOut = out
			}
		} else {
			defaultOut = ns.outs["default"]
		}
		ns.handler = node.NewEffectHandlerWithPorts(id, defaultOut, ns.outs, p.acker)
	}

	return p, nil
}

// CollectTelemetry rolls every registered entity's attached metric sets
// up into a flat snapshot (spec §4.5's telemetry timer, exposed here for
// callers that want an on-demand read rather than waiting for the
// pipeline's own ticker, and for the S6 scenario's pre-shutdown
// baseline).
func (p *Pipeline) CollectTelemetry() map[string]int64 {
	return p.registry.CollectAll()
}

// EntityCount reports the number of entities still registered (spec §8.3
// S6's post-shutdown "entity_count == 0" assertion).
func (p *Pipeline) EntityCount() int {
	return p.registry.EntityCount()
}

// AckFabricReceiver lets a node's plugin-specific Config (the opaque
// config.NodeConfig.Config blob) accept the pipeline's shared ack.Fabric
// before its factory runs. Most plugins never need this: they forward
// ACK/NACK faithfully through EffectHandler.NotifyAck, which already
// reaches the shared fabric (spec §4.4, "processors ... must forward
// ACK/NACK correlations faithfully if they do not terminate a payload").
// A node that manages its own retry subscriptions instead of merely
// forwarding — internal/nodes/retry.RetryProcessor — needs direct
// Subscribe/Await access to that same fabric instance, which isn't
// constructed until Build runs, so it can't simply be passed in at
// config-authoring time.
type AckFabricReceiver interface {
	SetAckFabric(f *ack.Fabric)
}

func nodeKindOf(k config.NodeKind) (Kind, error) {
	switch k {
	case config.NodeKindReceiver:
		return KindReceiver, nil
	case config.NodeKindProcessor, config.NodeKindProcessorChain:
		return KindProcessor, nil
	case config.NodeKindExporter:
		return KindExporter, nil
	default:
		return KindUnspecified, werror.WrapKind(werror.KindConfig, errString("pipeline: node has unspecified kind"))
	}
}
