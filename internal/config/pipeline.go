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

// Package config defines the typed, already-validated pipeline
// configuration surface the engine consumes (spec §6.3). Parsing a
// YAML/JSON document into these types is an external loader's job and
// out of scope here; this package only shapes what the core accepts plus
// the structural validation that does not require a live plugin
// registry (duplicate node names, dangling edges).
package config

import (
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/open-telemetry/otap-dataflow-go/internal/werror"
	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
)

// NodeKind is the role a NodeConfig declares (spec §6.3).
type NodeKind int

const (
	NodeKindUnspecified NodeKind = iota
	NodeKindReceiver
	NodeKindProcessor
	NodeKindProcessorChain
	NodeKindExporter
)

// DispatchStrategy selects how a node's out-port fans its output across
// multiple destinations (spec §6.3).
type DispatchStrategy int

const (
	DispatchUnspecified DispatchStrategy = iota
	DispatchBroadcast
	DispatchRoundRobin
	DispatchRandom
	DispatchLeastLoaded
)

// OutPort names one of a node's output edges and how it fans out across
// destinations.
type OutPort struct {
	Dispatch     DispatchStrategy
	Destinations []string
}

// NodeConfig is one node's validated declaration (spec §6.3).
type NodeConfig struct {
	ID        string
	Kind      NodeKind
	PluginURN string
	// Config is the plugin-specific settings blob, left opaque to the
	// core and handed to the node's factory as-is.
	Config   any
	OutPorts map[string]OutPort
}

// PipelineSettings carries the pipeline-wide defaults (spec §6.3).
type PipelineSettings struct {
	ChannelCapacity        int
	ChannelOverflowPolicy  chans.OverflowPolicy
	TelemetryTickInterval  time.Duration
	ChannelMetricsEnabled  bool
	ShutdownDeadline       time.Duration
	// MeterProvider, when set, makes the engine mirror each telemetry
	// tick's Snapshot onto real otel metric instruments in addition to
	// the in-process Registry (internal/telemetry.OtelInstruments). Left
	// nil, no otel instruments are created; CollectAll's own snapshot is
	// still available to callers that want it directly.
	MeterProvider metric.MeterProvider
	// Logger, when set, makes the engine emit entity-attributed log
	// events (spec §4.4's otel_info!/otel_warn! equivalents) for node
	// lifecycle transitions and channel overflow. Left nil, logging is a
	// no-op, mirroring the MeterProvider default above.
	Logger *zap.Logger
}

// DefaultPipelineSettings mirrors the teacher's functional-options-style
// defaults (pkg/config.DefaultConfig) translated to this domain's knobs.
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		ChannelCapacity:       64,
		ChannelOverflowPolicy: chans.PolicyBlock,
		TelemetryTickInterval: time.Second,
		ChannelMetricsEnabled: true,
		ShutdownDeadline:      5 * time.Second,
	}
}

// PipelineConfig is the fully validated representation the engine's
// build phase consumes (spec §4.5 step 1, §6.3).
type PipelineConfig struct {
	Nodes    map[string]NodeConfig
	Settings PipelineSettings
}

type errString string

func (e errString) Error() string { return string(e) }

// Validate checks the structural invariants the core itself must enforce
// before build (spec §7 ConfigError: "duplicated node names, unreachable
// edges"); URN-vs-kind agreement is checked separately by internal/urn
// once each node's plugin URN is known to the registry.
func (c PipelineConfig) Validate() error {
	for id, n := range c.Nodes {
		if n.ID != "" && n.ID != id {
			return werror.WrapKind(werror.KindConfig, errString("config: node map key `"+id+"` does not match NodeConfig.ID `"+n.ID+"`"))
		}
		for port, out := range n.OutPorts {
			for _, dest := range out.Destinations {
				if _, ok := c.Nodes[dest]; !ok {
					return werror.WrapKind(werror.KindConfig, errString("config: node `"+id+"` out-port `"+port+"` names unknown destination `"+dest+"`"))
				}
			}
		}
	}
	return nil
}
