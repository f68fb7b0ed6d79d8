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

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPipelineSettingsAreSane(t *testing.T) {
	s := DefaultPipelineSettings()
	assert.Positive(t, s.ChannelCapacity)
	assert.Positive(t, s.TelemetryTickInterval)
	assert.Positive(t, s.ShutdownDeadline)
}

func TestValidateAcceptsWellFormedGraph(t *testing.T) {
	cfg := PipelineConfig{
		Nodes: map[string]NodeConfig{
			"recv": {ID: "recv", Kind: NodeKindReceiver, PluginURN: "urn:otel:otlp:receiver",
				OutPorts: map[string]OutPort{"out": {Dispatch: DispatchBroadcast, Destinations: []string{"exp"}}}},
			"exp": {ID: "exp", Kind: NodeKindExporter, PluginURN: "urn:otel:otap:exporter"},
		},
		Settings: DefaultPipelineSettings(),
	}
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsDanglingEdge(t *testing.T) {
	cfg := PipelineConfig{
		Nodes: map[string]NodeConfig{
			"recv": {ID: "recv", Kind: NodeKindReceiver, PluginURN: "urn:otel:otlp:receiver",
				OutPorts: map[string]OutPort{"out": {Destinations: []string{"missing"}}}},
		},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsKeyIDMismatch(t *testing.T) {
	cfg := PipelineConfig{
		Nodes: map[string]NodeConfig{
			"recv": {ID: "other-id", Kind: NodeKindReceiver},
		},
	}
	assert.Error(t, cfg.Validate())
}
