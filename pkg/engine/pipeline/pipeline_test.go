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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-telemetry/otap-dataflow-go/internal/config"
	"github.com/open-telemetry/otap-dataflow-go/internal/nodes/retry"
	"github.com/open-telemetry/otap-dataflow-go/internal/nodes/testnodes"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/node"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

func registerTestNodeFactories(t *testing.T, flaky **testnodes.FlakyExporter) *Registry {
	t.Helper()
	reg := NewRegistry()

	require.NoError(t, reg.Register(testnodes.FakeReceiverURN, KindReceiver, func(cfg config.NodeConfig) (Wrapper, error) {
		items, _ := cfg.Config.([]pdata.Pdata)
		return Wrapper{Receiver: &testnodes.FakeReceiver{Items: items}}, nil
	}))
	require.NoError(t, reg.Register(testnodes.NoopExporterURN, KindExporter, func(cfg config.NodeConfig) (Wrapper, error) {
		return Wrapper{Exporter: &testnodes.NoopExporter{}}, nil
	}))
	require.NoError(t, reg.Register(retry.PluginURN, KindProcessor, func(cfg config.NodeConfig) (Wrapper, error) {
		r, err := retry.NewFromNodeConfig(cfg)
		if err != nil {
			return Wrapper{}, err
		}
		return Wrapper{Processor: r}, nil
	}))
	require.NoError(t, reg.Register(testnodes.FlakyExporterURN, KindExporter, func(cfg config.NodeConfig) (Wrapper, error) {
		fe := testnodes.NewFlakyExporter(false)
		*flaky = fe
		return Wrapper{Exporter: fe}, nil
	}))

	return reg
}

func testItems(n int) []pdata.Pdata {
	out := make([]pdata.Pdata, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, pdata.NewWithContext(pdata.SignalLogs, pdata.NewOtlpPayload(nil), pdata.Context{}))
	}
	return out
}

// TestPipelineBuildRunShutdownClearsEntities exercises spec §8.3 scenario
// S6: after Shutdown returns, every node/channel/pipeline entity must be
// gone from the telemetry registry.
func TestPipelineBuildRunShutdownClearsEntities(t *testing.T) {
	var flaky *testnodes.FlakyExporter
	reg := registerTestNodeFactories(t, &flaky)

	cfg := config.PipelineConfig{
		Settings: config.DefaultPipelineSettings(),
		Nodes: map[string]config.NodeConfig{
			"receiver": {
				Kind:      config.NodeKindReceiver,
				PluginURN: testnodes.FakeReceiverURN,
				Config:    testItems(3),
				OutPorts: map[string]config.OutPort{
					"default": {Dispatch: config.DispatchBroadcast, Destinations: []string{"exporter"}},
				},
			},
			"exporter": {
				Kind:      config.NodeKindExporter,
				PluginURN: testnodes.NoopExporterURN,
			},
		},
	}

	p, err := Build(cfg, reg)
	require.NoError(t, err)
	assert.Positive(t, p.EntityCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Run(ctx)

	results, shutdownErr := p.Shutdown(context.Background())
	require.NoError(t, shutdownErr)
	assert.Equal(t, node.TerminalStateShutdown, results["receiver"])
	assert.Equal(t, node.TerminalStateShutdown, results["exporter"])
	assert.Equal(t, 0, p.EntityCount())
}

// TestPipelineRetryThroughNack exercises spec §8.3 scenario S7: a flaky
// exporter NACKs for the first 50ms then starts acking; a retry
// processor sits in front of it. After giving the pipeline time to
// drive retries, every item the receiver emitted must have been
// delivered.
func TestPipelineRetryThroughNack(t *testing.T) {
	var flaky *testnodes.FlakyExporter
	reg := registerTestNodeFactories(t, &flaky)

	cfg := config.PipelineConfig{
		Settings: config.DefaultPipelineSettings(),
		Nodes: map[string]config.NodeConfig{
			"receiver": {
				Kind:      config.NodeKindReceiver,
				PluginURN: testnodes.FakeReceiverURN,
				Config:    testItems(10),
				OutPorts: map[string]config.OutPort{
					"default": {Dispatch: config.DispatchBroadcast, Destinations: []string{"retry"}},
				},
			},
			"retry": {
				Kind:      config.NodeKindProcessor,
				PluginURN: retry.PluginURN,
				Config: &retry.Config{
					InitialInterval: 5 * time.Millisecond,
					MaxElapsedTime:  time.Second,
				},
				OutPorts: map[string]config.OutPort{
					"default": {Dispatch: config.DispatchBroadcast, Destinations: []string{"exporter"}},
				},
			},
			"exporter": {
				Kind:      config.NodeKindExporter,
				PluginURN: testnodes.FlakyExporterURN,
			},
		},
	}

	p, err := Build(cfg, reg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Run(ctx)

	time.AfterFunc(50*time.Millisecond, func() { flaky.SetShouldAck(true) })

	require.Eventually(t, func() bool {
		return flaky.Delivered() == 10
	}, time.Second, 10*time.Millisecond, "expected all 10 items to eventually be delivered")

	_, shutdownErr := p.Shutdown(context.Background())
	require.NoError(t, shutdownErr)
}
