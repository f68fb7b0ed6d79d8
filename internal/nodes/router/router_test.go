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

package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-telemetry/otap-dataflow-go/internal/config"
	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/node"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

func newHandler(t *testing.T, ports map[string]*chans.DataChan) *node.EffectHandler {
	t.Helper()
	return node.NewEffectHandlerWithPorts("router", nil, ports, nil)
}

func item(signal pdata.SignalType) pdata.Pdata {
	return pdata.NewWithContext(signal, pdata.NewOtlpPayload(nil), pdata.Context{})
}

func TestSignalTypeRouterRoutesBySignal(t *testing.T) {
	logsOut := chans.NewDataChan(4, chans.PolicyBlock)
	metricsOut := chans.NewDataChan(4, chans.PolicyBlock)
	handler := newHandler(t, map[string]*chans.DataChan{"logs_out": logsOut, "metrics_out": metricsOut})

	r := New(Config{
		Routing: PortRouting{
			SignalPorts: map[pdata.SignalType][]string{
				pdata.SignalLogs:    {"logs_out"},
				pdata.SignalMetrics: {"metrics_out"},
			},
		},
		Strategy: config.DispatchRoundRobin,
	})

	require.NoError(t, r.Process(context.Background(), item(pdata.SignalLogs), handler))
	require.NoError(t, r.Process(context.Background(), item(pdata.SignalMetrics), handler))

	assert.Equal(t, 1, logsOut.Len())
	assert.Equal(t, 1, metricsOut.Len())
}

func TestSignalTypeRouterFallsBackToDefaultPort(t *testing.T) {
	defaultOut := chans.NewDataChan(4, chans.PolicyBlock)
	handler := newHandler(t, map[string]*chans.DataChan{"default": defaultOut})

	r := New(Config{Routing: PortRouting{Default: []string{"default"}}})

	require.NoError(t, r.Process(context.Background(), item(pdata.SignalTraces), handler))
	assert.Equal(t, 1, defaultOut.Len())
}

func TestSignalTypeRouterRoundRobinsAcrossCandidates(t *testing.T) {
	a := chans.NewDataChan(4, chans.PolicyBlock)
	b := chans.NewDataChan(4, chans.PolicyBlock)
	handler := newHandler(t, map[string]*chans.DataChan{"a": a, "b": b})

	r := New(Config{
		Routing: PortRouting{
			SignalPorts: map[pdata.SignalType][]string{pdata.SignalLogs: {"a", "b"}},
		},
		Strategy: config.DispatchRoundRobin,
	})

	for i := 0; i < 4; i++ {
		require.NoError(t, r.Process(context.Background(), item(pdata.SignalLogs), handler))
	}
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, b.Len())
}

func TestSignalTypeRouterBroadcastSendsToEveryCandidate(t *testing.T) {
	a := chans.NewDataChan(4, chans.PolicyBlock)
	b := chans.NewDataChan(4, chans.PolicyBlock)
	handler := newHandler(t, map[string]*chans.DataChan{"a": a, "b": b})

	r := New(Config{
		Routing: PortRouting{
			SignalPorts: map[pdata.SignalType][]string{pdata.SignalLogs: {"a", "b"}},
		},
		Strategy: config.DispatchBroadcast,
	})

	require.NoError(t, r.Process(context.Background(), item(pdata.SignalLogs), handler))
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}

func TestSignalTypeRouterWithNoCandidatesDropsAndReleases(t *testing.T) {
	handler := newHandler(t, map[string]*chans.DataChan{})
	r := New(Config{})
	require.NoError(t, r.Process(context.Background(), item(pdata.SignalLogs), handler))
}
