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

// Command otapdataflow runs a small, self-contained pipeline that
// exercises every engine component without any real network I/O: a fake
// receiver emits a mix of signals into a signal-type router, which sends
// logs through a retry processor in front of a flaky exporter (spec
// §8.3 scenario S7) and everything else straight to a noop exporter.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/open-telemetry/otap-dataflow-go/internal/config"
	"github.com/open-telemetry/otap-dataflow-go/internal/nodes/retry"
	"github.com/open-telemetry/otap-dataflow-go/internal/nodes/router"
	"github.com/open-telemetry/otap-dataflow-go/internal/nodes/testnodes"
	"github.com/open-telemetry/otap-dataflow-go/internal/telemetry"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/pipeline"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

var (
	itemCount  = flag.Int("items", 10, "number of items the fake receiver emits")
	runTime    = flag.Duration("run", 2*time.Second, "how long to let the pipeline run before shutting down")
	flakyAfter = flag.Duration("flaky-recovers-after", 200*time.Millisecond, "delay before the flaky exporter starts acking")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var flaky *testnodes.FlakyExporter

	registry := pipeline.NewRegistry()
	if err := registerFactories(registry, &flaky); err != nil {
		return err
	}

	cfg := buildConfig(*itemCount)
	p, err := pipeline.Build(cfg, registry)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Run(ctx)

	time.AfterFunc(*flakyAfter, func() {
		if flaky != nil {
			flaky.SetShouldAck(true)
		}
	})

	time.Sleep(*runTime)

	snapshot := p.CollectTelemetry()
	results, shutdownErr := p.Shutdown(context.Background())
	for id, state := range results {
		log.Printf("node %s terminal state: %s", id, state)
	}
	if flaky != nil {
		log.Printf("flaky exporter: delivered=%d nacked=%d", flaky.Delivered(), flaky.NackCount())
	}

	telemetry.DumpTable(os.Stdout, "metric", snapshot)
	return shutdownErr
}

func registerFactories(registry *pipeline.Registry, flaky **testnodes.FlakyExporter) error {
	if err := registry.Register(testnodes.FakeReceiverURN, pipeline.KindReceiver, func(cfg config.NodeConfig) (pipeline.Wrapper, error) {
		items, _ := cfg.Config.([]pdata.Pdata)
		return pipeline.Wrapper{Receiver: &testnodes.FakeReceiver{Items: items}}, nil
	}); err != nil {
		return err
	}

	if err := registry.Register(router.PluginURN, pipeline.KindProcessor, func(cfg config.NodeConfig) (pipeline.Wrapper, error) {
		r, err := router.NewFromNodeConfig(cfg)
		if err != nil {
			return pipeline.Wrapper{}, err
		}
		return pipeline.Wrapper{Processor: r}, nil
	}); err != nil {
		return err
	}

	if err := registry.Register(retry.PluginURN, pipeline.KindProcessor, func(cfg config.NodeConfig) (pipeline.Wrapper, error) {
		r, err := retry.NewFromNodeConfig(cfg)
		if err != nil {
			return pipeline.Wrapper{}, err
		}
		return pipeline.Wrapper{Processor: r}, nil
	}); err != nil {
		return err
	}

	if err := registry.Register(testnodes.NoopExporterURN, pipeline.KindExporter, func(cfg config.NodeConfig) (pipeline.Wrapper, error) {
		return pipeline.Wrapper{Exporter: &testnodes.NoopExporter{}}, nil
	}); err != nil {
		return err
	}

	return registry.Register(testnodes.FlakyExporterURN, pipeline.KindExporter, func(cfg config.NodeConfig) (pipeline.Wrapper, error) {
		fe := testnodes.NewFlakyExporter(false)
		*flaky = fe
		return pipeline.Wrapper{Exporter: fe}, nil
	})
}

// buildConfig wires receiver -> router -> {retry -> flaky exporter,
// noop exporter}: logs are routed through the retry processor in front
// of the flaky exporter (S7), everything else goes straight to the
// noop exporter.
func buildConfig(items int) config.PipelineConfig {
	payloads := make([]pdata.Pdata, 0, items)
	for i := 0; i < items; i++ {
		signal := pdata.SignalMetrics
		if i%2 == 0 {
			signal = pdata.SignalLogs
		}
		payloads = append(payloads, pdata.NewWithContext(signal, pdata.NewOtlpPayload(nil), pdata.Context{}))
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		zapLogger = zap.NewNop()
	}

	settings := config.DefaultPipelineSettings()
	settings.TelemetryTickInterval = 200 * time.Millisecond
	settings.MeterProvider = telemetry.NewNoopMeterProvider()
	settings.Logger = zapLogger

	return config.PipelineConfig{
		Settings: settings,
		Nodes: map[string]config.NodeConfig{
			"receiver": {
				Kind:      config.NodeKindReceiver,
				PluginURN: testnodes.FakeReceiverURN,
				Config:    payloads,
				OutPorts: map[string]config.OutPort{
					"default": {Dispatch: config.DispatchBroadcast, Destinations: []string{"router"}},
				},
			},
			"router": {
				Kind:      config.NodeKindProcessor,
				PluginURN: router.PluginURN,
				Config: router.Config{
					Routing: router.PortRouting{
						SignalPorts: map[pdata.SignalType][]string{
							pdata.SignalLogs: {"logs_out"},
						},
						Default: []string{"other_out"},
					},
					Strategy: config.DispatchRoundRobin,
				},
				OutPorts: map[string]config.OutPort{
					"logs_out":  {Dispatch: config.DispatchBroadcast, Destinations: []string{"retry"}},
					"other_out": {Dispatch: config.DispatchBroadcast, Destinations: []string{"noop"}},
				},
			},
			"retry": {
				Kind:      config.NodeKindProcessor,
				PluginURN: retry.PluginURN,
				Config:    retry.DefaultConfig(),
				OutPorts: map[string]config.OutPort{
					"default": {Dispatch: config.DispatchBroadcast, Destinations: []string{"flaky"}},
				},
			},
			"flaky": {
				Kind:      config.NodeKindExporter,
				PluginURN: testnodes.FlakyExporterURN,
			},
			"noop": {
				Kind:      config.NodeKindExporter,
				PluginURN: testnodes.NoopExporterURN,
			},
		},
	}
}
