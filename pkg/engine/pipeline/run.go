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
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/node"
)

// Run starts every node and dispatcher goroutine and returns immediately;
// it does not block until the pipeline stops (spec §4.5 run phase). Call
// Shutdown, or cancel ctx directly, to stop it; use Wait to block until
// every node goroutine has returned.
func (p *Pipeline) Run(ctx context.Context) {
	for _, ns := range p.nodes {
		for _, disp := range ns.disps {
			go disp.run(ctx)
		}
	}

	for _, ns := range p.nodes {
		ns := ns
		p.counters.NodeStarted()
		p.logger.Info("node."+ns.id, "node starting")
		go func() {
			defer close(ns.done)
			defer p.counters.NodeStopped()
			ns.terminal, ns.runErr = p.runNode(ctx, ns)
			if ns.runErr != nil {
				p.logger.Error("node."+ns.id, "node stopped with error", ns.runErr, zap.String("terminal_state", ns.terminal.String()))
			} else {
				p.logger.Info("node."+ns.id, "node stopped", zap.String("terminal_state", ns.terminal.String()))
			}
		}()
	}

	if p.cfg.Settings.TelemetryTickInterval > 0 {
		go p.runTelemetryTicker(ctx)
	}
}

// runNode dispatches to the node-role-specific run strategy and converts
// panics into TerminalStateFatal rather than taking down the whole
// process (spec §4.5 "a panicking node must not bring down the rest of
// the pipeline").
func (p *Pipeline) runNode(ctx context.Context, ns *nodeState) (state node.TerminalState, err error) {
	defer func() {
		if r := recover(); r != nil {
			state = node.TerminalStateFatal
			err = panicError{recovered: r}
		}
	}()

	switch ns.kind {
	case KindReceiver:
		err = ns.wrapper.Receiver.Start(ctx, ns.ctrl, ns.handler)
		return terminalFromErr(ctx, err), err
	case KindExporter:
		err = ns.wrapper.Exporter.Start(ctx, ns.ctrl, ns.in, ns.handler)
		return terminalFromErr(ctx, err), err
	case KindProcessor:
		return p.runProcessor(ctx, ns), nil
	default:
		return node.TerminalStateFatal, panicError{recovered: "pipeline: node has unspecified kind"}
	}
}

// runProcessor drives a Processor with the same biased
// control-then-data loop an Exporter's Start would otherwise hand-roll
// (spec §4.4: processors are synchronous, so the engine itself owns the
// loop instead of handing the processor a goroutine of its own).
func (p *Pipeline) runProcessor(ctx context.Context, ns *nodeState) node.TerminalState {
	return node.RunUntilShutdown(ctx, ns.ctrl, ns.in, ns.handler, ns.wrapper.Processor.Process, ns.wrapper.Processor.Control)
}

func terminalFromErr(ctx context.Context, err error) node.TerminalState {
	if err == nil {
		return node.TerminalStateShutdown
	}
	if ctx.Err() != nil {
		return node.TerminalStateDeadlineElapsed
	}
	return node.TerminalStateFatal
}

type panicError struct{ recovered any }

func (e panicError) Error() string {
	return "pipeline: node panicked: " + formatRecovered(e.recovered)
}

func formatRecovered(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}

// runTelemetryTicker periodically rolls every registered entity's metric
// sets up into a Snapshot (spec §4.5's telemetry timer). When a
// MeterProvider was configured, the pipeline-wide counters are also
// mirrored onto real otel instruments (internal/telemetry.OtelInstruments);
// forwarding CollectAll's per-entity snapshot to an external reporter is
// otherwise out of this engine's scope (spec §6, out-of-core concern).
func (p *Pipeline) runTelemetryTicker(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Settings.TelemetryTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.cfg.Settings.ChannelMetricsEnabled {
				p.registry.CollectAll()
			}
			if p.otel != nil {
				cur := p.counters.Collect()
				p.otel.Record(ctx, p.otelPrev, cur)
				p.otelPrev = cur
			}
		}
	}
}

// Shutdown sends a Shutdown control message to every node in reverse
// topological order (spec §4.5 run phase step 4) and waits for every
// node goroutine to exit, up to the pipeline's configured shutdown
// deadline. It returns each node's terminal state keyed by node id and
// the combined error of every node that exited abnormally (multierr, the
// same way the teacher's collector joins errors across shutting-down
// components), and tears down the telemetry registry before returning,
// including when some nodes did not stop before the deadline.
func (p *Pipeline) Shutdown(ctx context.Context) (map[string]node.TerminalState, error) {
	p.logger.Info("pipeline", "shutdown requested")
	deadline := time.Now().Add(p.cfg.Settings.ShutdownDeadline)
	var sendErr error
	for _, id := range p.shutdownOrder() {
		sendErr = multierr.Append(sendErr, p.nodes[id].ctrl.Send(chans.Shutdown{Deadline: deadline}))
	}

	results := make(map[string]node.TerminalState, len(p.nodes))
	deadlineCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var joined error
	for id, ns := range p.nodes {
		select {
		case <-ns.done:
			results[id] = ns.terminal
			joined = multierr.Append(joined, ns.runErr)
			continue
		default:
		}
		select {
		case <-ns.done:
			results[id] = ns.terminal
			joined = multierr.Append(joined, ns.runErr)
		case <-deadlineCtx.Done():
			results[id] = node.TerminalStateDeadlineElapsed
		}
	}

	p.registry.UnregisterAll()
	return results, multierr.Append(sendErr, joined)
}

// Wait blocks until every node goroutine has returned, without itself
// requesting shutdown. Useful for a pipeline whose nodes all terminate on
// their own (e.g. every receiver reaches EOF).
func (p *Pipeline) Wait() map[string]node.TerminalState {
	results := make(map[string]node.TerminalState, len(p.nodes))
	for id, ns := range p.nodes {
		<-ns.done
		results[id] = ns.terminal
	}
	return results
}
