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

// Package node defines the three node roles that make up a pipeline DAG
// (spec §4.4): Receiver, Processor and Exporter. Each role owns its own
// goroutine, started once by the pipeline engine (pkg/engine/pipeline)
// and run to completion; the only way the engine communicates with a
// running node afterward is through its control channel.
package node

import (
	"context"

	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

// Receiver accepts data from outside the pipeline (a network listener, a
// file tail, a test harness) and converts it into pdata.Pdata for
// downstream nodes. It owns its own I/O and is expected to process
// control messages with priority over any external input it is polling
// (spec §5.3).
type Receiver interface {
	// Start runs the receiver until ctrl delivers a Shutdown message or
	// ctx is canceled, using handler to emit data and report fatal
	// errors. Start takes ownership of the receiver for its lifetime; it
	// must return once shutdown completes.
	Start(ctx context.Context, ctrl *chans.ControlChan, handler *EffectHandler) error
}

// Processor transforms one pdata.Pdata into zero or more outputs. Unlike
// Receiver/Exporter, a processor's main loop is driven entirely by the
// pipeline engine (spec §4.4): the engine delivers control messages and
// input items one at a time, and the processor returns synchronously.
type Processor interface {
	// Process consumes d and forwards zero or more results via handler.
	// It must not block on I/O; a processor that needs to do blocking
	// work should be written as a Receiver/Exporter pair instead (spec
	// §4.4's "processors are synchronous").
	Process(ctx context.Context, d pdata.Pdata, handler *EffectHandler) error
	// Control handles an out-of-band control message (spec §5.3).
	Control(ctx context.Context, msg chans.ControlMsg, handler *EffectHandler) error
}

// Exporter sends data to a destination outside the pipeline (a network
// client, a file, a test sink) and reports delivery outcomes through the
// ACK/NACK fabric via handler.
type Exporter interface {
	// Start runs the exporter until ctrl delivers a Shutdown message or
	// ctx is canceled, consuming items from in and reporting outcomes via
	// handler.
	Start(ctx context.Context, ctrl *chans.ControlChan, in *chans.DataChan, handler *EffectHandler) error
}

// TerminalState reports why a node's Start method returned, for pipeline
// shutdown bookkeeping and diagnostics (spec §5.4).
type TerminalState uint8

const (
	TerminalStateUnspecified TerminalState = iota
	// TerminalStateShutdown means the node observed a Shutdown control
	// message and drained/stopped cleanly within its deadline.
	TerminalStateShutdown
	// TerminalStateDeadlineElapsed means the node's Shutdown deadline
	// elapsed before it finished draining (spec §7
	// ShutdownDeadlineElapsed).
	TerminalStateDeadlineElapsed
	// TerminalStateFatal means the node returned a non-recoverable error
	// outside of shutdown (spec §7 NodeFatal).
	TerminalStateFatal
)

// String implements fmt.Stringer.
func (s TerminalState) String() string {
	switch s {
	case TerminalStateShutdown:
		return "shutdown"
	case TerminalStateDeadlineElapsed:
		return "deadline_elapsed"
	case TerminalStateFatal:
		return "fatal"
	default:
		return "unspecified"
	}
}
