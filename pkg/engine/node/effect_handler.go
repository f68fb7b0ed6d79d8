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

package node

import (
	"context"
	"net"

	"github.com/open-telemetry/otap-dataflow-go/internal/werror"
	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

// Acker reports the terminal outcome of a previously emitted pdata.Context
// back through the ACK/NACK fabric (spec §4.6). pkg/engine/ack provides the
// concrete implementation wired in by the pipeline at build time.
type Acker interface {
	NotifyAck(ctx context.Context, pctx pdata.Context, outcome chans.AckOutcome) error
}

type noopAcker struct{}

func (noopAcker) NotifyAck(context.Context, pdata.Context, chans.AckOutcome) error { return nil }

// EffectHandler is the single side-effecting handle a node uses to emit
// data downstream, report ack outcomes, and perform the handful of
// privileged actions (opening a listener) a node is allowed, without
// giving it direct access to the pipeline engine (spec §4.4's "effect
// handler is the node's only window onto the outside world").
//
// A zero EffectHandler is not usable; construct one with NewEffectHandler.
type EffectHandler struct {
	nodeName string
	out      *chans.DataChan
	ports    map[string]*chans.DataChan
	acker    Acker
}

// NewEffectHandler builds an EffectHandler for a node named nodeName that
// emits downstream via out and reports ack outcomes via acker. acker may
// be nil, in which case NotifyAck is a no-op (receivers and most
// processors have no subscription to report against).
func NewEffectHandler(nodeName string, out *chans.DataChan, acker Acker) *EffectHandler {
	return NewEffectHandlerWithPorts(nodeName, out, nil, acker)
}

// NewEffectHandlerWithPorts builds an EffectHandler like NewEffectHandler,
// additionally giving it named out-ports a processor can target
// individually via SendDataToPort (spec §4.4: "processors may ... fan out
// (emit on multiple named out-ports)", e.g. a signal-type router choosing
// one of several ports per item rather than broadcasting to all of them).
// out remains the destination SendData uses and may be nil if the node
// only ever emits through named ports.
func NewEffectHandlerWithPorts(nodeName string, out *chans.DataChan, ports map[string]*chans.DataChan, acker Acker) *EffectHandler {
	if acker == nil {
		acker = noopAcker{}
	}
	return &EffectHandler{nodeName: nodeName, out: out, ports: ports, acker: acker}
}

// NodeName returns the name this handler's owning node was registered
// under (spec §6.2 NodeConfig.name), for logging and telemetry labeling.
func (h *EffectHandler) NodeName() string { return h.nodeName }

// SendData forwards d to the node's single downstream edge. Receivers and
// processors call this for every item they produce; the overflow policy
// configured on the edge (spec §5.2) governs what happens under
// backpressure.
func (h *EffectHandler) SendData(ctx context.Context, d pdata.Pdata) error {
	if h.out == nil {
		return werror.WrapKind(werror.KindNodeFatal, errNoOutputEdge)
	}
	return h.out.Send(ctx, d)
}

// SendDataToPort forwards d to the named out-port rather than the node's
// default output edge. Nodes built with NewEffectHandler (no named ports)
// fall back to the default edge so single-port nodes never need to know
// about port names at all.
func (h *EffectHandler) SendDataToPort(ctx context.Context, port string, d pdata.Pdata) error {
	if out, ok := h.ports[port]; ok {
		return out.Send(ctx, d)
	}
	if h.out != nil {
		return h.out.Send(ctx, d)
	}
	return werror.WrapKind(werror.KindNodeFatal, errNoOutputEdge)
}

// NotifyAck reports the terminal outcome of pctx's subscription, if any
// (spec §4.6). Exporters call this once per item after a delivery attempt
// resolves, whether or not the item actually carried a subscription.
func (h *EffectHandler) NotifyAck(ctx context.Context, pctx pdata.Context, outcome chans.AckOutcome) error {
	return h.acker.NotifyAck(ctx, pctx, outcome)
}

// Listen opens a TCP listener on addr on the node's behalf. It exists so
// that receivers obtain their network resources through the effect
// handler rather than calling net.Listen directly, keeping resource
// lifetime visible to the engine for shutdown and testing (spec §4.4).
func (h *EffectHandler) Listen(network, addr string) (net.Listener, error) {
	lis, err := net.Listen(network, addr)
	if err != nil {
		return nil, werror.WrapKind(werror.KindNodeFatal, err)
	}
	return lis, nil
}

type errString string

func (e errString) Error() string { return string(e) }

var errNoOutputEdge = errString("node: effect handler has no output edge configured")
