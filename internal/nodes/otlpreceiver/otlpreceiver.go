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

// Package otlpreceiver implements a node.Receiver that accepts OTLP/gRPC
// Export requests and forwards them into the pipeline as OTAP payloads
// (spec §4.4's receiver role), grounded on the teacher's
// collector/gen/receiver/otlpreceiver (grpc.Server lifecycle) and
// internal/ingress (the Acceptor contract built for this module). Unlike
// a pass-through receiver, Push subscribes against the pipeline's ack
// fabric and awaits the outcome before the Export RPC returns, so a
// caller's OTLP client sees real downstream accept/reject rather than
// "queued".
package otlpreceiver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/open-telemetry/otap-dataflow-go/internal/config"
	"github.com/open-telemetry/otap-dataflow-go/internal/ingress"
	"github.com/open-telemetry/otap-dataflow-go/internal/werror"
	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/ack"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/node"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

// PluginURN is this receiver's registry key.
const PluginURN = "urn:otel:otlp:receiver"

// Config is Receiver's plugin-specific settings. A *Config (not a bare
// Config) must be stored in config.NodeConfig.Config, since
// pipeline.Build sets its ack fabric via the AckFabricReceiver hook
// (SetAckFabric) before the factory runs (mirroring internal/nodes/retry.Config).
type Config struct {
	// Network is the net.Listen network, e.g. "tcp". Empty defaults to "tcp".
	Network string
	// Addr is the net.Listen address, e.g. ":4317".
	Addr string

	fabric *ack.Fabric
}

// SetAckFabric implements pipeline.AckFabricReceiver.
func (c *Config) SetAckFabric(f *ack.Fabric) { c.fabric = f }

// Receiver serves the OTLP/gRPC Export services and forwards every
// accepted request downstream as a single OTAP-encoded Pdata, awaiting
// the pipeline's ack outcome before the RPC returns.
type Receiver struct {
	network string
	addr    string
	fabric  *ack.Fabric

	server  *grpc.Server
	handler *node.EffectHandler
}

// NewFromNodeConfig builds a Receiver from cfg's opaque Config blob,
// which must already have had SetAckFabric called on it.
func NewFromNodeConfig(cfg config.NodeConfig) (*Receiver, error) {
	rc, ok := cfg.Config.(*Config)
	if !ok || rc == nil {
		return nil, werror.WrapKind(werror.KindConfig, errBadConfig)
	}
	if rc.fabric == nil {
		return nil, werror.WrapKind(werror.KindConfig, errNoFabric)
	}
	network := rc.Network
	if network == "" {
		network = "tcp"
	}
	return &Receiver{network: network, addr: rc.Addr, fabric: rc.fabric}, nil
}

// Start opens the gRPC listener, serves Export requests until ctrl
// delivers Shutdown or ctx is canceled, then stops the server and
// returns.
func (r *Receiver) Start(ctx context.Context, ctrl *chans.ControlChan, handler *node.EffectHandler) error {
	lis, err := handler.Listen(r.network, r.addr)
	if err != nil {
		return err
	}

	r.handler = handler
	r.server = grpc.NewServer()
	ingress.Register(r.server, r)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- r.server.Serve(lis)
	}()

	for {
		select {
		case msg, ok := <-ctrl.C():
			if !ok {
				r.server.GracefulStop()
				return nil
			}
			if _, isShutdown := msg.(chans.Shutdown); isShutdown {
				r.server.GracefulStop()
				return nil
			}
		case <-ctx.Done():
			r.server.Stop()
			return nil
		case err := <-serveErr:
			if err != nil {
				return werror.WrapKind(werror.KindNodeFatal, err)
			}
			return nil
		}
	}
}

// Push implements ingress.Acceptor: it subscribes a fresh ack slot for
// signal, attaches it to payload's Context, forwards the item downstream,
// then awaits the pipeline's outcome before returning (spec §4.6 step 1).
func (r *Receiver) Push(ctx context.Context, signal pdata.SignalType, payload pdata.Payload, numItems int64) error {
	ticket, err := r.fabric.Subscribe(signal, numItems)
	if err != nil {
		return err
	}

	d := pdata.NewWithContext(signal, payload, ticket.Context)
	if err := r.handler.SendData(ctx, d); err != nil {
		return err
	}

	outcome, err := r.fabric.Await(ctx, ticket)
	if err != nil {
		return err
	}
	if outcome != ack.OutcomeSent {
		return werror.WrapKind(werror.KindAckInvalid, errNotAcked)
	}
	return nil
}

type errString string

func (e errString) Error() string { return string(e) }

var (
	errBadConfig = errString("otlpreceiver: node config is not a *Config with an attached ack fabric")
	errNoFabric  = errString("otlpreceiver: config was never given an ack fabric by pipeline.Build")
	errNotAcked  = errString("otlpreceiver: downstream delivery did not ack")
)
