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

// Package retry implements a processor that retries a downstream
// delivery on NACK instead of forwarding the NACK upstream immediately
// (spec §8.3 scenario S7, "retry-through-NACK": a flaky exporter NACKs
// briefly, a retry processor in front of it keeps resending until the
// exporter recovers, and the original caller only ever observes the
// eventual ACK).
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/open-telemetry/otap-dataflow-go/internal/config"
	"github.com/open-telemetry/otap-dataflow-go/internal/werror"
	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/ack"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/node"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

// PluginURN is this processor's registry key.
const PluginURN = "urn:otap:processor:retry"

// Config is RetryProcessor's plugin-specific settings. A *Config (not a
// bare Config) must be stored in config.NodeConfig.Config, since
// pipeline.Build sets its ack fabric via the AckFabricReceiver hook
// (SetAckFabric) before the factory runs.
type Config struct {
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration

	fabric *ack.Fabric
}

// SetAckFabric implements pipeline.AckFabricReceiver.
func (c *Config) SetAckFabric(f *ack.Fabric) { c.fabric = f }

// DefaultConfig shortens backoff.NewExponentialBackOff's InitialInterval
// (500ms) to 50ms, with MaxElapsedTime tightened to fit comfortably
// inside a typical pipeline shutdown deadline.
func DefaultConfig() *Config {
	return &Config{
		InitialInterval: 50 * time.Millisecond,
		MaxElapsedTime:  2 * time.Second,
	}
}

// RetryProcessor owns a private ACK/NACK subscription per delivery
// attempt against the pipeline's shared ack.Fabric, so a NACK from a
// single attempt resolves only that attempt's slot rather than the
// original caller's (spec §4.6: a plain pass-through processor shares the
// same slot end to end; a retry processor must not, or the first NACK
// would reach the caller before retries are exhausted).
type RetryProcessor struct {
	fabric          *ack.Fabric
	initialInterval time.Duration
	maxElapsedTime  time.Duration
}

// NewFromNodeConfig builds a RetryProcessor from cfg's opaque Config
// blob, which must already have had SetAckFabric called on it (pipeline.Build
// does this automatically for any *Config found in a NodeConfig).
func NewFromNodeConfig(cfg config.NodeConfig) (*RetryProcessor, error) {
	rc, ok := cfg.Config.(*Config)
	if !ok {
		return nil, werror.WrapKind(werror.KindConfig, errString("retry: node config is not *retry.Config"))
	}
	if rc.fabric == nil {
		return nil, werror.WrapKind(werror.KindConfig, errString("retry: node config's ack fabric was never set"))
	}
	return &RetryProcessor{
		fabric:          rc.fabric,
		initialInterval: rc.InitialInterval,
		maxElapsedTime:  rc.MaxElapsedTime,
	}, nil
}

var errNacked = errString("retry: attempt was nacked")

type errString string

func (e errString) Error() string { return string(e) }

// Process hands d off to a background retry loop and returns immediately;
// the loop resends d under a fresh subscription until it is ACKed, the
// backoff's MaxElapsedTime is exhausted, or ctx is canceled, then reports
// exactly one terminal outcome back to d's original subscriber (spec
// §4.4: "a processor's main loop is driven entirely by the pipeline
// engine" — the retry loop itself must not block that loop, since
// individual attempts can legitimately take the full backoff schedule to
// resolve).
func (p *RetryProcessor) Process(ctx context.Context, d pdata.Pdata, handler *node.EffectHandler) error {
	signal, payload, origCtx := d.IntoParts()
	go p.retryLoop(ctx, signal, payload, origCtx, handler)
	return nil
}

func (p *RetryProcessor) retryLoop(ctx context.Context, signal pdata.SignalType, payload pdata.Payload, origCtx pdata.Context, handler *node.EffectHandler) {
	b := backoff.NewExponentialBackOff()
	if p.initialInterval > 0 {
		b.InitialInterval = p.initialInterval
	}
	b.MaxElapsedTime = p.maxElapsedTime
	bctx := backoff.WithContext(b, ctx)

	outcome := chans.AckOutcomeExpired
	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			// Every attempt after the first needs its own reference to
			// the payload; attempt 1 spends the reference Process
			// already owned.
			payload.Retain()
		}

		ticket, err := p.fabric.Subscribe(signal, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		item := pdata.NewWithContext(signal, payload, ticket.Context)
		if err := handler.SendData(ctx, item); err != nil {
			return backoff.Permanent(err)
		}

		got, err := p.fabric.Await(ctx, ticket)
		if err != nil {
			return backoff.Permanent(err)
		}
		if got != chans.AckOutcomeSent {
			return errNacked
		}
		outcome = got
		return nil
	}

	_ = backoff.Retry(op, bctx)
	_ = handler.NotifyAck(ctx, origCtx, outcome)
}

// Control handles out-of-band messages. RetryProcessor has no state a
// ConfigUpdate needs to flush; in-flight retry loops observe ctx
// cancellation directly rather than this channel.
func (p *RetryProcessor) Control(ctx context.Context, msg chans.ControlMsg, handler *node.EffectHandler) error {
	return nil
}
