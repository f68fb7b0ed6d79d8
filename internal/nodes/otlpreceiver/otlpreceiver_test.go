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

package otlpreceiver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/plog/plogotlp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/open-telemetry/otap-dataflow-go/internal/config"
	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/ack"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/node"
)

// getAvailableLocalAddress picks a free TCP port the same way the
// teacher's collector/testutil.GetAvailableLocalAddress does: open a
// listener on an OS-assigned port, read its address back, then close it
// so the receiver under test can bind it fresh.
func getAvailableLocalAddress(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())
	return addr
}

// TestReceiverForwardsAndAcksOnExport drives a real Export RPC through
// Receiver.Push end to end: a downstream "exporter" goroutine reads the
// single forwarded Pdata off the out channel and immediately ACKs it via
// the shared fabric, and the Export call must return success only once
// that ACK round-trips back through the subscription (spec §4.6 step 1,
// S1-shaped minimal logs payload).
func TestReceiverForwardsAndAcksOnExport(t *testing.T) {
	addr := getAvailableLocalAddress(t)
	fabric := ack.NewFabric()

	cfg := &Config{Addr: addr}
	cfg.SetAckFabric(fabric)
	r, err := NewFromNodeConfig(config.NodeConfig{Config: cfg})
	require.NoError(t, err)

	out := chans.NewDataChan(4, chans.PolicyBlock)
	ctrl := chans.NewControlChan(4)
	handler := node.NewEffectHandler("otlp-receiver", out, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx, ctrl, handler) }()

	// Ack whatever the receiver forwards, like a terminal exporter would.
	go func() {
		d, ok := out.Recv(ctx)
		if !ok {
			return
		}
		_, _, pctx := d.IntoParts()
		_ = fabric.NotifyAck(ctx, pctx, chans.AckOutcomeSent)
	}()

	require.Eventually(t, func() bool {
		dialCtx, dialCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer dialCancel()
		conn, err := grpc.DialContext(dialCtx, addr, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithBlock())
		if err != nil {
			return false
		}
		defer conn.Close()
		client := plogotlp.NewGRPCClient(conn)
		_, err = client.Export(dialCtx, plogotlp.NewExportRequestFromLogs(oneLogRecord()))
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, ctrl.Send(chans.Shutdown{}))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("receiver did not shut down")
	}
}

// TestNewFromNodeConfigRejectsMissingFabric mirrors
// internal/nodes/retry's config-shape tests: a *Config that never had
// SetAckFabric called on it (or a config blob of the wrong type) must be
// rejected at construction, not at first use.
func TestNewFromNodeConfigRejectsMissingFabric(t *testing.T) {
	_, err := NewFromNodeConfig(config.NodeConfig{Config: &Config{Addr: "127.0.0.1:0"}})
	require.Error(t, err)

	_, err = NewFromNodeConfig(config.NodeConfig{Config: "not-a-config"})
	require.Error(t, err)
}

func oneLogRecord() plog.Logs {
	ld := plog.NewLogs()
	rl := ld.ResourceLogs().AppendEmpty()
	sl := rl.ScopeLogs().AppendEmpty()
	lr := sl.LogRecords().AppendEmpty()
	lr.Body().SetStr("hello")
	return ld
}
