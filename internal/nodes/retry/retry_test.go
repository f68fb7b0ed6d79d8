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

package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-telemetry/otap-dataflow-go/internal/nodes/testnodes"
	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/ack"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/node"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

// TestRetryProcessorEventuallyDeliversThroughAFlakyExporter wires a
// RetryProcessor directly in front of a FlakyExporter sharing one
// ack.Fabric, mirroring S7: the exporter starts in NACK mode, flips to
// ACK mode shortly after, and the original subscriber must observe
// exactly one terminal ACK once delivery finally succeeds.
func TestRetryProcessorEventuallyDeliversThroughAFlakyExporter(t *testing.T) {
	fabric := ack.NewFabric()

	exporterIn := chans.NewDataChan(8, chans.PolicyBlock)
	exporterCtrl := chans.NewControlChan(4)
	exporterHandler := node.NewEffectHandler("exporter", nil, fabric)

	flaky := testnodes.NewFlakyExporter(false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exporterDone := make(chan error, 1)
	go func() { exporterDone <- flaky.Start(ctx, exporterCtrl, exporterIn, exporterHandler) }()

	p := &RetryProcessor{fabric: fabric, initialInterval: 5 * time.Millisecond, maxElapsedTime: time.Second}
	processorHandler := node.NewEffectHandler("retry", exporterIn, nil)

	ticket, err := fabric.Subscribe(pdata.SignalLogs, nil)
	require.NoError(t, err)
	item := pdata.NewWithContext(pdata.SignalLogs, pdata.NewOtlpPayload(nil), ticket.Context)

	require.NoError(t, p.Process(context.Background(), item, processorHandler))

	time.Sleep(30 * time.Millisecond)
	flaky.SetShouldAck(true)

	outcome, err := fabric.Await(context.Background(), ticket)
	require.NoError(t, err)
	assert.Equal(t, chans.AckOutcomeSent, outcome)
	assert.GreaterOrEqual(t, flaky.Delivered(), int64(1))

	require.NoError(t, exporterCtrl.Send(chans.Shutdown{}))
	select {
	case err := <-exporterDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("exporter did not shut down")
	}
}
