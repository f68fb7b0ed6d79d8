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

package testnodes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/node"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

func item() pdata.Pdata {
	return pdata.NewWithContext(pdata.SignalLogs, pdata.NewOtlpPayload(nil), pdata.Context{})
}

func TestFakeReceiverEmitsConfiguredItemsThenIdles(t *testing.T) {
	out := chans.NewDataChan(4, chans.PolicyBlock)
	ctrl := chans.NewControlChan(4)
	handler := node.NewEffectHandler("recv", out, nil)

	r := &FakeReceiver{Items: []pdata.Pdata{item(), item(), item()}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx, ctrl, handler) }()

	for i := 0; i < 3; i++ {
		recvCtx, recvCancel := context.WithTimeout(context.Background(), time.Second)
		_, ok := out.Recv(recvCtx)
		recvCancel()
		require.True(t, ok)
	}

	require.NoError(t, ctrl.Send(chans.Shutdown{}))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("receiver did not observe shutdown")
	}
	cancel()
}

func TestNoopExporterAcksEveryItem(t *testing.T) {
	in := chans.NewDataChan(4, chans.PolicyBlock)
	ctrl := chans.NewControlChan(4)
	handler := node.NewEffectHandler("exp", nil, nil)

	e := &NoopExporter{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Start(ctx, ctrl, in, handler) }()

	require.NoError(t, in.Send(context.Background(), item()))
	require.NoError(t, in.Send(context.Background(), item()))
	require.NoError(t, ctrl.Send(chans.Shutdown{}))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("exporter did not shut down")
	}
	assert.EqualValues(t, 2, e.Delivered())
}

func TestFlakyExporterNacksUntilSwitchedToAck(t *testing.T) {
	in := chans.NewDataChan(4, chans.PolicyBlock)
	ctrl := chans.NewControlChan(4)
	handler := node.NewEffectHandler("flaky", nil, nil)

	e := NewFlakyExporter(false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Start(ctx, ctrl, in, handler) }()

	require.NoError(t, in.Send(context.Background(), item()))
	require.Eventually(t, func() bool { return e.NackCount() == 1 }, time.Second, time.Millisecond)

	e.SetShouldAck(true)
	require.NoError(t, in.Send(context.Background(), item()))
	require.Eventually(t, func() bool { return e.Delivered() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, ctrl.Send(chans.Shutdown{}))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("exporter did not shut down")
	}
}
