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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-telemetry/otap-dataflow-go/internal/config"
	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

func testItem(slot uint32) pdata.Pdata {
	return pdata.NewWithContext(pdata.SignalLogs, pdata.NewOtlpPayload(nil), pdata.Context{SlotID: slot})
}

func recvWithin(t *testing.T, d *chans.DataChan, timeout time.Duration) pdata.Pdata {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	item, ok := d.Recv(ctx)
	require.True(t, ok, "expected an item within %s", timeout)
	return item
}

func TestDispatcherBroadcastSendsToEveryDestination(t *testing.T) {
	in := chans.NewDataChan(4, chans.PolicyBlock)
	a := chans.NewDataChan(4, chans.PolicyBlock)
	b := chans.NewDataChan(4, chans.PolicyBlock)
	c := chans.NewDataChan(4, chans.PolicyBlock)

	d := newDispatcher(in, config.DispatchBroadcast, []*chans.DataChan{a, b, c}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.run(ctx)

	require.NoError(t, in.Send(context.Background(), testItem(1)))

	for _, dest := range []*chans.DataChan{a, b, c} {
		got := recvWithin(t, dest, time.Second)
		assert.EqualValues(t, 1, got.Context().SlotID)
	}
}

func TestDispatcherRoundRobinRotatesDestinations(t *testing.T) {
	in := chans.NewDataChan(8, chans.PolicyBlock)
	a := chans.NewDataChan(8, chans.PolicyBlock)
	b := chans.NewDataChan(8, chans.PolicyBlock)

	d := newDispatcher(in, config.DispatchRoundRobin, []*chans.DataChan{a, b}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.run(ctx)

	for i := uint32(1); i <= 4; i++ {
		require.NoError(t, in.Send(context.Background(), testItem(i)))
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, b.Len())
}

func TestDispatcherLeastLoadedPrefersShorterQueue(t *testing.T) {
	in := chans.NewDataChan(4, chans.PolicyBlock)
	a := chans.NewDataChan(8, chans.PolicyBlock)
	b := chans.NewDataChan(8, chans.PolicyBlock)
	// Pre-load `a` so `b` is the less-loaded destination.
	require.NoError(t, a.Send(context.Background(), testItem(99)))
	require.NoError(t, a.Send(context.Background(), testItem(98)))

	d := newDispatcher(in, config.DispatchLeastLoaded, []*chans.DataChan{a, b}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.run(ctx)

	require.NoError(t, in.Send(context.Background(), testItem(1)))

	got := recvWithin(t, b, time.Second)
	assert.EqualValues(t, 1, got.Context().SlotID)
	assert.Equal(t, 0, in.Len())
}

func TestDispatcherRandomAlwaysPicksAConfiguredDestination(t *testing.T) {
	in := chans.NewDataChan(16, chans.PolicyBlock)
	a := chans.NewDataChan(16, chans.PolicyBlock)
	b := chans.NewDataChan(16, chans.PolicyBlock)

	d := newDispatcher(in, config.DispatchRandom, []*chans.DataChan{a, b}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.run(ctx)

	for i := uint32(1); i <= 10; i++ {
		require.NoError(t, in.Send(context.Background(), testItem(i)))
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 10, a.Len()+b.Len())
}

func TestDispatcherWithNoDestinationsDropsSilently(t *testing.T) {
	in := chans.NewDataChan(4, chans.PolicyBlock)
	d := newDispatcher(in, config.DispatchBroadcast, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.run(ctx)

	require.NoError(t, in.Send(context.Background(), testItem(1)))
	time.Sleep(10 * time.Millisecond) // no destination to observe; just must not panic/hang
}
