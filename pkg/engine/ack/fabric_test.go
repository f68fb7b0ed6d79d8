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

package ack

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

func TestSubscribeNotifyAwaitRoundTrip(t *testing.T) {
	f := NewFabric()
	ticket, err := f.Subscribe(pdata.SignalLogs, "request-123")
	require.NoError(t, err)
	assert.True(t, ticket.Context.HasSubscription())

	got := f.Notify(pdata.SignalLogs, ticket.Context, OutcomeSent)
	assert.Equal(t, OutcomeSent, got)

	outcome, err := f.Await(context.Background(), ticket)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	assert.Equal(t, 0, f.Pending(pdata.SignalLogs))
}

func TestNotifyWithStaleGenerationIsInvalid(t *testing.T) {
	f := NewFabric()
	ticket, err := f.Subscribe(pdata.SignalTraces, nil)
	require.NoError(t, err)

	stale := ticket.Context
	stale.Generation++

	got := f.Notify(pdata.SignalTraces, stale, OutcomeSent)
	assert.Equal(t, OutcomeInvalid, got)
	assert.Equal(t, 1, f.Pending(pdata.SignalTraces), "the original subscription must remain untouched")
}

func TestNotifyWithoutSubscriptionIsNone(t *testing.T) {
	f := NewFabric()
	got := f.Notify(pdata.SignalLogs, pdata.Context{}, OutcomeSent)
	assert.Equal(t, OutcomeNone, got)
}

func TestNotifyOnWrongSignalMapIsInvalid(t *testing.T) {
	f := NewFabric()
	ticket, err := f.Subscribe(pdata.SignalMetrics, nil)
	require.NoError(t, err)

	got := f.Notify(pdata.SignalLogs, ticket.Context, OutcomeSent)
	assert.Equal(t, OutcomeInvalid, got)
}

func TestExpirePendingMarksOutstandingSubscriptionsExpired(t *testing.T) {
	f := NewFabric()
	t1, err := f.Subscribe(pdata.SignalLogs, nil)
	require.NoError(t, err)
	t2, err := f.Subscribe(pdata.SignalLogs, nil)
	require.NoError(t, err)

	n := f.ExpirePending(pdata.SignalLogs)
	assert.Equal(t, 2, n)

	o1, err := f.Await(context.Background(), t1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExpired, o1)

	o2, err := f.Await(context.Background(), t2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExpired, o2)

	assert.Equal(t, 0, f.Pending(pdata.SignalLogs))
}

func TestAwaitHonorsContextCancellation(t *testing.T) {
	f := NewFabric()
	ticket, err := f.Subscribe(pdata.SignalLogs, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err = f.Await(ctx, ticket)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSlotIDsAreNeverReusedAcrossSubscriptions(t *testing.T) {
	f := NewFabric()
	t1, err := f.Subscribe(pdata.SignalLogs, nil)
	require.NoError(t, err)
	f.Notify(pdata.SignalLogs, t1.Context, OutcomeSent)
	_, _ = f.Await(context.Background(), t1)

	t2, err := f.Subscribe(pdata.SignalLogs, nil)
	require.NoError(t, err)

	assert.NotEqual(t, t1.Context.SlotID, t2.Context.SlotID)
	assert.NotEqual(t, t1.Context.Generation, t2.Context.Generation)
}

func TestNotifyAckSearchesAllSignalMaps(t *testing.T) {
	f := NewFabric()
	ticket, err := f.Subscribe(pdata.SignalTraces, nil)
	require.NoError(t, err)

	require.NoError(t, f.NotifyAck(context.Background(), ticket.Context, OutcomeSent))

	outcome, err := f.Await(context.Background(), ticket)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
}
