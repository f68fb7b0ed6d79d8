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

package chans

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

func item(slot uint32) pdata.Pdata {
	return pdata.NewWithContext(pdata.SignalLogs, pdata.NewOtlpPayload(nil), pdata.Context{SlotID: slot})
}

func TestDataChanDropNewestRejectsOnFull(t *testing.T) {
	c := NewDataChan(1, PolicyDropNewest)
	ctx := context.Background()
	require.NoError(t, c.Send(ctx, item(1)))

	err := c.Send(ctx, item(2))
	require.ErrorIs(t, err, ErrChannelFull)
	assert.EqualValues(t, 1, c.Dropped())

	got, ok := c.TryRecv()
	require.True(t, ok)
	assert.EqualValues(t, 1, got.Context().SlotID)
}

func TestDataChanDropOldestEvictsOldest(t *testing.T) {
	c := NewDataChan(1, PolicyDropOldest)
	ctx := context.Background()
	require.NoError(t, c.Send(ctx, item(1)))
	require.NoError(t, c.Send(ctx, item(2)))

	got, ok := c.TryRecv()
	require.True(t, ok)
	assert.EqualValues(t, 2, got.Context().SlotID, "oldest item (slot 1) should have been evicted")
	assert.EqualValues(t, 1, c.Dropped())
}

func TestDataChanBlockHonorsContextCancellation(t *testing.T) {
	c := NewDataChan(0, PolicyBlock)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.Send(ctx, item(1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestControlChanFullReturnsError(t *testing.T) {
	c := NewControlChan(1)
	require.NoError(t, c.Send(Shutdown{}))
	err := c.Send(Shutdown{})
	require.ErrorIs(t, err, ErrChannelFull)
}

func TestSelectBiasedPrefersControlOverData(t *testing.T) {
	ctrl := NewControlChan(1)
	data := NewDataChan(1, PolicyDropNewest)
	ctx := context.Background()

	require.NoError(t, data.Send(ctx, item(1)))
	require.NoError(t, ctrl.Send(Shutdown{}))

	res := SelectBiased(ctx, ctrl, data)
	require.True(t, res.IsControl)
	_, isShutdown := res.Control.(Shutdown)
	assert.True(t, isShutdown)
}

func TestSelectBiasedReturnsDataWhenNoControlPending(t *testing.T) {
	ctrl := NewControlChan(1)
	data := NewDataChan(1, PolicyDropNewest)
	ctx := context.Background()
	require.NoError(t, data.Send(ctx, item(3)))

	res := SelectBiased(ctx, ctrl, data)
	require.False(t, res.IsControl)
	require.False(t, res.Closed)
	assert.EqualValues(t, 3, res.Data.Context().SlotID)
}
