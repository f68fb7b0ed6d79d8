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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-telemetry/otap-dataflow-go/pkg/chans"
	"github.com/open-telemetry/otap-dataflow-go/pkg/pdata"
)

func item(slot uint32) pdata.Pdata {
	return pdata.NewWithContext(pdata.SignalLogs, pdata.NewOtlpPayload(nil), pdata.Context{SlotID: slot})
}

func TestRunUntilShutdownProcessesItemsThenShutsDownCleanly(t *testing.T) {
	ctrl := chans.NewControlChan(1)
	in := chans.NewDataChan(4, chans.PolicyDropNewest)
	handler := NewEffectHandler("consumer", nil, nil)

	ctx := context.Background()
	require.NoError(t, in.Send(ctx, item(1)))
	require.NoError(t, in.Send(ctx, item(2)))
	require.NoError(t, ctrl.Send(chans.Shutdown{}))

	var processed atomic.Int32
	state := RunUntilShutdown(ctx, ctrl, in, handler, func(context.Context, pdata.Pdata, *EffectHandler) error {
		processed.Add(1)
		return nil
	}, nil)

	assert.Equal(t, TerminalStateShutdown, state)
	assert.EqualValues(t, 2, processed.Load())
}

func TestRunUntilShutdownDeadlineElapsedWhenDrainIsSlow(t *testing.T) {
	ctrl := chans.NewControlChan(1)
	in := chans.NewDataChan(4, chans.PolicyDropNewest)
	handler := NewEffectHandler("slow-consumer", nil, nil)

	ctx := context.Background()
	require.NoError(t, in.Send(ctx, item(1)))
	require.NoError(t, in.Send(ctx, item(2)))
	require.NoError(t, ctrl.Send(chans.Shutdown{Deadline: time.Now().Add(5 * time.Millisecond)}))

	state := RunUntilShutdown(ctx, ctrl, in, handler, func(c context.Context, _ pdata.Pdata, _ *EffectHandler) error {
		time.Sleep(20 * time.Millisecond)
		return c.Err()
	}, nil)

	assert.Equal(t, TerminalStateDeadlineElapsed, state)
}

func TestRunUntilShutdownReturnsFatalOnItemError(t *testing.T) {
	ctrl := chans.NewControlChan(1)
	in := chans.NewDataChan(1, chans.PolicyDropNewest)
	handler := NewEffectHandler("failing-consumer", nil, nil)

	require.NoError(t, in.Send(context.Background(), item(9)))

	state := RunUntilShutdown(context.Background(), ctrl, in, handler, func(context.Context, pdata.Pdata, *EffectHandler) error {
		return assert.AnError
	}, nil)

	assert.Equal(t, TerminalStateFatal, state)
}

func TestRunUntilShutdownDispatchesNonShutdownControl(t *testing.T) {
	ctrl := chans.NewControlChan(2)
	in := chans.NewDataChan(1, chans.PolicyDropNewest)
	handler := NewEffectHandler("configurable-consumer", nil, nil)

	require.NoError(t, ctrl.Send(chans.ConfigUpdate{Settings: map[string]string{"k": "v"}}))
	require.NoError(t, ctrl.Send(chans.Shutdown{}))

	var sawConfig atomic.Bool
	state := RunUntilShutdown(context.Background(), ctrl, in, handler, func(context.Context, pdata.Pdata, *EffectHandler) error {
		return nil
	}, func(_ context.Context, msg chans.ControlMsg, _ *EffectHandler) error {
		if _, ok := msg.(chans.ConfigUpdate); ok {
			sawConfig.Store(true)
		}
		return nil
	})

	assert.Equal(t, TerminalStateShutdown, state)
	assert.True(t, sawConfig.Load())
}
