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

package pdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadKindString(t *testing.T) {
	assert.Equal(t, "otlp_bytes", PayloadKindOtlpBytes.String())
	assert.Equal(t, "otap_records", PayloadKindOtapRecords.String())
	assert.Equal(t, "unspecified", PayloadKindUnspecified.String())
}

func TestOtlpPayloadNumItemsIsZero(t *testing.T) {
	p := NewOtlpPayload([]byte("not parsed here"))
	require.Equal(t, PayloadKindOtlpBytes, p.Kind)
	assert.EqualValues(t, 0, p.NumItems(SignalLogs))
}

func TestPdataIntoPartsRoundTrip(t *testing.T) {
	payload := NewOtlpPayload([]byte{1, 2, 3})
	ctx := Context{SlotID: 7, Generation: 2}
	d := NewWithContext(SignalTraces, payload, ctx)

	signal, gotPayload, gotCtx := d.IntoParts()
	assert.Equal(t, SignalTraces, signal)
	assert.Equal(t, payload, gotPayload)
	assert.Equal(t, ctx, gotCtx)
	assert.True(t, gotCtx.HasSubscription())
}

func TestContextZeroValueHasNoSubscription(t *testing.T) {
	var ctx Context
	assert.False(t, ctx.HasSubscription())
}

func TestWithContextReplacesOnlyContext(t *testing.T) {
	d := NewWithContext(SignalMetrics, NewOtlpPayload(nil), Context{SlotID: 1, Generation: 1})
	d2 := d.WithContext(Context{SlotID: 2, Generation: 5})

	assert.Equal(t, SignalMetrics, d2.SignalType())
	assert.Equal(t, uint32(2), d2.Context().SlotID)
	assert.Equal(t, uint32(1), d.Context().SlotID, "original Pdata must be unaffected")
}
