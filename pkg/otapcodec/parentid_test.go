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

package otapcodec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuasiDeltaRoundTrip(t *testing.T) {
	t.Parallel()

	rows := []ParentIDRow{
		{GroupKey: "k_str=v", ParentID: 0, Index: 0},
		{GroupKey: "k_str=v", ParentID: 3, Index: 1},
		{GroupKey: "k_str=v", ParentID: 7, Index: 2},
		{GroupKey: "k_int=1", ParentID: 5, Index: 3},
	}
	want := map[int]uint32{0: 0, 1: 3, 2: 7, 3: 5}

	encoded := EncodeQuasiDelta(append([]ParentIDRow(nil), rows...))

	groupKeys := make([]string, len(encoded))
	deltas := make([]uint32, len(encoded))
	for i, r := range encoded {
		groupKeys[i] = r.GroupKey
		deltas[i] = r.ParentID
	}

	decoded := DecodeQuasiDelta(groupKeys, deltas)
	for i, r := range encoded {
		require.Equal(t, want[r.Index], decoded[i])
	}
}

func TestQuasiDeltaClosure(t *testing.T) {
	t.Parallel()

	// invariant 8.2.4: decoded parent_id values are a subset of
	// [0, parentRowCount).
	const parentRowCount = 10
	rows := []ParentIDRow{
		{GroupKey: "a", ParentID: 1},
		{GroupKey: "a", ParentID: 2},
		{GroupKey: "a", ParentID: 9},
		{GroupKey: "b", ParentID: 0},
	}
	encoded := EncodeQuasiDelta(append([]ParentIDRow(nil), rows...))
	groupKeys := make([]string, len(encoded))
	deltas := make([]uint32, len(encoded))
	for i, r := range encoded {
		groupKeys[i] = r.GroupKey
		deltas[i] = r.ParentID
	}
	decoded := DecodeQuasiDelta(groupKeys, deltas)
	for _, id := range decoded {
		require.Less(t, id, uint32(parentRowCount))
	}
}
