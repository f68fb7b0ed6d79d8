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

import "sort"

// ParentIDRow is one row of an attribute batch prior to parent-id encoding:
// a value identifying its (key, type-qualified-value) group and the row
// index of the owning parent in its root/derivative batch.
//
// Grounded on github.com/open-telemetry/otel-arrow's
// pkg/otel/common/arrow.Attr16/Attr32 + SortedAttrs: rows are grouped by
// (key, value) via a stable sort, then the parent id is delta-encoded
// within each group (spec §4.2.1 step 4).
type ParentIDRow struct {
	GroupKey string
	ParentID uint32
	// Index is the row's position before sorting, so callers can recover
	// which caller-supplied value (e.g. attribute key/value columns)
	// corresponds to this row after reordering.
	Index int
}

// EncodeQuasiDelta sorts rows by GroupKey (stable, so ties keep their
// original relative order) and rewrites each ParentID in place to its
// quasi-delta: the raw parent id for the first row of a group, and
// parentID[i]-parentID[i-1] for subsequent rows of the same group. It
// returns the rows in their new (sorted) order; callers must reorder any
// parallel columns using each row's Index.
func EncodeQuasiDelta(rows []ParentIDRow) []ParentIDRow {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].GroupKey < rows[j].GroupKey
	})

	var prevKey string
	var prevID uint32
	haveGroup := false

	for i := range rows {
		raw := rows[i].ParentID
		if haveGroup && rows[i].GroupKey == prevKey {
			rows[i].ParentID = raw - prevID
		}
		// else: first of a new group, stored as-is (raw).
		prevKey = rows[i].GroupKey
		prevID = raw
		haveGroup = true
	}
	return rows
}

// DecodeQuasiDelta reconstructs absolute parent ids from a sequence of
// (groupKey, delta) pairs in the order EncodeQuasiDelta produced them,
// maintaining one running accumulator per group key (spec §4.2.1 step 4:
// "A receiver undoes this by maintaining one running accumulator per group
// key").
func DecodeQuasiDelta(groupKeys []string, deltas []uint32) []uint32 {
	out := make([]uint32, len(deltas))
	running := make(map[string]uint32, len(deltas))
	seen := make(map[string]bool, len(deltas))

	for i, d := range deltas {
		k := groupKeys[i]
		if !seen[k] {
			out[i] = d
			running[k] = d
			seen[k] = true
			continue
		}
		running[k] += d
		out[i] = running[k]
	}
	return out
}
