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

import "github.com/apache/arrow/go/v12/arrow"

// RecordSet is a mapping from PayloadType to the Arrow record batch that
// carries it (spec §3). A record set's lifetime is bounded by the Pdata
// that owns it; Release must be called exactly once.
type RecordSet map[PayloadType]arrow.Record

// Release releases every record in the set.
func (rs RecordSet) Release() {
	for _, r := range rs {
		if r != nil {
			r.Release()
		}
	}
}

// Retain increments the reference count of every record in the set.
func (rs RecordSet) Retain() {
	for _, r := range rs {
		if r != nil {
			r.Retain()
		}
	}
}

// NumRootRows returns the row count of the root batch for signal, or 0 if
// absent. Used for payload.num_items() (spec §4.1).
func (rs RecordSet) NumRootRows(signal SignalType) int64 {
	root := rootPayloadType(signal)
	if r, ok := rs[root]; ok && r != nil {
		return r.NumRows()
	}
	return 0
}
