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
	"fmt"
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/stretchr/testify/require"
)

// attrTypesByKey reads an attribute record batch's key/type columns into a
// map, independent of the row order the accumulator's quasi-delta sort
// produced (spec §4.2.1 step 4 groups rows by key, not insertion order).
func attrTypesByKey(t *testing.T, rec arrow.Record) map[string]AttrType {
	t.Helper()
	require.NotNil(t, rec)
	schema := rec.Schema()

	keyIdx := schema.FieldIndices(ColKey)
	require.NotEmpty(t, keyIdx)
	typeIdx := schema.FieldIndices(ColType)
	require.NotEmpty(t, typeIdx)

	keyAt := stringAccessor(rec.Column(keyIdx[0]))
	typeCol := rec.Column(typeIdx[0]).(*array.Uint8)

	out := make(map[string]AttrType, rec.NumRows())
	for i := 0; i < int(rec.NumRows()); i++ {
		out[keyAt(i)] = AttrType(typeCol.Value(i))
	}
	return out
}

// dictionaryIndexWidth reports the dictionary index width in bits of a
// field's type, or 0 if the field has been demoted to (or was always) a
// native, non-dictionary type (spec §4.2.1 step 5).
func dictionaryIndexWidth(t *testing.T, schema *arrow.Schema, name string) int {
	t.Helper()
	idx := schema.FieldIndices(name)
	require.NotEmpty(t, idx)
	dt, ok := schema.Field(idx[0]).Type.(*arrow.DictionaryType)
	if !ok {
		return 0
	}
	switch dt.IndexType {
	case arrow.PrimitiveTypes.Uint8:
		return 8
	case arrow.PrimitiveTypes.Uint16:
		return 16
	default:
		return 0
	}
}

// distinctStrings returns n distinct strings sharing prefix, used to drive
// the dictionary builder's promotion (>255 distinct values) and demotion
// (>65535 distinct values) thresholds (spec §4.2.1 step 5).
func distinctStrings(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	return out
}
