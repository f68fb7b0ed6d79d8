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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/apache/arrow/go/v12/arrow"
)

// SchemaFingerprint is the 256-bit hash identifying an Arrow schema's
// structure (spec §4.2.1 step 6). Downstream pipelines use it to decide
// when to start a new Arrow IPC stream (a schema change requires a fresh
// stream so the dictionary deltas stay consistent).
type SchemaFingerprint [32]byte

// String renders the fingerprint as a hex string, used as the ArrowPayload
// schema_id (spec §6.1).
func (f SchemaFingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Fingerprint computes the schema fingerprint of s, folding in field
// nullability, dictionary key widths, and metadata so that two schemas
// that differ only by a dictionary-width promotion (spec §4.2.1 step 5)
// are correctly treated as different schemas.
func Fingerprint(s *arrow.Schema) SchemaFingerprint {
	var b strings.Builder
	writeSchema(&b, s)
	return sha256.Sum256([]byte(b.String()))
}

func writeSchema(b *strings.Builder, s *arrow.Schema) {
	writeMetadata(b, s.Metadata())
	for _, f := range s.Fields() {
		writeField(b, f)
	}
}

func writeField(b *strings.Builder, f arrow.Field) {
	fmt.Fprintf(b, "(%s:%s:null=%v:", f.Name, f.Type.ID().String(), f.Nullable)
	if dt, ok := f.Type.(*arrow.DictionaryType); ok {
		fmt.Fprintf(b, "dict<%s,%s>:", dt.IndexType.ID().String(), dt.ValueType.ID().String())
	}
	if st, ok := f.Type.(*arrow.StructType); ok {
		for _, nested := range st.Fields() {
			writeField(b, nested)
		}
	}
	writeMetadata(b, f.Metadata)
	b.WriteString(")")
}

func writeMetadata(b *strings.Builder, md arrow.Metadata) {
	keys := append([]string(nil), md.Keys()...)
	sort.Strings(keys)
	for _, k := range keys {
		i := md.FindKey(k)
		fmt.Fprintf(b, "[%s=%s]", k, md.Values()[i])
	}
}

// Metadata keys recognized by the core (spec §4.2.1 step 4, §6.2).
const (
	MetadataColumnEncoding = "column_encoding"
	EncodingPlain          = "plain"
	EncodingDelta          = "delta"
)
