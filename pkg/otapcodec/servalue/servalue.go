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

// Package servalue fixes a single binary grammar for the attribute-batch
// "ser" column (spec §4.2.1 step 3, §9 Open Question): a self-describing
// encoding for AnyValue Map and Slice values that MUST round-trip
// bit-exactly. We resolve the Open Question by using real CBOR (RFC 8949)
// in its deterministic/canonical encoding mode rather than inventing a
// grammar, matching the corpus's use of fxamacker/cbor elsewhere in the
// project for self-describing binary payloads.
package servalue

import (
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Value is the neutral, decoded representation of a Map or Slice
// attribute value: one of nil, bool, int64, float64, string, []byte,
// map[string]Value or []Value. Callers translate to/from pcommon.Value.
type Value = interface{}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
	once    sync.Once
)

func modes() (cbor.EncMode, cbor.DecMode) {
	once.Do(func() {
		// Core deterministic encoding: canonical map key ordering and
		// minimal-length integers, so Encode(Decode(b)) == b.
		em, err := cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			panic(err) // static options, cannot fail
		}
		// IntDecConvertSigned: decode every CBOR integer (major type 0
		// and 1) to int64 rather than the library's zero-value default
		// of non-negative -> uint64 / negative -> int64. Without this,
		// a non-negative integer nested inside a Map or Slice value
		// round-trips as uint64 and WriteNeutral's int64-only type
		// switch silently drops it (spec §4.2.1 step 3's "MUST
		// round-trip bit-exactly").
		dm, err := cbor.DecOptions{IntDec: cbor.IntDecConvertSigned}.DecMode()
		if err != nil {
			panic(err)
		}
		encMode, decMode = em, dm
	})
	return encMode, decMode
}

// Encode serializes v (built from Map/Slice/scalar values) into the ser
// column's binary grammar.
func Encode(v Value) ([]byte, error) {
	em, _ := modes()
	return em.Marshal(v)
}

// Decode parses the ser column's binary grammar back into a neutral Value
// tree. Map keys decode as strings into a Go map, which keeps no key order
// (Encode sorts keys canonically again); arrays preserve order.
func Decode(b []byte) (Value, error) {
	_, dm := modes()
	var v Value
	if err := dm.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return normalize(v), nil
}

// normalize rewrites the generic map[interface{}]interface{} / []byte
// shapes the decoder may produce into map[string]Value / []Value so that
// callers never need to type-switch on decoder-internal types.
func normalize(v Value) Value {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]Value, len(t))
		for k, vv := range t {
			ks, _ := k.(string)
			out[ks] = normalize(vv)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]Value, len(t))
		for k, vv := range t {
			out[k] = normalize(vv)
		}
		return out
	case []interface{}:
		out := make([]Value, len(t))
		for i, vv := range t {
			out[i] = normalize(vv)
		}
		return out
	default:
		return v
	}
}
