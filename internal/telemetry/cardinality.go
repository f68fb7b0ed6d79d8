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

package telemetry

import (
	"sync"

	"github.com/axiomhq/hyperloglog"
)

// ColumnCardinality approximates the number of distinct values observed
// in one dictionary-encoded column, feeding the dictionary-promotion
// telemetry the codec's adaptive builders consult (spec §4.2.3,
// CollectTelemetry aggregation). Grounded on the teacher's
// `pkg/otel/traces/arrow.ResourceSpansStats.ResSpansIDsDistinct` use of
// `hyperloglog.Sketch`, generalized into a small named-column registry
// rather than one sketch per ad hoc stat field.
type ColumnCardinality struct {
	mu      sync.Mutex
	sketches map[string]*hyperloglog.Sketch
}

// NewColumnCardinality creates an empty cardinality tracker.
func NewColumnCardinality() *ColumnCardinality {
	return &ColumnCardinality{sketches: make(map[string]*hyperloglog.Sketch)}
}

// Observe records one occurrence of value in column.
func (c *ColumnCardinality) Observe(column string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sk, ok := c.sketches[column]
	if !ok {
		sk = hyperloglog.New16()
		c.sketches[column] = sk
	}
	sk.Insert(value)
}

// Estimate returns the approximate distinct-value count observed for
// column so far, or 0 if the column has never been observed.
func (c *ColumnCardinality) Estimate(column string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	sk, ok := c.sketches[column]
	if !ok {
		return 0
	}
	return sk.Estimate()
}

// Snapshot implements MetricSet, reporting one entry per observed column.
func (c *ColumnCardinality) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int64, len(c.sketches))
	for col, sk := range c.sketches {
		out["distinct_"+col] = int64(sk.Estimate())
	}
	return out
}
