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

package pipeline

import "sort"

// buildOrder returns every node id in topological order: a node always
// appears before every node its out-ports name as a destination. Ties
// (nodes with no ordering constraint between them) break by id, so the
// order is deterministic across runs of the same config.
//
// shutdownOrder reverses this: exporters and other destination-less
// leaves are notified first, giving them the full shutdown deadline to
// flush while upstream processors and receivers are still delivering
// their own in-flight items; receivers, which are the sources of new
// work, are asked to stop last.
func (p *Pipeline) buildOrder() []string {
	indegree := make(map[string]int, len(p.nodes))
	for id := range p.nodes {
		indegree[id] = 0
	}
	for _, ns := range p.nodes {
		for _, dest := range ns.destIDs {
			indegree[dest]++
		}
	}

	var ready []string
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(p.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var unlocked []string
		for _, dest := range p.nodes[id].destIDs {
			indegree[dest]--
			if indegree[dest] == 0 {
				unlocked = append(unlocked, dest)
			}
		}
		sort.Strings(unlocked)
		ready = append(ready, unlocked...)
		sort.Strings(ready)
	}

	// A cycle (not otherwise rejected by config validation) would leave
	// nodes out of order; append whatever remains, sorted, rather than
	// silently dropping them from shutdown.
	if len(order) < len(p.nodes) {
		seen := make(map[string]bool, len(order))
		for _, id := range order {
			seen[id] = true
		}
		var remaining []string
		for id := range p.nodes {
			if !seen[id] {
				remaining = append(remaining, id)
			}
		}
		sort.Strings(remaining)
		order = append(order, remaining...)
	}

	return order
}

func (p *Pipeline) shutdownOrder() []string {
	order := p.buildOrder()
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}
