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
	"io"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// FormatRate renders a per-second count the way a human would read a log
// line, e.g. "1,024/s". Grounded on the teacher's benchmark/stats
// packages' use of go-humanize for byte/rate formatting.
func FormatRate(countPerSecond int64) string {
	return humanize.Comma(countPerSecond) + "/s"
}

// FormatBytes renders n bytes in human-friendly units ("1.2 MB").
func FormatBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.Bytes(uint64(-n))
	}
	return humanize.Bytes(uint64(n))
}

// DumpTable writes a sorted key/value dump of a CollectAll()-style flat
// metrics map as a text table. This is a debug aid only — the hot path
// never calls it — grounded on `pkg/benchmark/profiler.go`'s use of
// tablewriter for reporting.
func DumpTable(w io.Writer, title string, metrics map[string]int64) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{title, "value"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)

	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		table.Append([]string{k, strconv.FormatInt(metrics[k], 10)})
	}
	table.Render()
}
