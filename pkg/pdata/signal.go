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

// Package pdata defines the typed container for one batch of telemetry,
// in either OTAP (columnar) or OTLP (protobuf bytes) form, carried through
// the pipeline alongside its acknowledgement context.
package pdata

// SignalType tags a payload as one of the three OpenTelemetry signal
// families. It selects codec paths (pkg/otapcodec) and ACK/NACK
// subscription maps (pkg/engine/ack).
type SignalType uint8

const (
	// SignalUnspecified is the zero value and never a valid payload tag.
	SignalUnspecified SignalType = iota
	SignalLogs
	SignalMetrics
	SignalTraces
)

// String implements fmt.Stringer.
func (s SignalType) String() string {
	switch s {
	case SignalLogs:
		return "logs"
	case SignalMetrics:
		return "metrics"
	case SignalTraces:
		return "traces"
	default:
		return "unspecified"
	}
}

// Valid reports whether s is one of the three defined signal types.
func (s SignalType) Valid() bool {
	switch s {
	case SignalLogs, SignalMetrics, SignalTraces:
		return true
	default:
		return false
	}
}
