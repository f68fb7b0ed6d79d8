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

package urn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsKnownPatterns(t *testing.T) {
	cases := []struct {
		urn  string
		kind NodeKind
	}{
		{"urn:otel:otlp:receiver", NodeKindReceiver},
		{"URN:otel:otlp:receiver", NodeKindReceiver},
		{"urn:otel:debug:processor", NodeKindProcessor},
		{"urn:otap:processor:batch", NodeKindProcessor},
		{"urn:otap:processor:signal_type_router", NodeKindProcessor},
		{"urn:otel:otap:exporter", NodeKindExporter},
		{"urn:otel:otap:parquet:exporter", NodeKindExporter},
		{"urn:otel:syslog_cef:receiver", NodeKindReceiver},
	}
	for _, tc := range cases {
		t.Run(tc.urn, func(t *testing.T) {
			assert.NoError(t, Validate(tc.urn, tc.kind))
		})
	}
}

func TestValidateRejectsMismatchesAndInvalids(t *testing.T) {
	cases := []struct {
		name string
		urn  string
		kind NodeKind
	}{
		{"otap urn missing name", "urn:otap:receiver", NodeKindReceiver},
		{"otap processor missing name segment", "urn:otap:processor", NodeKindProcessor},
		{"otel urn wrong trailing kind", "urn:otel:otlp:exporter", NodeKindReceiver},
		{"otel urn missing trailing kind", "urn:otel:otlp", NodeKindReceiver},
		{"not a urn at all", "not_a_urn", NodeKindReceiver},
		{"unknown namespace", "urn:unknown:thing:receiver", NodeKindReceiver},
		{"uppercase segment rejected", "urn:otel:OTLP:receiver", NodeKindReceiver},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, Validate(tc.urn, tc.kind))
		})
	}
}

func TestNodeKindString(t *testing.T) {
	assert.Equal(t, "receiver", NodeKindReceiver.String())
	assert.Equal(t, "processor", NodeKindProcessor.String())
	assert.Equal(t, "exporter", NodeKindExporter.String())
	assert.Equal(t, "unspecified", NodeKindUnspecified.String())
}
