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

// Package urn validates the plugin URN grammar the node factory registry
// keys on (spec §6.4): `urn:otel:<family>[:<subfamily>...]:<kind>` or
// `urn:otap:processor:<name>`. This package only validates; parsing a
// full configuration document (YAML/JSON) is out of core scope (§6.3).
package urn

import (
	"strings"

	"github.com/open-telemetry/otap-dataflow-go/internal/werror"
)

// NodeKind is the role a plugin URN must resolve to (spec §4.4).
type NodeKind int

const (
	NodeKindUnspecified NodeKind = iota
	NodeKindReceiver
	NodeKindProcessor
	NodeKindExporter
)

// String implements fmt.Stringer.
func (k NodeKind) String() string {
	switch k {
	case NodeKindReceiver:
		return "receiver"
	case NodeKindProcessor:
		return "processor"
	case NodeKindExporter:
		return "exporter"
	default:
		return "unspecified"
	}
}

const minOtapProcessorSegments = 2

type errString string

func (e errString) Error() string { return string(e) }

// Validate checks raw against the plugin URN grammar and confirms it
// names a plugin of kind expected. It returns a werror.Kind(KindConfig)
// error describing the first rule violated.
func Validate(raw string, expected NodeKind) error {
	nid, nss, err := split(raw)
	if err != nil {
		return werror.WrapKind(werror.KindConfig, err)
	}

	segs := segments(nss)
	for _, s := range segs {
		if !isValidSegment(s) {
			return werror.WrapKind(werror.KindConfig, errString("urn: NSS segments must be [a-z0-9_] separated by ':': "+raw))
		}
	}

	switch strings.ToLower(nid) {
	case "otap":
		if len(segs) < minOtapProcessorSegments || segs[0] != "processor" {
			return werror.WrapKind(werror.KindConfig, errString("urn: expected `urn:otap:processor:<name>`: "+raw))
		}
		if expected != NodeKindProcessor {
			return werror.WrapKind(werror.KindConfig, errString("urn: urn:otap:processor:* only names a processor, node kind is "+expected.String()+": "+raw))
		}
		return nil
	case "otel":
		if len(segs) == 0 {
			return werror.WrapKind(werror.KindConfig, errString("urn: expected trailing kind (receiver|processor|exporter): "+raw))
		}
		last := segs[len(segs)-1]
		wantSuffix := expected.String()
		if wantSuffix == "unspecified" || last != wantSuffix {
			return werror.WrapKind(werror.KindConfig, errString("urn: expected to end with `"+wantSuffix+"` for node kind "+expected.String()+": "+raw))
		}
		return nil
	default:
		return werror.WrapKind(werror.KindConfig, errString("urn: unknown namespace `"+nid+"` (expected `otel` or `otap`): "+raw))
	}
}

// split breaks raw's "urn:<nid>:<nss>" form into its namespace identifier
// and namespace-specific string, case-insensitively on the leading "urn"
// literal and the nid per RFC 8141.
func split(raw string) (nid, nss string, err error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || !strings.EqualFold(parts[0], "urn") {
		return "", "", errString("urn: not a URN (expected `urn:<nid>:<nss>`): " + raw)
	}
	if parts[1] == "" {
		return "", "", errString("urn: empty namespace identifier: " + raw)
	}
	return parts[1], parts[2], nil
}

// segments splits nss on ':', dropping empty segments the way the Rust
// validator's `.filter(|s| !s.is_empty())` does.
func segments(nss string) []string {
	raw := strings.Split(nss, ":")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isValidSegment(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}
