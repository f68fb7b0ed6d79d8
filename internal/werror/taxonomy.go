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

package werror

import "errors"

// Kind classifies an error so that callers along the pipeline know whether
// to recover locally or escalate. See the error taxonomy in the runtime
// design notes: config errors are fatal at build time, codec/channel errors
// are recovered at the nearest node, node-fatal errors escalate to the
// engine.
type Kind int

const (
	// KindUnknown is the zero value; treat as NodeFatal.
	KindUnknown Kind = iota
	// KindConfig marks a config validation failure (fatal at build time).
	KindConfig
	// KindChannelClosed marks a send/recv against a closed channel.
	KindChannelClosed
	// KindChannelFull marks a send refused because a bounded channel was
	// full and the send does not block (drop-newest data channels, control
	// channels).
	KindChannelFull
	// KindCodec marks a malformed OTAP record set or OTLP protobuf payload.
	KindCodec
	// KindNodeFatal marks an unrecoverable node error (panic, I/O failure).
	KindNodeFatal
	// KindAckExpired marks a subscription slot whose deadline elapsed.
	KindAckExpired
	// KindAckInvalid marks a subscription slot that could not be routed.
	KindAckInvalid
	// KindShutdownDeadlineElapsed marks a shutdown that did not complete in time.
	KindShutdownDeadlineElapsed
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindChannelClosed:
		return "ChannelClosed"
	case KindChannelFull:
		return "ChannelFull"
	case KindCodec:
		return "CodecError"
	case KindNodeFatal:
		return "NodeFatal"
	case KindAckExpired:
		return "AckExpired"
	case KindAckInvalid:
		return "AckInvalid"
	case KindShutdownDeadlineElapsed:
		return "ShutdownDeadlineElapsed"
	default:
		return "Unknown"
	}
}

// Kinded is an error carrying a Kind classification.
type Kinded struct {
	kind Kind
	err  error
}

func (k Kinded) Error() string {
	return k.kind.String() + ": " + k.err.Error()
}

func (k Kinded) Unwrap() error {
	return k.err
}

// WrapKind wraps err with file/line context (via Wrap) and tags it with kind
// so that a node or the engine can branch on classification without string
// matching.
func WrapKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return Wrap(Kinded{kind: kind, err: err})
}

// KindOf reports the Kind carried by err, if any, and whether one was found.
func KindOf(err error) (Kind, bool) {
	var k Kinded
	if errors.As(err, &k) {
		return k.kind, true
	}
	return KindUnknown, false
}

// IsKind reports whether err (or something it wraps) carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
