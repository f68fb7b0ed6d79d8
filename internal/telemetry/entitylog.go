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

import "go.uber.org/zap"

// EntityLogger emits structured log events attributed to a pipeline
// entity (the pipeline itself, one node, or one channel), the Go
// equivalent of the Rust source's entity-scoped otel_info!/otel_warn!
// macros (spec §4.4). Every call is tagged with an "entity" field so a
// single shared *zap.Logger sink can still be filtered per node/channel
// downstream.
type EntityLogger struct {
	z *zap.Logger
}

// NewEntityLogger wraps z. A nil z yields a logger that discards
// everything, so callers that never configure logging (most tests, and
// any PipelineSettings that leaves Logger unset) pay no cost and need no
// nil check of their own.
func NewEntityLogger(z *zap.Logger) *EntityLogger {
	if z == nil {
		z = zap.NewNop()
	}
	return &EntityLogger{z: z}
}

// Info logs msg at info level, tagged with entity.
func (l *EntityLogger) Info(entity, msg string, fields ...zap.Field) {
	l.z.Info(msg, append([]zap.Field{zap.String("entity", entity)}, fields...)...)
}

// Warn logs msg at warn level, tagged with entity (spec §7's
// channel-overflow and ack-expiry warning events).
func (l *EntityLogger) Warn(entity, msg string, fields ...zap.Field) {
	l.z.Warn(msg, append([]zap.Field{zap.String("entity", entity)}, fields...)...)
}

// Error logs msg at error level, tagged with entity and err.
func (l *EntityLogger) Error(entity, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	l.z.Error(msg, append([]zap.Field{zap.String("entity", entity)}, fields...)...)
}
