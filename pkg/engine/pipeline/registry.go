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

import (
	"sync"

	"github.com/open-telemetry/otap-dataflow-go/internal/config"
	"github.com/open-telemetry/otap-dataflow-go/internal/urn"
	"github.com/open-telemetry/otap-dataflow-go/internal/werror"
	"github.com/open-telemetry/otap-dataflow-go/pkg/engine/node"
)

// Kind is which of the three node flavors a Wrapper holds (spec §9's
// "single enum NodeWrapper { Receiver, Processor, Exporter } avoids the
// need for dynamic dispatch beyond one level").
type Kind int

const (
	KindUnspecified Kind = iota
	KindReceiver
	KindProcessor
	KindExporter
)

// Wrapper embeds exactly one of the three node role implementations,
// tagged by Kind.
type Wrapper struct {
	Kind      Kind
	Receiver  node.Receiver
	Processor node.Processor
	Exporter  node.Exporter
}

func (k Kind) urnKind() urn.NodeKind {
	switch k {
	case KindReceiver:
		return urn.NodeKindReceiver
	case KindProcessor:
		return urn.NodeKindProcessor
	case KindExporter:
		return urn.NodeKindExporter
	default:
		return urn.NodeKindUnspecified
	}
}

// Factory constructs a Wrapper from a node's validated configuration
// (spec §4.5 step 2: "invoke the registered factory to construct its
// wrapper").
type Factory func(cfg config.NodeConfig) (Wrapper, error)

// Registry is the distributed/static factory table keyed by plugin URN
// (spec §9 "type-erased factories ... a distributed/static registry
// keyed by URN"). Go has no link-time registration macro equivalent to
// Rust's `distributed_slice`/`linkme` (used by the teacher's
// `noop_exporter.rs`), so factories register themselves explicitly, the
// way the teacher's own collector components register via
// `component.NewFactory` calls wired up in a static map at `main`/`init`
// time rather than through build-time code generation.
type Registry struct {
	mu       sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds f under urn, the Kind it is expected to produce wrappers
// for. It is an error to register the same URN twice.
func (r *Registry) Register(pluginURN string, kind Kind, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[pluginURN]; ok {
		return werror.WrapKind(werror.KindConfig, errString("pipeline: factory already registered for "+pluginURN))
	}
	r.factories[pluginURN] = func(cfg config.NodeConfig) (Wrapper, error) {
		w, err := f(cfg)
		if err != nil {
			return Wrapper{}, err
		}
		w.Kind = kind
		return w, nil
	}
	return nil
}

// Build validates cfg.PluginURN against the expected node kind and
// invokes the registered factory (spec §4.5 steps 1-2).
func (r *Registry) Build(cfg config.NodeConfig, kind Kind) (Wrapper, error) {
	if err := urn.Validate(cfg.PluginURN, kind.urnKind()); err != nil {
		return Wrapper{}, err
	}

	r.mu.RLock()
	f, ok := r.factories[cfg.PluginURN]
	r.mu.RUnlock()
	if !ok {
		return Wrapper{}, werror.WrapKind(werror.KindConfig, errString("pipeline: no factory registered for "+cfg.PluginURN))
	}
	return f(cfg)
}

type errString string

func (e errString) Error() string { return string(e) }
