// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pass

import (
	"slices"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// Registry of passes, in priority order.
type Registry struct {
	passes []*Pass
	byName map[string]*Pass
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Pass)}
}

// Register appends a pass to the registry.
// Passes registered first have priority over passes registered after.
func (r *Registry) Register(p *Pass) error {
	if p == nil {
		return errors.Errorf("cannot register a nil pass")
	}
	if err := p.check(); err != nil {
		return err
	}
	if _, dup := r.byName[p.Name]; dup {
		return errors.Errorf("pass %s already registered", p.Name)
	}
	r.passes = append(r.passes, p)
	r.byName[p.Name] = p
	return nil
}

// MustRegister registers passes and panics on error.
func (r *Registry) MustRegister(ps ...*Pass) *Registry {
	for _, p := range ps {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Get returns a pass given its name.
func (r *Registry) Get(name string) (*Pass, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Passes returns the passes in priority order.
func (r *Registry) Passes() []*Pass {
	return slices.Clone(r.passes)
}

// Names returns the names of the passes in priority order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.passes))
	for i, p := range r.passes {
		names[i] = p.Name
	}
	return names
}

// SortedNames returns the names of the passes in alphabetical order.
func (r *Registry) SortedNames() []string {
	names := maps.Keys(r.byName)
	slices.Sort(names)
	return names
}

// Len returns the number of passes in the registry.
func (r *Registry) Len() int {
	return len(r.passes)
}
