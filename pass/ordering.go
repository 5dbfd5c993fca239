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
	"fmt"
	"slices"

	"github.com/pkg/errors"
)

// Entry of an ordering.
type Entry struct {
	Name     string
	Disabled bool
}

// Ordering overrides the order in which the passes of a registry are applied.
type Ordering struct {
	Entries []Entry
}

// NewOrdering returns an ordering enabling passes in the given order.
func NewOrdering(names ...string) *Ordering {
	ord := &Ordering{}
	for _, name := range names {
		ord.Entries = append(ord.Entries, Entry{Name: name})
	}
	return ord
}

// Disable marks passes as disabled, adding them at the end of the ordering if not present.
func (o *Ordering) Disable(names ...string) *Ordering {
	for _, name := range names {
		i := slices.IndexFunc(o.Entries, func(e Entry) bool { return e.Name == name })
		if i < 0 {
			o.Entries = append(o.Entries, Entry{Name: name, Disabled: true})
			continue
		}
		o.Entries[i].Disabled = true
	}
	return o
}

// Plan returns the passes of a registry in the order they are applied.
//
// Passes listed by the ordering and known by the registry are reordered
// among the positions they occupy in the registry, following the order
// of the ordering. Unknown names are ignored and passes not listed keep
// their position. Disabled passes are removed from the plan.
// A nil ordering returns the registry order.
func Plan(r *Registry, ord *Ordering) []*Pass {
	passes := r.Passes()
	if ord == nil {
		return passes
	}
	disabled := make(map[string]bool)
	listed := make(map[string]bool)
	var order []*Pass
	for _, e := range ord.Entries {
		p, ok := r.Get(e.Name)
		if !ok || listed[e.Name] {
			continue
		}
		listed[e.Name] = true
		order = append(order, p)
		if e.Disabled {
			disabled[e.Name] = true
		}
	}
	next := 0
	for i, p := range passes {
		if !listed[p.Name] {
			continue
		}
		passes[i] = order[next]
		next++
	}
	return slices.DeleteFunc(passes, func(p *Pass) bool {
		return disabled[p.Name]
	})
}

// Unknown returns the names of an ordering not registered in a registry.
func Unknown(r *Registry, ord *Ordering) []string {
	if ord == nil {
		return nil
	}
	var unknown []string
	for _, e := range ord.Entries {
		if _, ok := r.Get(e.Name); !ok {
			unknown = append(unknown, e.Name)
		}
	}
	return unknown
}

// Policy selects the passes applied by a manager.
type Policy int

const (
	// PolicyFusion applies all the passes.
	PolicyFusion Policy = iota
	// PolicyDebug only applies passes matching a single operator.
	PolicyDebug
)

var policyNames = map[Policy]string{
	PolicyFusion: "fusion",
	PolicyDebug:  "debug",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy returns a policy given its name.
func ParsePolicy(s string) (Policy, error) {
	for p, name := range policyNames {
		if name == s {
			return p, nil
		}
	}
	return PolicyFusion, errors.Errorf("unknown partition policy %q", s)
}

func (p Policy) allows(ps *Pass) bool {
	return p != PolicyDebug || ps.SingleOp()
}
