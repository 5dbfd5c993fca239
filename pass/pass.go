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

// Package pass applies fusion passes to operator graphs.
package pass

import (
	"github.com/gx-org/fuse/graph"
	"github.com/gx-org/fuse/op"
	"github.com/gx-org/fuse/pattern"
	"github.com/pkg/errors"
)

// FuseFunc returns the record replacing the nodes of a match,
// given in pattern order. Only the kind and the attributes of the record
// are used: its identifier, inputs and outputs are set by the manager.
type FuseFunc func(nodes []*graph.Node) (*op.Op, error)

// Pass is a named fusion rule.
type Pass struct {
	Name string
	// Patterns are alternatives, tried in order.
	Patterns []*pattern.Pattern
	Fuse     FuseFunc
}

func (p *Pass) check() error {
	if p.Name == "" {
		return errors.Errorf("pass has no name")
	}
	if len(p.Patterns) == 0 {
		return errors.Errorf("pass %s has no pattern", p.Name)
	}
	for i, pat := range p.Patterns {
		if pat == nil {
			return errors.Errorf("pass %s: pattern %d is nil", p.Name, i)
		}
	}
	if p.Fuse == nil {
		return errors.Errorf("pass %s has no fuse function", p.Name)
	}
	return nil
}

// SingleOp returns true if every pattern of the pass matches a single operator.
func (p *Pass) SingleOp() bool {
	for _, pat := range p.Patterns {
		if pat.NumOps() != 1 {
			return false
		}
	}
	return true
}

// FuseAs returns a fuse function creating a record of a given kind.
// Attributes of the nodes are merged in order: when two nodes
// define the same attribute, the first one wins.
func FuseAs(kind op.Kind) FuseFunc {
	return func(nodes []*graph.Node) (*op.Op, error) {
		if len(nodes) == 0 {
			return nil, errors.Errorf("cannot fuse zero node into %s", kind)
		}
		attrs := op.Attributes{}
		for i := len(nodes) - 1; i >= 0; i-- {
			attrs = attrs.Merge(nodes[i].Op().Attrs)
		}
		fused := op.New(op.NoID, kind, "")
		fused.Attrs = attrs
		return fused, nil
	}
}

// Keep returns a fuse function keeping the record of a single node.
func Keep() FuseFunc {
	return func(nodes []*graph.Node) (*op.Op, error) {
		if len(nodes) != 1 {
			return nil, errors.Errorf("cannot keep %d nodes as a single record", len(nodes))
		}
		return nodes[0].Op().Clone(), nil
	}
}
